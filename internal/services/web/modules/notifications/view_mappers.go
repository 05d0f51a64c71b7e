package notifications

import (
	"strings"
	"time"

	webtemplates "github.com/doosr/doosr/internal/services/web/templates"
)

const notificationSourceSystem = "system"

func notificationSourceLabel(source string, loc webtemplates.Localizer) string {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case notificationSourceSystem:
		return webtemplates.T(loc, "web.notifications.source_system")
	case "planner":
		return webtemplates.T(loc, "web.notifications.source_planner")
	case "journal":
		return webtemplates.T(loc, "web.notifications.source_journal")
	case "accounting":
		return webtemplates.T(loc, "web.notifications.source_accounting")
	}
	return webtemplates.T(loc, "web.notifications.source_unknown")
}

func notificationCreatedLabel(createdAt time.Time, now time.Time, loc webtemplates.Localizer) string {
	if createdAt.IsZero() {
		return webtemplates.T(loc, "web.notifications.time.just_now")
	}
	delta := max(now.Sub(createdAt.UTC()), 0)
	switch {
	case delta < time.Minute:
		return webtemplates.T(loc, "web.notifications.time.just_now")
	case delta < time.Hour:
		minutes := int(delta / time.Minute)
		if minutes <= 1 {
			return webtemplates.T(loc, "web.notifications.time.minute_ago")
		}
		return webtemplates.T(loc, "web.notifications.time.minutes_ago", minutes)
	case delta < 24*time.Hour:
		hours := int(delta / time.Hour)
		if hours <= 1 {
			return webtemplates.T(loc, "web.notifications.time.hour_ago")
		}
		return webtemplates.T(loc, "web.notifications.time.hours_ago", hours)
	}
	days := int(delta / (24 * time.Hour))
	if days <= 1 {
		return webtemplates.T(loc, "web.notifications.time.day_ago")
	}
	return webtemplates.T(loc, "web.notifications.time.days_ago", days)
}

func unreadLabel(count int, loc webtemplates.Localizer) string {
	if count > 0 {
		return webtemplates.T(loc, "web.nav.notifications_unread", count)
	}
	return webtemplates.T(loc, "web.nav.notifications")
}
