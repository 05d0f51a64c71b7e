// Package routepath stores canonical HTTP paths for web modules.
package routepath

import (
	"net/url"
	"strings"
)

const (
	Root                      = "/"
	Health                    = "/up"
	Metrics                   = "/metrics"
	Live                      = "/ws"
	StaticPrefix              = "/static/"
	AuthPrefix                = "/auth/"
	AuthLogin                 = "/auth/login"
	AuthRegister              = "/auth/register"
	AuthLogout                = "/auth/logout"
	AuthAccount               = "/auth/account"
	DaysPrefix                = "/days/"
	ListsPrefix               = "/lists/"
	JournalPrefix             = "/journal/"
	JournalCreate             = "/journal/create"
	JournalPrompts            = "/journal/prompts"
	JournalSetup              = "/journal/encryption/setup"
	JournalUnlock             = "/journal/encryption/unlock"
	JournalLock               = "/journal/encryption/lock"
	JournalRotate             = "/journal/encryption/rotate"
	CalendarPrefix            = "/calendar/"
	CalendarConvert           = "/calendar/convert"
	InvoicesPrefix            = "/invoices/"
	InvoiceCustomers          = "/invoices/customers"
	NotificationsPrefix       = "/notifications/"
	NotificationsUnread       = "/notifications/unread"
	NotificationSubscriptions = "/notifications/subscriptions"
)

// Day returns the page of one civil date.
func Day(date string) string {
	return DaysPrefix + escapeSegment(date)
}

// DayAction returns a mutation route below a day, such as "items".
func DayAction(date, action string) string {
	return Day(date) + "/" + action
}

// List returns the page of one list.
func List(listID string) string {
	return ListsPrefix + escapeSegment(listID)
}

// Journal returns the page of one journal.
func Journal(journalID string) string {
	return JournalPrefix + escapeSegment(journalID)
}

// JournalFragments returns the fragment route of one journal.
func JournalFragments(journalID string) string {
	return Journal(journalID) + "/fragments"
}

// JournalPromptToggle returns the activation route of one prompt.
func JournalPromptToggle(promptID string) string {
	return JournalPrompts + "/" + escapeSegment(promptID) + "/toggle"
}

// CalendarYear returns the fixed calendar page of year.
func CalendarYear(year string) string {
	return CalendarPrefix + escapeSegment(year)
}

// Invoice returns the page of one invoice.
func Invoice(invoiceID string) string {
	return InvoicesPrefix + escapeSegment(invoiceID)
}

// InvoiceLineRemove returns the removal route of one invoice line.
func InvoiceLineRemove(invoiceID, lineID string) string {
	return Invoice(invoiceID) + "/lines/" + escapeSegment(lineID) + "/remove"
}

// NotificationRead returns the mark-read route of one notification.
func NotificationRead(notificationID string) string {
	return NotificationsPrefix + escapeSegment(notificationID) + "/read"
}

// Subscription returns the route of one push subscription.
func Subscription(subscriptionID string) string {
	return NotificationSubscriptions + "/" + escapeSegment(subscriptionID)
}

// SafeNext returns next when it is a local absolute path, else fallback.
func SafeNext(next, fallback string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	parsed, err := url.Parse(next)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" {
		return fallback
	}
	return next
}

func escapeSegment(value string) string {
	return url.PathEscape(strings.TrimSpace(value))
}
