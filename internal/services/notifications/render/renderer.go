// Package render turns stored notifications into localized, channel-aware
// copy.
package render

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/message"
)

// Message types with dedicated copy.
const (
	TypeJournalPrompt  = "journal.prompt"
	TypeDayRollover    = "day.rollover"
	TypeInvoiceOverdue = "invoice.overdue"
	TypeSystemWelcome  = "system.welcome"

	defaultGenericTitle = "Notification"
	defaultGenericBody  = "You have a new notification."
)

// Channel identifies where one notification artifact is rendered.
type Channel string

const (
	// ChannelInApp renders copy for the web inbox.
	ChannelInApp Channel = "in_app"
	// ChannelPush renders shorter copy for push messages.
	ChannelPush Channel = "push"
)

// Input is one channel render request for a stored notification.
type Input struct {
	Type        string
	PayloadJSON string
	Channel     Channel
}

// Output is localized copy derived from one notification.
type Output struct {
	Title    string
	BodyText string
	URL      string
}

// Localizer is the minimal message-printer contract required by the renderer.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// JournalPromptPayload is the payload of journal.prompt notifications.
type JournalPromptPayload struct {
	Date   string `json:"date"`
	Prompt string `json:"prompt"`
}

// DayRolloverPayload is the payload of day.rollover notifications.
type DayRolloverPayload struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// InvoiceOverduePayload is the payload of invoice.overdue notifications.
type InvoiceOverduePayload struct {
	InvoiceID string `json:"invoice_id"`
	Number    string `json:"number"`
	DueDate   string `json:"due_date"`
	Amount    string `json:"amount"`
}

// WelcomePayload is the payload of system.welcome notifications.
type WelcomePayload struct {
	DisplayName string `json:"display_name"`
}

// Render returns localized copy for one notification. Unknown types and
// malformed payloads fall back to generic copy.
func Render(loc Localizer, input Input) Output {
	switch normalizeToken(input.Type) {
	case TypeJournalPrompt:
		var payload JournalPromptPayload
		if !decode(input.PayloadJSON, &payload) || strings.TrimSpace(payload.Prompt) == "" {
			return genericOutput(loc)
		}
		return localized(loc, "journal_prompt", input.Channel, "/journal", []any{payload.Date}, []any{payload.Prompt})
	case TypeDayRollover:
		var payload DayRolloverPayload
		if !decode(input.PayloadJSON, &payload) || payload.To == "" {
			return genericOutput(loc)
		}
		return localized(loc, "day_rollover", input.Channel, "/days/"+payload.To, nil, []any{payload.Count, payload.From})
	case TypeInvoiceOverdue:
		var payload InvoiceOverduePayload
		if !decode(input.PayloadJSON, &payload) || payload.InvoiceID == "" {
			return genericOutput(loc)
		}
		return localized(loc, "invoice_overdue", input.Channel, "/invoices/"+payload.InvoiceID,
			[]any{payload.Number}, []any{payload.Number, payload.Amount, payload.DueDate})
	case TypeSystemWelcome:
		var payload WelcomePayload
		if !decode(input.PayloadJSON, &payload) {
			return genericOutput(loc)
		}
		name := strings.TrimSpace(payload.DisplayName)
		if name == "" {
			name = localizeWithFallback(loc, "notification.system_welcome.friend", "friend")
		}
		return localized(loc, "system_welcome", input.Channel, "/", nil, []any{name})
	default:
		return genericOutput(loc)
	}
}

func localized(loc Localizer, base string, channel Channel, url string, titleArgs, bodyArgs []any) Output {
	titleKey := "notification." + base + ".title"
	bodyKey := "notification." + base + ".body"
	if channel == ChannelPush {
		bodyKey = "notification." + base + ".push_body"
	}
	title, okTitle := localizeArgs(loc, titleKey, titleArgs)
	body, okBody := localizeArgs(loc, bodyKey, bodyArgs)
	if !okTitle || !okBody {
		return genericOutput(loc)
	}
	return Output{Title: title, BodyText: body, URL: url}
}

// localizeArgs probes key without arguments first: printers format unknown
// keys as literal format strings, so only the bare lookup reveals a miss.
func localizeArgs(loc Localizer, key string, args []any) (string, bool) {
	if localize(loc, key) == key {
		return key, false
	}
	return localize(loc, key, args...), true
}

func genericOutput(loc Localizer) Output {
	return Output{
		Title:    localizeWithFallback(loc, "notification.generic.title", defaultGenericTitle),
		BodyText: localizeWithFallback(loc, "notification.generic.body", defaultGenericBody),
		URL:      "/notifications",
	}
}

func decode(raw string, target any) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	return json.Unmarshal([]byte(raw), target) == nil
}

func localize(loc Localizer, key string, args ...any) string {
	if loc == nil {
		return key
	}
	return loc.Sprintf(key, args...)
}

func localizeWithFallback(loc Localizer, key string, fallback string) string {
	value := strings.TrimSpace(localize(loc, key))
	if value == "" || value == key {
		return fallback
	}
	return value
}

func normalizeToken(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
