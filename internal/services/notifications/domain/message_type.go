package domain

import (
	"strings"

	"github.com/doosr/doosr/internal/services/notifications/render"
)

// Message types produced by the other services.
const (
	MessageTypeJournalPrompt  = render.TypeJournalPrompt
	MessageTypeDayRollover    = render.TypeDayRollover
	MessageTypeInvoiceOverdue = render.TypeInvoiceOverdue
	MessageTypeSystemWelcome  = render.TypeSystemWelcome
)

// DeliveryPolicy defines the effective channels for one message type.
type DeliveryPolicy struct {
	InApp bool
	Push  bool
}

// NormalizeMessageType normalizes a producer-provided message type token.
func NormalizeMessageType(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ResolveDeliveryPolicy returns the channel policy for one message type.
func ResolveDeliveryPolicy(messageType string) DeliveryPolicy {
	switch NormalizeMessageType(messageType) {
	case MessageTypeSystemWelcome, MessageTypeDayRollover:
		// Shown on next visit; not worth interrupting the user.
		return DeliveryPolicy{InApp: true, Push: false}
	default:
		return DeliveryPolicy{InApp: true, Push: true}
	}
}
