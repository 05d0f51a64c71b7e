package domain

import "testing"

func TestNormalizeMessageType(t *testing.T) {
	t.Parallel()

	if got := NormalizeMessageType("  JOURNAL.Prompt  "); got != MessageTypeJournalPrompt {
		t.Fatalf("NormalizeMessageType = %q, want %q", got, MessageTypeJournalPrompt)
	}
}

func TestResolveDeliveryPolicy(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		messageType string
		want        DeliveryPolicy
	}{
		{messageType: MessageTypeJournalPrompt, want: DeliveryPolicy{InApp: true, Push: true}},
		{messageType: MessageTypeInvoiceOverdue, want: DeliveryPolicy{InApp: true, Push: true}},
		{messageType: MessageTypeDayRollover, want: DeliveryPolicy{InApp: true}},
		{messageType: " System.Welcome ", want: DeliveryPolicy{InApp: true}},
		{messageType: "custom.reminder", want: DeliveryPolicy{InApp: true, Push: true}},
	}
	for _, tc := range testCases {
		if got := ResolveDeliveryPolicy(tc.messageType); got != tc.want {
			t.Fatalf("ResolveDeliveryPolicy(%q) = %+v, want %+v", tc.messageType, got, tc.want)
		}
	}
}
