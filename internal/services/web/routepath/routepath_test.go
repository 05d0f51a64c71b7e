package routepath

import "testing"

func TestBuilders(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		Day("2026-09-17"):                "/days/2026-09-17",
		DayAction("2026-09-17", "items"): "/days/2026-09-17/items",
		List("a b"):                      "/lists/a%20b",
		Journal("j1"):                    "/journal/j1",
		JournalFragments("j1"):           "/journal/j1/fragments",
		JournalPromptToggle("p1"):        "/journal/prompts/p1/toggle",
		CalendarYear("2026"):             "/calendar/2026",
		Invoice("inv1"):                  "/invoices/inv1",
		InvoiceLineRemove("inv1", "l/2"): "/invoices/inv1/lines/l%2F2/remove",
		NotificationRead("n1"):           "/notifications/n1/read",
		Subscription("s1"):               "/notifications/subscriptions/s1",
	}
	for got, want := range tests {
		if got != want {
			t.Fatalf("route = %q, want %q", got, want)
		}
	}
}

func TestSafeNext(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"/days/2026-09-17":   "/days/2026-09-17",
		"/lists/?x=1":        "/lists/?x=1",
		"":                   "/days/",
		"https://evil.test/": "/days/",
		"//evil.test/":       "/days/",
		"/\\evil.test":       "/days/",
		"days":               "/days/",
	}
	for next, want := range tests {
		if got := SafeNext(next, DaysPrefix); got != want {
			t.Fatalf("SafeNext(%q) = %q, want %q", next, got, want)
		}
	}
}
