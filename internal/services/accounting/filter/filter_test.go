package filter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		filter string
		want   Condition
	}{
		{name: "blank", filter: "  ", want: Condition{}},
		{
			name:   "single",
			filter: `status = "sent"`,
			want:   Condition{Clause: "status = ?", Params: []any{"sent"}},
		},
		{
			name:   "and",
			filter: `customer_id = "c1" AND total_minor >= 1000`,
			want:   Condition{Clause: "(customer_id = ? AND total_minor >= ?)", Params: []any{"c1", int64(1000)}},
		},
		{
			name:   "or of dates",
			filter: `due_date < "2026-10-01" OR issue_date > "2026-12-31"`,
			want:   Condition{Clause: "(due_date < ? OR issue_date > ?)", Params: []any{"2026-10-01", "2026-12-31"}},
		},
		{
			name:   "not equal",
			filter: `currency != "EUR"`,
			want:   Condition{Clause: "currency != ?", Params: []any{"EUR"}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tc.filter)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tc.filter, err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("condition (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	t.Parallel()
	for _, value := range []string{`owner = "x"`, `status = `, `total_minor = "many"`} {
		if _, err := Parse(value); err == nil {
			t.Fatalf("Parse(%q) expected error", value)
		}
	}
}
