package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

var errItemMissing = New(KindNotFound, "errors.item_not_found", "item not found")

func TestHTTPStatusMapsKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind Kind
		want int
	}{
		{KindInvalidInput, http.StatusBadRequest},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindLocked, http.StatusLocked},
		{KindRateLimited, http.StatusTooManyRequests},
		{KindUnavailable, http.StatusServiceUnavailable},
		{KindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(New(tt.kind, "", "x")); got != tt.want {
			t.Fatalf("HTTPStatus(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
	if got := HTTPStatus(nil); got != http.StatusOK {
		t.Fatalf("HTTPStatus(nil) = %d, want %d", got, http.StatusOK)
	}
	if got := HTTPStatus(stderrors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("HTTPStatus(plain) = %d, want %d", got, http.StatusInternalServerError)
	}
}

func TestSentinelSurvivesWrapping(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("load day tree: %w", errItemMissing)
	if !stderrors.Is(err, errItemMissing) {
		t.Fatal("expected errors.Is to find sentinel")
	}
	if got := KindOf(err); got != KindNotFound {
		t.Fatalf("KindOf = %q, want %q", got, KindNotFound)
	}
	if got := LocalizationKey(err); got != "errors.item_not_found" {
		t.Fatalf("LocalizationKey = %q, want %q", got, "errors.item_not_found")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("disk full")
	err := Wrap(KindUnavailable, "errors.unavailable", "save journal", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected wrapped cause")
	}
	if got := err.Error(); got != "save journal: disk full" {
		t.Fatalf("Error() = %q, want %q", got, "save journal: disk full")
	}
}
