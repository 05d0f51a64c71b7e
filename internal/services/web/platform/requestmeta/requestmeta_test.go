package requestmeta

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSameOrigin(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		origin  string
		referer string
		policy  SchemePolicy
		proto   string
		want    bool
	}{
		"matching origin":          {origin: "http://example.com", want: true},
		"explicit default port":    {origin: "http://example.com:80", want: true},
		"other host":               {origin: "http://evil.test", want: false},
		"other port":               {origin: "http://example.com:8080", want: false},
		"scheme mismatch":          {origin: "https://example.com", want: false},
		"referer fallback":         {referer: "http://example.com/days/", want: true},
		"no proof":                 {want: false},
		"untrusted forwarded":      {origin: "https://example.com", proto: "https", want: false},
		"trusted forwarded":        {origin: "https://example.com", proto: "https", policy: SchemePolicy{TrustForwardedProto: true}, want: true},
		"origin wins over referer": {origin: "http://evil.test", referer: "http://example.com/", want: false},
	}
	for name, tc := range tests {
		req := httptest.NewRequest(http.MethodPost, "/days/", nil)
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		if tc.referer != "" {
			req.Header.Set("Referer", tc.referer)
		}
		if tc.proto != "" {
			req.Header.Set("X-Forwarded-Proto", tc.proto)
		}
		if got := SameOrigin(req, tc.policy); got != tc.want {
			t.Fatalf("%s: SameOrigin = %v, want %v", name, got, tc.want)
		}
	}
}

func TestIsHTTPS(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if IsHTTPS(req, SchemePolicy{}) {
		t.Fatal("plain request reported as https")
	}
	req.TLS = &tls.ConnectionState{}
	if !IsHTTPS(req, SchemePolicy{}) {
		t.Fatal("tls request not reported as https")
	}
}

func TestRequireSameOrigin(t *testing.T) {
	t.Parallel()

	handler := RequireSameOrigin(SchemePolicy{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	get := httptest.NewRecorder()
	handler.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/", nil))
	if get.Code != http.StatusNoContent {
		t.Fatalf("GET status = %d, want %d", get.Code, http.StatusNoContent)
	}

	cross := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Origin", "http://evil.test")
	handler.ServeHTTP(cross, req)
	if cross.Code != http.StatusForbidden {
		t.Fatalf("cross-origin POST status = %d, want %d", cross.Code, http.StatusForbidden)
	}

	same := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Origin", "http://example.com")
	handler.ServeHTTP(same, req)
	if same.Code != http.StatusNoContent {
		t.Fatalf("same-origin POST status = %d, want %d", same.Code, http.StatusNoContent)
	}
}
