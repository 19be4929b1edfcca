package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                          "/",
		"/metrics":                  "/metrics",
		"/v1/trades":                "/v1/trades",
		"/v1/trades?status=PENDING": "/v1/trades",
		"/v1/trades/01J8ZX":         "/v1/trades/:id",
		"/v1/trades/01J8ZX/confirm": "/v1/trades/:id/confirm",
		"/v1/trades/01J8ZX/approve": "/v1/trades/:id/approve",
		"/v1/trades/stream":         "/v1/trades/stream",
		"/v1/me":                    "/v1/me",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
