package oidc

import (
	"context"
	"net/url"
	"strings"
	"testing"
)

func TestBuildLogoutURL(t *testing.T) {
	got := buildLogoutURL("https://idp.example.com/logout", "client-1",
		"https://app.example.com/", "token-xyz")
	if !strings.HasPrefix(got, "https://idp.example.com/logout?") {
		t.Fatalf("unexpected prefix: %s", got)
	}
	parsed, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := parsed.Query()
	if q.Get("client_id") != "client-1" {
		t.Fatalf("missing client_id: %s", got)
	}
	if q.Get("post_logout_redirect_uri") != "https://app.example.com/" {
		t.Fatalf("missing post_logout_redirect_uri: %s", got)
	}
	if q.Get("id_token_hint") != "token-xyz" {
		t.Fatalf("missing id_token_hint: %s", got)
	}
}

func TestBuildLogoutURLWithoutEndpoint(t *testing.T) {
	if got := buildLogoutURL("", "client-1", "", ""); got != "" {
		t.Fatalf("expected empty URL, got %s", got)
	}
}

func TestNewRequiresIssuerAndClient(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected configuration error")
	}
	if _, err := New(context.Background(), Config{IssuerURL: "https://idp.example.com"}); err == nil {
		t.Fatal("expected configuration error for missing client id")
	}
}
