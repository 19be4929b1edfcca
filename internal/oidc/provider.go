package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"tradedesk.org/internal/authz"
)

// Config describes the relying-party registration at the identity provider.
type Config struct {
	IssuerURL          string
	ClientID           string
	ClientSecret       string
	RedirectURL        string
	Scopes             []string
	PostLogoutRedirect string
}

// Provider handles the authorization-code flow against a discovered OIDC
// issuer. Token signature trust lives here; everything downstream works with
// already-verified claims.
type Provider struct {
	config       Config
	provider     *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
	oauth2Config *oauth2.Config
	endSession   string
}

// New discovers the issuer metadata and prepares the verifier and OAuth2
// exchange configuration.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.IssuerURL == "" || cfg.ClientID == "" {
		return nil, errors.New("oidc: issuer URL and client ID are required")
	}
	provider, err := gooidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc: discover provider: %w", err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, "profile", "email"}
	}

	var discovered struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	// Optional metadata; absence only disables RP-initiated logout.
	_ = provider.Claims(&discovered)

	return &Provider{
		config:   cfg,
		provider: provider,
		verifier: provider.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		endSession: discovered.EndSessionEndpoint,
	}, nil
}

// AuthCodeURL returns the provider's authorization endpoint URL for the
// given anti-forgery state.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens, verifies the ID token
// and returns it raw together with its claims.
func (p *Provider) Exchange(ctx context.Context, code string) (string, authz.Claims, error) {
	if strings.TrimSpace(code) == "" {
		return "", nil, errors.New("oidc: missing authorization code")
	}
	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return "", nil, fmt.Errorf("oidc: exchange code: %w", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", nil, errors.New("oidc: missing id_token in token response")
	}
	claims, err := p.Verify(ctx, rawIDToken)
	if err != nil {
		return "", nil, err
	}
	return rawIDToken, claims, nil
}

// Verify checks the ID token signature, issuer, audience and expiry, and
// returns the verified claims.
func (p *Provider) Verify(ctx context.Context, rawIDToken string) (authz.Claims, error) {
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("oidc: verify id token: %w", err)
	}
	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("oidc: decode claims: %w", err)
	}
	return authz.Claims(claims), nil
}

// LogoutURL builds the RP-initiated logout URL, or "" when the provider
// does not advertise an end-session endpoint.
func (p *Provider) LogoutURL(idTokenHint string) string {
	return buildLogoutURL(p.endSession, p.config.ClientID, p.config.PostLogoutRedirect, idTokenHint)
}

func buildLogoutURL(endpoint, clientID, postLogoutRedirect, idTokenHint string) string {
	if endpoint == "" {
		return ""
	}
	q := url.Values{}
	q.Set("client_id", clientID)
	if postLogoutRedirect != "" {
		q.Set("post_logout_redirect_uri", postLogoutRedirect)
	}
	if idTokenHint != "" {
		q.Set("id_token_hint", idTokenHint)
	}
	return endpoint + "?" + q.Encode()
}
