package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lblod/verenigingen-harvester/internal/config"
	"github.com/lblod/verenigingen-harvester/internal/support/exception"
)

// TokenProvider obtains an access token for the register API. Callers acquire
// a fresh token per logical run; providers do not cache or refresh.
type TokenProvider interface {
	Acquire(ctx context.Context) (string, error)
}

// NewTokenProvider returns the TokenProvider selected by the configured
// strategy.
func NewTokenProvider(cfg *config.Config) (TokenProvider, error) {
	rc := cfg.Harvester.Registry
	httpClient := &http.Client{Timeout: rc.Timeout()}
	switch rc.TokenStrategy {
	case config.TokenStrategyClientCredentials:
		return &ClientCredentialsProvider{
			httpClient:       httpClient,
			tokenURL:         rc.TokenURL,
			authorizationKey: rc.AuthorizationKey,
			scope:            rc.Scope,
		}, nil
	case config.TokenStrategySignedAssertion:
		key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(rc.PrivateKeyPEM))
		if err != nil {
			return nil, exception.New("token_provider", "failed to parse client private key", err, exception.KindAuth)
		}
		return &SignedAssertionProvider{
			httpClient: httpClient,
			tokenURL:   rc.TokenURL,
			clientID:   rc.ClientID,
			scope:      rc.Scope,
			privateKey: key,
		}, nil
	default:
		return nil, exception.Newf("token_provider", exception.KindAuth, "unknown token strategy %q", rc.TokenStrategy)
	}
}

// ClientCredentialsProvider exchanges a static basic-auth secret for a bearer
// token at the token endpoint.
type ClientCredentialsProvider struct {
	httpClient       *http.Client
	tokenURL         string
	authorizationKey string
	scope            string
}

// NewClientCredentialsProvider creates a provider with explicit settings,
// used in tests.
func NewClientCredentialsProvider(httpClient *http.Client, tokenURL, authorizationKey, scope string) *ClientCredentialsProvider {
	return &ClientCredentialsProvider{
		httpClient:       httpClient,
		tokenURL:         tokenURL,
		authorizationKey: authorizationKey,
		scope:            scope,
	}
}

// Acquire POSTs a client_credentials grant and returns the access token.
func (p *ClientCredentialsProvider) Acquire(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", p.scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", exception.New("token_provider", "failed to build token request", err, exception.KindAuth)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+p.authorizationKey)

	return exchange(p.httpClient, req)
}

// SignedAssertionProvider builds a short-lived signed JWT identifying the
// client and exchanges it for a bearer token.
type SignedAssertionProvider struct {
	httpClient *http.Client
	tokenURL   string
	clientID   string
	scope      string
	privateKey interface{}
}

// NewSignedAssertionProvider creates a provider with an already parsed
// private key, used in tests.
func NewSignedAssertionProvider(httpClient *http.Client, tokenURL, clientID, scope string, privateKey interface{}) *SignedAssertionProvider {
	return &SignedAssertionProvider{
		httpClient: httpClient,
		tokenURL:   tokenURL,
		clientID:   clientID,
		scope:      scope,
		privateKey: privateKey,
	}
}

// assertionTTL keeps the assertion short-lived as required by the token
// endpoint.
const assertionTTL = 9 * time.Minute

func (p *SignedAssertionProvider) buildAssertion() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    p.clientID,
		Subject:   p.clientID,
		Audience:  jwt.ClaimStrings{p.tokenURL},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(assertionTTL)),
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(p.privateKey)
	if err != nil {
		return "", exception.New("token_provider", "failed to sign client assertion", err, exception.KindAuth)
	}
	return signed, nil
}

// Acquire signs an assertion and exchanges it for a bearer token.
func (p *SignedAssertionProvider) Acquire(ctx context.Context) (string, error) {
	assertion, err := p.buildAssertion()
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", p.scope)
	form.Set("client_assertion_type", "urn:ietf:params:oauth:client-assertion-type:jwt-bearer")
	form.Set("client_assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", exception.New("token_provider", "failed to build token request", err, exception.KindAuth)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return exchange(p.httpClient, req)
}

// exchange performs the token request and extracts the access_token field.
func exchange(client *http.Client, req *http.Request) (string, error) {
	resp, err := client.Do(req)
	if err != nil {
		return "", exception.New("token_provider", "token exchange request failed", err, exception.KindAuth)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", exception.New("token_provider", "failed to read token response", err, exception.KindAuth)
	}
	if resp.StatusCode != http.StatusOK {
		return "", exception.Newf("token_provider", exception.KindAuth,
			"token endpoint returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", exception.New("token_provider", "failed to decode token response", err, exception.KindAuth)
	}
	if payload.AccessToken == "" {
		return "", exception.Newf("token_provider", exception.KindAuth, "token response carries no access_token")
	}
	return payload.AccessToken, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return fmt.Sprintf("%s...", s[:max])
}
