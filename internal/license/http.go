package license

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// HTTPVerifier asks a remote licence service. Each call is a single attempt;
// retrying is left to the operator.
type HTTPVerifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPVerifier(endpoint, apiKey string, client *http.Client) *HTTPVerifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPVerifier{endpoint: endpoint, apiKey: apiKey, client: client}
}

// OAuthClient returns an HTTP client that authenticates with the OAuth2
// client-credentials flow, for licence services that require it.
func OAuthClient(ctx context.Context, clientID, clientSecret, tokenURL string, scopes []string) *http.Client {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
	}
	client := cfg.Client(ctx)
	client.Timeout = 10 * time.Second
	return client
}

type verifyRequest struct {
	LicenseKey string `json:"licenseKey"`
	UserID     string `json:"userId"`
}

type verifyResponse struct {
	Valid        bool   `json:"valid"`
	Plan         string `json:"plan"`
	DurationDays int    `json:"durationDays"`
	Message      string `json:"message"`
}

func (v *HTTPVerifier) Verify(ctx context.Context, key, userID string) (Grant, error) {
	body, err := json.Marshal(verifyRequest{LicenseKey: key, UserID: userID})
	if err != nil {
		return Grant{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return Grant{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		req.Header.Set("X-API-Key", v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return Grant{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<10))
	if err != nil {
		return Grant{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var out verifyResponse
	decodeErr := json.Unmarshal(raw, &out)
	// A failing backend says nothing about the key.
	if resp.StatusCode >= http.StatusInternalServerError {
		return Grant{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode/100 != 2 {
		msg := strings.TrimSpace(out.Message)
		if decodeErr != nil || msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return Grant{}, fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	if decodeErr != nil {
		return Grant{}, fmt.Errorf("%w: malformed answer", ErrUnavailable)
	}
	if !out.Valid {
		msg := strings.TrimSpace(out.Message)
		if msg == "" {
			msg = "unknown key"
		}
		return Grant{}, fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	return Grant{Plan: out.Plan, DurationDays: out.DurationDays}, nil
}
