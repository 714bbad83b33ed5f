package slackapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/slack-go/slack"

	"github.com/relaygate/slackbridge/internal/subscription"
)

// TokenSource fetches per-app Slack access tokens from the external
// credentials service.
type TokenSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewTokenSource builds a token source against the credentials service base
// URL. timeout bounds each fetch.
func NewTokenSource(baseURL string, timeout time.Duration) *TokenSource {
	return &TokenSource{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Token returns the access token registered for the app.
func (t *TokenSource) Token(ctx context.Context, appID string) (string, error) {
	endpoint := fmt.Sprintf("%s/creds?appID=%s&integration=slack", t.baseURL, url.QueryEscape(appID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build credentials request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch credentials: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("credentials service returned status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode credentials response: %w", err)
	}
	return payload.AccessToken, nil
}

// Factory builds a Slack client per operation, resolving the app credential
// on every call. A failed credential fetch is logged and degraded to an
// empty-token client; the following Slack call then fails with a platform
// auth error instead of a local one, matching how subscribers observe
// credential problems today.
type Factory struct {
	tokens     *TokenSource
	httpClient *http.Client
	logger     *log.Logger
}

var _ subscription.ClientFactory = (*Factory)(nil)

// NewFactory constructs a client factory. timeout bounds each outbound Slack
// Web API call.
func NewFactory(tokens *TokenSource, timeout time.Duration, logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.New(os.Stdout, "slackapi ", log.LstdFlags)
	}
	return &Factory{
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ClientFor returns a Slack client authorized for the given app.
func (f *Factory) ClientFor(ctx context.Context, appID string) subscription.SlackClient {
	token, err := f.tokens.Token(ctx, appID)
	if err != nil {
		f.logger.Printf("event=credential_fetch app_id=%s status=error err=%v", appID, err)
		token = ""
	}
	return NewClient(slack.New(token, slack.OptionHTTPClient(f.httpClient)))
}
