package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"matchpoint/backend/internal/domain"
	"matchpoint/backend/internal/source"
)

// Definition is one provider booking definition, possibly recurring. Start
// and end arrive as floating timestamps without a UTC offset.
type Definition struct {
	ID             string   `json:"id"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	RecurrenceRule string   `json:"recurrence_rule,omitempty"`
	CourtIDs       []string `json:"court_ids"`
}

// CredentialSource supplies the provider session token. Implementations may
// refresh behind this interface; the client never caches a token itself.
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
}

type StaticCredential string

func (c StaticCredential) Token(ctx context.Context) (string, error) {
	return string(c), nil
}

type Client struct {
	baseURL    string
	creds      CredentialSource
	httpClient *http.Client
}

// NewClient builds a provider client with a bounded request timeout; slow
// upstreams surface as ErrUnavailable instead of hanging the caller.
func NewClient(baseURL string, creds CredentialSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) FetchDefinitions(ctx context.Context, rawStart, rawEnd time.Time) ([]Definition, error) {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: credential: %v", source.ErrUnavailable, err)
	}

	q := url.Values{}
	q.Set("from", rawStart.Format(domain.FloatingLayout))
	q.Set("to", rawEnd.Format(domain.FloatingLayout))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/bookings?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", source.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: provider returned %d", source.ErrUnavailable, resp.StatusCode)
	}

	var defs []Definition
	if err := json.NewDecoder(resp.Body).Decode(&defs); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", source.ErrUnavailable, err)
	}
	return defs, nil
}
