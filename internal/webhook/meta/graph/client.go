// Package graph fetches lead details from the Graph API.
//
// Webhook deliveries carry only opaque lead ids; the actual field values come
// from a secondary per-lead fetch. Fetches are bounded by a timeout and a
// retry-with-backoff policy so one slow upstream cannot stall a batch forever.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultBaseURL is the Graph API base used when no override is configured.
const DefaultBaseURL = "https://graph.facebook.com/v19.0"

// leadFields is the field list requested for each lead.
var leadFields = []string{
	"id", "created_time", "ad_id", "adgroup_id", "campaign_id", "form_id", "field_data", "platform",
}

// Field is one submitted form field.
type Field struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Lead is the detail record for one lead id.
type Lead struct {
	ID          string  `json:"id"`
	CreatedTime string  `json:"created_time"`
	AdID        string  `json:"ad_id"`
	FormID      string  `json:"form_id"`
	FieldData   []Field `json:"field_data"`
	Platform    string  `json:"platform"`

	// Raw is the response body as delivered, preserved for the audit payload.
	Raw json.RawMessage `json:"-"`
}

// FieldValue returns the first value of the named field (case-insensitive), or "".
func (l *Lead) FieldValue(name string) string {
	for _, f := range l.FieldData {
		if strings.EqualFold(f.Name, name) && len(f.Values) > 0 {
			return strings.TrimSpace(f.Values[0])
		}
	}
	return ""
}

// OccurredAt parses the lead's created time; falls back to now when absent or malformed.
func (l *Lead) OccurredAt(now time.Time) time.Time {
	if l.CreatedTime == "" {
		return now
	}
	// Graph uses RFC3339 with a numeric offset and no colon (e.g. +0000).
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-0700"} {
		if t, err := time.Parse(layout, l.CreatedTime); err == nil {
			return t.UTC()
		}
	}
	return now
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client fetches lead details. In dev mode it serves a canned lead so the whole
// pipeline can run without upstream credentials.
type Client struct {
	accessToken string
	baseURL     string
	maxRetries  uint64
	devMode     bool
	httpClient  *http.Client
	nowF        func() time.Time
}

// NewClient returns a Graph client. baseURL may be empty (DefaultBaseURL).
func NewClient(accessToken, baseURL string, timeout time.Duration, maxRetries int, devMode bool) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		accessToken: accessToken,
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxRetries:  uint64(maxRetries),
		devMode:     devMode,
		httpClient:  &http.Client{Timeout: timeout},
		nowF:        func() time.Time { return time.Now().UTC() },
	}
}

// FetchLead retrieves the detail record for leadID, retrying transient failures
// with exponential backoff. Client errors (4xx) are permanent and not retried.
func (c *Client) FetchLead(ctx context.Context, leadID string) (*Lead, error) {
	if c.devMode {
		return c.devLead(leadID), nil
	}
	if c.accessToken == "" {
		return nil, fmt.Errorf("graph: access token not configured")
	}

	var lead *Lead
	op := func() error {
		l, err := c.fetchOnce(ctx, leadID)
		if err != nil {
			return err
		}
		lead = l
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return lead, nil
}

func (c *Client) fetchOnce(ctx context.Context, leadID string) (*Lead, error) {
	u := fmt.Sprintf("%s/%s?fields=%s&access_token=%s",
		c.baseURL,
		url.PathEscape(leadID),
		url.QueryEscape(strings.Join(leadFields, ",")),
		url.QueryEscape(c.accessToken),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		var ge graphError
		msg := "graph API error"
		if err := json.Unmarshal(body, &ge); err == nil && ge.Error.Message != "" {
			msg = ge.Error.Message
		}
		err := fmt.Errorf("graph: fetch lead %s failed status=%d: %s", leadID, resp.StatusCode, msg)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	var lead Lead
	if err := json.Unmarshal(body, &lead); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("graph: decode lead %s: %w", leadID, err))
	}
	lead.Raw = json.RawMessage(body)
	return &lead, nil
}

// devLead is the canned record served in dev mode; form_id matches the seeded mapping.
func (c *Client) devLead(leadID string) *Lead {
	lead := &Lead{
		ID:          leadID,
		CreatedTime: c.nowF().Format(time.RFC3339),
		AdID:        "dev_ad",
		FormID:      "test-form-1",
		FieldData: []Field{
			{Name: "full_name", Values: []string{"Test Person"}},
			{Name: "email", Values: []string{"test@example.com"}},
		},
	}
	raw, _ := json.Marshal(lead)
	lead.Raw = raw
	return lead
}
