// Package chat fetches message history from the team chat platform's
// conversations API.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/devpulse-io/devpulse/app/modules/activity/normalizer"
)

const pageLimit = 200

// Client reads channel history via the cursor-paginated history endpoint.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	token      string
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(1), 3),
		baseURL:    baseURL,
		token:      token,
	}
}

type historyResponse struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error"`
	Messages []struct {
		TS      string `json:"ts"`
		User    string `json:"user"`
		Text    string `json:"text"`
		Subtype string `json:"subtype"`
		BotID   string `json:"bot_id"`
	} `json:"messages"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

// History returns every message in the channel newer than oldest. Messages
// come back in no particular order; callers that care must sort.
func (c *Client) History(ctx context.Context, channelID string, oldest time.Time) ([]normalizer.ChatMessage, error) {
	var all []normalizer.ChatMessage
	cursor := ""
	for {
		page, next, err := c.historyPage(ctx, channelID, oldest, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if next == "" {
			return all, nil
		}
		cursor = next
	}
}

func (c *Client) historyPage(ctx context.Context, channelID string, oldest time.Time, cursor string) ([]normalizer.ChatMessage, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	query := url.Values{
		"channel": {channelID},
		"limit":   {strconv.Itoa(pageLimit)},
	}
	if !oldest.IsZero() {
		query.Set("oldest", fmt.Sprintf("%d.000000", oldest.Unix()))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	u := fmt.Sprintf("%s/conversations.history?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build history request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("history request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("history request returned %s", resp.Status)
	}

	var body historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, "", fmt.Errorf("failed to decode history response: %w", err)
	}
	if !body.OK {
		return nil, "", fmt.Errorf("history request rejected: %s", body.Error)
	}

	messages := make([]normalizer.ChatMessage, 0, len(body.Messages))
	for _, msg := range body.Messages {
		messages = append(messages, normalizer.ChatMessage{
			ID:          msg.TS,
			AuthorAlias: msg.User,
			Text:        msg.Text,
			Timestamp:   timestampFromTS(msg.TS),
			Subtype:     msg.Subtype,
			Bot:         msg.BotID != "",
		})
	}
	return messages, body.ResponseMetadata.NextCursor, nil
}

// timestampFromTS parses the platform's "seconds.microseconds" message id.
func timestampFromTS(ts string) time.Time {
	seconds, fraction, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(seconds, 10, 64)
	if err != nil {
		return time.Time{}
	}
	var micros int64
	if fraction != "" {
		micros, _ = strconv.ParseInt(fraction, 10, 64)
	}
	return time.Unix(sec, micros*1000).UTC()
}
