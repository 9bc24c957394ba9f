// Package github is a thin, paginated fetcher for the version-control
// events the normalizer consumes. It is deliberately minimal: bearer auth,
// a client-side rate limit, and list endpoints only.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/devpulse-io/devpulse/app/modules/activity/normalizer"
)

const perPage = 100

// Client fetches raw events from the GitHub REST API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	org        string
}

// NewClient builds an authenticated client. The limiter stays well inside
// GitHub's 5000 requests/hour authenticated budget.
func NewClient(ctx context.Context, baseURL, org, token string) *Client {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Client{
		httpClient: oauth2.NewClient(ctx, source),
		limiter:    rate.NewLimiter(rate.Limit(1), 5),
		baseURL:    baseURL,
		org:        org,
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request to %s returned %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// paginate fetches every page of path until a short page signals the end.
func paginate[T any](ctx context.Context, c *Client, path string, extra url.Values) ([]T, error) {
	var all []T
	for page := 1; ; page++ {
		query := url.Values{}
		for key, values := range extra {
			query[key] = values
		}
		query.Set("per_page", fmt.Sprint(perPage))
		query.Set("page", fmt.Sprint(page))

		var batch []T
		if err := c.get(ctx, path, query, &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < perPage {
			return all, nil
		}
	}
}

// ListIssues returns all issues (excluding pull requests) updated since the
// given time.
func (c *Client) ListIssues(ctx context.Context, repo string, since time.Time) ([]normalizer.Issue, error) {
	type issueOrPR struct {
		normalizer.Issue
		PullRequest *struct{} `json:"pull_request"`
	}
	extra := url.Values{"state": {"all"}}
	if !since.IsZero() {
		extra.Set("since", since.UTC().Format(time.RFC3339))
	}
	raw, err := paginate[issueOrPR](ctx, c, fmt.Sprintf("/repos/%s/%s/issues", c.org, repo), extra)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues for %s: %w", repo, err)
	}
	var issues []normalizer.Issue
	for _, item := range raw {
		if item.PullRequest != nil {
			continue
		}
		issues = append(issues, item.Issue)
	}
	return issues, nil
}

// ListIssueTimeline returns the timeline events for one issue.
func (c *Client) ListIssueTimeline(ctx context.Context, repo string, number int) ([]normalizer.TimelineEvent, error) {
	events, err := paginate[normalizer.TimelineEvent](ctx, c, fmt.Sprintf("/repos/%s/%s/issues/%d/timeline", c.org, repo, number), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list timeline for %s#%d: %w", repo, number, err)
	}
	return events, nil
}

// ListPullRequests returns all pull requests for a repo.
func (c *Client) ListPullRequests(ctx context.Context, repo string) ([]normalizer.PullRequest, error) {
	prs, err := paginate[normalizer.PullRequest](ctx, c, fmt.Sprintf("/repos/%s/%s/pulls", c.org, repo), url.Values{
		"state": {"all"},
		"sort":  {"updated"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests for %s: %w", repo, err)
	}
	return prs, nil
}

// ListReviews returns the reviews on one pull request.
func (c *Client) ListReviews(ctx context.Context, repo string, number int) ([]normalizer.Review, error) {
	reviews, err := paginate[normalizer.Review](ctx, c, fmt.Sprintf("/repos/%s/%s/pulls/%d/reviews", c.org, repo, number), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews for %s#%d: %w", repo, number, err)
	}
	return reviews, nil
}

// ListIssueComments returns all issue and pull request comments updated
// since the given time.
func (c *Client) ListIssueComments(ctx context.Context, repo string, since time.Time) ([]normalizer.Comment, error) {
	type rawComment struct {
		ID        int64             `json:"id"`
		User      *normalizer.Actor `json:"user"`
		Body      string            `json:"body"`
		HTMLURL   string            `json:"html_url"`
		IssueURL  string            `json:"issue_url"`
		CreatedAt time.Time         `json:"created_at"`
	}
	extra := url.Values{}
	if !since.IsZero() {
		extra.Set("since", since.UTC().Format(time.RFC3339))
	}
	raw, err := paginate[rawComment](ctx, c, fmt.Sprintf("/repos/%s/%s/issues/comments", c.org, repo), extra)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments for %s: %w", repo, err)
	}
	comments := make([]normalizer.Comment, 0, len(raw))
	for _, item := range raw {
		comments = append(comments, normalizer.Comment{
			ID:          item.ID,
			User:        item.User,
			Body:        item.Body,
			HTMLURL:     item.HTMLURL,
			CreatedAt:   item.CreatedAt,
			IssueNumber: issueNumberFromURL(item.IssueURL),
		})
	}
	return comments, nil
}

// ListCommits returns commits on one branch since the given time.
func (c *Client) ListCommits(ctx context.Context, repo, branch string, since time.Time) ([]normalizer.Commit, error) {
	type rawCommit struct {
		SHA    string `json:"sha"`
		Commit struct {
			Message string `json:"message"`
			Author  struct {
				Date time.Time `json:"date"`
			} `json:"author"`
		} `json:"commit"`
		Author  *normalizer.Actor `json:"author"`
		HTMLURL string            `json:"html_url"`
	}
	extra := url.Values{"sha": {branch}}
	if !since.IsZero() {
		extra.Set("since", since.UTC().Format(time.RFC3339))
	}
	raw, err := paginate[rawCommit](ctx, c, fmt.Sprintf("/repos/%s/%s/commits", c.org, repo), extra)
	if err != nil {
		return nil, fmt.Errorf("failed to list commits for %s@%s: %w", repo, branch, err)
	}
	commits := make([]normalizer.Commit, 0, len(raw))
	for _, item := range raw {
		var login string
		if item.Author != nil {
			login = item.Author.Login
		}
		commits = append(commits, normalizer.Commit{
			SHA:         item.SHA,
			Message:     item.Commit.Message,
			AuthorLogin: login,
			HTMLURL:     item.HTMLURL,
			Date:        item.Commit.Author.Date,
		})
	}
	return commits, nil
}

func issueNumberFromURL(issueURL string) int {
	idx := strings.LastIndexByte(issueURL, '/')
	if idx < 0 {
		return 0
	}
	number, _ := strconv.Atoi(issueURL[idx+1:])
	return number
}
