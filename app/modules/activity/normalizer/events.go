// Package normalizer converts raw platform event objects into canonical
// activity records with deterministic slugs. All functions are pure: no I/O,
// no database access, and no ordering requirement on the input.
package normalizer

import "time"

// Actor identifies the platform user behind an event.
type Actor struct {
	Login string `json:"login"`
}

// Issue is a version-control issue as returned by the platform API.
type Issue struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	HTMLURL   string     `json:"html_url"`
	User      *Actor     `json:"user"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at"`
}

// TimelineEvent is one entry of an issue's timeline. Only "assigned" events
// are of interest here.
type TimelineEvent struct {
	Event     string    `json:"event"`
	Actor     *Actor    `json:"actor"`
	Assignee  *Actor    `json:"assignee"`
	CreatedAt time.Time `json:"created_at"`
}

// PullRequest is a version-control pull request.
type PullRequest struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	HTMLURL   string     `json:"html_url"`
	User      *Actor     `json:"user"`
	CreatedAt time.Time  `json:"created_at"`
	MergedAt  *time.Time `json:"merged_at"`
}

// Review is a pull request review.
type Review struct {
	ID          int64      `json:"id"`
	State       string     `json:"state"`
	User        *Actor     `json:"user"`
	HTMLURL     string     `json:"html_url"`
	SubmittedAt *time.Time `json:"submitted_at"`
}

// Review states that generate activities. DISMISSED and PENDING are dropped.
const (
	ReviewApproved         = "APPROVED"
	ReviewChangesRequested = "CHANGES_REQUESTED"
	ReviewCommented        = "COMMENTED"
)

// Comment is an issue or pull request comment.
type Comment struct {
	ID          int64     `json:"id"`
	User        *Actor    `json:"user"`
	Body        string    `json:"body"`
	HTMLURL     string    `json:"html_url"`
	CreatedAt   time.Time `json:"created_at"`
	IssueNumber int       `json:"issue_number"`
}

// Commit is one commit on a tracked branch.
type Commit struct {
	SHA         string    `json:"sha"`
	Message     string    `json:"message"`
	AuthorLogin string    `json:"author_login"`
	HTMLURL     string    `json:"html_url"`
	Date        time.Time `json:"date"`
}

// ChatMessage is one raw team-chat message. The ID is the platform's
// timestamp-derived message identifier.
type ChatMessage struct {
	ID          string    `json:"id"`
	AuthorAlias string    `json:"author_alias"`
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"`
	// Subtype is non-empty for system events (joins, pins, bot posts).
	Subtype string `json:"subtype"`
	Bot     bool   `json:"bot"`
}
