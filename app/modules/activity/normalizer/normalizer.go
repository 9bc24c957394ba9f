package normalizer

import (
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	activitydb "github.com/devpulse-io/devpulse/app/modules/activity/infrastructure/repositories"
)

// Drop records one input event discarded by the normalizer.
type Drop struct {
	Kind   string
	Reason string
}

// Result is the output of one normalization pass. Dropped events never abort
// the pass; siblings still produce activities.
type Result struct {
	Activities []*activitydb.Activity
	Dropped    []Drop
}

func (r *Result) drop(kind, reason string) {
	r.Dropped = append(r.Dropped, Drop{Kind: kind, Reason: reason})
}

func (r *Result) add(a *activitydb.Activity) {
	r.Activities = append(r.Activities, a)
}

// Slug builders. Two invocations over the same source event must produce
// byte-identical slugs regardless of when or where they run; the slug is the
// idempotency key for the whole pipeline.

func issueSlug(def, repo string, number int) string {
	return fmt.Sprintf("%s_%s#%d", def, repo, number)
}

func issueSubSlug(def, repo string, number int, discriminator string) string {
	return fmt.Sprintf("%s_%s#%d_%s", def, repo, number, discriminator)
}

func commitSlug(branch, sha string) string {
	return fmt.Sprintf("%s_%s_%s", activitydb.DefCommitCreated, branch, sha)
}

// DailyUpdateSlug builds the slug for one contributor's daily chat update.
func DailyUpdateSlug(day time.Time, username string) string {
	return fmt.Sprintf("%s_%s_%s", activitydb.DefEODUpdate, day.UTC().Format("2006-01-02"), username)
}

// NormalizeIssues converts issues and their timeline events into activities:
// issue_opened and issue_closed per issue, plus issue_assigned per
// (issue, assignee) pair with latest-assignment-wins semantics.
func NormalizeIssues(repo string, issues []Issue, timelines map[int][]TimelineEvent) Result {
	var res Result
	for _, issue := range issues {
		if issue.User == nil || issue.User.Login == "" {
			res.drop("issue", fmt.Sprintf("issue %s#%d has no author", repo, issue.Number))
			continue
		}
		res.add(&activitydb.Activity{
			Slug:           issueSlug(activitydb.DefIssueOpened, repo, issue.Number),
			Contributor:    issue.User.Login,
			DefinitionSlug: activitydb.DefIssueOpened,
			Title:          issue.Title,
			OccurredAt:     issue.CreatedAt,
			Link:           issue.HTMLURL,
			Meta:           githubMeta(repo, issue.Number),
		})
		if issue.ClosedAt != nil {
			res.add(&activitydb.Activity{
				Slug:           issueSlug(activitydb.DefIssueClosed, repo, issue.Number),
				Contributor:    issue.User.Login,
				DefinitionSlug: activitydb.DefIssueClosed,
				Title:          issue.Title,
				OccurredAt:     *issue.ClosedAt,
				Link:           issue.HTMLURL,
				Meta:           githubMeta(repo, issue.Number),
			})
		}

		assignments := latestAssignments(timelines[issue.Number])
		for _, event := range assignments {
			res.add(&activitydb.Activity{
				Slug:           issueSubSlug(activitydb.DefIssueAssigned, repo, issue.Number, event.Assignee.Login),
				Contributor:    event.Assignee.Login,
				DefinitionSlug: activitydb.DefIssueAssigned,
				Title:          issue.Title,
				OccurredAt:     event.CreatedAt,
				Link:           issue.HTMLURL,
				Meta:           githubMeta(repo, issue.Number),
			})
		}
	}
	return res
}

// latestAssignments folds assignment events down to one winner per assignee:
// the event with the chronologically latest createdAt, independent of
// arrival order. Output is sorted by assignee login for determinism.
func latestAssignments(events []TimelineEvent) []TimelineEvent {
	latest := make(map[string]TimelineEvent)
	for _, event := range events {
		if event.Event != "assigned" || event.Assignee == nil || event.Assignee.Login == "" {
			continue
		}
		current, seen := latest[event.Assignee.Login]
		if !seen || event.CreatedAt.After(current.CreatedAt) {
			latest[event.Assignee.Login] = event
		}
	}
	winners := make([]TimelineEvent, 0, len(latest))
	for _, event := range latest {
		winners = append(winners, event)
	}
	sort.Slice(winners, func(i, j int) bool {
		return winners[i].Assignee.Login < winners[j].Assignee.Login
	})
	return winners
}

// NormalizePullRequests converts pull requests and their reviews into
// pr_opened, pr_merged, and pr_reviewed activities. Only APPROVED,
// CHANGES_REQUESTED, and COMMENTED reviews count.
func NormalizePullRequests(repo string, prs []PullRequest, reviews map[int][]Review) Result {
	var res Result
	for _, pr := range prs {
		if pr.User == nil || pr.User.Login == "" {
			res.drop("pull_request", fmt.Sprintf("pr %s#%d has no author", repo, pr.Number))
			continue
		}
		res.add(&activitydb.Activity{
			Slug:           issueSlug(activitydb.DefPROpened, repo, pr.Number),
			Contributor:    pr.User.Login,
			DefinitionSlug: activitydb.DefPROpened,
			Title:          pr.Title,
			OccurredAt:     pr.CreatedAt,
			Link:           pr.HTMLURL,
			Meta:           githubMeta(repo, pr.Number),
		})
		if pr.MergedAt != nil {
			res.add(&activitydb.Activity{
				Slug:           issueSlug(activitydb.DefPRMerged, repo, pr.Number),
				Contributor:    pr.User.Login,
				DefinitionSlug: activitydb.DefPRMerged,
				Title:          pr.Title,
				OccurredAt:     *pr.MergedAt,
				Link:           pr.HTMLURL,
				Meta:           githubMeta(repo, pr.Number),
			})
		}

		countable, droppedReviews := latestReviews(reviews[pr.Number])
		for _, reason := range droppedReviews {
			res.drop("review", fmt.Sprintf("%s on %s#%d", reason, repo, pr.Number))
		}
		for _, review := range countable {
			occurredAt := pr.CreatedAt
			if review.SubmittedAt != nil {
				occurredAt = *review.SubmittedAt
			}
			res.add(&activitydb.Activity{
				Slug:           issueSubSlug(activitydb.DefPRReviewed, repo, pr.Number, review.User.Login),
				Contributor:    review.User.Login,
				DefinitionSlug: activitydb.DefPRReviewed,
				Title:          pr.Title,
				OccurredAt:     occurredAt,
				Link:           review.HTMLURL,
				Meta:           githubMeta(repo, pr.Number),
			})
		}
	}
	return res
}

// latestReviews keeps one review per reviewer, the one with the latest
// submission time, so a reviewer who reviewed a PR several times yields a
// single pr_reviewed activity regardless of input order. Authorless reviews
// are reported as drops.
func latestReviews(reviews []Review) ([]Review, []string) {
	var dropped []string
	latest := make(map[string]Review)
	for _, review := range reviews {
		if !countableReview(review.State) {
			continue
		}
		if review.User == nil || review.User.Login == "" {
			dropped = append(dropped, fmt.Sprintf("review %d has no author", review.ID))
			continue
		}
		current, seen := latest[review.User.Login]
		if !seen || laterReview(review, current) {
			latest[review.User.Login] = review
		}
	}
	winners := make([]Review, 0, len(latest))
	for _, review := range latest {
		winners = append(winners, review)
	}
	sort.Slice(winners, func(i, j int) bool {
		return winners[i].User.Login < winners[j].User.Login
	})
	return winners, dropped
}

func laterReview(a, b Review) bool {
	if a.SubmittedAt == nil {
		return false
	}
	if b.SubmittedAt == nil {
		return true
	}
	return a.SubmittedAt.After(*b.SubmittedAt)
}

func countableReview(state string) bool {
	switch state {
	case ReviewApproved, ReviewChangesRequested, ReviewCommented:
		return true
	}
	return false
}

// NormalizeComments converts issue and pull request comments into
// comment_created activities, one per comment id.
func NormalizeComments(repo string, comments []Comment) Result {
	var res Result
	for _, comment := range comments {
		if comment.User == nil || comment.User.Login == "" {
			res.drop("comment", fmt.Sprintf("comment %d in %s has no author", comment.ID, repo))
			continue
		}
		res.add(&activitydb.Activity{
			Slug:           issueSubSlug(activitydb.DefCommentCreated, repo, comment.IssueNumber, fmt.Sprintf("%d", comment.ID)),
			Contributor:    comment.User.Login,
			DefinitionSlug: activitydb.DefCommentCreated,
			Title:          truncate(comment.Body, 120),
			OccurredAt:     comment.CreatedAt,
			Link:           comment.HTMLURL,
			Meta:           githubMeta(repo, comment.IssueNumber),
		})
	}
	return res
}

// NormalizeCommits converts commits on a branch into commit_created
// activities keyed by branch and SHA.
func NormalizeCommits(repo, branch string, commits []Commit) Result {
	var res Result
	for _, commit := range commits {
		if commit.AuthorLogin == "" {
			res.drop("commit", fmt.Sprintf("commit %s in %s has no author", commit.SHA, repo))
			continue
		}
		res.add(&activitydb.Activity{
			Slug:           commitSlug(branch, commit.SHA),
			Contributor:    commit.AuthorLogin,
			DefinitionSlug: activitydb.DefCommitCreated,
			Title:          truncate(commit.Message, 120),
			OccurredAt:     commit.Date,
			Link:           commit.HTMLURL,
			Meta: activitydb.Meta{
				Source:     activitydb.SourceGitHub,
				Repository: repo,
				Branch:     branch,
				SHA:        commit.SHA,
			},
		})
	}
	return res
}

// DailyUpdateActivity builds the single activity representing all of one
// contributor's chat updates for one UTC calendar day.
func DailyUpdateActivity(username string, day time.Time, text, channelID, authorAlias string) *activitydb.Activity {
	day = day.UTC()
	return &activitydb.Activity{
		Slug:           DailyUpdateSlug(day, username),
		Contributor:    username,
		DefinitionSlug: activitydb.DefEODUpdate,
		Title:          fmt.Sprintf("Daily update for %s", day.Format("2006-01-02")),
		OccurredAt:     day,
		Text:           text,
		Meta: activitydb.Meta{
			Source:      activitydb.SourceChat,
			ChannelID:   channelID,
			AuthorAlias: authorAlias,
		},
	}
}

func githubMeta(repo string, number int) activitydb.Meta {
	return activitydb.Meta{
		Source:     activitydb.SourceGitHub,
		Repository: repo,
		Number:     number,
	}
}

// truncate cuts s to at most max bytes without splitting a multi-byte rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
