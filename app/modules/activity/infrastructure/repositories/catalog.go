package activitydb

// Definition slugs recognized across all source platforms.
const (
	DefIssueOpened    = "issue_opened"
	DefIssueAssigned  = "issue_assigned"
	DefIssueClosed    = "issue_closed"
	DefPROpened       = "pr_opened"
	DefPRMerged       = "pr_merged"
	DefPRReviewed     = "pr_reviewed"
	DefCommentCreated = "comment_created"
	DefCommitCreated  = "commit_created"
	DefEODUpdate      = "eod_update"
)

// DefaultCatalog is the static activity definition catalog, upserted at
// startup. Points here are the fallbacks used when an activity carries no
// override.
func DefaultCatalog() []*ActivityDefinition {
	return []*ActivityDefinition{
		{Slug: DefIssueOpened, Name: "Issue Opened", Description: "Opened an issue", Points: 2, Icon: "issue-opened"},
		{Slug: DefIssueAssigned, Name: "Issue Assigned", Description: "Got assigned to an issue", Points: 2, Icon: "person"},
		{Slug: DefIssueClosed, Name: "Issue Closed", Description: "Closed an issue they opened", Points: 1, Icon: "issue-closed"},
		{Slug: DefPROpened, Name: "PR Opened", Description: "Opened a pull request", Points: 1, Icon: "git-pull-request"},
		{Slug: DefPRMerged, Name: "PR Merged", Description: "Got a pull request merged", Points: 7, Icon: "git-merge"},
		{Slug: DefPRReviewed, Name: "PR Reviewed", Description: "Reviewed a pull request", Points: 4, Icon: "eye"},
		{Slug: DefCommentCreated, Name: "Comment", Description: "Commented on an issue or pull request", Points: 1, Icon: "comment"},
		{Slug: DefCommitCreated, Name: "Commit", Description: "Pushed a commit to a tracked branch", Points: 1, Icon: "git-commit"},
		{Slug: DefEODUpdate, Name: "Daily Update", Description: "Posted a daily progress update", Points: 2, Icon: "megaphone"},
	}
}
