package jobs

import "time"

// SyncJobArgs triggers one full sync run.
type SyncJobArgs struct {
	// Since bounds the scrape window; zero means a full backfill.
	Since time.Time `json:"since"`
}

func (SyncJobArgs) Kind() string { return "sync_run" }

// PromoteJobArgs triggers one staging queue promotion pass.
type PromoteJobArgs struct{}

func (PromoteJobArgs) Kind() string { return "promote_pending" }
