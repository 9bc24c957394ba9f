package stagingservice

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"

	activitydb "github.com/devpulse-io/devpulse/app/modules/activity/infrastructure/repositories"
	identitydb "github.com/devpulse-io/devpulse/app/modules/identity/infrastructure/repositories"
	stagingdb "github.com/devpulse-io/devpulse/app/modules/staging/infrastructure/repositories"
)

// ------------------------
// Fake Staging Repo
// ------------------------

type FakeStagingRepo struct {
	trace []string

	EnqueueFunc                    func(ctx context.Context, db bun.IDB, messages []*stagingdb.PendingMessage) (int64, error)
	ListPendingGroupedByAuthorFunc func(ctx context.Context, db bun.IDB) ([]stagingdb.AuthorGroup, error)
	DeleteByIDsFunc                func(ctx context.Context, db bun.IDB, ids []string) (int64, error)
}

func NewFakeStagingRepo() *FakeStagingRepo {
	return &FakeStagingRepo{
		trace: []string{},
	}
}

func (f *FakeStagingRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeStagingRepo) Enqueue(ctx context.Context, db bun.IDB, messages []*stagingdb.PendingMessage) (int64, error) {
	f.record("Enqueue")
	if f.EnqueueFunc != nil {
		return f.EnqueueFunc(ctx, db, messages)
	}
	return int64(len(messages)), nil
}

func (f *FakeStagingRepo) ListPendingGroupedByAuthor(ctx context.Context, db bun.IDB) ([]stagingdb.AuthorGroup, error) {
	f.record("ListPendingGroupedByAuthor")
	if f.ListPendingGroupedByAuthorFunc != nil {
		return f.ListPendingGroupedByAuthorFunc(ctx, db)
	}
	return nil, nil
}

func (f *FakeStagingRepo) DeleteByIDs(ctx context.Context, db bun.IDB, ids []string) (int64, error) {
	f.record("DeleteByIDs")
	if f.DeleteByIDsFunc != nil {
		return f.DeleteByIDsFunc(ctx, db, ids)
	}
	return int64(len(ids)), nil
}

func (f *FakeStagingRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

var _ stagingdb.Repository = (*FakeStagingRepo)(nil)

// ------------------------
// Fake Identity Repo
// ------------------------

type FakeIdentityRepo struct {
	GetByPlatformAliasFunc func(ctx context.Context, db bun.IDB, platform, alias string) (*identitydb.Contributor, error)
}

func (f *FakeIdentityRepo) GetByUsername(ctx context.Context, db bun.IDB, username string) (*identitydb.Contributor, error) {
	return nil, identitydb.ErrNotFound
}

func (f *FakeIdentityRepo) GetByPlatformAlias(ctx context.Context, db bun.IDB, platform, alias string) (*identitydb.Contributor, error) {
	if f.GetByPlatformAliasFunc != nil {
		return f.GetByPlatformAliasFunc(ctx, db, platform, alias)
	}
	return nil, identitydb.ErrNotFound
}

func (f *FakeIdentityRepo) Upsert(ctx context.Context, db bun.IDB, contributor *identitydb.Contributor) error {
	return nil
}

func (f *FakeIdentityRepo) EnsureExist(ctx context.Context, db bun.IDB, contributors []*identitydb.Contributor) error {
	return nil
}

func (f *FakeIdentityRepo) SetPlatformAlias(ctx context.Context, db bun.IDB, username, platform, alias string) error {
	return nil
}

func (f *FakeIdentityRepo) SetRole(ctx context.Context, db bun.IDB, username, role string) error {
	return nil
}

func (f *FakeIdentityRepo) List(ctx context.Context, db bun.IDB) ([]*identitydb.Contributor, error) {
	return nil, nil
}

var _ identitydb.Repository = (*FakeIdentityRepo)(nil)

// ------------------------
// Fake Activity Repo
// ------------------------

type FakeActivityRepo struct {
	UpsertBatchFunc func(ctx context.Context, db bun.IDB, activities []*activitydb.Activity, policy activitydb.ConflictPolicy) (int64, error)
}

func (f *FakeActivityRepo) UpsertBatch(ctx context.Context, db bun.IDB, activities []*activitydb.Activity, policy activitydb.ConflictPolicy) (int64, error) {
	if f.UpsertBatchFunc != nil {
		return f.UpsertBatchFunc(ctx, db, activities, policy)
	}
	return int64(len(activities)), nil
}

func (f *FakeActivityRepo) GetBySlug(ctx context.Context, db bun.IDB, slug string) (*activitydb.Activity, error) {
	return nil, activitydb.ErrNotFound
}

func (f *FakeActivityRepo) UpsertDefinitions(ctx context.Context, db bun.IDB, definitions []*activitydb.ActivityDefinition) error {
	return nil
}

func (f *FakeActivityRepo) ListDefinitions(ctx context.Context, db bun.IDB) ([]*activitydb.ActivityDefinition, error) {
	return nil, nil
}

var _ activitydb.Repository = (*FakeActivityRepo)(nil)

// ------------------------
// Fake transaction runner
// ------------------------

// fakeTxRunner just calls the function with a zero transaction; the fakes
// ignore the db handle anyway.
type fakeTxRunner struct {
	runs int
	err  error
}

func (f *fakeTxRunner) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	f.runs++
	if f.err != nil {
		return f.err
	}
	return fn(ctx, bun.Tx{})
}

var _ txRunner = (*fakeTxRunner)(nil)
