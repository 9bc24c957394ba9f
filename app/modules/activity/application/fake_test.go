package activityservice

import (
	"context"

	"github.com/uptrace/bun"

	activitydb "github.com/devpulse-io/devpulse/app/modules/activity/infrastructure/repositories"
	identitydb "github.com/devpulse-io/devpulse/app/modules/identity/infrastructure/repositories"
)

// ------------------------
// Fake Activity Repo
// ------------------------

type FakeActivityRepo struct {
	trace []string

	UpsertBatchFunc       func(ctx context.Context, db bun.IDB, activities []*activitydb.Activity, policy activitydb.ConflictPolicy) (int64, error)
	GetBySlugFunc         func(ctx context.Context, db bun.IDB, slug string) (*activitydb.Activity, error)
	UpsertDefinitionsFunc func(ctx context.Context, db bun.IDB, definitions []*activitydb.ActivityDefinition) error
	ListDefinitionsFunc   func(ctx context.Context, db bun.IDB) ([]*activitydb.ActivityDefinition, error)
}

func NewFakeActivityRepo() *FakeActivityRepo {
	return &FakeActivityRepo{
		trace: []string{},
	}
}

func (f *FakeActivityRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeActivityRepo) UpsertBatch(ctx context.Context, db bun.IDB, activities []*activitydb.Activity, policy activitydb.ConflictPolicy) (int64, error) {
	f.record("UpsertBatch")
	if f.UpsertBatchFunc != nil {
		return f.UpsertBatchFunc(ctx, db, activities, policy)
	}
	return int64(len(activities)), nil
}

func (f *FakeActivityRepo) GetBySlug(ctx context.Context, db bun.IDB, slug string) (*activitydb.Activity, error) {
	f.record("GetBySlug")
	if f.GetBySlugFunc != nil {
		return f.GetBySlugFunc(ctx, db, slug)
	}
	return nil, activitydb.ErrNotFound
}

func (f *FakeActivityRepo) UpsertDefinitions(ctx context.Context, db bun.IDB, definitions []*activitydb.ActivityDefinition) error {
	f.record("UpsertDefinitions")
	if f.UpsertDefinitionsFunc != nil {
		return f.UpsertDefinitionsFunc(ctx, db, definitions)
	}
	return nil
}

func (f *FakeActivityRepo) ListDefinitions(ctx context.Context, db bun.IDB) ([]*activitydb.ActivityDefinition, error) {
	f.record("ListDefinitions")
	if f.ListDefinitionsFunc != nil {
		return f.ListDefinitionsFunc(ctx, db)
	}
	return nil, nil
}

func (f *FakeActivityRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

var _ activitydb.Repository = (*FakeActivityRepo)(nil)

// ------------------------
// Fake Identity Repo
// ------------------------

type FakeIdentityRepo struct {
	trace []string

	GetByUsernameFunc      func(ctx context.Context, db bun.IDB, username string) (*identitydb.Contributor, error)
	GetByPlatformAliasFunc func(ctx context.Context, db bun.IDB, platform, alias string) (*identitydb.Contributor, error)
	UpsertFunc             func(ctx context.Context, db bun.IDB, contributor *identitydb.Contributor) error
	EnsureExistFunc        func(ctx context.Context, db bun.IDB, contributors []*identitydb.Contributor) error
	SetPlatformAliasFunc   func(ctx context.Context, db bun.IDB, username, platform, alias string) error
	SetRoleFunc            func(ctx context.Context, db bun.IDB, username, role string) error
	ListFunc               func(ctx context.Context, db bun.IDB) ([]*identitydb.Contributor, error)
}

func NewFakeIdentityRepo() *FakeIdentityRepo {
	return &FakeIdentityRepo{
		trace: []string{},
	}
}

func (f *FakeIdentityRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeIdentityRepo) GetByUsername(ctx context.Context, db bun.IDB, username string) (*identitydb.Contributor, error) {
	f.record("GetByUsername")
	if f.GetByUsernameFunc != nil {
		return f.GetByUsernameFunc(ctx, db, username)
	}
	return nil, identitydb.ErrNotFound
}

func (f *FakeIdentityRepo) GetByPlatformAlias(ctx context.Context, db bun.IDB, platform, alias string) (*identitydb.Contributor, error) {
	f.record("GetByPlatformAlias")
	if f.GetByPlatformAliasFunc != nil {
		return f.GetByPlatformAliasFunc(ctx, db, platform, alias)
	}
	return nil, identitydb.ErrNotFound
}

func (f *FakeIdentityRepo) Upsert(ctx context.Context, db bun.IDB, contributor *identitydb.Contributor) error {
	f.record("Upsert")
	if f.UpsertFunc != nil {
		return f.UpsertFunc(ctx, db, contributor)
	}
	return nil
}

func (f *FakeIdentityRepo) EnsureExist(ctx context.Context, db bun.IDB, contributors []*identitydb.Contributor) error {
	f.record("EnsureExist")
	if f.EnsureExistFunc != nil {
		return f.EnsureExistFunc(ctx, db, contributors)
	}
	return nil
}

func (f *FakeIdentityRepo) SetPlatformAlias(ctx context.Context, db bun.IDB, username, platform, alias string) error {
	f.record("SetPlatformAlias")
	if f.SetPlatformAliasFunc != nil {
		return f.SetPlatformAliasFunc(ctx, db, username, platform, alias)
	}
	return nil
}

func (f *FakeIdentityRepo) SetRole(ctx context.Context, db bun.IDB, username, role string) error {
	f.record("SetRole")
	if f.SetRoleFunc != nil {
		return f.SetRoleFunc(ctx, db, username, role)
	}
	return nil
}

func (f *FakeIdentityRepo) List(ctx context.Context, db bun.IDB) ([]*identitydb.Contributor, error) {
	f.record("List")
	if f.ListFunc != nil {
		return f.ListFunc(ctx, db)
	}
	return nil, nil
}

func (f *FakeIdentityRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

var _ identitydb.Repository = (*FakeIdentityRepo)(nil)
