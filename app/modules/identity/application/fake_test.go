package identityservice

import (
	"context"

	"github.com/uptrace/bun"

	identitydb "github.com/devpulse-io/devpulse/app/modules/identity/infrastructure/repositories"
)

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
