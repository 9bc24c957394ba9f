package insightsservice

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	identitydb "github.com/devpulse-io/devpulse/app/modules/identity/infrastructure/repositories"
	insightsdb "github.com/devpulse-io/devpulse/app/modules/insights/infrastructure/repositories"
)

// ------------------------
// Fake Insights Repo
// ------------------------

type FakeInsightsRepo struct {
	ListWindowFunc        func(ctx context.Context, db bun.IDB, start, end time.Time, excludedRoles []string) ([]insightsdb.ActivityRow, error)
	ListByContributorFunc func(ctx context.Context, db bun.IDB, username string) ([]insightsdb.ActivityRow, error)
}

func (f *FakeInsightsRepo) ListWindow(ctx context.Context, db bun.IDB, start, end time.Time, excludedRoles []string) ([]insightsdb.ActivityRow, error) {
	if f.ListWindowFunc != nil {
		return f.ListWindowFunc(ctx, db, start, end, excludedRoles)
	}
	return nil, nil
}

func (f *FakeInsightsRepo) ListByContributor(ctx context.Context, db bun.IDB, username string) ([]insightsdb.ActivityRow, error) {
	if f.ListByContributorFunc != nil {
		return f.ListByContributorFunc(ctx, db, username)
	}
	return nil, nil
}

var _ insightsdb.Repository = (*FakeInsightsRepo)(nil)

// ------------------------
// Fake Identity Repo
// ------------------------

type FakeIdentityRepo struct {
	GetByUsernameFunc func(ctx context.Context, db bun.IDB, username string) (*identitydb.Contributor, error)
}

func (f *FakeIdentityRepo) GetByUsername(ctx context.Context, db bun.IDB, username string) (*identitydb.Contributor, error) {
	if f.GetByUsernameFunc != nil {
		return f.GetByUsernameFunc(ctx, db, username)
	}
	return nil, identitydb.ErrNotFound
}

func (f *FakeIdentityRepo) GetByPlatformAlias(ctx context.Context, db bun.IDB, platform, alias string) (*identitydb.Contributor, error) {
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
