// Package composer builds the dashboard view model from the session, the
// backend fetches and the pagination cursors.
package composer

import (
	"context"
	"log/slog"
	"sync"

	"standupboard/internal/domain"
	"standupboard/internal/pagination"
	"standupboard/internal/updates"
)

// Fetcher is the backend contract the composer reads from.
type Fetcher interface {
	FetchGroupsWithUpdates(ctx context.Context, s domain.Session) ([]domain.GroupFeed, error)
	FetchGroupNames(ctx context.Context, s domain.Session) ([]string, error)
}

// Result is the state of both fetches for one session.
type Result struct {
	GroupsDone bool
	Groups     []domain.GroupFeed
	GroupsErr  error

	NamesDone bool
	Names     []string
	NamesErr  error
}

// Loaded reports whether the groups fetch is done. Group names only label the
// view, so they never hold it back.
func (r Result) Loaded() bool {
	return r.GroupsDone
}

func (r Result) Settled() bool {
	return r.GroupsDone && r.NamesDone
}

type Composer struct {
	fetcher  Fetcher
	pageSize int
	log      *slog.Logger
}

func New(fetcher Fetcher, pageSize int, log *slog.Logger) *Composer {
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}

	return &Composer{
		fetcher:  fetcher,
		pageSize: pageSize,
		log:      log,
	}
}

func (c *Composer) PageSize() int {
	return c.pageSize
}

// Compose fetches the data of auth and renders it with the given cursors.
// A logged out auth renders the landing state without fetching.
func (c *Composer) Compose(ctx context.Context, auth domain.Auth, pages pagination.Reader) domain.ViewModel {
	s, ok := domain.SessionOf(auth)
	if !ok {
		return c.Build(auth, Result{}, pages)
	}

	return c.Build(auth, c.Fetch(ctx, s), pages)
}

// Fetch runs both fetches concurrently and waits for them.
func (c *Composer) Fetch(ctx context.Context, s domain.Session) Result {
	var (
		wg     sync.WaitGroup
		result Result
	)

	wg.Go(func() {
		result.Groups, result.GroupsErr = c.fetchGroups(ctx, s)
		result.GroupsDone = true
	})
	wg.Go(func() {
		result.Names, result.NamesErr = c.fetchNames(ctx, s)
		result.NamesDone = true
	})
	wg.Wait()

	return result
}

func (c *Composer) fetchGroups(ctx context.Context, s domain.Session) ([]domain.GroupFeed, error) {
	groups, err := c.fetcher.FetchGroupsWithUpdates(ctx, s)
	if err != nil {
		c.log.ErrorContext(ctx, "Failed to fetch groups with updates",
			"error", err,
			"userID", s.Identity.ID,
			"demo", s.Demo)

		return nil, err
	}

	return groups, nil
}

func (c *Composer) fetchNames(ctx context.Context, s domain.Session) ([]string, error) {
	names, err := c.fetcher.FetchGroupNames(ctx, s)
	if err != nil {
		c.log.WarnContext(ctx, "Failed to fetch group names so labels are omitted",
			"error", err,
			"userID", s.Identity.ID,
			"demo", s.Demo)

		return nil, err
	}

	return names, nil
}

func (c *Composer) Build(auth domain.Auth, result Result, pages pagination.Reader) domain.ViewModel {
	return Build(auth, result, pages, c.pageSize)
}

// Build renders a view model. It does not fetch and does not modify result.
func Build(auth domain.Auth, result Result, pages pagination.Reader, pageSize int) domain.ViewModel {
	vm := domain.ViewModel{
		Status:     domain.StatusLoggedOut,
		GroupNames: []string{},
		Groups:     []domain.GroupSection{},
	}

	s, ok := domain.SessionOf(auth)
	if !ok {
		return vm
	}

	identity := s.Identity
	vm.Identity = &identity
	vm.Demo = s.Demo

	if result.NamesDone && result.NamesErr == nil && result.Names != nil {
		vm.GroupNames = result.Names
	}

	switch {
	case result.GroupsDone && result.GroupsErr != nil:
		vm.Status = domain.StatusFailed
	case !result.Loaded():
		vm.Status = domain.StatusLoading
	default:
		vm.Status = domain.StatusReady
		vm.Groups = sections(updates.Normalize(result.Groups), pages, pageSize)
	}

	return vm
}

func sections(groups []domain.DisplayGroup, pages pagination.Reader, pageSize int) []domain.GroupSection {
	out := make([]domain.GroupSection, 0, len(groups))
	if pages == nil {
		pages = pagination.Snapshot{}
	}

	for _, group := range groups {
		page := pages.Page(group.ID)
		pageUpdates, w := pagination.Slice(group.Updates, page, pageSize)

		out = append(out, domain.GroupSection{
			ID:           group.ID,
			Name:         group.Name,
			TotalUpdates: len(group.Updates),
			Page:         page,
			PageCount:    w.PageCount,
			PageSize:     pageSize,
			Updates:      pageUpdates,
		})
	}

	return out
}
