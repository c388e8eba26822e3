package composer

import (
	"context"
	"sync"

	"standupboard/internal/domain"
	"standupboard/internal/pagination"
	"standupboard/internal/updates"
)

// Feed is the state of one dashboard view: its auth, the latest fetch results
// and the page of every group. Fetches run in the background and View reports
// Loading until the groups fetch is done.
//
// Every SetAuth and Refresh starts a new generation. Results that arrive for an
// older generation are dropped, so a slow response can never overwrite data of
// a newer session.
type Feed struct {
	composer *Composer
	cursors  *pagination.Cursors

	mu         sync.Mutex
	auth       domain.Auth
	generation uint64
	result     Result
	loaded     chan struct{}
	settled    chan struct{}
}

func (c *Composer) NewFeed() *Feed {
	loaded := make(chan struct{})
	close(loaded)

	settled := make(chan struct{})
	close(settled)

	return &Feed{
		composer: c,
		cursors:  pagination.NewCursors(),
		auth:     domain.LoggedOut{},
		loaded:   loaded,
		settled:  settled,
	}
}

// SetAuth replaces the auth of the feed and starts fetching when logged in.
// Page cursors are kept.
func (f *Feed) SetAuth(ctx context.Context, auth domain.Auth) {
	if auth == nil {
		auth = domain.LoggedOut{}
	}

	f.mu.Lock()
	f.auth = auth
	gen := f.nextGenerationLocked()
	f.mu.Unlock()

	f.start(ctx, gen, auth)
}

// Refresh fetches again with the current auth. There is no automatic retry:
// a failed feed stays failed until Refresh or SetAuth is called.
func (f *Feed) Refresh(ctx context.Context) {
	f.mu.Lock()
	auth := f.auth
	gen := f.nextGenerationLocked()
	f.mu.Unlock()

	f.start(ctx, gen, auth)
}

func (f *Feed) Auth() domain.Auth {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.auth
}

func (f *Feed) SetPage(id domain.GroupID, page int) {
	f.cursors.SetPage(id, page)
}

func (f *Feed) Page(id domain.GroupID) int {
	return f.cursors.Page(id)
}

// View renders the current state from a snapshot of the cursors.
func (f *Feed) View() domain.ViewModel {
	f.mu.Lock()
	auth := f.auth
	result := f.result
	f.mu.Unlock()

	return f.composer.Build(auth, result, f.cursors.Snapshot())
}

// Group returns every displayable update of a group once the feed is ready.
func (f *Feed) Group(id domain.GroupID) (domain.DisplayGroup, bool) {
	f.mu.Lock()
	result := f.result
	f.mu.Unlock()

	if !result.Loaded() || result.GroupsErr != nil {
		return domain.DisplayGroup{}, false
	}

	for _, group := range updates.Normalize(result.Groups) {
		if group.ID == id {
			return group, true
		}
	}

	return domain.DisplayGroup{}, false
}

// Loaded is closed once the groups fetch of the current generation is done.
func (f *Feed) Loaded() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.loaded
}

// Settled is closed once both fetches of the current generation are done.
func (f *Feed) Settled() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.settled
}

// Wait blocks until the view of the current generation stops loading or ctx is done.
func (f *Feed) Wait(ctx context.Context) error {
	return waitFor(ctx, f.Loaded())
}

// WaitSettled blocks until the group names have arrived as well.
func (f *Feed) WaitSettled(ctx context.Context) error {
	return waitFor(ctx, f.Settled())
}

func waitFor(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Feed) nextGenerationLocked() uint64 {
	f.generation++
	f.result = Result{}

	// Waiters of the previous generation are released, its results are dropped.
	closeOnce(f.loaded)
	closeOnce(f.settled)
	f.loaded = make(chan struct{})
	f.settled = make(chan struct{})

	return f.generation
}

func (f *Feed) start(ctx context.Context, gen uint64, auth domain.Auth) {
	s, ok := domain.SessionOf(auth)
	if !ok {
		f.apply(gen, func(r *Result) {
			r.GroupsDone = true
			r.NamesDone = true
		})

		return
	}

	// Fetches outlive the request that triggered them.
	ctx = context.WithoutCancel(ctx)

	go func() {
		groups, err := f.composer.fetchGroups(ctx, s)
		f.apply(gen, func(r *Result) {
			r.GroupsDone = true
			r.Groups = groups
			r.GroupsErr = err
		})
	}()

	go func() {
		names, err := f.composer.fetchNames(ctx, s)
		f.apply(gen, func(r *Result) {
			r.NamesDone = true
			r.Names = names
			r.NamesErr = err
		})
	}()
}

func (f *Feed) apply(gen uint64, update func(r *Result)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.generation {
		f.composer.log.Debug("Dropping stale fetch result",
			"generation", gen,
			"currentGeneration", f.generation)

		return
	}

	update(&f.result)

	if f.result.Loaded() {
		closeOnce(f.loaded)
	}
	if f.result.Settled() {
		closeOnce(f.settled)
	}
}

func closeOnce(ch chan struct{}) {
	select {
	case <-ch:
	default:
		close(ch)
	}
}
