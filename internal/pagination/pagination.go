// Package pagination keeps an independent page cursor for every group.
package pagination

import (
	"maps"
	"sync/atomic"

	"standupboard/internal/domain"
)

const DefaultPageSize = 3

// Reader returns the page of a group. Groups without a stored page are on page 0.
type Reader interface {
	Page(id domain.GroupID) int
}

// Snapshot is an immutable view of the cursors at one point in time.
type Snapshot struct {
	pages map[domain.GroupID]int
}

var _ Reader = Snapshot{}

func (s Snapshot) Page(id domain.GroupID) int {
	return s.pages[id]
}

// Cursors holds the page of every group. Each SetPage replaces the whole map,
// so snapshots taken earlier never change.
type Cursors struct {
	current atomic.Pointer[map[domain.GroupID]int]
}

var _ Reader = (*Cursors)(nil)

func NewCursors() *Cursors {
	c := &Cursors{}
	empty := map[domain.GroupID]int{}
	c.current.Store(&empty)

	return c
}

func (c *Cursors) Page(id domain.GroupID) int {
	return (*c.current.Load())[id]
}

// SetPage stores the page of a single group. Negative pages are stored as 0.
func (c *Cursors) SetPage(id domain.GroupID, page int) {
	page = max(page, 0)

	for {
		old := c.current.Load()

		next := make(map[domain.GroupID]int, len(*old)+1)
		maps.Copy(next, *old)
		next[id] = page

		if c.current.CompareAndSwap(old, &next) {
			return
		}
	}
}

func (c *Cursors) Snapshot() Snapshot {
	return Snapshot{pages: *c.current.Load()}
}

// Reset drops every stored page.
func (c *Cursors) Reset() {
	empty := map[domain.GroupID]int{}
	c.current.Store(&empty)
}

// Window is the slice of a list shown on one page.
type Window struct {
	Start     int
	End       int
	PageCount int
}

// Paginate returns the window of page for a list of total items. A page past
// the end yields an empty window.
func Paginate(total int, page int, size int) Window {
	if size <= 0 {
		size = DefaultPageSize
	}

	page = max(page, 0)
	pageCount := max((total+size-1)/size, 1)

	start := min(page*size, total)
	end := min(start+size, total)

	return Window{Start: start, End: end, PageCount: pageCount}
}

// Slice returns the items of page.
func Slice[T any](items []T, page int, size int) ([]T, Window) {
	w := Paginate(len(items), page, size)

	return items[w.Start:w.End:w.End], w
}
