package console

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"launchpad/internal/onboarding"
)

const DefaultDebounce = 1300 * time.Millisecond

// ErrStale is returned for a query that a newer one has superseded. Its
// result must not be shown.
var ErrStale = errors.New("superseded by a newer query")

// NoResultsNotice is the notice for a search that matched nothing.
const NoResultsNotice = "No organizations match your search."

// Fetcher is the part of Client the list view needs.
type Fetcher interface {
	ListOrganizations(ctx context.Context, p ListParams) (*onboarding.Page, error)
	SearchOrganizations(ctx context.Context, term string) ([]onboarding.OrganizationSummary, error)
}

// ListResult is what the list view shows after a query. Search results are
// not paged, so Page, HasNext and HasPrev are zero for them.
type ListResult struct {
	Seq       uint64
	Searching bool
	Term      string
	Items     []onboarding.OrganizationSummary
	Total     int64
	Page      int
	PerPage   int
	HasNext   bool
	HasPrev   bool
	// Notice is a non-fatal message, such as an empty search.
	Notice string
}

// OrganizationList drives the organization list: paging, filters and a
// debounced search box. A non-empty search term uses the search endpoint
// only; clearing it returns to page 1 of the paged list. Every query carries
// a sequence number and only the latest one is delivered.
type OrganizationList struct {
	fetch    Fetcher
	debounce time.Duration
	onResult func(ListResult, error)

	mu      sync.Mutex
	page    int
	perPage int
	term    string
	stage   int
	start   *time.Time
	end     *time.Time
	seq     uint64
	timer   *time.Timer
}

// NewOrganizationList builds the controller. onResult receives the outcome of
// debounced searches; it may be nil when only the synchronous methods are
// used.
func NewOrganizationList(fetch Fetcher, perPage int, debounce time.Duration, onResult func(ListResult, error)) *OrganizationList {
	if perPage <= 0 {
		perPage = onboarding.DefaultPerPage
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &OrganizationList{fetch: fetch, debounce: debounce, onResult: onResult, page: 1, perPage: perPage}
}

// Refresh re-runs the current query.
func (l *OrganizationList) Refresh(ctx context.Context) (ListResult, error) {
	return l.run(ctx)
}

// SetPage moves the paged list to page n. It has no effect on the query
// while a search term is set.
func (l *OrganizationList) SetPage(ctx context.Context, n int) (ListResult, error) {
	if n < 1 {
		n = 1
	}
	l.mu.Lock()
	l.page = n
	l.mu.Unlock()
	return l.run(ctx)
}

func (l *OrganizationList) NextPage(ctx context.Context) (ListResult, error) {
	l.mu.Lock()
	n := l.page + 1
	l.mu.Unlock()
	return l.SetPage(ctx, n)
}

func (l *OrganizationList) PrevPage(ctx context.Context) (ListResult, error) {
	l.mu.Lock()
	n := l.page - 1
	l.mu.Unlock()
	return l.SetPage(ctx, n)
}

// SetFilter changes the stage and creation-date filters and goes back to
// page 1. A zero stage or nil date clears that filter.
func (l *OrganizationList) SetFilter(ctx context.Context, stageNumber int, start, end *time.Time) (ListResult, error) {
	l.mu.Lock()
	l.stage, l.start, l.end = stageNumber, start, end
	l.page = 1
	l.mu.Unlock()
	return l.run(ctx)
}

// Search runs term immediately, cancelling any pending debounced search.
func (l *OrganizationList) Search(ctx context.Context, term string) (ListResult, error) {
	l.mu.Lock()
	l.stopTimer()
	l.setTerm(term)
	l.mu.Unlock()
	return l.run(ctx)
}

// Type records a keystroke in the search box. The query runs once input has
// been idle for the debounce interval and its outcome goes to onResult.
func (l *OrganizationList) Type(ctx context.Context, term string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopTimer()
	l.setTerm(term)
	// claim a sequence number now so in-flight queries become stale
	l.seq++
	l.timer = time.AfterFunc(l.debounce, func() {
		res, err := l.run(ctx)
		if errors.Is(err, ErrStale) || l.onResult == nil {
			return
		}
		l.onResult(res, err)
	})
}

// Close stops a pending debounced search.
func (l *OrganizationList) Close() {
	l.mu.Lock()
	l.stopTimer()
	l.mu.Unlock()
}

// setTerm must be called with mu held.
func (l *OrganizationList) setTerm(term string) {
	term = strings.TrimSpace(term)
	if term == "" && l.term != "" {
		l.page = 1
	}
	l.term = term
}

// stopTimer must be called with mu held.
func (l *OrganizationList) stopTimer() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

func (l *OrganizationList) run(ctx context.Context) (ListResult, error) {
	l.mu.Lock()
	l.seq++
	seq := l.seq
	term := l.term
	params := ListParams{Page: l.page, PerPage: l.perPage, Stage: l.stage, StartDate: l.start, EndDate: l.end}
	l.mu.Unlock()

	res := ListResult{Seq: seq, Term: term}
	var err error
	if term != "" {
		res.Searching = true
		res.Items, err = l.fetch.SearchOrganizations(ctx, term)
		res.Total = int64(len(res.Items))
		if err == nil && len(res.Items) == 0 {
			res.Notice = NoResultsNotice
		}
	} else {
		var page *onboarding.Page
		page, err = l.fetch.ListOrganizations(ctx, params)
		if err == nil {
			res.Items, res.Total = page.Items, page.Total
			res.Page, res.PerPage = page.Page, page.PerPage
			res.HasNext, res.HasPrev = page.HasNext, page.HasPrev
		}
	}

	l.mu.Lock()
	latest := l.seq == seq
	l.mu.Unlock()
	if !latest {
		return ListResult{}, ErrStale
	}
	return res, err
}
