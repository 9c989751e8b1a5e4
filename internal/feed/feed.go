// Package feed keeps a live read model of one customer's requests and the
// offers under each of them.
//
// One outer subscription watches the customer's requests. Every outer
// snapshot is reconciled against the open inner (per request offers)
// subscriptions: only the delta is opened or closed. State is always
// replaced wholesale from the latest snapshot.
package feed

import (
	"context"
	"errors"
	"sort"
	"sync"

	"mutari/internal/session"
	"mutari/pkg/types"

	"github.com/sirupsen/logrus"
)

var (
	ErrStarted = errors.New("feed already started")
	ErrStopped = errors.New("feed stopped")
)

// Subscription is a live query handle. Unsubscribe is synchronous: once it
// returns no further callbacks are delivered.
type Subscription interface {
	Unsubscribe()
}

// Source runs live queries. The first snapshot may be delivered before the
// Watch call returns.
type Source interface {
	WatchRequests(ctx context.Context, customerID string, statuses []types.RequestStatus, fn func([]*types.MovingRequest)) (Subscription, error)
	WatchOffers(ctx context.Context, requestID string, fn func([]*types.Offer)) (Subscription, error)
}

type CompanyReader interface {
	Company(ctx context.Context, companyID string) (*types.Company, error)
}

// View is an immutable snapshot handed to OnChange.
type View struct {
	Loaded     bool                      `json:"loaded"`
	Filter     types.RequestStatus       `json:"filter"`
	SelectedID string                    `json:"selectedId"`
	Requests   []*types.MovingRequest    `json:"requests"`
	Offers     map[string][]*types.Offer `json:"offers"`
	Companies  map[string]*types.Company `json:"companies"`
}

type Options struct {
	CustomerID string
	Logger     logrus.FieldLogger

	// RequestID, when set, selects that request once it loads.
	RequestID string

	// OnChange receives every new view in order. It must not call back
	// into the Feed.
	OnChange func(View)
}

type innerSub struct {
	gen int
	sub Subscription
}

type Feed struct {
	source    Source
	companies CompanyReader
	logger    logrus.FieldLogger

	customerID string
	onChange   func(View)

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	stopped bool
	outer   Subscription
	inner   map[string]*innerSub
	gen     int

	loaded    bool
	requests  []*types.MovingRequest
	offers    map[string][]*types.Offer
	company   map[string]*types.Company
	fetching  map[string]bool
	selection selection
	intents   intents

	version        uint64
	notifyMu       sync.Mutex
	lastDelivered  uint64
	unwatchSession func()
}

func New(source Source, companies CompanyReader, opts Options) *Feed {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Feed{
		source:     source,
		companies:  companies,
		logger:     logger.WithField("customer_id", opts.CustomerID),
		customerID: opts.CustomerID,
		onChange:   opts.OnChange,
		inner:      make(map[string]*innerSub),
		offers:     make(map[string][]*types.Offer),
		company:    make(map[string]*types.Company),
		fetching:   make(map[string]bool),
		selection:  selection{urlID: opts.RequestID},
		intents:    intents{items: make(map[int]intent)},
	}
}

// Start opens the outer subscription.
func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	switch {
	case f.stopped:
		f.mu.Unlock()
		return ErrStopped
	case f.started:
		f.mu.Unlock()
		return ErrStarted
	}
	f.started = true
	f.ctx, f.cancel = context.WithCancel(ctx)
	watchCtx := f.ctx
	f.mu.Unlock()

	sub, err := f.source.WatchRequests(watchCtx, f.customerID, types.FeedStatuses, f.onRequests)
	if err != nil {
		f.Stop()
		return err
	}

	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	f.outer = sub
	f.mu.Unlock()

	return nil
}

// StopOnSignOut stops the feed as soon as the provider reports no session.
func (f *Feed) StopOnSignOut(p session.Provider) {
	unsubscribe := p.Subscribe(func(s *session.Session) {
		if s == nil {
			f.Stop()
		}
	})

	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		unsubscribe()
		return
	}
	f.unwatchSession = unsubscribe
	f.mu.Unlock()
}

// Stop cancels the outer and every inner subscription. No state changes are
// applied afterwards. Safe to call more than once.
func (f *Feed) Stop() {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	f.stopped = true

	subs := make([]Subscription, 0, len(f.inner)+1)
	if f.outer != nil {
		subs = append(subs, f.outer)
		f.outer = nil
	}
	for id, s := range f.inner {
		if s.sub != nil {
			subs = append(subs, s.sub)
		}
		delete(f.inner, id)
	}

	if f.cancel != nil {
		f.cancel()
	}
	unwatch := f.unwatchSession
	f.unwatchSession = nil
	f.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	if unwatch != nil {
		unwatch()
	}
}

// View returns the current snapshot.
func (f *Feed) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewLocked()
}

// ActiveSubscriptions lists the request ids with an open offers query.
func (f *Feed) ActiveSubscriptions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, 0, len(f.inner))
	for id := range f.inner {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (f *Feed) onRequests(requests []*types.MovingRequest) {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}

	f.loaded = true
	f.requests = requests

	desired := make(map[string]bool, len(requests))
	for _, r := range requests {
		desired[r.ID] = true
	}

	var closing []Subscription
	for id, s := range f.inner {
		if desired[id] {
			continue
		}
		if s.sub != nil {
			closing = append(closing, s.sub)
		}
		delete(f.inner, id)
		delete(f.offers, id)
	}

	type opening struct {
		id  string
		gen int
	}
	var opens []opening
	for _, r := range requests {
		if _, ok := f.inner[r.ID]; ok {
			continue
		}
		f.gen++
		f.inner[r.ID] = &innerSub{gen: f.gen}
		opens = append(opens, opening{id: r.ID, gen: f.gen})
	}

	f.intents.reconcile(requests)
	f.selection.resolve(f.visibleLocked(), f.offers)
	view, version := f.snapshotLocked()
	ctx := f.ctx
	f.mu.Unlock()

	for _, s := range closing {
		s.Unsubscribe()
	}

	f.deliver(view, version)

	for _, o := range opens {
		f.openInner(ctx, o.id, o.gen)
	}
}

func (f *Feed) openInner(ctx context.Context, requestID string, gen int) {
	sub, err := f.source.WatchOffers(ctx, requestID, func(offers []*types.Offer) {
		f.onOffers(requestID, gen, offers)
	})
	if err != nil {
		f.logger.WithError(err).WithField("request_id", requestID).Error("failed to watch offers")

		f.mu.Lock()
		if s, ok := f.inner[requestID]; ok && s.gen == gen {
			delete(f.inner, requestID)
		}
		f.mu.Unlock()
		return
	}

	f.mu.Lock()
	s, ok := f.inner[requestID]
	if f.stopped || !ok || s.gen != gen {
		// torn down while the query was being opened
		f.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	s.sub = sub
	f.mu.Unlock()
}

func (f *Feed) onOffers(requestID string, gen int, offers []*types.Offer) {
	f.mu.Lock()
	s, ok := f.inner[requestID]
	if f.stopped || !ok || s.gen != gen {
		f.mu.Unlock()
		return
	}

	f.offers[requestID] = offers
	missing := f.missingCompaniesLocked(offers)
	f.selection.resolve(f.visibleLocked(), f.offers)
	view, version := f.snapshotLocked()
	ctx := f.ctx
	f.mu.Unlock()

	f.deliver(view, version)

	for _, id := range missing {
		go f.fetchCompany(ctx, id)
	}
}

func (f *Feed) visibleLocked() []*types.MovingRequest {
	if f.selection.filter == "" {
		return f.requests
	}

	out := make([]*types.MovingRequest, 0, len(f.requests))
	for _, r := range f.requests {
		if r.Status == f.selection.filter {
			out = append(out, r)
		}
	}
	return out
}

func (f *Feed) viewLocked() View {
	visible := f.visibleLocked()

	v := View{
		Loaded:     f.loaded,
		Filter:     f.selection.filter,
		SelectedID: f.selection.id,
		Requests:   make([]*types.MovingRequest, 0, len(visible)),
		Offers:     make(map[string][]*types.Offer, len(visible)),
		Companies:  make(map[string]*types.Company, len(f.company)),
	}

	for _, r := range visible {
		v.Requests = append(v.Requests, f.intents.apply(r))
		if offers, ok := f.offers[r.ID]; ok {
			v.Offers[r.ID] = offers
		}
	}

	for id, c := range f.company {
		v.Companies[id] = c
	}

	return v
}

func (f *Feed) snapshotLocked() (View, uint64) {
	f.version++
	return f.viewLocked(), f.version
}

// deliver hands views to OnChange in version order, dropping stale ones.
func (f *Feed) deliver(v View, version uint64) {
	if f.onChange == nil {
		return
	}

	f.notifyMu.Lock()
	defer f.notifyMu.Unlock()

	if version <= f.lastDelivered {
		return
	}

	f.mu.Lock()
	stopped := f.stopped
	f.mu.Unlock()
	if stopped {
		return
	}

	f.lastDelivered = version
	f.onChange(v)
}

func (f *Feed) emit() {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	view, version := f.snapshotLocked()
	f.mu.Unlock()

	f.deliver(view, version)
}
