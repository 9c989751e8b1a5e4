// Package live turns Postgres change notifications into live queries for
// the offer feed.
package live

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"mutari/internal/db"
	"mutari/internal/feed"
	"mutari/pkg/types"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

type RequestLister interface {
	RequestsByCustomer(ctx context.Context, customerID string, statuses []types.RequestStatus) ([]*types.MovingRequest, error)
}

type OfferLister interface {
	OffersByRequest(ctx context.Context, requestID string) ([]*types.Offer, error)
}

const (
	topicRequests = "requests"
	topicOffers   = "offers"
	topicChat     = "chat"
)

// Source re-runs a subscription's query whenever a notification names its
// topic, and delivers the full result. The first result is delivered
// before Watch returns.
type Source struct {
	requests RequestLister
	offers   OfferLister
	logger   logrus.FieldLogger

	mu     sync.Mutex
	subs   map[string]map[int]*subscription
	nextID int
}

var _ feed.Source = (*Source)(nil)

func NewSource(requests RequestLister, offers OfferLister, logger logrus.FieldLogger) *Source {
	return &Source{
		requests: requests,
		offers:   offers,
		logger:   logger,
		subs:     make(map[string]map[int]*subscription),
	}
}

type subscription struct {
	src   *Source
	topic string
	id    int

	// held while delivering, so Unsubscribe waits out an in-flight callback
	mu      sync.Mutex
	closed  bool
	refresh func(ctx context.Context) error
}

// Unsubscribe stops deliveries. It must not be called from the
// subscription's own callback.
func (s *subscription) Unsubscribe() {
	s.src.remove(s)

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *subscription) run(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.refresh(ctx)
}

func (s *Source) WatchRequests(ctx context.Context, customerID string, statuses []types.RequestStatus, fn func([]*types.MovingRequest)) (feed.Subscription, error) {
	statuses = append([]types.RequestStatus(nil), statuses...)
	return s.watch(ctx, topicRequests+":"+customerID, func(ctx context.Context) error {
		requests, err := s.requests.RequestsByCustomer(ctx, customerID, statuses)
		if err != nil {
			return err
		}
		fn(requests)
		return nil
	})
}

func (s *Source) WatchOffers(ctx context.Context, requestID string, fn func([]*types.Offer)) (feed.Subscription, error) {
	return s.watch(ctx, topicOffers+":"+requestID, func(ctx context.Context) error {
		offers, err := s.offers.OffersByRequest(ctx, requestID)
		if err != nil {
			return err
		}
		fn(offers)
		return nil
	})
}

// WatchChat calls fn whenever a chat message is posted under requestID.
func (s *Source) WatchChat(requestID string, fn func()) feed.Subscription {
	sub := s.add(topicChat+":"+requestID, func(context.Context) error {
		fn()
		return nil
	})
	return sub
}

func (s *Source) watch(ctx context.Context, topic string, refresh func(ctx context.Context) error) (feed.Subscription, error) {
	sub := s.add(topic, refresh)

	if err := sub.run(ctx); err != nil {
		sub.Unsubscribe()
		return nil, fmt.Errorf("failed initial snapshot for %s: %w", topic, err)
	}

	return sub, nil
}

func (s *Source) add(topic string, refresh func(ctx context.Context) error) *subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	sub := &subscription{src: s, topic: topic, id: s.nextID, refresh: refresh}
	if s.subs[topic] == nil {
		s.subs[topic] = make(map[int]*subscription)
	}
	s.subs[topic][sub.id] = sub
	return sub
}

func (s *Source) remove(sub *subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.subs[sub.topic], sub.id)
	if len(s.subs[sub.topic]) == 0 {
		delete(s.subs, sub.topic)
	}
}

// Count returns the number of open subscriptions.
func (s *Source) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, subs := range s.subs {
		n += len(subs)
	}
	return n
}

// Publish re-runs every subscription of topic. An empty topic re-runs all.
func (s *Source) Publish(ctx context.Context, topic string) {
	s.mu.Lock()
	var targets []*subscription
	for t, subs := range s.subs {
		if topic != "" && t != topic {
			continue
		}
		for _, sub := range subs {
			targets = append(targets, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range targets {
		if err := sub.run(ctx); err != nil {
			s.logger.WithError(err).WithField("topic", sub.topic).Warn("failed to refresh live query")
		}
	}
}

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// Listen holds one pool connection in LISTEN and publishes every
// notification until ctx ends. Lost connections are retried with backoff;
// after a reconnect every subscription is refreshed.
func (s *Source) Listen(ctx context.Context, pool *pgxpool.Pool) error {
	backoff := minBackoff
	first := true

	for {
		err := s.listenOnce(ctx, pool, !first)
		if ctx.Err() != nil {
			return nil
		}
		first = false

		s.logger.WithError(err).WithField("retry_in", backoff.String()).Warn("live listener disconnected")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (s *Source) listenOnce(ctx context.Context, pool *pgxpool.Pool, resync bool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+db.ChangesChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.logger.WithField("channel", db.ChangesChannel).Info("listening for changes")

	if resync {
		s.Publish(ctx, "")
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			// the connection state is unknown; do not hand it back for reuse
			_ = conn.Conn().Close(context.Background())
			return fmt.Errorf("wait for notification: %w", err)
		}

		topic := strings.TrimSpace(n.Payload)
		if topic == "" {
			continue
		}
		s.Publish(ctx, topic)
	}
}
