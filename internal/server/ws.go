package server

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"mutari/internal/feed"
	"mutari/internal/unread"
	"mutari/pkg/types"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsMaxMessage = 4096
)

// feedFrame is pushed to the dashboard. Views are sent whole.
type feedFrame struct {
	Type            string         `json:"type"`
	View            *feed.View     `json:"view,omitempty"`
	Unread          []string       `json:"unread"`
	UnreadByRequest map[string]int `json:"unreadByRequest"`
	Message         string         `json:"message,omitempty"`
}

// clientFrame is what the dashboard may send back.
type clientFrame struct {
	Type      string              `json:"type"`
	RequestID string              `json:"requestId,omitempty"`
	Status    types.RequestStatus `json:"status,omitempty"`
	OfferID   string              `json:"offerId,omitempty"`
}

func (s *Service) upgrader() *websocket.Upgrader {
	allowed := s.config.AllowedOrigins
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, a := range allowed {
				if a == "*" || strings.EqualFold(a, origin) {
					return true
				}
			}
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		},
	}
}

// handleFeedSocket streams the caller's live offer feed over a websocket.
func (s *Service) handleFeedSocket(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok || identity.Role != types.RoleCustomer {
		s.writeError(w, http.StatusForbidden, "forbidden", msgForbidden)
		return
	}
	if s.live == nil {
		s.writeError(w, http.StatusServiceUnavailable, "unavailable", msgUnavailable)
		return
	}

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("failed to upgrade feed socket")
		return
	}

	s.metrics.FeedConnected()
	defer s.metrics.FeedDisconnected()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	fc := newFeedConn(s, conn, identity, r.URL.Query().Get("request"))
	fc.serve(ctx, cancel)
}

type feedConn struct {
	s        *Service
	conn     *websocket.Conn
	identity *types.Identity
	logger   logrus.FieldLogger

	feed    *feed.Feed
	tracker *unread.Tracker

	wake chan struct{}

	mu          sync.Mutex
	view        feed.View
	viewDirty   bool
	chatDirty   bool
	unreadDirty bool

	// owned by the pump goroutine
	chatSubs map[string]feed.Subscription
	offerIDs []string
}

func newFeedConn(s *Service, conn *websocket.Conn, identity *types.Identity, requestID string) *feedConn {
	logger := s.logger.WithField("customer_id", identity.UserID)

	fc := &feedConn{
		s:        s,
		conn:     conn,
		identity: identity,
		logger:   logger,
		wake:     make(chan struct{}, 1),
		chatSubs: make(map[string]feed.Subscription),
	}

	fc.tracker = unread.New(types.RoleCustomer, unread.MarkerFunc(func(ctx context.Context, offerID string) error {
		return s.chat.MarkRead(ctx, offerID, types.RoleCustomer, time.Now())
	}), logger)

	fc.feed = feed.New(s.live, s.companies, feed.Options{
		CustomerID: identity.UserID,
		RequestID:  requestID,
		OnChange:   fc.onView,
		Logger:     logger,
	})

	return fc
}

func (fc *feedConn) onView(v feed.View) {
	fc.mu.Lock()
	fc.view = v
	fc.viewDirty = true
	fc.mu.Unlock()
	fc.signal()
}

func (fc *feedConn) onChat() {
	fc.mu.Lock()
	fc.chatDirty = true
	fc.mu.Unlock()
	fc.signal()
}

func (fc *feedConn) signal() {
	select {
	case fc.wake <- struct{}{}:
	default:
	}
}

func (fc *feedConn) serve(ctx context.Context, cancel context.CancelFunc) {
	defer fc.conn.Close()

	// the first snapshot is only queued here; pump writes it
	if err := fc.feed.Start(ctx); err != nil {
		fc.logger.WithError(err).Error("failed to start offer feed")
		fc.writeError(msgUnavailable)
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		fc.pump(ctx)
	}()

	fc.read(ctx)

	cancel()
	fc.feed.Stop()
	<-done
	fc.closeChat()
}

// read handles client frames until the socket closes.
func (fc *feedConn) read(ctx context.Context) {
	fc.conn.SetReadLimit(wsMaxMessage)
	_ = fc.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	fc.conn.SetPongHandler(func(string) error {
		return fc.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var frame clientFrame
		if err := fc.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				fc.logger.WithError(err).Debug("feed socket closed")
			}
			return
		}

		switch frame.Type {
		case "select":
			fc.feed.Select(frame.RequestID)
		case "filter":
			fc.feed.SetFilter(frame.Status)
		case "markRead":
			if frame.OfferID == "" {
				continue
			}
			// local state is already read when this fails
			_ = fc.tracker.MarkRead(ctx, frame.OfferID)
			fc.mu.Lock()
			fc.unreadDirty = true
			fc.mu.Unlock()
			fc.signal()
		default:
			fc.logger.WithField("type", frame.Type).Debug("ignoring unknown feed frame")
		}
	}
}

// pump is the only writer on the socket.
func (fc *feedConn) pump(ctx context.Context) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = fc.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
			return
		case <-ticker.C:
			if err := fc.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				fc.logger.WithError(err).Debug("feed socket ping failed")
				return
			}
		case <-fc.wake:
			if err := fc.flush(ctx); err != nil {
				fc.logger.WithError(err).Debug("feed socket write failed")
				return
			}
		}
	}
}

func (fc *feedConn) flush(ctx context.Context) error {
	fc.mu.Lock()
	view, viewDirty := fc.view, fc.viewDirty
	chatDirty, unreadDirty := fc.chatDirty, fc.unreadDirty
	fc.viewDirty, fc.chatDirty, fc.unreadDirty = false, false, false
	fc.mu.Unlock()

	if viewDirty {
		fc.tracker.Update(view.Requests, view.Offers)
		fc.syncChat(view)
		chatDirty = true
	}
	if chatDirty {
		fc.loadChatState(ctx)
	}
	if !viewDirty && !chatDirty && !unreadDirty {
		return nil
	}

	frame := feedFrame{
		Type:            "unread",
		Unread:          fc.tracker.Unread(),
		UnreadByRequest: fc.tracker.CountByRequest(),
	}
	if viewDirty {
		frame.Type = "view"
		frame.View = &view
	}

	return fc.write(frame)
}

func (fc *feedConn) write(frame feedFrame) error {
	_ = fc.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return fc.conn.WriteJSON(frame)
}

func (fc *feedConn) writeError(message string) {
	_ = fc.write(feedFrame{Type: "error", Message: message, Unread: []string{}, UnreadByRequest: map[string]int{}})
}

// syncChat keeps one chat watch per visible request.
func (fc *feedConn) syncChat(view feed.View) {
	want := make(map[string]bool, len(view.Requests))
	for _, r := range view.Requests {
		want[r.ID] = true
	}

	for id, sub := range fc.chatSubs {
		if !want[id] {
			sub.Unsubscribe()
			delete(fc.chatSubs, id)
		}
	}
	for id := range want {
		if _, ok := fc.chatSubs[id]; !ok {
			fc.chatSubs[id] = fc.s.live.WatchChat(id, fc.onChat)
		}
	}

	ids := make([]string, 0)
	for requestID, offers := range view.Offers {
		if !want[requestID] {
			continue
		}
		for _, o := range offers {
			ids = append(ids, o.ID)
		}
	}
	sort.Strings(ids)
	fc.offerIDs = ids
}

func (fc *feedConn) loadChatState(ctx context.Context) {
	if len(fc.offerIDs) == 0 {
		return
	}

	markers, err := fc.s.chat.ReadMarkers(ctx, fc.offerIDs, types.RoleCustomer)
	if err != nil {
		fc.logger.WithError(err).Warn("failed to load chat read markers")
	}
	for _, m := range markers {
		fc.tracker.SetReadMarker(m.OfferID, m.LastReadAt)
	}

	latest, err := fc.s.chat.LatestIncoming(ctx, fc.offerIDs, types.RoleCustomer)
	if err != nil {
		fc.logger.WithError(err).Warn("failed to load latest chat messages")
	}
	for _, m := range latest {
		fc.tracker.ObserveMessage(m)
	}
}

func (fc *feedConn) closeChat() {
	for id, sub := range fc.chatSubs {
		sub.Unsubscribe()
		delete(fc.chatSubs, id)
	}
}
