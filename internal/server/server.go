// Package server is the mutari HTTP API.
package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"mutari/internal/draftstore"
	"mutari/internal/feed"
	"mutari/internal/geo"
	"mutari/internal/metrics"
	"mutari/internal/notify"
	"mutari/internal/storage"
	"mutari/internal/store"
	"mutari/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/securecookie"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

type RequestStore interface {
	Request(ctx context.Context, requestID string) (*types.MovingRequest, error)
	RequestsByCustomer(ctx context.Context, customerID string, statuses []types.RequestStatus) ([]*types.MovingRequest, error)
	CreateRequest(ctx context.Context, request *types.MovingRequest) error
	UpdateMedia(ctx context.Context, requestID string, mediaURLs []string) error
	UpdateStatus(ctx context.Context, requestID string, to types.RequestStatus, actor string) (*types.MovingRequest, error)
}

type OfferStore interface {
	Offer(ctx context.Context, offerID string) (*types.Offer, error)
	OffersByRequest(ctx context.Context, requestID string) ([]*types.Offer, error)
	CreateOffer(ctx context.Context, offer *types.Offer) error
	AcceptOffer(ctx context.Context, requestID, offerID, actor string) (*types.Offer, error)
	DeclineOffer(ctx context.Context, requestID, offerID string) (*types.Offer, error)
}

type CompanyStore interface {
	Company(ctx context.Context, companyID string) (*types.Company, error)
}

type CustomerStore interface {
	Customer(ctx context.Context, customerID string) (*types.Customer, error)
	CustomerBySubject(ctx context.Context, subject string) (*types.Customer, error)
	GuestCustomer(ctx context.Context, email, givenName, familyName, phone string) (*types.Customer, error)
	EnsureCustomer(ctx context.Context, identity *types.Identity, payload *types.EnsureCustomerPayload) (*types.Customer, error)
}

type ChatStore interface {
	CreateMessage(ctx context.Context, message *types.ChatMessage) error
	MarkRead(ctx context.Context, offerID string, role types.Role, at time.Time) error
	LatestIncoming(ctx context.Context, offerIDs []string, role types.Role) ([]*types.ChatMessage, error)
	ReadMarkers(ctx context.Context, offerIDs []string, role types.Role) ([]*types.ReadMarker, error)
}

// LiveSource feeds websocket clients.
type LiveSource interface {
	feed.Source
	WatchChat(requestID string, fn func()) feed.Subscription
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the API. Media, Mailer, Metrics and Redis
// are optional.
type Deps struct {
	Requests  RequestStore
	Offers    OfferStore
	Companies CompanyStore
	Customers CustomerStore
	Chat      ChatStore
	Live      LiveSource
	Verifier  TokenVerifier
	Database  Pinger

	Media   storage.Remover
	Mailer  *notify.Dispatcher
	Metrics *metrics.Metrics
	Redis   redis.Cmdable
	Geo     *geo.Index
}

type Service struct {
	logger *logrus.Logger
	config *types.Config

	requests  RequestStore
	offers    OfferStore
	companies CompanyStore
	customers CustomerStore
	chat      ChatStore
	live      LiveSource
	verifier  TokenVerifier
	database  Pinger

	media   storage.Remover
	mailer  *notify.Dispatcher
	metrics *metrics.Metrics
	redis   redis.Cmdable
	geo     *geo.Index

	cookie   *securecookie.SecureCookie
	validate *validator.Validate
	limiter  *ipLimiter

	handler http.Handler
	server  *http.Server
}

func New(config *types.Config, logger *logrus.Logger, deps Deps) (*Service, error) {
	mux := flow.New()

	hashKey, err := base64.StdEncoding.DecodeString(config.CookieHashKey)
	if err != nil {
		return nil, fmt.Errorf("decode cookie hash key: %w", err)
	}
	blockKey, err := base64.StdEncoding.DecodeString(config.CookieBlockKey)
	if err != nil {
		return nil, fmt.Errorf("decode cookie block key: %w", err)
	}
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
		logger.Warn("COOKIE_HASH_KEY not set, intake drafts will not survive a restart")
	}
	if len(blockKey) == 0 {
		blockKey = nil
	}

	s := &Service{
		logger: logger,
		config: config,

		requests:  deps.Requests,
		offers:    deps.Offers,
		companies: deps.Companies,
		customers: deps.Customers,
		chat:      deps.Chat,
		live:      deps.Live,
		verifier:  deps.Verifier,
		database:  deps.Database,

		media:   deps.Media,
		mailer:  deps.Mailer,
		metrics: deps.Metrics,
		redis:   deps.Redis,
		geo:     deps.Geo,

		cookie:   draftstore.NewCodec(hashKey, blockKey),
		validate: newValidator(),
		limiter:  newIPLimiter(config.GuestRatePerMinute),
	}

	if s.media == nil {
		s.media = storage.NopRemover{}
	}
	if s.geo == nil {
		s.geo = geo.NewIndex()
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	s.buildRouter(mux)

	s.handler = cors.New(cors.Options{
		AllowedOrigins:   config.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           600,
	}).Handler(s.StripTrailingSlash(mux))

	// the feed socket clears its own write deadline after the upgrade
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", config.ServerPort),
		Handler:           s.handler,
		ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Service) Handler() http.Handler {
	return s.handler
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler(), http.MethodGet)

	r.HandleFunc("/api/locations/search", s.handleLocationSearch, http.MethodGet)
	r.HandleFunc("/api/geo/counties", s.handleCounties, http.MethodGet)
	r.HandleFunc("/api/geo/cities", s.handleCities, http.MethodGet)

	r.Group(func(r *flow.Mux) {
		r.Use(s.OptionalAuth)
		r.Use(s.RateLimitGuests)

		r.HandleFunc("/api/requests/createGuest", s.handleCreateGuest, http.MethodPost)
		r.HandleFunc("/api/intake/submit", s.handleIntakeSubmit, http.MethodPost)
	})

	r.Group(func(r *flow.Mux) {
		r.Use(s.OptionalAuth)

		r.HandleFunc("/api/intake", s.handleGetIntake, http.MethodGet)
		r.HandleFunc("/api/intake/steps/:step", s.handleIntakeUpdate, http.MethodPost)
		r.HandleFunc("/api/intake/steps/:step/advance", s.handleIntakeAdvance, http.MethodPost)
		r.HandleFunc("/api/intake/steps/:step/edit", s.handleIntakeEdit, http.MethodPost)
	})

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/api/customers/ensure", s.handleEnsureCustomer, http.MethodPost)

		r.HandleFunc("/api/requests/updateMedia", s.handleUpdateMedia, http.MethodPost)
		r.HandleFunc("/api/requests/updateStatus", s.handleUpdateStatus, http.MethodPost)

		r.HandleFunc("/api/offers/accept", s.handleAcceptOffer, http.MethodPost)
		r.HandleFunc("/api/offers/decline", s.handleDeclineOffer, http.MethodPost)
		r.HandleFunc("/api/offers/create", s.handleCreateOffer, http.MethodPost)

		r.HandleFunc("/api/chat/messages", s.handleChatMessage, http.MethodPost)
		r.HandleFunc("/api/chat/markRead", s.handleChatMarkRead, http.MethodPost)

		r.HandleFunc("/api/feed/ws", s.handleFeedSocket, http.MethodGet)
	})
}

var _ RequestStore = (*store.RequestRepository)(nil)
var _ OfferStore = (*store.OfferRepository)(nil)
var _ CompanyStore = (*store.CompanyRepository)(nil)
var _ CustomerStore = (*store.CustomerRepository)(nil)
var _ ChatStore = (*store.ChatRepository)(nil)
