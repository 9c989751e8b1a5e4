// Package remind emails customers whose offers have been waiting for an
// answer. It runs once per invocation; scheduling is left to cron.
package remind

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"mutari/internal/notify"
	"mutari/internal/store"

	"github.com/sirupsen/logrus"
)

type PendingLister interface {
	RequestsWithPendingOffers(ctx context.Context, cutoff time.Time) ([]*store.PendingOffersSummary, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, to string, data notify.Data) notify.Result
}

type Report struct {
	Requests int
	Sent     int
	Failed   int
}

type Runner struct {
	requests  PendingLister
	mailer    Dispatcher
	logger    logrus.FieldLogger
	publicURL string
	now       func() time.Time
}

func New(requests PendingLister, mailer Dispatcher, publicURL string, logger logrus.FieldLogger) *Runner {
	return &Runner{
		requests:  requests,
		mailer:    mailer,
		logger:    logger,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		now:       time.Now,
	}
}

// Run sends one reminder per active request holding offers older than
// after. Individual send failures are counted, not returned.
func (r *Runner) Run(ctx context.Context, after time.Duration) (Report, error) {
	var report Report

	if after <= 0 {
		return report, fmt.Errorf("reminder threshold must be positive, got %s", after)
	}

	summaries, err := r.requests.RequestsWithPendingOffers(ctx, r.now().Add(-after))
	if err != nil {
		return report, fmt.Errorf("failed to list requests with pending offers: %w", err)
	}
	report.Requests = len(summaries)

	for _, s := range summaries {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		request := s.Request
		result := r.mailer.Dispatch(ctx, s.CustomerEmail, notify.PendingOffersReminder{
			CustomerName: request.ContactFirstName,
			RequestCode:  request.Code(),
			OfferCount:   s.PendingOffers,
			DashboardURL: r.publicURL + "/dashboard?request=" + url.QueryEscape(request.ID),
		})

		entry := r.logger.WithFields(logrus.Fields{
			"request_id":     request.ID,
			"pending_offers": s.PendingOffers,
		})
		if !result.Success {
			report.Failed++
			entry.WithField("error", result.Error).Warn("failed to send pending offers reminder")
			continue
		}

		report.Sent++
		entry.Info("pending offers reminder sent")
	}

	return report, nil
}
