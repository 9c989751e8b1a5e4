package main

import (
	"net/http"
	"time"

	"mutari/internal/metrics"
	"mutari/internal/notify"
	"mutari/pkg/types"

	"github.com/sirupsen/logrus"
)

// newMailer sends through the mail API. Development environments also log
// every message; MAIL_LOG_ONLY or a missing API key only logs.
func newMailer(config *types.Config, logger *logrus.Logger, m *metrics.Metrics) *notify.Dispatcher {
	sender := notify.NewCompositeSender()

	if config.MailLogOnly || config.MailAPIKey == "" {
		logger.Warn("mail api not configured, emails are only logged")
		sender.Add(&notify.LogSender{Logger: logger})
	} else {
		sender.Add(notify.NewHTTPSender(
			config.MailAPIURL,
			config.MailAPIKey,
			config.MailFrom,
			&http.Client{Timeout: 10 * time.Second},
		))
		if config.Environment == "development" {
			sender.Add(&notify.LogSender{Logger: logger})
		}
	}

	mailer := notify.NewDispatcher(sender, config.MailReplyTo, logger)
	if m != nil {
		mailer.OnResult = func(event notify.Event, res notify.Result) {
			m.Email(string(event), res.Success)
		}
	}

	return mailer
}
