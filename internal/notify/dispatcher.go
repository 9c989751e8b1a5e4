package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Dispatcher renders events and sends them. Failures are logged and
// reported in the Result; callers never fail because an email did not go out.
type Dispatcher struct {
	sender  Sender
	replyTo string
	logger  logrus.FieldLogger

	// OnResult observes every dispatch, used for metrics.
	OnResult func(event Event, res Result)
}

func NewDispatcher(sender Sender, replyTo string, logger logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{sender: sender, replyTo: replyTo, logger: logger}
}

func (d *Dispatcher) Dispatch(ctx context.Context, to string, data Data) Result {
	res := d.dispatch(ctx, to, data)
	if d.OnResult != nil && data != nil {
		d.OnResult(data.Event(), res)
	}
	return res
}

func (d *Dispatcher) dispatch(ctx context.Context, to string, data Data) Result {
	if to == "" {
		d.logger.WithField("event", eventName(data)).Warn("skipping email without recipient")
		return Result{Error: "missing recipient"}
	}

	rendered, err := Render(data)
	if err != nil {
		d.logger.WithError(err).WithField("event", eventName(data)).Error("failed to render email")
		return Result{Error: err.Error()}
	}

	res, err := d.sender.Send(ctx, Message{
		To:      to,
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
		ReplyTo: d.replyTo,
	})
	if err != nil {
		d.logger.WithError(err).WithFields(logrus.Fields{"event": eventName(data), "to": to}).Error("failed to send email")
		if res.Error == "" {
			res.Error = err.Error()
		}
		res.Success = false
		return res
	}

	return res
}

// Go dispatches in the background with a detached context. Request
// handlers use it so email latency never reaches the response.
func (d *Dispatcher) Go(ctx context.Context, to string, data Data) {
	ctx = context.WithoutCancel(ctx)
	go d.Dispatch(ctx, to, data)
}

func eventName(data Data) string {
	if data == nil {
		return ""
	}
	return string(data.Event())
}
