package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Message is one outgoing email.
type Message struct {
	To      string   `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"replyTo,omitempty"`
	CC      []string `json:"cc,omitempty"`
	BCC     []string `json:"bcc,omitempty"`
}

type Result struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) (Result, error)
}

// HTTPSender posts messages to a transactional email API.
type HTTPSender struct {
	url        string
	apiKey     string
	from       string
	httpClient *http.Client
}

func NewHTTPSender(url, apiKey, from string, httpClient *http.Client) *HTTPSender {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSender{url: url, apiKey: apiKey, from: from, httpClient: httpClient}
}

type httpSendBody struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
	CC      []string `json:"cc,omitempty"`
	BCC     []string `json:"bcc,omitempty"`
}

func (s *HTTPSender) Send(ctx context.Context, msg Message) (Result, error) {
	body, err := json.Marshal(httpSendBody{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		ReplyTo: msg.ReplyTo,
		CC:      msg.CC,
		BCC:     msg.BCC,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Result{Error: err.Error()}, fmt.Errorf("failed to call email api: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		return Result{Error: msg}, fmt.Errorf("email api returned %d: %s", resp.StatusCode, msg)
	}

	var out struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &out)

	return Result{Success: true, ID: out.ID}, nil
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	Logger logrus.FieldLogger
}

func (s *LogSender) Send(_ context.Context, msg Message) (Result, error) {
	s.Logger.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
		"bytes":   len(msg.HTML),
	}).Info("email logged, not sent")
	return Result{Success: true}, nil
}

// CompositeSender hands every message to all senders. The first successful
// result wins; errors from the rest are joined.
type CompositeSender struct {
	senders []Sender
}

func NewCompositeSender(senders ...Sender) *CompositeSender {
	return &CompositeSender{senders: senders}
}

func (cs *CompositeSender) Add(sender Sender) {
	if sender != nil {
		cs.senders = append(cs.senders, sender)
	}
}

func (cs *CompositeSender) Send(ctx context.Context, msg Message) (Result, error) {
	if len(cs.senders) == 0 {
		return Result{}, errors.New("no senders configured")
	}

	var (
		result Result
		errs   []error
	)
	for _, sender := range cs.senders {
		res, err := sender.Send(ctx, msg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !result.Success {
			result = res
		}
	}

	if !result.Success {
		result.Error = errors.Join(errs...).Error()
		return result, fmt.Errorf("composite email send failed: %w", errors.Join(errs...))
	}
	return result, nil
}
