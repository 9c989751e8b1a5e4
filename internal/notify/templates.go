// Package notify renders the marketplace emails and hands them to a sender.
package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Event string

const (
	EventGuestRequestConfirmed Event = "guest_request_confirmed"
	EventNewOffer              Event = "new_offer"
	EventOfferAccepted         Event = "offer_accepted"
	EventOfferDeclined         Event = "offer_declined"
	EventNewMessage            Event = "new_message"
	EventPendingOffersReminder Event = "pending_offers_reminder"
)

// Data is the payload of one event. Zero fields render as empty text.
type Data interface {
	Event() Event
	Subject() string
}

type GuestRequestConfirmed struct {
	CustomerName string
	RequestCode  string
	FromCity     string
	ToCity       string
	MoveDate     string
	DashboardURL string
}

func (GuestRequestConfirmed) Event() Event { return EventGuestRequestConfirmed }
func (d GuestRequestConfirmed) Subject() string {
	return subject("Cererea ta de mutare a fost înregistrată", d.RequestCode)
}

type NewOffer struct {
	CustomerName string
	CompanyName  string
	RequestCode  string
	Price        float64
	Message      string
	DashboardURL string
}

func (NewOffer) Event() Event { return EventNewOffer }
func (d NewOffer) Subject() string {
	if d.CompanyName == "" {
		return subject("Ai primit o ofertă nouă", d.RequestCode)
	}
	return subject("Ofertă nouă de la "+d.CompanyName, d.RequestCode)
}

type OfferAccepted struct {
	CompanyName   string
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	RequestCode   string
	FromCity      string
	ToCity        string
	Price         float64
}

func (OfferAccepted) Event() Event { return EventOfferAccepted }
func (d OfferAccepted) Subject() string {
	return subject("Oferta ta a fost acceptată", d.RequestCode)
}

type OfferDeclined struct {
	CompanyName string
	RequestCode string
	FromCity    string
	ToCity      string
}

func (OfferDeclined) Event() Event { return EventOfferDeclined }
func (d OfferDeclined) Subject() string {
	return subject("Oferta ta a fost refuzată", d.RequestCode)
}

type NewMessage struct {
	RecipientName   string
	SenderName      string
	RequestCode     string
	Preview         string
	ConversationURL string
}

func (NewMessage) Event() Event { return EventNewMessage }
func (d NewMessage) Subject() string {
	if d.SenderName == "" {
		return subject("Mesaj nou", d.RequestCode)
	}
	return subject("Mesaj nou de la "+d.SenderName, d.RequestCode)
}

type PendingOffersReminder struct {
	CustomerName string
	RequestCode  string
	OfferCount   int
	DashboardURL string
}

func (PendingOffersReminder) Event() Event { return EventPendingOffersReminder }
func (d PendingOffersReminder) Subject() string {
	return subject("Ai oferte care așteaptă un răspuns", d.RequestCode)
}

func subject(base, code string) string {
	if code == "" {
		return base
	}
	return base + " (" + code + ")"
}

// Rendered is a complete email body and its subject.
type Rendered struct {
	Subject string
	HTML    string
}

//go:embed templates
var templateFS embed.FS

var (
	templates = template.Must(loadTemplates())
	printer   = message.NewPrinter(language.Romanian)
)

const maxPreview = 280

func loadTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"price": func(v float64) string {
			if v <= 0 {
				return ""
			}
			return printer.Sprintf("%.2f lei", v)
		},
	}

	t := template.New("").Funcs(funcMap).Option("missingkey=zero")
	err := fs.WalkDir(templateFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		data, err := fs.ReadFile(templateFS, path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}

		if _, err := t.Parse(string(data)); err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

// Render produces the email for d. It touches no state beyond the parsed
// templates, so the same input always yields the same output.
func Render(d Data) (Rendered, error) {
	if d == nil {
		return Rendered{}, fmt.Errorf("no notification data")
	}

	if m, ok := d.(NewMessage); ok {
		m.Preview = truncate(m.Preview, maxPreview)
		d = m
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(d.Event()), d); err != nil {
		return Rendered{}, fmt.Errorf("failed to render %s: %w", d.Event(), err)
	}

	return Rendered{Subject: d.Subject(), HTML: buf.String()}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
