// Package notice carries user-visible toast messages. Every failure that
// reaches a user ends up here as a Romanian message.
package notice

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

const (
	MsgSignInRequired     = "Trebuie să fii autentificat pentru a efectua această acțiune."
	MsgUnavailable        = "Serviciul este temporar indisponibil. Te rugăm să încerci din nou în câteva momente."
	MsgGenericError       = "A apărut o eroare. Te rugăm să încerci din nou."
	MsgValidation         = "Te rugăm să corectezi câmpurile marcate."
	MsgSubmitFailed       = "Nu am putut trimite cererea. Datele tale au fost păstrate, încearcă din nou."
	MsgSubmitSuccess      = "Cererea ta a fost trimisă cu succes! Cod cerere: %s"
	MsgOfferAccepted      = "Oferta a fost acceptată. Firma te va contacta în curând."
	MsgOfferDeclined      = "Oferta a fost refuzată."
	MsgRequestReactivated = "Cererea a fost reactivată."
	MsgRequestFinalized   = "Cererea a fost finalizată."
	MsgRequestClosed      = "Cererea a fost închisă."
	MsgRequestPaused      = "Cererea a fost pusă pe pauză."
	MsgMediaRemoved       = "Fișierul a fost șters."
	MsgMediaRemoveFailed  = "Nu am putut șterge fișierul. Te rugăm să încerci din nou."
)

type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier shows a notice to the user.
type Notifier interface {
	Notify(n Notice)
}

func Success(n Notifier, msg string) { n.Notify(Notice{Level: LevelSuccess, Message: msg}) }
func Info(n Notifier, msg string)    { n.Notify(Notice{Level: LevelInfo, Message: msg}) }
func Error(n Notifier, msg string)   { n.Notify(Notice{Level: LevelError, Message: msg}) }

// LogNotifier writes notices to a logger, for CLI and server contexts
// with no toast surface.
type LogNotifier struct {
	Logger logrus.FieldLogger
}

func (l *LogNotifier) Notify(n Notice) {
	entry := l.Logger.WithField("level", string(n.Level))
	if n.Level == LevelError {
		entry.Warn(n.Message)
		return
	}
	entry.Info(n.Message)
}

// Recorder keeps every notice it receives.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *Recorder) All() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// Func adapts a function to Notifier.
type Func func(Notice)

func (f Func) Notify(n Notice) { f(n) }
