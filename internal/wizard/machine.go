// Package wizard drives the multi-step request intake form: which step is
// open, what each step may change, when a step is complete, and handing the
// finished draft to a submitter.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"mutari/internal/notice"
	"mutari/internal/utils"
	"mutari/pkg/types"

	"github.com/sirupsen/logrus"
)

var (
	ErrStepInert    = errors.New("step is not reachable yet")
	ErrStepAhead    = errors.New("cannot edit a step that was not reached")
	ErrNotFinalStep = errors.New("submit is only available on the final step")
)

// DraftStore persists the draft under one fixed key.
type DraftStore interface {
	Load(ctx context.Context) (*types.Draft, error)
	Save(ctx context.Context, d *types.Draft) error
	Delete(ctx context.Context) error
}

// Submitter performs the single backend write for a finished draft and
// returns the server-assigned request code.
type Submitter interface {
	CreateGuest(ctx context.Context, payload *types.GuestRequestPayload) (string, error)
}

// UserMessenger is implemented by errors that carry a message fit for users.
type UserMessenger interface {
	UserMessage() string
}

type Machine struct {
	mu sync.Mutex

	draft     *types.Draft
	store     DraftStore
	submitter Submitter
	notifier  notice.Notifier
	logger    logrus.FieldLogger
}

// New restores any stored draft, or starts from defaults.
func New(ctx context.Context, store DraftStore, submitter Submitter, notifier notice.Notifier, logger logrus.FieldLogger) (*Machine, error) {
	m := &Machine{
		store:     store,
		submitter: submitter,
		notifier:  notifier,
		logger:    logger,
	}

	draft, err := store.Load(ctx)
	switch {
	case errors.Is(err, types.ErrDraftNotFound):
		draft = types.NewDraft()
	case err != nil:
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	if !Step(draft.Step).Valid() {
		draft.Step = int(StepOrigin)
	}
	m.draft = draft

	return m, nil
}

// Draft returns a copy of the in-memory draft.
func (m *Machine) Draft() *types.Draft {
	m.mu.Lock()
	defer m.mu.Unlock()
	return CloneDraft(m.draft)
}

func (m *Machine) CurrentStep() Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Step(m.draft.Step)
}

// Apply reduces updates into the draft and persists it. Updates for steps
// beyond the current one are rejected and nothing is applied.
func (m *Machine) Apply(ctx context.Context, updates ...Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := Step(m.draft.Step)
	for _, u := range updates {
		if u.Step() > current {
			return fmt.Errorf("%w: %s", ErrStepInert, u.Step())
		}
	}

	var errs FieldErrors
	for _, u := range updates {
		if b, ok := u.(bounded); ok {
			b.check(&errs)
		}
	}
	if len(errs) > 0 {
		return errs
	}

	for _, u := range updates {
		u.apply(m.draft)
	}

	return m.persist(ctx)
}

// Advance validates step and opens the one after it. On failure the state is
// untouched and the field errors are returned.
func (m *Machine) Advance(ctx context.Context, step Step) FieldErrors {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := Step(m.draft.Step)
	switch {
	case !step.Valid() || step > current:
		return FieldErrors{{Field: "step", Message: MsgStepAhead}}
	case step == LastStep:
		return FieldErrors{{Field: "step", Message: MsgFinalStep}}
	}

	if errs := ValidateStep(m.draft, step); len(errs) > 0 {
		return errs
	}

	if next := step + 1; next > current {
		m.draft.Step = int(next)
	}

	if err := m.persist(ctx); err != nil {
		m.logger.WithError(err).WithField("step", step.String()).Warn("draft advanced but not persisted")
	}

	return nil
}

// EditStep jumps back to an already reached step.
func (m *Machine) EditStep(ctx context.Context, step Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !step.Valid() || step > Step(m.draft.Step) {
		return ErrStepAhead
	}

	m.draft.Step = int(step)
	return m.persist(ctx)
}

// Validate runs full-form validation on the current draft.
func (m *Machine) Validate() FieldErrors {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Validate(m.draft)
}

// Submit validates the whole draft and hands it to the submitter. On success
// the stored draft is deleted and the in-memory draft reset. On failure the
// draft is kept as is so the user can retry.
func (m *Machine) Submit(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if Step(m.draft.Step) != LastStep {
		return "", ErrNotFinalStep
	}

	if errs := Validate(m.draft); len(errs) > 0 {
		notice.Error(m.notifier, MsgValidation(errs))
		return "", errs
	}

	code, err := m.submitter.CreateGuest(ctx, m.draft.Payload())
	if err != nil {
		m.logger.WithError(err).Error("failed to submit moving request")

		msg := notice.MsgSubmitFailed
		var um UserMessenger
		if errors.As(err, &um) && um.UserMessage() != "" {
			msg = um.UserMessage()
		}
		notice.Error(m.notifier, msg)

		return "", fmt.Errorf("failed to submit request: %w", err)
	}

	if err := m.store.Delete(ctx); err != nil {
		m.logger.WithError(err).Warn("failed to delete submitted draft")
	}
	m.draft = types.NewDraft()

	notice.Success(m.notifier, fmt.Sprintf(notice.MsgSubmitSuccess, code))

	return code, nil
}

// Reset discards the draft.
func (m *Machine) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.draft = types.NewDraft()
	return m.store.Delete(ctx)
}

func (m *Machine) persist(ctx context.Context) error {
	return utils.ErrorWrapOrNil(m.store.Save(ctx, CloneDraft(m.draft)), "failed to persist draft")
}

// MsgValidation picks the toast for a failed submission: the first inline
// message when there is exactly one, the generic prompt otherwise.
func MsgValidation(errs FieldErrors) string {
	if len(errs) == 1 {
		return errs[0].Message
	}
	return notice.MsgValidation
}

func CloneDraft(d *types.Draft) *types.Draft {
	if d == nil {
		return nil
	}

	c := *d
	c.Services = append([]types.Service{}, d.Services...)
	c.MediaURLs = append([]string{}, d.MediaURLs...)
	return &c
}
