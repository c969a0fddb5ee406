package authz

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type FinalizePasswordResetMessage struct {
	Session  string `json:"session" example:"350399bc-c095-4bdc-a59c-3352d44848e4" doc:"Reset password session token"`
	Password string `json:"password" example:"some_secret_word" doc:"New password"`
}

func (p FinalizePasswordResetMessage) Type() string { return "user.password_reset_finalize" }

// FinalizePasswordResetHandler consumes a reset session and writes the new
// password. The attempt is classified by the credential validator; only a
// ResetOK outcome reaches the database writes.
type FinalizePasswordResetHandler struct {
	repo      RepositoryManager
	validator *CredentialValidator
	activity  ActivitySink
	logger    Logger
	now       Clock
}

// NewFinalizePasswordResetHandler creates a handler with sane defaults.
func NewFinalizePasswordResetHandler(repo RepositoryManager) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		repo:      repo,
		validator: NewCredentialValidator(),
		activity:  noopActivitySink{},
		logger:    defLogger{},
		now:       time.Now,
	}
}

// WithActivitySink sets the sink used to emit password reset events.
func (h *FinalizePasswordResetHandler) WithActivitySink(sink ActivitySink) *FinalizePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithCredentialValidator overrides the validator used to classify attempts.
func (h *FinalizePasswordResetHandler) WithCredentialValidator(validator *CredentialValidator) *FinalizePasswordResetHandler {
	if validator != nil {
		h.validator = validator
	}
	return h
}

// WithClock injects a custom clock. The same clock should be handed to the
// validator so session expiry and activity timestamps agree.
func (h *FinalizePasswordResetHandler) WithClock(clock Clock) *FinalizePasswordResetHandler {
	if clock != nil {
		h.now = clock
		h.validator.WithClock(clock)
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	reset := &PasswordReset{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var err error

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		reset, err = h.repo.PasswordResets().GetByID(ctx, event.Session)
		if err != nil && !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve password reset request")
		}

		var user *User
		if reset != nil && reset.UserID != nil {
			user, err = h.repo.Users().GetByID(ctx, reset.UserID.String())
			if err != nil && !goerrors.IsNotFound(err) {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve user for password reset")
			}
		}

		outcome, err := h.validator.CheckPasswordReset(ResetAttempt{
			User:        user,
			Reset:       reset,
			NewPassword: event.Password,
		})
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to classify password reset attempt")
		}

		if outcome != ResetOK {
			return resetOutcomeError(outcome)
		}

		passwordHash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
		}

		if err := h.repo.Users().ResetPasswordTx(ctx, tx, *reset.UserID, passwordHash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password in database")
		}

		r := MarkPasswordAsReseted(reset.ID, h.now())
		if _, err := h.repo.PasswordResets().UpdateTx(ctx, tx, r); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password reset status")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	h.recordActivity(ctx, reset)

	return nil
}

// resetOutcomeError maps a non-OK reset outcome to the package error a caller
// can branch on. UserNotFound and InvalidToken map to the same token error so
// the response never reveals whether the session pointed at a real account.
func resetOutcomeError(outcome ResetOutcome) error {
	switch outcome {
	case ResetProfileNotConfirmed:
		return goerrors.New("profile must be confirmed before resetting the password", goerrors.CategoryValidation).
			WithTextCode(TextCodeProfileUnconfirmed).
			WithCode(goerrors.CodeForbidden)
	case ResetSameAsOldPassword:
		return goerrors.New("new password matches the current password", goerrors.CategoryValidation).
			WithTextCode(TextCodeSameAsOldPassword).
			WithCode(goerrors.CodeBadRequest)
	default:
		return goerrors.New("invalid or expired password reset token", goerrors.CategoryNotFound).
			WithTextCode(TextCodeResetTokenInvalid).
			WithCode(goerrors.CodeNotFound)
	}
}

func (h *FinalizePasswordResetHandler) recordActivity(ctx context.Context, reset *PasswordReset) {
	if reset == nil || reset.UserID == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventPasswordResetSuccess,
		Actor: ActorRef{
			ID:   reset.UserID.String(),
			Type: "user",
		},
		UserID: reset.UserID.String(),
		Metadata: map[string]any{
			"password_reset_id": reset.ID.String(),
		},
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password reset: %v", err)
	}
}
