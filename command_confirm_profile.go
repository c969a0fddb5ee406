package authz

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type ConfirmProfileMessage struct {
	Identifier string `json:"identifier" example:"pepe.rone@example.com" doc:"Email, username, or user id"`
	Password   string `json:"password" example:"some_secret_word" doc:"Current password, proves ownership"`
}

func (c ConfirmProfileMessage) Type() string { return "user.confirm_profile" }

// ConfirmProfileHandler flips an account to confirmed once the caller proves
// ownership with their password. Confirmation also moves a pending account to
// active.
type ConfirmProfileHandler struct {
	repo      RepositoryManager
	validator *CredentialValidator
	activity  ActivitySink
	logger    Logger
	now       Clock
}

func NewConfirmProfileHandler(repo RepositoryManager) *ConfirmProfileHandler {
	return &ConfirmProfileHandler{
		repo:      repo,
		validator: NewCredentialValidator(),
		activity:  noopActivitySink{},
		logger:    defLogger{},
		now:       time.Now,
	}
}

// WithActivitySink sets the sink used to emit confirmation events.
func (h *ConfirmProfileHandler) WithActivitySink(sink ActivitySink) *ConfirmProfileHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ConfirmProfileHandler) WithLogger(logger Logger) *ConfirmProfileHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithCredentialValidator overrides the validator used to classify attempts.
func (h *ConfirmProfileHandler) WithCredentialValidator(validator *CredentialValidator) *ConfirmProfileHandler {
	if validator != nil {
		h.validator = validator
	}
	return h
}

// WithClock injects a custom clock.
func (h *ConfirmProfileHandler) WithClock(clock Clock) *ConfirmProfileHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *ConfirmProfileHandler) Execute(ctx context.Context, event ConfirmProfileMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during profile confirmation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmProfileHandler) execute(ctx context.Context, event ConfirmProfileMessage) error {
	user := &User{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var err error

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err = h.repo.Users().GetByIdentifierTx(ctx, tx, event.Identifier)
		if err != nil && !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve user for profile confirmation")
		}

		outcome, err := h.validator.CheckConfirmation(user, event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to classify confirmation attempt")
		}

		if outcome != ConfirmOK {
			return confirmOutcomeError(outcome)
		}

		if err := h.repo.Users().ConfirmEmailTx(ctx, tx, user.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark profile as confirmed")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to confirm profile")
	}

	h.recordActivity(ctx, user)

	return nil
}

// confirmOutcomeError maps a non-OK confirmation outcome to the package error
// a caller can branch on. UserNotFound and PasswordNotMatched collapse into
// the same unauthorized error so the response never reveals which credential
// was wrong.
func confirmOutcomeError(outcome ConfirmOutcome) error {
	switch outcome {
	case ConfirmProfileAlreadyConfirmed:
		return goerrors.New("profile has already been confirmed", goerrors.CategoryConflict).
			WithTextCode(TextCodeProfileConfirmed).
			WithCode(goerrors.CodeConflict)
	default:
		return goerrors.New("invalid credentials for profile confirmation", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized)
	}
}

func (h *ConfirmProfileHandler) recordActivity(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventProfileConfirmed,
		Actor: ActorRef{
			ID:   user.ID.String(),
			Type: "user",
		},
		UserID:     user.ID.String(),
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during profile confirmation: %v", err)
	}
}
