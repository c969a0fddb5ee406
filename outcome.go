package authz

// LoginOutcome classifies a login attempt. Exactly one outcome is produced
// per attempt; checks run in order and the first failure wins.
type LoginOutcome int

const (
	LoginOK LoginOutcome = iota
	LoginUserNotFound
	LoginPasswordNotMatched
	LoginInvalidUserStatus
)

func (o LoginOutcome) String() string {
	switch o {
	case LoginOK:
		return "ok"
	case LoginUserNotFound:
		return "user_not_found"
	case LoginPasswordNotMatched:
		return "password_not_matched"
	case LoginInvalidUserStatus:
		return "invalid_user_status"
	default:
		return "unknown"
	}
}

// ResetOutcome classifies a password reset attempt.
type ResetOutcome int

const (
	ResetOK ResetOutcome = iota
	ResetUserNotFound
	ResetProfileNotConfirmed
	ResetInvalidToken
	ResetSameAsOldPassword
)

func (o ResetOutcome) String() string {
	switch o {
	case ResetOK:
		return "ok"
	case ResetUserNotFound:
		return "user_not_found"
	case ResetProfileNotConfirmed:
		return "profile_not_confirmed"
	case ResetInvalidToken:
		return "invalid_token"
	case ResetSameAsOldPassword:
		return "same_as_old_password"
	default:
		return "unknown"
	}
}

// ConfirmOutcome classifies a profile confirmation attempt.
type ConfirmOutcome int

const (
	ConfirmOK ConfirmOutcome = iota
	ConfirmUserNotFound
	ConfirmPasswordNotMatched
	ConfirmProfileAlreadyConfirmed
)

func (o ConfirmOutcome) String() string {
	switch o {
	case ConfirmOK:
		return "ok"
	case ConfirmUserNotFound:
		return "user_not_found"
	case ConfirmPasswordNotMatched:
		return "password_not_matched"
	case ConfirmProfileAlreadyConfirmed:
		return "profile_already_confirmed"
	default:
		return "unknown"
	}
}

// Decision is the terminal result of an authorization gate.
type Decision int

const (
	Fail Decision = iota
	Succeed
)

// Allowed reports whether the decision grants access.
func (d Decision) Allowed() bool { return d == Succeed }

func (d Decision) String() string {
	if d == Succeed {
		return "succeed"
	}
	return "fail"
}
