package authz

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// UserStatus is the account lifecycle status
type UserStatus = string

const (
	// UserStatusPending account created, profile not yet confirmed
	UserStatusPending UserStatus = "pending"
	// UserStatusActive account in good standing
	UserStatusActive UserStatus = "active"
	// UserStatusLocked account locked, possibly with a lockout window
	UserStatusLocked UserStatus = "locked"
	// UserStatusDisabled account disabled by an operator
	UserStatusDisabled UserStatus = "disabled"
)

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID         `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FirstName      string            `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName       string            `bun:"last_name,notnull" json:"last_name,omitempty"`
	Username       string            `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string            `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone          string            `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash   string            `bun:"password_hash" json:"password_hash,omitempty"`
	EmailValidated bool              `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	Status         UserStatus        `bun:"status" json:"status,omitempty"`
	LockoutEnd     *time.Time        `bun:"lockout_end,nullzero" json:"lockout_end,omitempty"`
	LoginAttempts  int               `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time        `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time        `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	Metadata       map[string]any    `bun:"metadata" json:"metadata,omitempty"`
	Roles          []*RoleAssignment `bun:"rel:has-many,join:id=user_id" json:"roles,omitempty"`
	CreatedAt      *time.Time        `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time        `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time        `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus backfills the zero value for records created before the
// status column existed.
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = UserStatusActive
	}
}

// FullName joins first and last name for display purposes.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = val
	return u
}

// Validate checks the user record before persistence.
func (u *User) Validate() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.Email, validation.Required, is.Email),
		validation.Field(&u.Username, validation.Required, validation.Length(2, 64)),
		validation.Field(&u.Phone, validation.By(optionalPhone)),
	)
}

// optionalPhone accepts an empty phone and otherwise requires a parseable,
// valid number in E.164 or a recognizable national format.
func optionalPhone(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}

	num, err := phonenumbers.Parse(raw, "US")
	if err != nil {
		return err
	}

	if !phonenumbers.IsValidNumber(num) {
		return validation.NewError("validation_phone", "must be a valid phone number")
	}

	return nil
}

// NormalizePhone formats a phone number to E.164 so stored values compare
// byte for byte. Returns the input unchanged when it is empty.
func NormalizePhone(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}

	num, err := phonenumbers.Parse(raw, "US")
	if err != nil {
		return "", err
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// Role is a named permission grant scoped to exactly one tenant. TenantID is
// immutable after creation; updates go through Roles.UpdateDetails which
// never touches the column.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rl"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	TenantID      uuid.UUID  `bun:"tenant_id,notnull,type:uuid" json:"tenant_id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Description   string     `bun:"description" json:"description,omitempty"`
	Permissions   []string   `bun:"permissions" json:"permissions,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// HasPermission reports whether the role grants the permission. Exact string
// match, no wildcard expansion.
func (r *Role) HasPermission(permission string) bool {
	if r == nil || permission == "" {
		return false
	}
	for _, p := range r.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Validate checks the role record before persistence.
func (r *Role) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.TenantID, validation.Required, validation.By(nonNilUUID)),
	)
}

func nonNilUUID(value any) error {
	id, _ := value.(uuid.UUID)
	if id == uuid.Nil {
		return validation.NewError("validation_uuid", "must be a non-nil UUID")
	}
	return nil
}

// PermissionUnion flattens the permission sets of the given roles into a
// deduplicated, stable-ordered slice.
func PermissionUnion(roles []*Role) []string {
	if len(roles) == 0 {
		return nil
	}

	seen := map[string]struct{}{}
	var union []string
	for _, role := range roles {
		if role == nil {
			continue
		}
		for _, p := range role.Permissions {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			union = append(union, p)
		}
	}
	return union
}

// RoleAssignment joins users to roles.
type RoleAssignment struct {
	bun.BaseModel `bun:"table:user_roles,alias:url"`
	UserID        uuid.UUID  `bun:"user_id,pk,type:uuid" json:"user_id,omitempty"`
	RoleID        uuid.UUID  `bun:"role_id,pk,type:uuid" json:"role_id,omitempty"`
	Role          *Role      `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

const (
	// ResetRequestedStatus is the requested status
	ResetRequestedStatus = "requested"
	// ResetExpiredStatus is the expired status
	ResetExpiredStatus = "expired"
	// ResetChangedStatus is the changed status
	ResetChangedStatus = "changed"
)

// PasswordReset tracks a single password reset session.
type PasswordReset struct {
	bun.BaseModel `bun:"table:password_reset,alias:pwdr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        *uuid.UUID `bun:"user_id,notnull" json:"user_id,omitempty"`
	User          *User      `bun:"rel:has-one,join:user_id=id" json:"user,omitempty"`
	Status        string     `bun:"status,notnull" json:"status,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	ResetedAt     *time.Time `bun:"reseted_at,nullzero" json:"reseted_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// MarkPasswordAsReseted will create a new instance
func MarkPasswordAsReseted(id uuid.UUID, at time.Time) *PasswordReset {
	r := &PasswordReset{}
	r.ID = id
	r.Status = ResetChangedStatus
	r.ResetedAt = &at
	return r
}
