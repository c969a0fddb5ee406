package authz

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Roles is the tenant-scoped role projection. ResolveTenantRoles is the one
// read the permission authorizer performs; the rest supports administration
// tooling.
type Roles interface {
	repository.Repository[*Role]

	ResolveTenantRoles(ctx context.Context, userID, tenantID uuid.UUID) ([]*Role, error)
	ResolveTenantRolesTx(ctx context.Context, tx bun.IDB, userID, tenantID uuid.UUID) ([]*Role, error)

	// UpdateDetails updates mutable role fields. It never touches tenant_id;
	// a role's tenant is fixed at creation.
	UpdateDetails(ctx context.Context, role *Role) (*Role, error)

	AssignRole(ctx context.Context, userID, roleID uuid.UUID) error
	AssignRoleTx(ctx context.Context, tx bun.IDB, userID, roleID uuid.UUID) error
	RemoveRole(ctx context.Context, userID, roleID uuid.UUID) error
}

type roles struct {
	repository.Repository[*Role]
	db *bun.DB
}

var (
	_ Roles                        = (*roles)(nil)
	_ repository.Repository[*Role] = (*roles)(nil)
	_ RoleStore                    = (*roles)(nil)
)

func NewRolesRepository(db *bun.DB) Roles {
	repo := repository.NewRepository[*Role](db, repository.ModelHandlers[*Role]{
		NewRecord: func() *Role { return &Role{} },
		GetID: func(r *Role) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Role, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	return &roles{
		Repository: repo,
		db:         db,
	}
}

func (a *roles) Create(ctx context.Context, record *Role, criteria ...repository.InsertCriteria) (*Role, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *roles) CreateTx(ctx context.Context, tx bun.IDB, record *Role, criteria ...repository.InsertCriteria) (*Role, error) {
	if record != nil {
		if err := record.Validate(); err != nil {
			return nil, err
		}
	}
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *roles) ResolveTenantRoles(ctx context.Context, userID, tenantID uuid.UUID) ([]*Role, error) {
	return a.ResolveTenantRolesTx(ctx, a.db, userID, tenantID)
}

func (a *roles) ResolveTenantRolesTx(ctx context.Context, tx bun.IDB, userID, tenantID uuid.UUID) ([]*Role, error) {
	var records []*Role

	err := tx.NewSelect().
		Model(&records).
		Join(`JOIN "user_roles" AS "url" ON "url"."role_id" = "rl"."id"`).
		Where(`"url"."user_id" = ?`, userID).
		Where(`"rl"."tenant_id" = ?`, tenantID).
		Order("rl.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (a *roles) UpdateDetails(ctx context.Context, role *Role) (*Role, error) {
	if role == nil || role.ID == uuid.Nil {
		return nil, repository.NewRecordNotFound()
	}

	current, err := a.Repository.GetByID(ctx, role.ID.String())
	if err != nil {
		return nil, err
	}

	if role.TenantID != uuid.Nil && role.TenantID != current.TenantID {
		return nil, ErrTenantImmutable.Clone().WithMetadata(map[string]any{
			"role_id":       role.ID.String(),
			"tenant_id":     current.TenantID.String(),
			"new_tenant_id": role.TenantID.String(),
		})
	}

	_, err = a.db.NewUpdate().
		Model(role).
		Column("name", "description", "permissions", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return a.Repository.GetByID(ctx, role.ID.String())
}

func (a *roles) AssignRole(ctx context.Context, userID, roleID uuid.UUID) error {
	return a.AssignRoleTx(ctx, a.db, userID, roleID)
}

func (a *roles) AssignRoleTx(ctx context.Context, tx bun.IDB, userID, roleID uuid.UUID) error {
	assignment := &RoleAssignment{
		UserID: userID,
		RoleID: roleID,
	}

	_, err := tx.NewInsert().
		Model(assignment).
		On("CONFLICT DO NOTHING").
		Exec(ctx)

	return err
}

func (a *roles) RemoveRole(ctx context.Context, userID, roleID uuid.UUID) error {
	_, err := a.db.NewDelete().
		Model((*RoleAssignment)(nil)).
		Where("user_id = ?", userID).
		Where("role_id = ?", roleID).
		Exec(ctx)

	return err
}
