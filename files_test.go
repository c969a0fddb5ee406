package authz_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authz "github.com/goliatone/go-authz"
)

func TestGetMigrationsFS(t *testing.T) {
	fsys := authz.GetMigrationsFS()

	up, err := fsys.ReadFile("data/sql/migrations/00001_authz_schema.up.sql")
	require.NoError(t, err)

	down, err := fsys.ReadFile("data/sql/migrations/00001_authz_schema.down.sql")
	require.NoError(t, err)
	assert.Contains(t, string(down), "DROP TABLE")

	schema := string(up)
	for _, table := range []string{"users", "roles", "user_roles", "password_reset"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table)
	}

	t.Run("soft delete columns match the models", func(t *testing.T) {
		tables := map[string]string{}
		for _, stmt := range strings.Split(schema, ";") {
			_, rest, found := strings.Cut(stmt, "CREATE TABLE IF NOT EXISTS ")
			if !found {
				continue
			}
			name, body, _ := strings.Cut(rest, "(")
			tables[strings.TrimSpace(name)] = body
		}

		// users and password_reset soft delete, roles and user_roles do not
		assert.Contains(t, tables["users"], "deleted_at")
		assert.Contains(t, tables["password_reset"], "deleted_at")
		assert.NotContains(t, tables["roles"], "deleted_at")
		assert.NotContains(t, tables["user_roles"], "deleted_at")
	})
}
