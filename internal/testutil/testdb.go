package testutil

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"analyst-alchemist/internal/config"
	"analyst-alchemist/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const profileSchemaFile = "000001_init.up.sql"

var schemaNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// OpenProfileStore returns a Postgres profile store bound to a fresh schema
// holding an empty agent_profiles table. The schema is dropped when the test
// ends. Tests are skipped unless TEST_POSTGRES_DSN is set.
func OpenProfileStore(t *testing.T) *store.Store {
	t.Helper()
	cfg, err := config.LoadTest()
	if err != nil {
		t.Skipf("profile store unavailable: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	schema := strings.ToLower(fmt.Sprintf("%s_%d", cfg.SchemaPrefix, time.Now().UnixNano()))
	if err := execAdmin(ctx, cfg.TestPostgresDSN, "CREATE SCHEMA %s", schema); err != nil {
		t.Fatalf("create profile schema: %v", err)
	}
	t.Cleanup(func() {
		if err := execAdmin(context.Background(), cfg.TestPostgresDSN, "DROP SCHEMA %s CASCADE", schema); err != nil {
			t.Logf("drop profile schema %s: %v", schema, err)
		}
	})

	st, err := store.New(scopedDSN(cfg.TestPostgresDSN, schema))
	if err != nil {
		t.Fatalf("open profile store: %v", err)
	}
	t.Cleanup(st.Close)

	ddl, err := profileSchema()
	if err != nil {
		t.Fatalf("read profile schema: %v", err)
	}
	if _, err := st.Pool.Exec(ctx, ddl); err != nil {
		t.Fatalf("apply profile schema: %v", err)
	}
	var table *string
	if err := st.Pool.QueryRow(ctx, `SELECT to_regclass('agent_profiles')::text`).Scan(&table); err != nil || table == nil {
		t.Fatalf("agent_profiles missing after migration (err=%v)", err)
	}
	return st
}

// execAdmin runs one DDL statement against the base database, quoting schema
// as an identifier.
func execAdmin(ctx context.Context, dsn, format, schema string) error {
	if !schemaNamePattern.MatchString(schema) {
		return fmt.Errorf("schema name %q rejected", schema)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()
	_, err = pool.Exec(ctx, fmt.Sprintf(format, pgx.Identifier{schema}.Sanitize()))
	return err
}

// profileSchema reads the init migration from the module root, found by
// walking up to go.mod.
func profileSchema() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			b, err := os.ReadFile(filepath.Join(dir, "migrations", profileSchemaFile))
			return string(b), err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("module root not found above " + dir)
		}
		dir = parent
	}
}

func scopedDSN(dsn, schema string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return dsn + " search_path=" + schema
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String()
}
