package store

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"spinhub/internal/config"

	"github.com/jackc/pgx/v5"
)

var testSchemaNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// openTestStore gives every test run its own schema in the disposable
// database TEST_POSTGRES_DSN points at, and skips when none is
// configured.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	cfg, err := config.LoadTest()
	if err != nil {
		t.Skipf("skip test db: %v", err)
	}
	dsn := cfg.PostgresDSN
	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())

	base, err := New(dsn)
	if err != nil {
		t.Fatalf("open base db: %v", err)
	}
	createSchemaSQL, err := schemaDDL("CREATE SCHEMA %s", schema)
	if err != nil {
		_ = base.Close()
		t.Fatalf("invalid schema name: %v", err)
	}
	if _, err := base.DB.ExecContext(context.Background(), createSchemaSQL); err != nil {
		_ = base.Close()
		t.Fatalf("create schema: %v", err)
	}
	_ = base.Close()

	st, err := New(withSearchPath(dsn, schema))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Bootstrap(context.Background()); err != nil {
		_ = st.Close()
		t.Fatalf("bootstrap: %v", err)
	}

	t.Cleanup(func() {
		_ = st.Close()
		base, err := New(dsn)
		if err != nil {
			return
		}
		if dropSchemaSQL, ddlErr := schemaDDL("DROP SCHEMA %s CASCADE", schema); ddlErr == nil {
			_, _ = base.DB.ExecContext(context.Background(), dropSchemaSQL)
		}
		_ = base.Close()
	})
	return st
}

func withSearchPath(dsn, schema string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "search_path=" + url.QueryEscape(schema)
}

func schemaDDL(format, schema string) (string, error) {
	if !testSchemaNamePattern.MatchString(schema) {
		return "", fmt.Errorf("schema %q does not match required pattern", schema)
	}
	return fmt.Sprintf(format, pgx.Identifier{schema}.Sanitize()), nil
}
