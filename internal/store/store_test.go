package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/HerbHall/ponplan/pkg/plugin"
)

func tempDB(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ponplan.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New(%q): %v", path, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func memDB(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:): %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTable(tx *sql.Tx, ddl string) error {
	_, err := tx.Exec(ddl)
	return err
}

func TestNew_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNew_InvalidPath(t *testing.T) {
	if _, err := New("/nonexistent/dir/ponplan.db"); err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestPragmas(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	var mode string
	if err := s.DB().QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var fk int
	if err := s.DB().QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestTx(t *testing.T) {
	s := memDB(t)
	ctx := context.Background()
	if _, err := s.DB().ExecContext(ctx, "CREATE TABLE splitters (id TEXT PRIMARY KEY)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	if err := s.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO splitters (id) VALUES ('ms-1')")
		return err
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	errBoom := errors.New("boom")
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO splitters (id) VALUES ('ms-2')"); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("Tx err = %v, want errBoom", err)
	}

	var n int
	if err := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM splitters").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("rows = %d, want 1 (second insert rolled back)", n)
	}
}

func TestMigrate(t *testing.T) {
	s := memDB(t)
	ctx := context.Background()

	calls := 0
	migrations := []plugin.Migration{
		{Version: 1, Description: "create devices", Up: func(tx *sql.Tx) error {
			calls++
			return createTable(tx, "CREATE TABLE inv_devices (id TEXT PRIMARY KEY)")
		}},
		{Version: 2, Description: "add type code", Up: func(tx *sql.Tx) error {
			calls++
			return createTable(tx, "ALTER TABLE inv_devices ADD COLUMN type_code TEXT")
		}},
	}

	if err := s.Migrate(ctx, "inventory", migrations); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := s.Migrate(ctx, "inventory", migrations); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if calls != 2 {
		t.Errorf("Up called %d times, want 2", calls)
	}
	if _, err := s.DB().ExecContext(ctx, "INSERT INTO inv_devices (id, type_code) VALUES ('olt-1', 'gpon')"); err != nil {
		t.Fatalf("insert after migration: %v", err)
	}

	// Same version number under another plugin is independent.
	other := []plugin.Migration{{Version: 1, Description: "planner table", Up: func(tx *sql.Tx) error {
		return createTable(tx, "CREATE TABLE planner_runs (id INTEGER)")
	}}}
	if err := s.Migrate(ctx, "planner", other); err != nil {
		t.Fatalf("planner Migrate: %v", err)
	}

	var n int
	if err := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM _migrations").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Errorf("_migrations rows = %d, want 3", n)
	}
}

func TestMigrate_FailureKeepsEarlierSteps(t *testing.T) {
	s := memDB(t)
	ctx := context.Background()

	migrations := []plugin.Migration{
		{Version: 1, Description: "ok", Up: func(tx *sql.Tx) error {
			return createTable(tx, "CREATE TABLE partial (id INTEGER)")
		}},
		{Version: 2, Description: "broken", Up: func(tx *sql.Tx) error {
			return createTable(tx, "NOT VALID SQL")
		}},
	}
	if err := s.Migrate(ctx, "partial", migrations); err == nil {
		t.Fatal("expected error from broken migration")
	}

	var n int
	if err := s.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM _migrations WHERE plugin_name = 'partial'").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("recorded migrations = %d, want 1", n)
	}
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		name    string
		steps   []string
		wantErr error
		stored  string
	}{
		{name: "first run stamps", steps: []string{"0.2.0"}, stored: "0.2.0"},
		{name: "same version", steps: []string{"0.2.0", "0.2.0"}, stored: "0.2.0"},
		{name: "upgrade", steps: []string{"0.2.0", "v0.3.1"}, stored: "v0.3.1"},
		{name: "downgrade rejected", steps: []string{"0.3.0", "0.2.9"}, wantErr: ErrNewerSchema, stored: "0.3.0"},
		{name: "dev passes", steps: []string{"0.3.0", "dev", "0.1.0"}, stored: "0.1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := memDB(t)
			ctx := context.Background()

			var err error
			for _, v := range tt.steps {
				if err = s.CheckVersion(ctx, v); err != nil {
					break
				}
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}

			var stored string
			if err := s.DB().QueryRowContext(ctx, "SELECT app_version FROM _schema_meta WHERE id = 1").Scan(&stored); err != nil {
				t.Fatalf("query: %v", err)
			}
			if stored != tt.stored {
				t.Errorf("stored = %q, want %q", stored, tt.stored)
			}
		})
	}
}

func TestPing_AfterClose(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	s.Close()
	if err := s.Ping(context.Background()); err == nil {
		t.Error("Ping after Close should fail")
	}
}
