package sqlitemigrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"
)

func TestApplyMigrationsRecordsApplied(t *testing.T) {
	t.Parallel()
	db := openTestDB(t, nil)

	migrations := fstest.MapFS{
		"001_create.sql": &fstest.MapFile{Data: []byte("-- +migrate Up\nCREATE TABLE days(id TEXT PRIMARY KEY);\n-- +migrate Down\nDROP TABLE days;")},
	}
	if err := ApplyMigrations(context.Background(), db, migrations); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if rows := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations"); rows != 1 {
		t.Fatalf("expected 1 migration row, got %d", rows)
	}
	if !tableExists(t, db, "days") {
		t.Fatal("expected applied table to exist")
	}
}

func TestApplyMigrationsSkipsAlreadyApplied(t *testing.T) {
	t.Parallel()
	db := openTestDB(t, nil)

	migrations := fstest.MapFS{
		"001_create.sql": &fstest.MapFile{Data: []byte("-- +migrate Up\nCREATE TABLE days(id TEXT PRIMARY KEY);")},
		"002_items.sql":  &fstest.MapFile{Data: []byte("-- +migrate Up\nCREATE TABLE items(id TEXT PRIMARY KEY);")},
	}
	for i := 0; i < 2; i++ {
		if err := ApplyMigrations(context.Background(), db, migrations); err != nil {
			t.Fatalf("apply migrations pass %d: %v", i, err)
		}
	}
	if rows := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations"); rows != 2 {
		t.Fatalf("expected 2 migration rows after replay, got %d", rows)
	}
}

func TestApplyMigrationsDoesNotRecordFailedMigration(t *testing.T) {
	t.Parallel()
	db := openTestDB(t, nil)

	bad := fstest.MapFS{
		"001_bad.sql": &fstest.MapFile{Data: []byte("-- +migrate Up\nCREAT table things(id INT);")},
	}
	if err := ApplyMigrations(context.Background(), db, bad); err == nil {
		t.Fatal("expected bad migration to fail")
	}
	if rows := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations"); rows != 0 {
		t.Fatalf("expected failed migration to stay unrecorded, got %d rows", rows)
	}
}

func TestOpenAppliesMigrationsAndEnforcesForeignKeys(t *testing.T) {
	t.Parallel()
	migrations := fstest.MapFS{
		"001_schema.sql": &fstest.MapFile{Data: []byte(`-- +migrate Up
CREATE TABLE parents(id TEXT PRIMARY KEY);
CREATE TABLE children(id TEXT PRIMARY KEY, parent_id TEXT NOT NULL REFERENCES parents(id));
`)},
	}
	db := openTestDB(t, migrations)

	if !tableExists(t, db, "children") {
		t.Fatal("expected migrated table")
	}
	_, err := db.Exec(`INSERT INTO children (id, parent_id) VALUES ('c1', 'missing')`)
	if !IsForeignKeyViolation(err) {
		t.Fatalf("insert orphan err = %v, want foreign key violation", err)
	}
	if _, err := db.Exec(`INSERT INTO parents (id) VALUES ('p1')`); err != nil {
		t.Fatalf("insert parent: %v", err)
	}
	_, err = db.Exec(`INSERT INTO parents (id) VALUES ('p1')`)
	if !IsUniqueViolation(err) {
		t.Fatalf("insert duplicate err = %v, want unique violation", err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()
	if _, err := Open(context.Background(), " ", nil); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestExtractUpMigration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "no markers", content: "CREATE TABLE a(id INT);", want: "CREATE TABLE a(id INT);"},
		{name: "up only", content: "-- +migrate Up\nCREATE TABLE a(id INT);", want: "\nCREATE TABLE a(id INT);"},
		{name: "up and down", content: "-- +migrate Up\nX;\n-- +migrate Down\nY;", want: "\nX;\n"},
	}
	for _, tt := range tests {
		if got := ExtractUpMigration(tt.content); got != tt.want {
			t.Fatalf("%s: ExtractUpMigration = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestMillisRoundTripKeepsZeroAsNull(t *testing.T) {
	t.Parallel()

	if v := NullMillis(time.Time{}); v.Valid {
		t.Fatal("expected zero time to map to NULL")
	}
	if got := FromNullMillis(sql.NullInt64{}); !got.IsZero() {
		t.Fatalf("FromNullMillis(NULL) = %v, want zero", got)
	}
	at := time.Date(2026, 3, 20, 8, 30, 0, 0, time.UTC)
	if got := FromNullMillis(NullMillis(at)); !got.Equal(at) {
		t.Fatalf("round trip = %v, want %v", got, at)
	}
}

func openTestDB(t *testing.T, migrations fstest.MapFS) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	var db *sql.DB
	var err error
	if migrations == nil {
		db, err = Open(context.Background(), path, nil)
	} else {
		db, err = Open(context.Background(), path, migrations)
	}
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func queryInt64(t *testing.T, db *sql.DB, query string) int64 {
	t.Helper()
	var value int64
	if err := db.QueryRow(query).Scan(&value); err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	return value
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count); err != nil {
		t.Fatalf("check table %s: %v", name, err)
	}
	return count == 1
}
