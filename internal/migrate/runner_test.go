package migrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSplitStatements(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
	}{
		{name: "single", in: "create table t (id text);", want: 1},
		{name: "two", in: "create table a (id text); create table b (id text);", want: 2},
		{name: "semicolon in literal", in: "insert into t values ('a;b');", want: 1},
		{name: "trailing without semicolon", in: "select 1", want: 1},
		{name: "empty", in: "   \n  ", want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := splitStatements(tc.in)
			if len(got) != tc.want {
				t.Fatalf("got %d statements, want %d: %#v", len(got), tc.want, got)
			}
		})
	}
}

func TestCollectSQLOrdersByName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_trades.up.sql", "0001_users.up.sql", "0001_users.down.sql"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("select 1;"), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}

	files, err := collectSQL(dir, ".up.sql")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 up migrations, got %d", len(files))
	}
	if files[0].base != "0001_users.up.sql" || files[1].base != "0002_trades.up.sql" {
		t.Fatalf("wrong order: %v, %v", files[0].base, files[1].base)
	}
}

func TestCollectSQLMissingDir(t *testing.T) {
	files, err := collectSQL(filepath.Join(t.TempDir(), "nope"), ".sql")
	if err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
	if files != nil {
		t.Fatalf("expected no files, got %v", files)
	}
}

func TestRunnerUpAppliesPending(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "0001_users.up.sql"),
		[]byte("create table users (id text primary key);"), 0o644); err != nil {
		t.Fatalf("write migration: %v", err)
	}

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`create table if not exists tradedesk_schema_migrations`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`create table if not exists tradedesk_schema_seeds`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`select name from tradedesk_schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	mock.ExpectExec(`create table users`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec(`insert into tradedesk_schema_migrations`).
		WithArgs("0001_users.up.sql", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	runner := NewRunner(db, dir, "")
	if err := runner.Up(context.Background()); err != nil {
		t.Fatalf("up: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
