package repository

import (
	"testing"
)

func TestBuildLikeConditionSQLite(t *testing.T) {
	condition, argCount := buildLikeConditionByDialect("sqlite", []string{"slug", "name"})
	want := "slug LIKE ? OR name LIKE ?"
	if condition != want {
		t.Fatalf("condition want %q got %q", want, condition)
	}
	if argCount != 2 {
		t.Fatalf("arg count want 2 got %d", argCount)
	}
}

func TestBuildLikeConditionPostgres(t *testing.T) {
	condition, argCount := buildLikeConditionByDialect("postgres", []string{"slug"})
	want := "slug ILIKE ?"
	if condition != want {
		t.Fatalf("condition want %q got %q", want, condition)
	}
	if argCount != 1 {
		t.Fatalf("arg count want 1 got %d", argCount)
	}
}

func TestBuildLikeConditionSkipsBlankColumns(t *testing.T) {
	condition, argCount := buildLikeConditionByDialect("sqlite", []string{"", " ", "name"})
	want := "name LIKE ?"
	if condition != want {
		t.Fatalf("condition want %q got %q", want, condition)
	}
	if argCount != 1 {
		t.Fatalf("arg count want 1 got %d", argCount)
	}
}

func TestRepeatLikeArgs(t *testing.T) {
	args := repeatLikeArgs("%abc%", 3)
	if len(args) != 3 {
		t.Fatalf("args length want 3 got %d", len(args))
	}
	for i, arg := range args {
		if arg != "%abc%" {
			t.Fatalf("arg %d want %%abc%% got %v", i, arg)
		}
	}
}
