package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"retune/internal/config"
	"retune/internal/literal"
)

func testConfig(dir string) config.Config {
	cfg := config.Default()
	cfg.Watch.Paths = []string{dir}
	cfg.Intervals.Check = time.Millisecond
	return cfg
}

func TestDiffOccurrences(t *testing.T) {
	occ := func(ordinal, line int, raw string) literal.Occurrence {
		v, _ := literal.Decode(raw)
		return literal.Occurrence{Ordinal: ordinal, Line: line, Kind: v.Kind, Raw: raw, Value: v}
	}

	prev := []literal.Occurrence{occ(0, 1, "3.5"), occ(1, 2, "7"), occ(2, 3, `"boss"`)}
	next := []literal.Occurrence{occ(0, 1, "4.0"), occ(1, 2, "7"), occ(2, 3, `"mini"`), occ(3, 4, "true")}

	changes := diffOccurrences("/p/game.go", prev, next)
	if len(changes) != 3 {
		t.Fatalf("got %d changes: %+v", len(changes), changes)
	}

	if changes[0].Ordinal != 0 || changes[0].OldValue != "3.5" || changes[0].NewValue != "4" {
		t.Errorf("edit: %+v", changes[0])
	}
	if changes[1].Ordinal != 2 || changes[1].OldValue != `"boss"` || changes[1].NewValue != `"mini"` {
		t.Errorf("string edit: %+v", changes[1])
	}
	// The added occurrence has no old value.
	if changes[2].Ordinal != 3 || changes[2].OldValue != "" || changes[2].NewValue != "true" {
		t.Errorf("addition: %+v", changes[2])
	}
}

func TestDiscoverAndSites(t *testing.T) {
	dir := t.TempDir()
	src := "package game\n\nvar speed = retune.V(3.5)\nvar lives = retune.V(3)\n"
	if err := os.WriteFile(filepath.Join(dir, "game.go"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	app, err := NewApp(testConfig(dir))
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	if err := app.Discover(context.Background()); err != nil {
		t.Fatal(err)
	}

	views := app.Sites()
	if len(views) != 2 {
		t.Fatalf("got %d site views: %+v", len(views), views)
	}
	if !views[0].Live || views[0].Value != "3.5" {
		t.Errorf("first view: %+v", views[0])
	}
	if !views[1].Live || views[1].Value != "3" {
		t.Errorf("second view: %+v", views[1])
	}
}

func TestSitesSkipNonLiteralArguments(t *testing.T) {
	dir := t.TempDir()
	src := "package game\n\nfunc f(someVar int) {\n\t_ = retune.V(someVar)\n\t_ = retune.V(5)\n}\n"
	if err := os.WriteFile(filepath.Join(dir, "game.go"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	app, err := NewApp(testConfig(dir))
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()
	if err := app.Discover(context.Background()); err != nil {
		t.Fatal(err)
	}

	views := app.Sites()
	if len(views) != 2 {
		t.Fatalf("got %d site views: %+v", len(views), views)
	}
	// The variable-argument call is discovered but never live, and the
	// literal on the next line keeps its own value.
	if views[0].Line != 4 || views[0].Live {
		t.Errorf("non-literal site: %+v", views[0])
	}
	if views[1].Line != 5 || !views[1].Live || views[1].Value != "5" {
		t.Errorf("literal site: %+v", views[1])
	}
}

func TestHandleChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.go")
	if err := os.WriteFile(path, []byte("var speed = retune.V(3.5)\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	app, err := NewApp(testConfig(dir))
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()
	if err := app.Discover(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("var speed = retune.V(9.25)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	stamp := time.Now().Add(time.Second)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatal(err)
	}

	changes := app.HandleChanges([]string{path})
	if len(changes) != 1 {
		t.Fatalf("got %d changes: %+v", len(changes), changes)
	}
	if changes[0].OldValue != "3.5" || changes[0].NewValue != "9.25" {
		t.Errorf("change: %+v", changes[0])
	}

	// Untracked and non-Go paths are ignored.
	if got := app.HandleChanges([]string{filepath.Join(dir, "other.go"), filepath.Join(dir, "x.txt")}); len(got) != 0 {
		t.Errorf("unexpected changes: %+v", got)
	}
}
