package statcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func touch(t *testing.T, path string, offset time.Duration) {
	t.Helper()
	stamp := time.Now().Add(offset)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatal(err)
	}
}

func TestChangedBaselineThenEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	writeFile(t, path, "x := 1")

	c := New(time.Millisecond)

	// First check establishes the baseline, never reports a change.
	if c.Changed(path) {
		t.Fatal("baseline check should report unchanged")
	}

	touch(t, path, time.Second)
	time.Sleep(5 * time.Millisecond)
	if !c.Changed(path) {
		t.Fatal("expected change after mtime bump")
	}

	// The new stamp is now the stored one.
	time.Sleep(5 * time.Millisecond)
	if c.Changed(path) {
		t.Fatal("no further change expected")
	}
}

func TestChangedThrottles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	writeFile(t, path, "x := 1")

	c := New(time.Hour)
	c.Changed(path) // baseline, consumes the only token

	touch(t, path, time.Second)
	for i := 0; i < 100; i++ {
		if c.Changed(path) {
			t.Fatal("throttled check must not observe the edit")
		}
	}
}

func TestExpireBypassesThrottle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	writeFile(t, path, "x := 1")

	c := New(time.Hour)
	c.Changed(path)
	touch(t, path, time.Second)

	if c.Changed(path) {
		t.Fatal("still throttled")
	}
	c.Expire(path)
	if !c.Changed(path) {
		t.Fatal("expired entry should observe the edit immediately")
	}
}

func TestMissingFileReportsUnchanged(t *testing.T) {
	c := New(time.Millisecond)
	path := filepath.Join(t.TempDir(), "never-existed.go")
	for i := 0; i < 3; i++ {
		if c.Changed(path) {
			t.Fatal("missing file must read as unchanged")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestDeletedFileKeepsLastStamp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	writeFile(t, path, "x := 1")

	c := New(time.Millisecond)
	c.Changed(path)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if c.Changed(path) {
		t.Fatal("deletion must not surface as a change")
	}
}
