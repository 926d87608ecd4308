package vault

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	mcerrors "github.com/otherjamesbrown/mycroft/pkg/errors"
)

func testVault(t *testing.T) *Vault {
	t.Helper()
	v := Open(t.TempDir())
	if err := v.EnsureLayout(); err != nil {
		t.Fatalf("EnsureLayout: %v", err)
	}
	return v
}

func TestContainerPutAndRead(t *testing.T) {
	v := testVault(t)
	c := v.Stage(StageNeedsAction)

	if err := c.Put("email-hello-abc12345.md", "content"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := c.Read("email-hello-abc12345.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "content" {
		t.Errorf("Read = %q", got)
	}

	// No temp file left behind.
	if c.Exists(".tmp-email-hello-abc12345.md") {
		t.Error("temp file survived Put")
	}
}

func TestContainerReadMissing(t *testing.T) {
	v := testVault(t)
	_, err := v.Stage(StagePlans).Read("missing.md")
	if !errors.Is(err, mcerrors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestContainerListFiltersAndSorts(t *testing.T) {
	v := testVault(t)
	c := v.Stage(StageNeedsAction)

	for _, name := range []string{"b.md", "a.md", "c.md"} {
		if err := c.Put(name, "x"); err != nil {
			t.Fatal(err)
		}
	}
	// Noise that List must skip.
	if err := os.WriteFile(filepath.Join(c.Dir(), ".hidden.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(c.Dir(), "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(c.Dir(), "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}

	items, err := c.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"a.md", "b.md", "c.md"}
	if len(items) != len(want) {
		t.Fatalf("List returned %d items, want %d", len(items), len(want))
	}
	for i, name := range want {
		if items[i].Name != name {
			t.Errorf("items[%d] = %q, want %q", i, items[i].Name, name)
		}
	}
}

func TestContainerListMissingDir(t *testing.T) {
	c := Open(t.TempDir()).Stage(StageDone)
	items, err := c.List()
	if err != nil {
		t.Fatalf("List on missing dir: %v", err)
	}
	if items != nil {
		t.Errorf("List = %v, want nil", items)
	}
}

func TestTakeMovesExactlyOnce(t *testing.T) {
	v := testVault(t)
	src := v.Stage(StagePendingApproval)
	dst := v.Stage(StageApproved)

	if err := src.Put("plan-x.md", "plan"); err != nil {
		t.Fatal(err)
	}

	newPath, err := src.Take("plan-x.md", dst)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if newPath != dst.PathTo("plan-x.md") {
		t.Errorf("Take path = %q", newPath)
	}

	// The item belongs to exactly one container afterwards.
	if src.Exists("plan-x.md") {
		t.Error("item still in source after Take")
	}
	if !dst.Exists("plan-x.md") {
		t.Error("item missing from destination after Take")
	}

	got, err := dst.Read("plan-x.md")
	if err != nil || got != "plan" {
		t.Errorf("content after Take = %q, %v", got, err)
	}
}

func TestTakeMissingSource(t *testing.T) {
	v := testVault(t)
	_, err := v.Stage(StageApproved).Take("ghost.md", v.Stage(StageDone))
	if !errors.Is(err, mcerrors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTakeOccupiedDestination(t *testing.T) {
	v := testVault(t)
	src := v.Stage(StageNeedsAction)
	dst := v.Stage(StageDone)

	if err := src.Put("item.md", "fresh"); err != nil {
		t.Fatal(err)
	}
	if err := dst.Put("item.md", "already here"); err != nil {
		t.Fatal(err)
	}

	_, err := src.Take("item.md", dst)
	if !errors.Is(err, mcerrors.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}

	// Neither side was touched.
	if got, _ := src.Read("item.md"); got != "fresh" {
		t.Errorf("source = %q", got)
	}
	if got, _ := dst.Read("item.md"); got != "already here" {
		t.Errorf("destination = %q", got)
	}
}

func TestRemoveMissingIsNoError(t *testing.T) {
	v := testVault(t)
	if err := v.Stage(StageRejected).Remove("gone.md"); err != nil {
		t.Errorf("Remove missing: %v", err)
	}
}
