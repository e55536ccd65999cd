package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/matasmazeikaa/copyviral-sub002/internal/adapters/storage/localfs"
	"github.com/matasmazeikaa/copyviral-sub002/internal/models"
	"github.com/matasmazeikaa/copyviral-sub002/internal/ports"
)

func TestObjectKeyFormat(t *testing.T) {
	p := ObjectPath{
		Area:         models.AreaMediaLibrary,
		AccountID:    "acct_1",
		Folder:       "vacation",
		ObjectID:     "obj_9",
		OriginalName: "my clip.mp4",
	}

	key := p.Key()
	if !strings.HasPrefix(key, "media-library/acct_1/vacation/obj_9--") {
		t.Errorf("unexpected key prefix: %s", key)
	}
	if !strings.HasSuffix(key, ".mp4") {
		t.Errorf("extension lost: %s", key)
	}

	// The encoded segment must round-trip back to the original base name.
	encoded := strings.TrimSuffix(strings.SplitN(key, "--", 2)[1], ".mp4")
	name, err := DecodeName(encoded)
	if err != nil {
		t.Fatalf("DecodeName: %v", err)
	}
	if name != "my clip" {
		t.Errorf("decoded name = %q, want %q", name, "my clip")
	}
}

func TestLegacyKeyFormat(t *testing.T) {
	p := ObjectPath{
		Area:         models.AreaRenders,
		AccountID:    "acct_1",
		ObjectID:     "obj_9",
		OriginalName: "final.mp4",
	}
	if got := p.LegacyKey(); got != "renders/acct_1/obj_9.mp4" {
		t.Errorf("legacy key = %s", got)
	}
}

func TestMoverPrefersCurrentKey(t *testing.T) {
	store := localfs.New(t.TempDir())
	ctx := context.Background()

	src := ObjectPath{
		Area: models.AreaMediaLibrary, AccountID: "acct_1",
		ObjectID: "obj_1", OriginalName: "clip.mp4",
	}
	mustPut(t, store, src.Key())

	m := NewMover(store, nil)
	if err := m.Move(ctx, src, "media-library/acct_1/moved/clip.mp4"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := store.Stat(ctx, "media-library/acct_1/moved/clip.mp4"); err != nil {
		t.Errorf("destination missing after move: %v", err)
	}
}

func TestMoverFallsBackToLegacyKey(t *testing.T) {
	store := localfs.New(t.TempDir())
	ctx := context.Background()

	src := ObjectPath{
		Area: models.AreaMediaLibrary, AccountID: "acct_1",
		ObjectID: "obj_2", OriginalName: "old.mp4",
	}
	// Object exists only under the pre-rename naming scheme.
	mustPut(t, store, src.LegacyKey())

	m := NewMover(store, nil)
	if err := m.Move(ctx, src, "media-library/acct_1/moved/old.mp4"); err != nil {
		t.Fatalf("Move with legacy fallback: %v", err)
	}
	if _, err := store.Stat(ctx, "media-library/acct_1/moved/old.mp4"); err != nil {
		t.Errorf("destination missing after legacy move: %v", err)
	}
}

func TestMoverMissingEverywhere(t *testing.T) {
	store := localfs.New(t.TempDir())
	m := NewMover(store, nil)

	src := ObjectPath{
		Area: models.AreaMediaLibrary, AccountID: "acct_1",
		ObjectID: "obj_3", OriginalName: "ghost.mp4",
	}
	err := m.Move(context.Background(), src, "media-library/acct_1/x.mp4")
	if !ports.IsNotFound(err) {
		t.Errorf("expected not-found, got %v", err)
	}
}

func mustPut(t *testing.T, store ports.ObjectStore, key string) {
	t.Helper()
	err := store.Put(context.Background(), ports.PutObjectInput{
		Key:    key,
		Reader: strings.NewReader("data"),
		Size:   4,
	})
	if err != nil {
		t.Fatal(err)
	}
}
