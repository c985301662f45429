// ABOUTME: Tests for image blob storage
// ABOUTME: Covers round-trips, generated names, payload validation, and path containment

package images

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	d := NewDir(filepath.Join(t.TempDir(), "images"))

	raw := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 1, 2, 3}
	payload := base64.StdEncoding.EncodeToString(raw)

	saved, err := d.Save(7, "photo.png", payload)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.Size != int64(len(raw)) {
		t.Errorf("Size: got %d, want %d", saved.Size, len(raw))
	}
	if !strings.HasSuffix(saved.Filename, ".png") {
		t.Errorf("generated name lost extension: %q", saved.Filename)
	}
	if !strings.Contains(saved.Filename, "_7") {
		t.Errorf("generated name missing conversation id: %q", saved.Filename)
	}
	if filepath.Dir(saved.Path) != filepath.Join(d.Root(), "conv-7") {
		t.Errorf("image not stored in conversation subdirectory: %q", saved.Path)
	}

	got, err := d.Load(saved.Path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != payload {
		t.Errorf("payload not round-tripped")
	}
}

func TestSave_StripsDataURLPrefix(t *testing.T) {
	d := NewDir(filepath.Join(t.TempDir(), "images"))

	raw := []byte("jpegdata")
	payload := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw)

	saved, err := d.Save(1, "pic.jpg", payload)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(saved.Path)
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if string(data) != "jpegdata" {
		t.Errorf("stored bytes wrong: %q", data)
	}
}

func TestSave_UniqueNamesWithinSameSecond(t *testing.T) {
	d := NewDir(filepath.Join(t.TempDir(), "images"))
	payload := base64.StdEncoding.EncodeToString([]byte("x"))

	first, err := d.Save(3, "a.png", payload)
	if err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	second, err := d.Save(3, "b.png", payload)
	if err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	if first.Path == second.Path {
		t.Errorf("two saves produced the same path: %q", first.Path)
	}
	for _, s := range []*SavedImage{first, second} {
		if _, err := os.Stat(s.Path); err != nil {
			t.Errorf("saved file missing: %v", err)
		}
	}
}

func TestSave_MalformedPayload(t *testing.T) {
	d := NewDir(filepath.Join(t.TempDir(), "images"))

	_, err := d.Save(1, "a.png", "!!! not base64 !!!")
	if err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if !errors.Is(err, ErrBadPayload) {
		t.Errorf("expected ErrBadPayload, got %v", err)
	}
}

func TestSave_NoExtensionDefaultsToPNG(t *testing.T) {
	d := NewDir(filepath.Join(t.TempDir(), "images"))
	payload := base64.StdEncoding.EncodeToString([]byte("x"))

	saved, err := d.Save(1, "pasted", payload)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasSuffix(saved.Filename, ".png") {
		t.Errorf("expected .png default, got %q", saved.Filename)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "images")
	d := NewDir(root)

	_, err := d.Load(filepath.Join(root, "conv-1", "gone.png"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_RejectsPathOutsideRoot(t *testing.T) {
	tmp := t.TempDir()
	d := NewDir(filepath.Join(tmp, "images"))

	secret := filepath.Join(tmp, "secret.txt")
	if err := os.WriteFile(secret, []byte("s"), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	if _, err := d.Load(secret); err == nil {
		t.Error("expected error for path outside image root")
	}
	if _, err := d.Load(filepath.Join(d.Root(), "..", "secret.txt")); err == nil {
		t.Error("expected error for traversal path")
	}
}
