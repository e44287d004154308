package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCategorySeed(t *testing.T) {
	dir := t.TempDir()

	defaults, err := LoadCategorySeed("")
	if err != nil || len(defaults) != len(DefaultCategories()) {
		t.Fatalf("empty path: %d %v", len(defaults), err)
	}

	if _, err := LoadCategorySeed(filepath.Join(dir, "missing.txt")); err == nil {
		t.Fatal("missing file should fail")
	}

	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, []byte("# nothing here\n\n"), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	seed, err := LoadCategorySeed(empty)
	if err != nil || len(seed) != len(DefaultCategories()) {
		t.Fatalf("file without entries: %d %v", len(seed), err)
	}

	path := filepath.Join(dir, "seed.txt")
	content := "# header\nCasa/Bollette\nCasa/Affitto\nCasa/Bollette\n\n Svago \n/orphan\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	seed, err = LoadCategorySeed(path)
	if err != nil {
		t.Fatalf("LoadCategorySeed: %v", err)
	}
	if len(seed) != 2 || seed[0].Name != "Casa" || seed[1].Name != "Svago" {
		t.Fatalf("unexpected categories: %+v", seed)
	}
	if got := seed[0].Subcategories; len(got) != 2 || got[0] != "Bollette" || got[1] != "Affitto" {
		t.Fatalf("unexpected subcategories: %v", got)
	}
}
