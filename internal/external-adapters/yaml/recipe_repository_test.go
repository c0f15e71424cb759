package yaml

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeSources(t *testing.T, dir, name string) {
	t.Helper()

	recipeDir := filepath.Join(dir, name)
	if err := os.MkdirAll(recipeDir, 0750); err != nil {
		t.Fatalf("Failed to create recipe dir: %v", err)
	}
	data := []byte(`sources:
  "1.0":
    url: https://example.com/` + name + `-1.0.tar.gz
    sha256: "0000"
`)
	if err := os.WriteFile(filepath.Join(recipeDir, SourcesFileName), data, 0600); err != nil {
		t.Fatalf("Failed to write sources file: %v", err)
	}
}

func TestRecipeRepository_GetSources_Success(t *testing.T) {
	tmpDir := t.TempDir()
	writeSources(t, tmpDir, "cunit")

	repo := NewRecipeRepository(tmpDir)
	sources, err := repo.GetSources(context.Background(), "cunit")
	if err != nil {
		t.Fatalf("GetSources() error = %v", err)
	}

	if sources.Name != "cunit" {
		t.Errorf("GetSources() name = %v, want cunit", sources.Name)
	}
	if _, ok := sources.Sources["1.0"]; !ok {
		t.Error("GetSources() missing version 1.0")
	}
}

func TestRecipeRepository_GetSources_NotFound(t *testing.T) {
	tmpDir := t.TempDir()
	repo := NewRecipeRepository(tmpDir)

	_, err := repo.GetSources(context.Background(), "nonexistent")
	if err == nil {
		t.Error("GetSources() should return error for nonexistent recipe")
	}
}

func TestRecipeRepository_ListRecipes(t *testing.T) {
	tmpDir := t.TempDir()
	writeSources(t, tmpDir, "zlib")
	writeSources(t, tmpDir, "cunit")

	// Directories without a sources file are not recipes
	if err := os.MkdirAll(filepath.Join(tmpDir, "empty"), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "README.md"), []byte("docs"), 0600); err != nil {
		t.Fatal(err)
	}

	repo := NewRecipeRepository(tmpDir)
	names, err := repo.ListRecipes(context.Background())
	if err != nil {
		t.Fatalf("ListRecipes() error = %v", err)
	}

	if len(names) != 2 || names[0] != "cunit" || names[1] != "zlib" {
		t.Errorf("ListRecipes() = %v, want [cunit zlib]", names)
	}
}
