package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if p := Load(""); p != (Prefs{}) {
		t.Fatalf("Load = %+v, want empty prefs", p)
	}
}

func TestLoad_ReadsDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "cquery")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "prefs.toml"), []byte("theme = \" Nord \"\nselected = \"users\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p := Load("")
	if p.Theme != "Nord" || p.Selected != "users" {
		t.Fatalf("Load = %+v, want theme Nord selected users", p)
	}
}

func TestSave_RoundTripsThroughNewDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "prefs.toml")

	if err := Save(path, Prefs{Theme: "Slate", Selected: "groups"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if p := Load(path); p.Theme != "Slate" || p.Selected != "groups" {
		t.Fatalf("Load = %+v, want theme Slate selected groups", p)
	}
}

func TestSave_OmitsEmptyFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")

	if err := Save(path, Prefs{Theme: "Slate"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got := string(data); got != "theme = 'Slate'\n" {
		t.Fatalf("file = %q, want only the theme", got)
	}
}

func TestLoad_InvalidTOMLIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	if err := os.WriteFile(path, []byte("not valid toml {{{\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if p := Load(path); p != (Prefs{}) {
		t.Fatalf("Load = %+v, want empty prefs", p)
	}
}
