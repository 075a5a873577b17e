package propfile

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestScanFolder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "backend.properties"), "# Database URL\ndb.url=jdbc:prod\ndb.pool=10\n")
	writeFile(t, filepath.Join(dir, "frontend.properties"), "theme=dark\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored\n")

	props, err := ScanFolder(dir, "prod", discardLogger())
	if err != nil {
		t.Fatalf("ScanFolder: %v", err)
	}
	if len(props) != 3 {
		t.Fatalf("expected 3 properties, got %d: %+v", len(props), props)
	}

	byKey := make(map[string]int, len(props))
	for i, p := range props {
		byKey[p.Key] = i
	}

	dbURL := props[byKey["db.url"]]
	if dbURL.ID != "prod_db.url" || dbURL.Component != "backend" || dbURL.Description != "Database URL" {
		t.Errorf("unexpected db.url property: %+v", dbURL)
	}
	if dbURL.FileOrder != 0 || dbURL.LineOrder != 0 {
		t.Errorf("unexpected db.url ordering: %+v", dbURL)
	}
	if pool := props[byKey["db.pool"]]; pool.LineOrder != 1 {
		t.Errorf("expected db.pool LineOrder 1, got %+v", pool)
	}
	if theme := props[byKey["theme"]]; theme.Component != "frontend" || theme.FileOrder != 1 {
		t.Errorf("unexpected theme property: %+v", theme)
	}
}

func TestScanFolder_SkipsUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	// A directory with the properties extension fails the read and must be
	// skipped without failing the scan.
	if err := os.Mkdir(filepath.Join(dir, "broken.properties"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "ok.properties"), "k=v\n")

	props, err := ScanFolder(dir, "prod", discardLogger())
	if err != nil {
		t.Fatalf("ScanFolder should complete with partial results: %v", err)
	}
	if len(props) != 1 || props[0].Key != "k" {
		t.Errorf("expected the readable file only, got %+v", props)
	}
}

func TestScanFolder_MissingDirectory(t *testing.T) {
	if _, err := ScanFolder(filepath.Join(t.TempDir(), "nope"), "prod", discardLogger()); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestScanEnvironments(t *testing.T) {
	root := t.TempDir()
	for _, env := range []string{"prod", "staging"} {
		dir := filepath.Join(root, env)
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		writeFile(t, filepath.Join(dir, "backend.properties"), "db.url=jdbc:"+env+"\n")
	}

	props, err := ScanEnvironments(root, discardLogger())
	if err != nil {
		t.Fatalf("ScanEnvironments: %v", err)
	}
	if len(props) != 2 {
		t.Fatalf("expected 2 properties, got %d", len(props))
	}

	// os.ReadDir returns entries sorted by name: prod before staging.
	if props[0].Environment != "prod" || props[0].EnvironmentOrder != 0 {
		t.Errorf("unexpected first property: %+v", props[0])
	}
	if props[1].Environment != "staging" || props[1].EnvironmentOrder != 1 {
		t.Errorf("unexpected second property: %+v", props[1])
	}
}
