package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kwv/wardmap/floorplan"
)

// cliFixture writes a config and a JSON map into a temp dir and returns the
// flags that point the CLI at them
func cliFixture(t *testing.T) (dir string, flags []string) {
	t.Helper()
	dir = t.TempDir()
	cfgPath := filepath.Join(dir, "wardmap.yaml")
	if err := floorplan.SaveConfig(cfgPath, floorplan.DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	mapPath := filepath.Join(dir, "map.json")
	if err := floorplan.SaveDocument(testDocument(), mapPath); err != nil {
		t.Fatal(err)
	}
	return dir, []string{"--config", cfgPath, "--map", mapPath}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRouteCommand(t *testing.T) {
	_, flags := cliFixture(t)
	out, err := runCLI(t, append([]string{"route", "--floor", "f1", "--from", "a", "--to", "b"}, flags...)...)
	if err != nil {
		t.Fatalf("route: %v\n%s", err, out)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 7 {
		t.Fatalf("expected 6 waypoints and a length line, got %d lines:\n%s", len(lines), out)
	}
	if lines[0] != "0\t100.0\t100.0" {
		t.Errorf("first waypoint = %q", lines[0])
	}
	if lines[5] != "5\t500.0\t500.0" {
		t.Errorf("last waypoint = %q", lines[5])
	}
	if lines[6] != "length\t800.0" {
		t.Errorf("length line = %q", lines[6])
	}
}

func TestRouteCommandErrors(t *testing.T) {
	_, flags := cliFixture(t)
	tests := []struct {
		name string
		args []string
	}{
		{"missing --to", []string{"route", "--floor", "f1", "--from", "a"}},
		{"unknown room", []string{"route", "--floor", "f1", "--from", "a", "--to", "zz"}},
		{"unknown floor", []string{"route", "--floor", "f9", "--from", "a", "--to", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCLI(t, append(tt.args, flags...)...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRenderCommand(t *testing.T) {
	dir, flags := cliFixture(t)
	svgPath := filepath.Join(dir, "f1.svg")

	out, err := runCLI(t, append([]string{"render", "--floor", "f1", "--from", "a", "--to", "b", "-o", svgPath}, flags...)...)
	if err != nil {
		t.Fatalf("render: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Saved: "+svgPath) {
		t.Errorf("unexpected output %q", out)
	}
	data, err := os.ReadFile(svgPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Error("output is not an SVG document")
	}

	pngPath := filepath.Join(dir, "f1.png")
	if _, err := runCLI(t, append([]string{"render", "--floor", "f1", "--format", "png", "-o", pngPath}, flags...)...); err != nil {
		t.Fatalf("render png: %v", err)
	}
	if info, err := os.Stat(pngPath); err != nil || info.Size() == 0 {
		t.Errorf("expected a non-empty PNG, err=%v", err)
	}

	if _, err := runCLI(t, append([]string{"render", "--floor", "f1", "--format", "bmp"}, flags...)...); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestExportCommand(t *testing.T) {
	dir, flags := cliFixture(t)

	out, err := runCLI(t, append([]string{"export", "--floor", "f1"}, flags...)...)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal([]byte(out), &fc); err != nil {
		t.Fatalf("stdout is not GeoJSON: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 4 {
		t.Errorf("expected a collection of 4 features, got %s with %d", fc.Type, len(fc.Features))
	}

	path := filepath.Join(dir, "f1.geojson")
	out, err = runCLI(t, append([]string{"export", "--floor", "f1", "-o", path, "--simplify", "5"}, flags...)...)
	if err != nil {
		t.Fatalf("export to file: %v", err)
	}
	if !strings.Contains(out, "(4 features)") {
		t.Errorf("unexpected output %q", out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error(err)
	}
}

func TestImportCommand(t *testing.T) {
	dir, flags := cliFixture(t)
	src := filepath.Join(dir, "map.json")
	dbPath := filepath.Join(dir, "site.db")

	// --map given twice: the last one wins, so the import lands in SQLite
	args := append([]string{"import", src}, flags...)
	args = append(args, "--map", dbPath)
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("import: %v\n%s", err, out)
	}
	want := "Imported 1 buildings, 2 floors, 2 rooms, 1 corridors into " + dbPath
	if !strings.Contains(out, want) {
		t.Errorf("output %q does not contain %q", out, want)
	}

	out, err = runCLI(t, "route", "--floor", "f1", "--from", "b", "--to", "a", "--config", flags[1], "--map", dbPath)
	if err != nil {
		t.Fatalf("route from imported database: %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "length\t800.0") {
		t.Errorf("unexpected route output:\n%s", out)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"rooms": [{"id": "r"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, append([]string{"import", bad}, flags...)...); err == nil {
		t.Error("expected validation error")
	}
	if _, err := runCLI(t, append([]string{"import"}, flags...)...); err == nil {
		t.Error("expected error without a file argument")
	}
}

func TestImportCommandFromURL(t *testing.T) {
	// another instance serving its document
	srv := httptest.NewServer(newHTTPServer(NewApp(nil, testDocument())))
	defer srv.Close()

	dir, flags := cliFixture(t)
	target := filepath.Join(dir, "copy.json")
	args := append([]string{"import", srv.URL + "/api/document"}, flags...)
	args = append(args, "--map", target)
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("import from URL: %v\n%s", err, out)
	}
	doc, err := floorplan.LoadDocument(target)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Rooms) != 2 || len(doc.Devices) != 1 {
		t.Errorf("expected the served document, got %d rooms and %d devices", len(doc.Rooms), len(doc.Devices))
	}

	if _, err := runCLI(t, append([]string{"import", srv.URL + "/nothing"}, flags...)...); err == nil {
		t.Error("expected error for a 404 source")
	}
}

func TestLoadConfigFallback(t *testing.T) {
	dir := t.TempDir()
	mapPath := filepath.Join(dir, "map.json")
	if err := floorplan.SaveDocument(testDocument(), mapPath); err != nil {
		t.Fatal(err)
	}

	// the default config name is relative; run from an empty directory
	t.Chdir(dir)
	if _, err := runCLI(t, "export", "--floor", "f1", "--map", mapPath); err != nil {
		t.Errorf("missing default config should fall back to defaults: %v", err)
	}

	missing := filepath.Join(dir, "nope.yaml")
	if _, err := runCLI(t, "export", "--floor", "f1", "--map", mapPath, "--config", missing); err == nil {
		t.Error("an explicitly named missing config should fail")
	}
}

func TestHelp(t *testing.T) {
	out, err := runCLI(t, "--help")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, sub := range []string{"serve", "route", "render", "export", "import"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing %q", sub)
		}
	}
}
