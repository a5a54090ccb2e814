package acquire

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/matzehuels/craftlaunch/pkg/resolve"
)

// buildZip returns a zip archive holding the given entries. Names ending in
// "/" become directories.
func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if body != "" {
			if _, err := f.Write([]byte(body)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "natives.jar")
	data := buildZip(t, map[string]string{
		"META-INF/":            "",
		"META-INF/MANIFEST.MF": "Manifest-Version: 1.0",
		"liblwjgl.so":          "elf",
		"sub/":                 "",
		"sub/libopenal.so":     "openal",
	})
	if err := os.WriteFile(archive, data, 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "natives")
	if err := os.MkdirAll(out, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(out, "liblwjgl.so"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Extract(archive, out, []string{"META-INF/"}); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if got, _ := os.ReadFile(filepath.Join(out, "liblwjgl.so")); string(got) != "elf" {
		t.Errorf("liblwjgl.so = %q, want overwritten content", got)
	}
	if got, _ := os.ReadFile(filepath.Join(out, "sub", "libopenal.so")); string(got) != "openal" {
		t.Errorf("sub/libopenal.so = %q", got)
	}
	if _, err := os.Stat(filepath.Join(out, "META-INF")); !os.IsNotExist(err) {
		t.Error("excluded META-INF/ should not be extracted")
	}
}

func TestExtractNotAZip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "broken.jar")
	if err := os.WriteFile(archive, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Extract(archive, dir, nil); err == nil {
		t.Error("Extract() should fail on a non-zip file")
	}
}

func TestMirror(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "objects", "ab", "abcd")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("ogg"), 0o644); err != nil {
		t.Fatal(err)
	}
	root := filepath.Join(dir, "legacy")

	if err := Mirror(src, root, "sounds/ui/click.ogg"); err != nil {
		t.Fatalf("Mirror() error: %v", err)
	}
	if got, _ := os.ReadFile(filepath.Join(root, "sounds", "ui", "click.ogg")); string(got) != "ogg" {
		t.Errorf("mirrored file = %q", got)
	}
	if err := Mirror(src, root, "../outside.ogg"); err == nil {
		t.Error("Mirror() should reject paths escaping the root")
	}
}

func TestSplit(t *testing.T) {
	assets := []resolve.Asset{
		{VirtualPath: "minecraft/sounds/ui/button/click.ogg"},
		{VirtualPath: "minecraft/music/calm1.ogg"},
		{VirtualPath: "minecraft/lang/en_us.json"},
		{VirtualPath: "sounds/random/click.ogg"},
		{VirtualPath: "minecraft/textures/gui/widgets.png"},
		{VirtualPath: "minecraft/textures/block/stone.png"},
		{VirtualPath: "minecraft/font/ascii.png"},
		{VirtualPath: "icons/icon_16x16.png"},
	}
	now, later := Split(assets, RequiredAssets)
	if len(now) != 6 || len(later) != 2 {
		t.Fatalf("Split() = %d now, %d later; want 6, 2", len(now), len(later))
	}
	if later[0].VirtualPath != "minecraft/music/calm1.ogg" || later[1].VirtualPath != "minecraft/textures/block/stone.png" {
		t.Errorf("later = %+v", later)
	}
}
