package layout

import (
	"path/filepath"
	"testing"
)

func TestLayoutPaths(t *testing.T) {
	l := New("base")
	tests := []struct {
		got  string
		want string
	}{
		{l.Profiles(), filepath.Join("base", "profiles.json")},
		{l.ClientJar("1.20.4"), filepath.Join("base", "versions", "1.20.4", "client.jar")},
		{l.NativesDir("1.8.9"), filepath.Join("base", "versions", "1.8.9", "natives")},
		{l.Library("org/lwjgl/lwjgl.jar"), filepath.Join("base", "libraries", "org", "lwjgl", "lwjgl.jar")},
		{l.AssetIndex("legacy"), filepath.Join("base", "assets", "indexes", "legacy.json")},
		{l.Object("objects/ab/abcdef"), filepath.Join("base", "assets", "objects", "ab", "abcdef")},
		{l.Legacy(), filepath.Join("base", "assets", "legacy")},
		{l.Resources(), filepath.Join("base", "assets", "resources")},
		{l.GameDir(), filepath.Join("base", ".minecraft")},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
