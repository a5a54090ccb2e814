// Package layout names the files and directories under the launcher's base
// directory.
//
//	<base>/profiles.json
//	<base>/config.toml
//	<base>/history.jsonl
//	<base>/cache/
//	<base>/versions/<id>/client.jar
//	<base>/versions/<id>/natives/
//	<base>/libraries/<relativePath>
//	<base>/assets/indexes/<assetIndexId>.json
//	<base>/assets/objects/<hh>/<hash>
//	<base>/assets/legacy/<virtualPath>
//	<base>/assets/resources/<virtualPath>
//	<base>/.minecraft/
package layout

import "path/filepath"

// Layout resolves paths under a base directory.
type Layout struct {
	Base string
}

// New returns the layout rooted at base.
func New(base string) Layout { return Layout{Base: base} }

func (l Layout) join(elem ...string) string {
	return filepath.Join(append([]string{l.Base}, elem...)...)
}

// Profiles is the profile list file.
func (l Layout) Profiles() string { return l.join("profiles.json") }

// Config is the launcher configuration file.
func (l Layout) Config() string { return l.join("config.toml") }

// History is the launch history file.
func (l Layout) History() string { return l.join("history.jsonl") }

// Cache is the metadata cache directory.
func (l Layout) Cache() string { return l.join("cache") }

// Versions is the directory holding one subdirectory per version.
func (l Layout) Versions() string { return l.join("versions") }

// VersionDir is the directory of one version.
func (l Layout) VersionDir(id string) string { return l.join("versions", id) }

// ClientJar is the main game archive of a version.
func (l Layout) ClientJar(id string) string { return l.join("versions", id, "client.jar") }

// NativesDir holds the native bundles of a version and their extracted files.
func (l Layout) NativesDir(id string) string { return l.join("versions", id, "natives") }

// Libraries is the library root.
func (l Layout) Libraries() string { return l.join("libraries") }

// Library is one library file given its slash-separated relative path.
func (l Layout) Library(rel string) string { return l.join("libraries", filepath.FromSlash(rel)) }

// Assets is the assets root passed to the game.
func (l Layout) Assets() string { return l.join("assets") }

// AssetIndex is the local copy of an asset index document.
func (l Layout) AssetIndex(id string) string { return l.join("assets", "indexes", id+".json") }

// Object is the content-addressed location of an asset object, given its
// path relative to the assets root (objects/<hh>/<hash>).
func (l Layout) Object(storagePath string) string {
	return l.join("assets", filepath.FromSlash(storagePath))
}

// Legacy is the flat mirror used by legacy asset indexes.
func (l Layout) Legacy() string { return l.join("assets", "legacy") }

// Resources is the mirror used by pre-1.9 asset indexes.
func (l Layout) Resources() string { return l.join("assets", "resources") }

// GameDir is the working directory passed to the game.
func (l Layout) GameDir() string { return l.join(".minecraft") }
