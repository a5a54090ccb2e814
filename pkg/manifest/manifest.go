// Package manifest defines the upstream version metadata documents and a
// catalog client that fetches them.
//
// Three documents are involved in a launch:
//
//   - the version manifest: every published version id and its descriptor URL
//   - a [VersionDescriptor]: libraries, main class, asset index reference
//   - an [AssetIndex]: virtual asset path to content hash
//
// JSON field names follow the upstream schema.
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
)

// Rule actions.
const (
	ActionAllow    = "allow"
	ActionDisallow = "disallow"
)

// VersionManifest is the top-level list of published versions.
type VersionManifest struct {
	Latest   Latest        `json:"latest"`
	Versions []VersionInfo `json:"versions"`
}

// Filter returns the versions of the given type, or all of them when typ is
// empty.
func (m *VersionManifest) Filter(typ string) []VersionInfo {
	if typ == "" {
		return m.Versions
	}
	var out []VersionInfo
	for _, v := range m.Versions {
		if v.Type == typ {
			out = append(out, v)
		}
	}
	return out
}

// Latest names the newest release and snapshot ids.
type Latest struct {
	Release  string `json:"release"`
	Snapshot string `json:"snapshot"`
}

// VersionInfo is one entry of the version manifest.
type VersionInfo struct {
	ID          string `json:"id"`
	Type        string `json:"type,omitempty"`
	URL         string `json:"url"`
	ReleaseTime string `json:"releaseTime,omitempty"`
}

// VersionDescriptor describes one game version.
type VersionDescriptor struct {
	ID          string        `json:"id"`
	Type        string        `json:"type,omitempty"`
	Downloads   Downloads     `json:"downloads"`
	Libraries   []Library     `json:"libraries"`
	MainClass   string        `json:"mainClass"`
	AssetIndex  AssetIndexRef `json:"assetIndex"`
	JavaVersion *JavaVersion  `json:"javaVersion,omitempty"`
}

// Downloads holds the main archive locations of a version.
type Downloads struct {
	Client DownloadInfo `json:"client"`
}

// DownloadInfo is a single downloadable file.
type DownloadInfo struct {
	URL  string `json:"url"`
	SHA1 string `json:"sha1,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// AssetIndexRef points at the asset index document of a version.
type AssetIndexRef struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// JavaVersion is the runtime a version declares it needs.
type JavaVersion struct {
	Component    string `json:"component"`
	MajorVersion int    `json:"majorVersion"`
}

// Library is one dependency entry of a version descriptor.
type Library struct {
	Name      string            `json:"name,omitempty"`
	Downloads *LibraryDownloads `json:"downloads,omitempty"`
	Rules     []Rule            `json:"rules,omitempty"`
	Natives   map[string]string `json:"natives,omitempty"`
	Extract   *Extract          `json:"extract,omitempty"`
}

// Artifact returns the primary artifact of the library, or nil.
func (l Library) Artifact() *Artifact {
	if l.Downloads == nil {
		return nil
	}
	return l.Downloads.Artifact
}

// Classifier returns the classifier artifact with the given key, or nil.
func (l Library) Classifier(key string) *Artifact {
	if l.Downloads == nil {
		return nil
	}
	a, ok := l.Downloads.Classifiers[key]
	if !ok {
		return nil
	}
	return &a
}

// ExcludePrefixes returns the extraction exclude list, possibly empty.
func (l Library) ExcludePrefixes() []string {
	if l.Extract == nil {
		return nil
	}
	return l.Extract.Exclude
}

// LibraryDownloads holds the primary artifact and native classifiers.
type LibraryDownloads struct {
	Artifact    *Artifact           `json:"artifact,omitempty"`
	Classifiers map[string]Artifact `json:"classifiers,omitempty"`
}

// Artifact is a library file relative to the libraries directory.
type Artifact struct {
	Path string `json:"path"`
	URL  string `json:"url"`
	SHA1 string `json:"sha1,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// Rule is one conditional allow/deny entry.
type Rule struct {
	Action string  `json:"action"`
	OS     *OSRule `json:"os,omitempty"`
}

// OSRule restricts a rule to one platform. An empty Name matches every platform.
type OSRule struct {
	Name string `json:"name,omitempty"`
}

// Extract is the native bundle extraction policy.
type Extract struct {
	Exclude []string `json:"exclude,omitempty"`
}

// AssetIndex maps virtual asset paths to content-addressed objects.
type AssetIndex struct {
	Objects map[string]AssetObject `json:"objects"`
}

// AssetObject is one content-addressed asset.
type AssetObject struct {
	Hash string `json:"hash"`
	Size int64  `json:"size,omitempty"`
}

// StoragePath returns the object path relative to the assets directory:
// objects/<first two hex characters>/<hash>. The virtual path plays no part.
func (o AssetObject) StoragePath() string {
	if len(o.Hash) < 2 {
		return "objects/" + o.Hash
	}
	return "objects/" + o.Hash[:2] + "/" + o.Hash
}

// ParseDescriptor decodes a version descriptor.
func ParseDescriptor(r io.Reader) (*VersionDescriptor, error) {
	var d VersionDescriptor
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode version descriptor: %w", err)
	}
	return &d, nil
}

// ParseAssetIndex decodes an asset index document.
func ParseAssetIndex(data []byte) (*AssetIndex, error) {
	var idx AssetIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decode asset index: %w", err)
	}
	return &idx, nil
}
