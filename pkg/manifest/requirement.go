package manifest

import (
	"strconv"
	"strings"
)

// Requirement is the Java runtime a version needs.
type Requirement struct {
	Major  int  `json:"major" yaml:"major"`
	Strict bool `json:"strict" yaml:"strict"`
}

// Runtime returns the Java requirement of the descriptor.
//
// A declared javaVersion is matched non-strictly. Without one, alpha/beta ids
// and releases 1.0 through 1.8 need exactly Java 8; anything else gets
// Java 17 or newer.
func (d *VersionDescriptor) Runtime() Requirement {
	if d.JavaVersion != nil && d.JavaVersion.MajorVersion > 0 {
		return Requirement{Major: d.JavaVersion.MajorVersion}
	}
	if IsLegacyID(d.ID) || isPre19(d.ID) {
		return Requirement{Major: 8, Strict: true}
	}
	return Requirement{Major: 17}
}

// IsLegacyID reports whether a version id belongs to the alpha/beta era,
// which takes positional launch arguments.
func IsLegacyID(id string) bool {
	return strings.HasPrefix(id, "a") || strings.HasPrefix(id, "b")
}

// isPre19 reports whether id is a 1.0 to 1.8 release, including point
// releases such as "1.7.10".
func isPre19(id string) bool {
	rest, ok := strings.CutPrefix(id, "1.")
	if !ok {
		return false
	}
	end := strings.IndexFunc(rest, func(r rune) bool { return r < '0' || r > '9' })
	if end == 0 {
		return false
	}
	if end > 0 {
		rest = rest[:end]
	}
	minor, err := strconv.Atoi(rest)
	return err == nil && minor <= 8
}
