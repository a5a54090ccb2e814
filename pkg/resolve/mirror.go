package resolve

import (
	"strconv"
	"strings"

	"github.com/matzehuels/craftlaunch/pkg/layout"
)

// Mirror says where asset objects are copied by virtual path after fetch.
type Mirror int

const (
	// MirrorNone keeps objects only in the content-addressed store.
	MirrorNone Mirror = iota
	// MirrorLegacy copies into assets/legacy/<virtualPath>.
	MirrorLegacy
	// MirrorResources copies into assets/resources/<virtualPath>.
	MirrorResources
)

// String implements fmt.Stringer.
func (m Mirror) String() string {
	switch m {
	case MirrorLegacy:
		return "legacy"
	case MirrorResources:
		return "resources"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mirror) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// MirrorFor returns the mirror mode of an asset index id.
//
// "legacy" and "pre-1.6" mirror into the legacy tree. "1.7.10", or an id that
// reads as a number no greater than 1.8, mirrors into the resources tree.
// Numbers compare as version numbers, so "1.20" is above 1.8. Dotted ids
// such as "1.12" and "1.20" therefore mirror nothing, where reading them as
// floats (1.12 <= 1.8) would not. Ids that do not parse as a number, such as
// "abcd" or "12-snapshot", mirror nothing.
func MirrorFor(indexID string) Mirror {
	switch {
	case indexID == "legacy" || indexID == "pre-1.6":
		return MirrorLegacy
	case indexID == "1.7.10" || atMost18(indexID):
		return MirrorResources
	default:
		return MirrorNone
	}
}

// atMost18 reports whether id is a number of the form MAJOR or MAJOR.MINOR
// that is at most 1.8.
func atMost18(id string) bool {
	if _, err := strconv.ParseFloat(id, 64); err != nil {
		return false
	}
	majorStr, minorStr, hasMinor := strings.Cut(id, ".")
	major, err := strconv.Atoi(majorStr)
	if err != nil {
		return false
	}
	minor := 0
	if hasMinor {
		if minor, err = strconv.Atoi(minorStr); err != nil {
			return false
		}
	}
	return major < 1 || (major == 1 && minor <= 8)
}

// Dir returns the mirror root under l, or "" for MirrorNone.
func (m Mirror) Dir(l layout.Layout) string {
	switch m {
	case MirrorLegacy:
		return l.Legacy()
	case MirrorResources:
		return l.Resources()
	default:
		return ""
	}
}
