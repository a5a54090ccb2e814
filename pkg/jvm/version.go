package jvm

import (
	"regexp"
	"strconv"
	"strings"
)

var versionRe = regexp.MustCompile(`version\s+"([^"]+)"`)

// VersionFromOutput extracts the quoted version from `java -version` output,
// e.g. `openjdk version "17.0.9" 2023-10-17` yields "17.0.9".
func VersionFromOutput(out string) (string, bool) {
	m := versionRe.FindStringSubmatch(out)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ParseMajor returns the major version of a Java version string.
//
// Two grammars are accepted: legacy "1.MAJOR[.MINOR][_UPDATE]" where the
// major is the second component ("1.8.0_401" is 8), and modern
// "MAJOR[.MINOR...]" where it is the first ("17.0.9" is 17). Pre-release
// suffixes such as "-ea" are ignored.
func ParseMajor(v string) (int, bool) {
	if rest, ok := strings.CutPrefix(v, "1."); ok {
		return leadingInt(rest)
	}
	return leadingInt(v)
}

// leadingInt parses the digits at the start of s, which must be followed by
// the end of the string or a version separator.
func leadingInt(s string) (int, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	if end < len(s) && !strings.ContainsRune(".-_+", rune(s[end])) {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
