// Package platform describes the operating systems the launcher runs on.
//
// A [Platform] is resolved once at startup with [Current] and threaded
// explicitly through the resolver, the runtime matcher, and the supervisor.
// Everything that differs per operating system (the name used by upstream
// library rules, runtime search roots, executable names, classpath separator,
// and the default base directory) is looked up from a single table instead of
// being spread across build-tagged files.
package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Platform identifies an operating system family.
type Platform int

const (
	// Unknown is any platform the launcher has no table entry for.
	Unknown Platform = iota
	Windows
	Linux
	MacOS
)

// info holds the per-platform facts.
type info struct {
	name      string   // name used by upstream rule and native maps
	exe       string   // java executable file name
	sep       string   // classpath list separator
	roots     []string // well-known JVM install roots
	java8Dirs []string // prefixes probed for exact Java 8 installs
}

var table = map[Platform]info{
	Windows: {
		name: "windows",
		exe:  "java.exe",
		sep:  ";",
		roots: []string{
			`C:\Program Files\Java`,
			`C:\Program Files (x86)\Java`,
			`C:\Program Files\AdoptOpenJDK`,
			`C:\Program Files (x86)\AdoptOpenJDK`,
			`C:\Program Files\Eclipse Adoptium`,
			`C:\Program Files (x86)\Eclipse Adoptium`,
			`C:\Program Files\Zulu`,
			`C:\Program Files (x86)\Zulu`,
			`C:\Program Files\BellSoft`,
			`C:\Program Files (x86)\BellSoft`,
		},
		java8Dirs: []string{
			`C:\Program Files\Java\jre1.8.0_`,
			`C:\Program Files\Java\jdk1.8.0_`,
			`C:\Program Files (x86)\Java\jre1.8.0_`,
			`C:\Program Files (x86)\Java\jdk1.8.0_`,
		},
	},
	Linux: {
		name:  "linux",
		exe:   "java",
		sep:   ":",
		roots: []string{"/usr/lib/jvm", "/usr/java", "/opt/java"},
	},
	MacOS: {
		name: "osx",
		exe:  "java",
		sep:  ":",
		roots: []string{
			"/Library/Java/JavaVirtualMachines",
			"/System/Library/Java/JavaVirtualMachines",
			"/Library/Internet Plug-Ins/JavaAppletPlugin.plugin/Contents/Home",
		},
	},
	Unknown: {
		exe: "java",
		sep: string(os.PathListSeparator),
	},
}

// Current returns the platform the binary was built for.
func Current() Platform {
	return FromGOOS(runtime.GOOS)
}

// FromGOOS maps a GOOS value to a Platform.
func FromGOOS(goos string) Platform {
	switch goos {
	case "windows":
		return Windows
	case "linux":
		return Linux
	case "darwin":
		return MacOS
	default:
		return Unknown
	}
}

// Parse maps an upstream rule name ("windows", "linux", "osx") to a Platform.
func Parse(name string) Platform {
	for p, i := range table {
		if i.name != "" && i.name == strings.ToLower(name) {
			return p
		}
	}
	return Unknown
}

// Name returns the name upstream library rules use for this platform.
// Unknown returns the empty string, which never matches a rule condition.
func (p Platform) Name() string { return table[p].name }

// String implements fmt.Stringer.
func (p Platform) String() string {
	if n := p.Name(); n != "" {
		return n
	}
	return "unknown"
}

// JavaExecutable returns the file name of the java launcher binary.
func (p Platform) JavaExecutable() string { return table[p].exe }

// ClasspathSeparator returns the separator used to join classpath entries.
func (p Platform) ClasspathSeparator() string { return table[p].sep }

// SearchRoots returns the well-known JVM install roots for this platform.
func (p Platform) SearchRoots() []string {
	return append([]string(nil), table[p].roots...)
}

// Java8Prefixes returns directory prefixes that are completed with an update
// number (e.g. "jre1.8.0_" + "401") when probing for an exact Java 8 install.
func (p Platform) Java8Prefixes() []string {
	return append([]string(nil), table[p].java8Dirs...)
}

// ExtraDrives returns additional drive roots probed as a last resort for
// exact Java 8 installs. Only Windows has any.
func (p Platform) ExtraDrives() []string {
	if p != Windows {
		return nil
	}
	return []string{"C:", "D:", "E:", "F:"}
}

// BaseDir returns the default launcher data directory for this platform.
// getenv and home are injected so the lookup can be tested on any host.
// If the required location cannot be determined, "game" is returned.
func (p Platform) BaseDir(getenv func(string) string, home func() (string, error)) string {
	const appDir = "MinecraftLauncher"
	switch p {
	case Windows:
		if appdata := getenv("APPDATA"); appdata != "" {
			return filepath.Join(appdata, appDir)
		}
		return "game"
	case MacOS:
		h, err := home()
		if err != nil || h == "" {
			return "game"
		}
		return filepath.Join(h, "Library", "Application Support", appDir)
	default:
		h, err := home()
		if err != nil || h == "" {
			return "game"
		}
		return filepath.Join(h, ".minecraft_launcher")
	}
}

// DefaultBaseDir is BaseDir with the real environment.
func (p Platform) DefaultBaseDir() string {
	return p.BaseDir(os.Getenv, os.UserHomeDir)
}

// Arch returns the pointer width used to expand "${arch}" in native
// classifier keys.
func Arch() string {
	switch runtime.GOARCH {
	case "386", "arm":
		return "32"
	default:
		return "64"
	}
}
