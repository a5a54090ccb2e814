package supervise

import (
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/craftlaunch/pkg/manifest"
	"github.com/matzehuels/craftlaunch/pkg/platform"
	"github.com/matzehuels/craftlaunch/pkg/resolve"
)

const (
	// DefaultJVMArgs is used when a profile carries no JVM arguments.
	DefaultJVMArgs = "-Xmx2G -Xms512M"
	// DefaultMainClass is used when a descriptor names no main class.
	DefaultMainClass = "net.minecraft.client.main.Main"
	// LegacyMainClass is the entry point of alpha and beta clients.
	LegacyMainClass = "net.minecraft.client.Minecraft"

	launcherBrand   = "CustomLauncher"
	launcherVersion = "1.0"
)

// LaunchSpec holds everything needed to build the runtime command line.
type LaunchSpec struct {
	Java       string
	VersionID  string
	MainClass  string
	Username   string
	JVMArgs    string
	Classpath  []string
	NativesDir string
	GameDir    string
	AssetsDir  string
	AssetIndex string
	Platform   platform.Platform
}

// Command is a fully built process invocation.
type Command struct {
	Path string   `json:"path" yaml:"path"`
	Args []string `json:"args" yaml:"args"`
	Dir  string   `json:"dir,omitempty" yaml:"dir,omitempty"`
	Env  []string `json:"-" yaml:"-"`
}

// String renders the command for logs and the resolve command.
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// BuildCommand assembles the runtime invocation for s.
func BuildCommand(s LaunchSpec) Command {
	args := []string{
		"-Djava.library.path=" + s.NativesDir,
		"-Dminecraft.launcher.brand=" + launcherBrand,
		"-Dminecraft.launcher.version=" + launcherVersion,
	}
	jvm := strings.Fields(s.JVMArgs)
	if len(jvm) == 0 {
		jvm = strings.Fields(DefaultJVMArgs)
	}
	args = append(args, jvm...)
	args = append(args, "-cp", strings.Join(s.Classpath, s.Platform.ClasspathSeparator()))

	if manifest.IsLegacyID(s.VersionID) {
		args = append(args, LegacyMainClass, s.Username, "token:0:0")
		return Command{Path: s.Java, Args: args}
	}

	main := s.MainClass
	if main == "" {
		main = DefaultMainClass
	}
	args = append(args,
		main,
		"--username", s.Username,
		"--version", s.VersionID,
		"--gameDir", s.GameDir,
		"--assetsDir", s.AssetsDir,
	)
	if resolve.MirrorFor(s.AssetIndex) != resolve.MirrorLegacy {
		args = append(args, "--assetIndex", s.AssetIndex)
	}
	args = append(args,
		"--accessToken", "0",
		"--uuid", uuid.Nil.String(),
		"--userProperties", "{}",
	)
	return Command{Path: s.Java, Args: args}
}
