package errors

import "strings"

// Dialog is the user-facing rendering of a fatal error: a plain-language
// summary and the original text, which is shown on demand.
type Dialog struct {
	Message string
	Details string
}

// HasDetails reports whether the friendly text replaced the original.
func (d Dialog) HasDetails() bool { return d.Details != "" && d.Details != d.Message }

type friendlyRule struct {
	needles []string
	text    string
}

// Order matters: the first matching rule wins.
var friendlyRules = []friendlyRule{
	{
		needles: []string{"JVM allocation heap", "heap space"},
		text:    "Not enough memory to start Minecraft. Try closing other programs or increasing the memory allocation in the profile settings.",
	},
	{
		needles: []string{"java.lang.ClassNotFoundException"},
		text:    "Could not find the required Java class. The Java installation may be corrupted or incompatible.",
	},
	{
		needles: []string{"java.io.IOException"},
		text:    "I/O error. Check if you have write permissions to the game directory and if there is enough space on the disk.",
	},
	{
		needles: []string{"java.lang.OutOfMemoryError"},
		text:    "Not enough memory to start Minecraft. Try closing other programs or increasing the memory allocation.",
	},
	{
		needles: []string{"exited immediately", "crashed during startup"},
		text:    "Minecraft exited with an error when starting. This may be due to Java version incompatibility, insufficient system resources, or game file corruption.",
	},
	{
		needles: []string{"no valid OpenGL", "OpenGL Error"},
		text:    "OpenGL error. Update your video card drivers or make sure your computer supports the required OpenGL version.",
	},
}

// Friendly maps an error message to the text shown in the error dialog.
// Known substrings are replaced with an explanation; the original message is
// kept in Details.
func Friendly(message string) Dialog {
	for _, r := range friendlyRules {
		for _, n := range r.needles {
			if strings.Contains(message, n) {
				return Dialog{Message: r.text, Details: message}
			}
		}
	}
	return Dialog{Message: message, Details: message}
}
