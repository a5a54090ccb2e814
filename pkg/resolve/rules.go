package resolve

import (
	"github.com/matzehuels/craftlaunch/pkg/manifest"
	"github.com/matzehuels/craftlaunch/pkg/platform"
)

// ShouldInclude decides whether a library with the given rules applies to p.
//
// An empty rule list always includes. Otherwise the rules are folded left to
// right starting from "deny": a rule applies when it has no OS condition, an
// OS condition without a name, or a name equal to p.Name(), and an applying
// rule sets the result to its own action. The last applying rule wins, so a
// trailing unconditional rule overrides an earlier platform-specific one.
func ShouldInclude(rules []manifest.Rule, p platform.Platform) bool {
	if len(rules) == 0 {
		return true
	}
	allow := false
	for _, r := range rules {
		if applies(r, p) {
			allow = r.Action == manifest.ActionAllow
		}
	}
	return allow
}

func applies(r manifest.Rule, p platform.Platform) bool {
	if r.OS == nil || r.OS.Name == "" {
		return true
	}
	return r.OS.Name == p.Name()
}
