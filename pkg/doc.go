// Package pkg holds the libraries behind craftlaunch, a Minecraft launcher.
//
// # Overview
//
// A launch turns a version id into a running game process. The packages are
// layered so each step can be used and tested on its own:
//
//	version id
//	     ↓
//	[manifest] catalog lookup, descriptor and asset index types
//	     ↓
//	[resolve]  platform rules, artifact set, asset mirroring
//	     ↓
//	[acquire]  two-phase concurrent download, native extraction
//	     ↓
//	[jvm]      compatible Java runtime
//	     ↓
//	[supervise] command line, spawn, early-exit observation
//
// [launch] drives these steps as one attempt, reports [progress] and keeps
// the error of the last failed attempt. [server] exposes the same flow over
// HTTP for a graphical front end.
//
// # Supporting packages
//
//   - [cache]: metadata cache with file, Redis and null backends
//   - [config]: TOML configuration
//   - [errors]: coded errors and friendly dialog text
//   - [fetch]: fetch-if-absent HTTP downloads
//   - [history]: launch records in a JSONL file or MongoDB
//   - [httputil]: retry helpers
//   - [layout]: the on-disk installation layout
//   - [observability]: hooks for logging and metrics
//   - [platform]: per-OS tables
//   - [profile]: the player profile store
//
// [manifest]: https://pkg.go.dev/github.com/matzehuels/craftlaunch/pkg/manifest
// [resolve]: https://pkg.go.dev/github.com/matzehuels/craftlaunch/pkg/resolve
// [acquire]: https://pkg.go.dev/github.com/matzehuels/craftlaunch/pkg/acquire
// [jvm]: https://pkg.go.dev/github.com/matzehuels/craftlaunch/pkg/jvm
// [supervise]: https://pkg.go.dev/github.com/matzehuels/craftlaunch/pkg/supervise
// [launch]: https://pkg.go.dev/github.com/matzehuels/craftlaunch/pkg/launch
// [progress]: https://pkg.go.dev/github.com/matzehuels/craftlaunch/pkg/progress
// [server]: https://pkg.go.dev/github.com/matzehuels/craftlaunch/pkg/server
// [cache]: https://pkg.go.dev/github.com/matzehuels/craftlaunch/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/craftlaunch/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/craftlaunch/pkg/errors
// [fetch]: https://pkg.go.dev/github.com/matzehuels/craftlaunch/pkg/fetch
// [history]: https://pkg.go.dev/github.com/matzehuels/craftlaunch/pkg/history
// [httputil]: https://pkg.go.dev/github.com/matzehuels/craftlaunch/pkg/httputil
// [layout]: https://pkg.go.dev/github.com/matzehuels/craftlaunch/pkg/layout
// [observability]: https://pkg.go.dev/github.com/matzehuels/craftlaunch/pkg/observability
// [platform]: https://pkg.go.dev/github.com/matzehuels/craftlaunch/pkg/platform
// [profile]: https://pkg.go.dev/github.com/matzehuels/craftlaunch/pkg/profile
package pkg
