package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks implements every hook interface by writing debug-level log lines.
// The CLI registers it so --verbose shows cache and network activity.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks that log through logger (log.Default() if nil).
func NewLogHooks(logger *log.Logger) *LogHooks {
	if logger == nil {
		logger = log.Default()
	}
	return &LogHooks{logger: logger}
}

// Register installs h as the launch, cache, and HTTP hooks.
func (h *LogHooks) Register() {
	SetLaunchHooks(h)
	SetCacheHooks(h)
	SetHTTPHooks(h)
}

func (h *LogHooks) OnResolveComplete(_ context.Context, versionID string, libraries, natives, assets int, err error) {
	if err != nil {
		h.logger.Debug("resolve failed", "version", versionID, "error", err)
		return
	}
	h.logger.Debug("resolved", "version", versionID, "libraries", libraries, "natives", natives, "assets", assets)
}

func (h *LogHooks) OnAcquireStart(_ context.Context, versionID string, tasks int) {
	h.logger.Debug("acquire start", "version", versionID, "tasks", tasks)
}

func (h *LogHooks) OnAcquireComplete(_ context.Context, versionID string, fetched, failed int, d time.Duration) {
	h.logger.Debug("acquire complete", "version", versionID, "fetched", fetched, "failed", failed, "took", d.Round(time.Millisecond))
}

func (h *LogHooks) OnBackgroundComplete(_ context.Context, versionID string, fetched, failed int, d time.Duration) {
	h.logger.Debug("background assets complete", "version", versionID, "fetched", fetched, "failed", failed, "took", d.Round(time.Millisecond))
}

func (h *LogHooks) OnSpawn(_ context.Context, executable string, pid int) {
	h.logger.Debug("spawned", "java", executable, "pid", pid)
}

func (h *LogHooks) OnOutcome(_ context.Context, versionID, outcome string, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("launch outcome", "version", versionID, "outcome", outcome, "took", d.Round(time.Millisecond), "error", err)
		return
	}
	h.logger.Debug("launch outcome", "version", versionID, "outcome", outcome, "took", d.Round(time.Millisecond))
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "took", d.Round(time.Millisecond))
}

func (h *LogHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http error", "method", method, "host", host, "path", path, "error", err)
}

var (
	_ LaunchHooks = (*LogHooks)(nil)
	_ CacheHooks  = (*LogHooks)(nil)
	_ HTTPHooks   = (*LogHooks)(nil)
)
