package jvm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Prober reports the version string of a java executable.
type Prober interface {
	Probe(ctx context.Context, exe string) (string, error)
}

// ProberFunc adapts a function to a Prober.
type ProberFunc func(ctx context.Context, exe string) (string, error)

// Probe calls f(ctx, exe).
func (f ProberFunc) Probe(ctx context.Context, exe string) (string, error) { return f(ctx, exe) }

// ExecProber runs `<exe> -version` and parses its output.
type ExecProber struct {
	// Timeout bounds a single probe. Zero means 10 seconds.
	Timeout time.Duration
}

// Probe implements Prober.
func (p ExecProber) Probe(ctx context.Context, exe string) (string, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, exe, "-version")
	cmd.Stdout = &out
	cmd.Stderr = &out
	runErr := cmd.Run()

	if v, ok := VersionFromOutput(out.String()); ok {
		return v, nil
	}
	if runErr != nil {
		return "", fmt.Errorf("probe %s: %w", exe, runErr)
	}
	return "", fmt.Errorf("probe %s: no version in output", exe)
}
