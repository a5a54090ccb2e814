package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/craftlaunch/pkg/acquire"
	"github.com/matzehuels/craftlaunch/pkg/launch"
	"github.com/matzehuels/craftlaunch/pkg/profile"
	"github.com/matzehuels/craftlaunch/pkg/progress"
)

// launchOpts holds the flags of the launch command.
type launchOpts struct {
	profile    string
	username   string
	jvmArgs    string
	java       string
	refresh    bool
	plain      bool
	details    bool
	gameOutput bool
	wait       bool
}

// launchCommand creates the launch command.
func (c *CLI) launchCommand() *cobra.Command {
	var opts launchOpts

	cmd := &cobra.Command{
		Use:   "launch <version>",
		Short: "Install what is missing and start a Minecraft version",
		Long: `Resolve the version, download its libraries, natives and startup assets,
pick a compatible Java runtime and start the game.

The player comes from --profile, --username, or the first stored profile.
The remaining assets are fetched in the background after the game starts;
the command returns once they are done.`,
		Example: `  craftlaunch launch 1.20.1 --profile Steve
  craftlaunch launch b1.7.3 --username Alex --jvm-args "-Xmx1G"
  craftlaunch launch 1.8.9 --java /opt/jdk8/bin/java`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLaunch(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.profile, "profile", "p", "", "stored profile to launch with")
	cmd.Flags().StringVarP(&opts.username, "username", "u", "", "launch with an ad-hoc profile")
	cmd.Flags().StringVar(&opts.jvmArgs, "jvm-args", "", "JVM arguments (overrides the profile)")
	cmd.Flags().StringVar(&opts.java, "java", "", "java executable (skips runtime matching)")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass cached version metadata")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "log progress lines instead of the interactive display")
	cmd.Flags().BoolVar(&opts.details, "details", false, "show the original error text on failure")
	cmd.Flags().BoolVar(&opts.gameOutput, "game-output", false, "pass the game's stdout through")
	cmd.Flags().BoolVar(&opts.wait, "wait", false, "wait for the game to exit")
	cmd.MarkFlagsMutuallyExclusive("profile", "username")
	_ = cmd.RegisterFlagCompletionFunc("profile", c.completeProfileFlag)

	return cmd
}

func (c *CLI) runLaunch(ctx context.Context, version string, opts launchOpts) error {
	logger := loggerFromContext(ctx)

	svc, err := c.openServices(ctx, opts.refresh)
	if err != nil {
		return err
	}
	defer svc.Close()

	p, err := pickProfile(svc.layout().Profiles(), opts)
	if err != nil {
		return err
	}

	var stdout io.Writer
	if opts.gameOutput {
		stdout = os.Stdout
	}
	ln, err := svc.launcher(ctx, stdout)
	if err != nil {
		return err
	}

	java := opts.java
	if java == "" {
		java = svc.cfg.JavaPath
	}
	a, err := ln.Launch(ctx, launch.Request{Version: version, Profile: p, JavaPath: java})
	if err != nil {
		return err
	}

	var res *launch.Result
	if opts.plain {
		logEvents(logger, a.Events())
		res, err = a.Wait(ctx)
	} else {
		res, err = followAttempt(ctx, a)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		fmt.Fprintln(os.Stderr, renderDialog(err, opts.details))
		return reported(err)
	}

	printSuccess("Minecraft %s is running (pid %d)", version, res.Outcome.PID)
	printDetail("java: %s", res.Java)

	if job := res.Acquired.Background; job != nil {
		waitBackground(ctx, job)
	}
	if opts.wait {
		code, err := res.Outcome.Wait(ctx)
		if err != nil {
			return err
		}
		printInfo("Minecraft exited with code %d", code)
	}
	return nil
}

// pickProfile returns the player named by the flags. Otherwise the stored
// profiles at path are offered in a picker, or the first one is used when
// the display is plain or there is only one.
func pickProfile(path string, opts launchOpts) (profile.Profile, error) {
	var p profile.Profile
	if opts.username != "" {
		p = profile.New(opts.username, opts.jvmArgs)
		return p, p.Validate()
	}

	store, err := profile.Open(path)
	if err != nil {
		return p, err
	}
	if opts.profile != "" {
		p, err = store.Get(opts.profile)
		if err != nil {
			return p, err
		}
	} else {
		list := store.List()
		switch {
		case len(list) == 0:
			return p, errors.New("no profiles yet: pass --username or run 'craftlaunch profile add <name>'")
		case len(list) == 1 || opts.plain:
			p = list[0]
		default:
			chosen, ok, err := chooseProfile(list)
			if err != nil {
				return p, err
			}
			if !ok {
				return p, context.Canceled
			}
			p = chosen
		}
	}
	if opts.jvmArgs != "" {
		p.JVMArgs = &opts.jvmArgs
	}
	return p, nil
}

// followAttempt renders the attempt until it ends. Quitting the display
// leaves the attempt running and returns context.Canceled.
func followAttempt(ctx context.Context, a *launch.Attempt) (*launch.Result, error) {
	prog := tea.NewProgram(NewLaunchModel(a), tea.WithContext(ctx), tea.WithOutput(os.Stderr))
	final, err := prog.Run()
	if err != nil {
		go drain(a.Events())
		return nil, err
	}
	m := final.(LaunchModel)
	if m.Aborted {
		go drain(a.Events())
		return nil, context.Canceled
	}
	return m.Result, m.Err
}

// logEvents logs one line per stage until the channel closes.
func logEvents(logger *log.Logger, events <-chan progress.Progress) {
	last := progress.Stage(-1)
	for p := range events {
		if p.Stage == last {
			continue
		}
		last = p.Stage
		logger.Info(p.Message, "stage", p.Stage, "percent", fmt.Sprintf("%.0f", p.Percentage()))
	}
}

// drain discards events so a detached attempt never blocks on its reporter.
func drain(events <-chan progress.Progress) {
	for range events {
	}
}

// waitBackground shows the phase 2 asset fetch until it finishes.
func waitBackground(ctx context.Context, job *acquire.Job) {
	sp := newSpinner(ctx, "Downloading remaining assets")
	sp.Start()
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-job.Done():
			stats := job.Stats()
			if failed := job.Failed(); len(failed) > 0 {
				sp.Stop()
				printWarning("%d of %d background assets failed; the game may miss sounds or textures", len(failed), job.Total())
				return
			}
			sp.StopWithSuccess(fmt.Sprintf("Assets complete (%d fetched, %d present)", stats.Fetched, stats.Present))
			return
		case <-ctx.Done():
			sp.Stop()
			printInfo("Stopped with %d assets missing; they are fetched on the next launch", job.Total()-job.Progress())
			return
		case <-ticker.C:
			sp.Update(fmt.Sprintf("Downloading remaining assets %d/%d", job.Progress(), job.Total()))
		}
	}
}

// =============================================================================
// Reported errors
// =============================================================================

// reportedError marks an error that was already shown to the user.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

func reported(err error) error { return reportedError{err} }

// IsReported reports whether err was already printed by a command.
func IsReported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}
