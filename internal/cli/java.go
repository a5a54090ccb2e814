package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// javaCommand creates the java command.
func (c *CLI) javaCommand() *cobra.Command {
	var (
		require int
		strict  bool
	)

	cmd := &cobra.Command{
		Use:   "java",
		Short: "List installed Java runtimes",
		Long: `List the Java runtimes found on this machine. With --require, also show the
runtime a launch needing that major version would use.`,
		Example: `  craftlaunch java
  craftlaunch java --require 8 --strict`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			svc := &services{cfg: cfg, logger: c.Logger}
			matcher := svc.runtimes()

			sp := newSpinner(ctx, "Searching for Java runtimes")
			sp.Start()
			found := matcher.FindAll(ctx)
			sp.Stop()

			if len(found) == 0 {
				printWarning("No Java runtimes found")
				printDetail("Install a JDK or set java_path in %s", cfg.Layout().Config())
			} else {
				t := newTable("Major", "Version", "Path")
				for _, cand := range found {
					t.Row(strconv.Itoa(cand.Major), cand.Version, cand.Path)
				}
				printTable(cmd.OutOrStdout(), t)
			}

			if require > 0 {
				mode := "or newer"
				if strict {
					mode = "exactly"
				}
				if path, ok := matcher.FindCompatible(ctx, require, strict); ok {
					printSuccess("Java %d (%s): %s", require, mode, path)
				} else {
					printError("No runtime satisfies Java %d (%s)", require, mode)
				}
			}
			if cfg.JavaPath != "" {
				printInfo("java_path in config overrides matching: %s", cfg.JavaPath)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&require, "require", 0, "show the runtime picked for this major version")
	cmd.Flags().BoolVar(&strict, "strict", false, "require exactly that major version")

	return cmd
}
