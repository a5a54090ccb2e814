package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/matzehuels/craftlaunch/pkg/acquire"
	"github.com/matzehuels/craftlaunch/pkg/fetch"
	"github.com/matzehuels/craftlaunch/pkg/platform"
	"github.com/matzehuels/craftlaunch/pkg/resolve"
	"github.com/matzehuels/craftlaunch/pkg/supervise"
)

// plan is the YAML document printed by the resolve command.
type plan struct {
	Version   string               `yaml:"version"`
	Platform  string               `yaml:"platform"`
	Counts    planCounts           `yaml:"counts"`
	Artifacts *resolve.ArtifactSet `yaml:"artifacts"`
	Command   supervise.Command    `yaml:"command"`
}

type planCounts struct {
	Libraries        int `yaml:"libraries"`
	Natives          int `yaml:"natives"`
	Assets           int `yaml:"assets"`
	StartupAssets    int `yaml:"startup_assets"`
	BackgroundAssets int `yaml:"background_assets"`
}

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	var (
		osName   string
		username string
		java     string
		output   string
		assets   bool
		refresh  bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <version>",
		Short: "Print what a launch would download and run, without doing it",
		Long: `Resolve a version into its artifact set and the command line that would start it,
and print both as YAML. Nothing besides version metadata and the asset index is downloaded.`,
		Example: `  craftlaunch resolve 1.20.1
  craftlaunch resolve 1.8.9 --os windows --assets -o plan.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p := platform.Current()
			if osName != "" {
				if p = platform.Parse(osName); p == platform.Unknown {
					return fmt.Errorf("unknown platform %q (want windows, linux or osx)", osName)
				}
			}

			svc, err := c.openServices(ctx, refresh)
			if err != nil {
				return err
			}
			defer svc.Close()

			sp := newSpinner(ctx, "Resolving "+args[0])
			sp.Start()
			d, err := svc.catalog.Lookup(ctx, args[0])
			if err != nil {
				sp.Stop()
				return err
			}
			set, err := svc.resolver(fetch.New(fetch.WithLogger(svc.logger)), resolve.WithPlatform(p)).Resolve(ctx, d)
			sp.Stop()
			if err != nil {
				return err
			}

			if java == "" {
				java = p.JavaExecutable()
			}
			now, later := acquire.Split(set.Assets, acquire.RequiredAssets)
			doc := plan{
				Version:  set.VersionID,
				Platform: p.String(),
				Counts: planCounts{
					Libraries:        len(set.Libraries),
					Natives:          len(set.Natives),
					Assets:           len(set.Assets),
					StartupAssets:    len(now),
					BackgroundAssets: len(later),
				},
				Artifacts: set,
				Command: supervise.BuildCommand(supervise.LaunchSpec{
					Java:       java,
					VersionID:  set.VersionID,
					MainClass:  set.MainClass,
					Username:   username,
					Classpath:  set.Classpath(),
					NativesDir: set.NativesDir(),
					GameDir:    svc.layout().GameDir(),
					AssetsDir:  set.AssetsDir(),
					AssetIndex: set.Index.ID,
					Platform:   p,
				}),
			}
			if !assets {
				set.Assets = nil
			}

			data, err := yaml.Marshal(doc)
			if err != nil {
				return fmt.Errorf("encode plan: %w", err)
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			printSuccess("Wrote plan for %s", set.VersionID)
			printDetail("%s", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&osName, "os", "", "resolve for another platform (windows, linux, osx)")
	cmd.Flags().StringVarP(&username, "username", "u", "Player", "username placed on the command line")
	cmd.Flags().StringVar(&java, "java", "", "java executable placed on the command line")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the plan to a file instead of stdout")
	cmd.Flags().BoolVar(&assets, "assets", false, "include every asset object in the plan")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass cached version metadata")

	return cmd
}
