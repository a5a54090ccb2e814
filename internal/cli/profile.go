package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/matzehuels/craftlaunch/pkg/profile"
	"github.com/matzehuels/craftlaunch/pkg/supervise"
)

// profileCommand creates the profile command with its subcommands.
func (c *CLI) profileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profile",
		Aliases: []string{"profiles"},
		Short:   "Manage player profiles",
		Long: `Manage the stored player profiles. A profile is a username plus optional JVM
arguments; profiles without JVM arguments launch with "` + supervise.DefaultJVMArgs + `".`,
	}

	cmd.AddCommand(c.profileListCommand())
	cmd.AddCommand(c.profileAddCommand())
	cmd.AddCommand(c.profileEditCommand())
	cmd.AddCommand(c.profileRemoveCommand())

	return cmd
}

func (c *CLI) profileListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored profiles",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openProfiles()
			if err != nil {
				return err
			}
			list := store.List()
			if len(list) == 0 {
				printInfo("No profiles yet")
				printDetail("Add one with: craftlaunch profile add <username>")
				return nil
			}
			t := newTable("Username", "JVM arguments")
			for _, p := range list {
				args := p.Args()
				if args == "" {
					args = StyleDim.Render("default")
				}
				t.Row(p.Username, args)
			}
			printTable(cmd.OutOrStdout(), t)
			return nil
		},
	}
}

func (c *CLI) profileAddCommand() *cobra.Command {
	var jvmArgs string

	cmd := &cobra.Command{
		Use:     "add <username>",
		Short:   "Add a profile",
		Example: `  craftlaunch profile add Steve --jvm-args "-Xmx4G -Xms1G"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openProfiles()
			if err != nil {
				return err
			}
			if err := store.Add(profile.New(args[0], jvmArgs)); err != nil {
				return err
			}
			printSuccess("Added profile %s", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&jvmArgs, "jvm-args", "", "JVM arguments for this profile")
	return cmd
}

func (c *CLI) profileEditCommand() *cobra.Command {
	var (
		rename    string
		jvmArgs   string
		clearArgs bool
	)

	cmd := &cobra.Command{
		Use:               "edit <username>",
		Short:             "Rename a profile or change its JVM arguments",
		ValidArgsFunction: c.completeProfiles,
		Example: `  craftlaunch profile edit Steve --username Alex
  craftlaunch profile edit Steve --clear-jvm-args`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rename == "" && !cmd.Flags().Changed("jvm-args") && !clearArgs {
				return errors.New("nothing to change: pass --username, --jvm-args or --clear-jvm-args")
			}
			store, err := c.openProfiles()
			if err != nil {
				return err
			}
			p, err := store.Get(args[0])
			if err != nil {
				return err
			}
			if rename != "" {
				p.Username = rename
			}
			switch {
			case clearArgs:
				p.JVMArgs = nil
			case cmd.Flags().Changed("jvm-args"):
				p = profile.New(p.Username, jvmArgs)
			}
			if err := store.Update(args[0], p); err != nil {
				return err
			}
			printSuccess("Updated profile %s", p.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&rename, "username", "", "new username")
	cmd.Flags().StringVar(&jvmArgs, "jvm-args", "", "new JVM arguments")
	cmd.Flags().BoolVar(&clearArgs, "clear-jvm-args", false, "use the default JVM arguments")
	cmd.MarkFlagsMutuallyExclusive("jvm-args", "clear-jvm-args")

	return cmd
}

func (c *CLI) profileRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "remove <username>",
		Aliases:           []string{"rm"},
		Short:             "Remove a profile",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeProfiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openProfiles()
			if err != nil {
				return err
			}
			if err := store.Remove(args[0]); err != nil {
				return err
			}
			printSuccess("Removed profile %s", args[0])
			return nil
		},
	}
}
