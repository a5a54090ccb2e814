package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for craftlaunch.

  bash:        source <(craftlaunch completion bash)
  zsh:         craftlaunch completion zsh > "${fpath[1]}/_craftlaunch"
  fish:        craftlaunch completion fish > ~/.config/fish/completions/craftlaunch.fish
  powershell:  craftlaunch completion powershell | Out-String | Invoke-Expression

Profile names complete from the stored profiles.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(os.Stdout, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
}

// completeProfiles suggests stored usernames for the first argument.
func (c *CLI) completeProfiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return c.profileNames(), cobra.ShellCompDirectiveNoFileComp
}

// completeProfileFlag suggests stored usernames for --profile.
func (c *CLI) completeProfileFlag(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return c.profileNames(), cobra.ShellCompDirectiveNoFileComp
}

func (c *CLI) profileNames() []string {
	store, err := c.openProfiles()
	if err != nil {
		return nil
	}
	var names []string
	for _, p := range store.List() {
		names = append(names, p.Username)
	}
	return names
}
