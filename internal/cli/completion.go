package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

type CompletionCommand struct {
	root *cobra.Command
	cmd  *cobra.Command
}

func NewCompletionCommand(root *cobra.Command) *CompletionCommand {
	return &CompletionCommand{root: root}
}

func (c *CompletionCommand) Meta() *cobra.Command {
	if c.cmd == nil {
		c.cmd = &cobra.Command{
			Use:       "completion [bash|zsh|fish|powershell]",
			Short:     "Generate completion script",
			Long:      "Generate completion script for bash, zsh, fish or powershell",
			Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
			ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		}
	}
	return c.cmd
}

func (c *CompletionCommand) Execute(cmd *cobra.Command, args []string) error {
	shell := "bash"
	if len(args) > 0 {
		shell = args[0]
	}
	// source <(fsblock completion zsh)
	switch shell {
	case "bash":
		return c.root.GenBashCompletion(cmd.OutOrStdout())
	case "zsh":
		return c.root.GenZshCompletion(cmd.OutOrStdout())
	case "fish":
		return c.root.GenFishCompletion(cmd.OutOrStdout(), true)
	case "powershell":
		return c.root.GenPowerShellCompletion(cmd.OutOrStdout())
	default:
		return fmt.Errorf("unsupported shell: %s", shell)
	}
}
