package cmd

import (
	"io"
	"sort"

	"github.com/spf13/cobra"
)

type completionGenerator func(root *cobra.Command, w io.Writer) error

var completionGenerators = map[string]completionGenerator{
	"bash": func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":  func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish": func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error {
		return root.GenPowerShellCompletionWithDesc(w)
	},
}

func completionShells() []string {
	shells := make([]string, 0, len(completionGenerators))
	for shell := range completionGenerators {
		shells = append(shells, shell)
	}
	sort.Strings(shells)
	return shells
}

// NewCompletionCommand prints a completion script for gh-scoped-creds, e.g.
// `source <(gh-scoped-creds completion bash)`.
func NewCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|fish|powershell|zsh]",
		Short:                 "Generate shell completion",
		DisableFlagsInUseLine: true,
		ValidArgs:             completionShells(),
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			return completionGenerators[args[0]](cmd.Root(), rt.Writer())
		},
	}
}
