package cmd

import (
	"github.com/spf13/cobra"

	"github.com/telekom/gh-scoped-creds/pkg/ghcreds/output"
	"github.com/telekom/gh-scoped-creds/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show gh-scoped-creds version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := output.ParseFormat(outputFormat)
			if err != nil {
				return err
			}
			writer := cmd.OutOrStdout()
			if rt, _ := getRuntime(cmd); rt != nil {
				writer = rt.Writer()
			}
			return output.WriteObject(writer, format, version.Get())
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format: text, json, yaml")

	return cmd
}
