package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/telekom/gh-scoped-creds/pkg/ghcreds/config"
	"github.com/telekom/gh-scoped-creds/pkg/ghcreds/output"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage gh-scoped-creds configuration",
	}

	cmd.AddCommand(
		newConfigInitCommand(),
		newConfigViewCommand(),
	)

	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		values config.Config
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a gh-scoped-creds config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			path := rt.configPath
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("config already exists: %s (use --force to overwrite)", path)
				} else if !errors.Is(err, os.ErrNotExist) {
					return err
				}
			}
			cfg := config.DefaultConfig()
			cfg.ClientID = values.ClientID
			cfg.GitHubAppURL = values.GitHubAppURL
			cfg.Mode = values.Mode
			cfg.GitCredentialsPath = values.GitCredentialsPath
			if values.Display != "" {
				cfg.Display = values.Display
			}
			cfg.NoBrowser = values.NoBrowser
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := config.Save(path, &cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Initialized config at %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&values.ClientID, "client-id", "", "Client ID of the GitHub App")
	cmd.Flags().StringVar(&values.GitHubAppURL, "github-app-url", "", "URL where users manage the app's repository access")
	cmd.Flags().StringVar(&values.Mode, "mode", "", "Where to store the credential: file or git-config")
	cmd.Flags().StringVar(&values.GitCredentialsPath, "git-credentials-path", "", "Path of the git-credentials file written in file mode")
	cmd.Flags().StringVar(&values.Display, "display", "", "Display style: auto, plain or rich")
	cmd.Flags().BoolVar(&values.NoBrowser, "no-browser", false, "Never offer to open a browser")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config")

	return cmd
}

func newConfigViewCommand() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Show the effective configuration after applying environment variables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if rt.cfg == nil {
				return errors.New("config not loaded")
			}
			format := output.FormatYAML
			if outputFormat != "" {
				if format, err = output.ParseFormat(outputFormat); err != nil {
					return err
				}
			}
			return output.WriteObject(rt.Writer(), format, rt.cfg)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format: yaml, json")

	return cmd
}
