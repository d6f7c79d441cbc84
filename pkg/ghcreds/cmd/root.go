package cmd

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"k8s.io/utils/clock"

	"github.com/telekom/gh-scoped-creds/pkg/ghcreds/auth"
	"github.com/telekom/gh-scoped-creds/pkg/ghcreds/config"
	"github.com/telekom/gh-scoped-creds/pkg/ghcreds/credential"
	"github.com/telekom/gh-scoped-creds/pkg/ghcreds/display"
)

type Config struct {
	ConfigPath   string
	OutputWriter io.Writer
	ErrWriter    io.Writer
	InputReader  io.Reader

	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)

	// Overrides for the collaborators of a run. Zero values select the real
	// implementations.
	Endpoint   oauth2.Endpoint
	HTTPClient *http.Client
	Clock      clock.PassiveClock
	Sleep      auth.SleepFunc
	Git        credential.GitConfigurer
	GitDir     string
	Presenter  display.Presenter
	Logger     *zap.Logger
}

type flagValues struct {
	clientID            string
	appURL              string
	mode                string
	gitCredentialsPath  string
	display             string
	noBrowser           bool
	maxTransportRetries int
	metricsTextfile     string
}

type runtimeState struct {
	opts       Config
	configPath string
	envFile    string
	verbose    bool
	flags      flagValues
	cfg        *config.Config
	writer     io.Writer
	errWriter  io.Writer
	log        *zap.SugaredLogger
	syncLog    func() error
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		ConfigPath:   config.DefaultConfigPath(),
		OutputWriter: os.Stdout,
		ErrWriter:    os.Stderr,
		InputReader:  os.Stdin,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{opts: cfg, configPath: cfg.ConfigPath, writer: cfg.OutputWriter, errWriter: cfg.ErrWriter}

	root := &cobra.Command{
		Use:   "gh-scoped-creds",
		Short: "Provide narrowly scoped, short-lived GitHub credentials for git",
		Long: "Authenticate to a GitHub App with the OAuth device flow and store the resulting\n" +
			"user token so that git can push and pull over HTTPS without prompting.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.errWriter == nil {
				rt.errWriter = os.Stderr
			}
			if rt.configPath == "" {
				rt.configPath = config.DefaultConfigPath()
			}
			rt.setupLogger()
			if cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}
			// config init must work even when the existing file is broken
			if cmd.Name() == "init" && cmd.Parent() != nil && cmd.Parent().Name() == "config" {
				return nil
			}
			if err := config.LoadEnvFile(rt.envFile); err != nil {
				return err
			}
			return rt.loadConfig(cmd.Root())
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			rt.closeLogger()
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer rt.closeLogger()
			return rt.runFlow(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&rt.configPath, "config", rt.configPath, "Path to config file (env "+config.EnvConfigPath+")")
	pf.StringVar(&rt.envFile, "env-file", "", "Load environment variables from this .env file before resolving settings")
	pf.BoolVarP(&rt.verbose, "verbose", "v", false, "Enable debug logging on stderr")

	f := root.Flags()
	f.StringVar(&rt.flags.clientID, "client-id", "", "Client ID of the GitHub App to authenticate with as the user (env "+config.EnvClientID+")")
	f.StringVar(&rt.flags.appURL, "github-app-url", "", "URL where users can install the app and grant repository access (env "+config.EnvAppURL+")")
	f.StringVar(&rt.flags.mode, "mode", "", "Where to store the credential: file or git-config (default: file when --git-credentials-path is set, git-config otherwise)")
	f.StringVar(&rt.flags.gitCredentialsPath, "git-credentials-path", "", "Path of the git-credentials file written in file mode; current contents are overwritten (default "+credential.DefaultPath+")")
	f.StringVar(&rt.flags.display, "display", "", "Display style: auto, plain or rich")
	f.BoolVar(&rt.flags.noBrowser, "no-browser", false, "Never offer to open the verification page in a browser")
	f.IntVar(&rt.flags.maxTransportRetries, "max-transport-retries", 0, "Consecutive network failures tolerated while polling (0 selects the default, negative disables retries)")
	f.StringVar(&rt.flags.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics of this run to the given file")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))
	if cfg.OutputWriter != nil {
		root.SetOut(cfg.OutputWriter)
	}
	if cfg.ErrWriter != nil {
		root.SetErr(cfg.ErrWriter)
	}
	if cfg.InputReader != nil {
		root.SetIn(cfg.InputReader)
	}

	root.AddCommand(
		NewConfigCommand(),
		NewCompletionCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

// loadConfig merges the config file, the environment and the flags that were
// set explicitly, in increasing order of precedence.
func (rt *runtimeState) loadConfig(root *cobra.Command) error {
	cfg, err := config.LoadOrDefault(rt.configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(rt.opts.LookupEnv); err != nil {
		return err
	}
	f := root.Flags()
	if f.Changed("client-id") {
		cfg.ClientID = rt.flags.clientID
	}
	if f.Changed("github-app-url") {
		cfg.GitHubAppURL = rt.flags.appURL
	}
	if f.Changed("mode") {
		cfg.Mode = rt.flags.mode
	}
	if f.Changed("git-credentials-path") {
		cfg.GitCredentialsPath = rt.flags.gitCredentialsPath
	}
	if f.Changed("display") {
		cfg.Display = rt.flags.display
	}
	if f.Changed("no-browser") {
		cfg.NoBrowser = rt.flags.noBrowser
	}
	if f.Changed("max-transport-retries") {
		cfg.MaxTransportRetries = rt.flags.maxTransportRetries
	}
	if f.Changed("metrics-textfile") {
		cfg.MetricsTextfile = rt.flags.metricsTextfile
	}
	rt.cfg = cfg
	rt.log.Debugw("Configuration resolved",
		"configPath", rt.configPath,
		"mode", cfg.ResolvedMode(),
		"display", cfg.Display)
	return nil
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) ErrWriter() io.Writer {
	if rt.errWriter != nil {
		return rt.errWriter
	}
	return os.Stderr
}

func (rt *runtimeState) input() io.Reader {
	if rt.opts.InputReader != nil {
		return rt.opts.InputReader
	}
	return os.Stdin
}
