package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/telekom/gh-scoped-creds/pkg/ghcreds/auth"
	"github.com/telekom/gh-scoped-creds/pkg/ghcreds/credential"
	"github.com/telekom/gh-scoped-creds/pkg/ghcreds/display"
	"github.com/telekom/gh-scoped-creds/pkg/metrics"
)

// runFlow authenticates, stores the credential and reports the outcome.
func (rt *runtimeState) runFlow(ctx context.Context) error {
	cfg := rt.cfg
	if cfg == nil {
		return errors.New("config not loaded")
	}
	if err := cfg.RequireClientID(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.MetricsTextfile != "" {
		defer func() {
			if werr := metrics.WriteTextfile(cfg.MetricsTextfile); werr != nil {
				rt.log.Warnw("Could not write metrics textfile", "path", cfg.MetricsTextfile, "error", werr)
			}
		}()
	}

	presenter, err := rt.presenter()
	if err != nil {
		return err
	}
	authenticator, err := auth.NewAuthenticator(auth.Config{
		ClientID:            cfg.ClientID,
		Endpoint:            rt.opts.Endpoint,
		HTTPClient:          rt.opts.HTTPClient,
		Presenter:           presenter,
		Logger:              rt.log,
		Clock:               rt.opts.Clock,
		Sleep:               rt.opts.Sleep,
		MaxTransportRetries: cfg.MaxTransportRetries,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	token, err := authenticator.Authenticate(ctx)
	if err != nil {
		rt.log.Debugw("Device flow failed", "error", err)
		return err
	}

	sink := rt.sink()
	result, err := sink.Persist(ctx, token.Token)
	if err != nil {
		var perr *credential.PersistenceError
		if errors.As(err, &perr) {
			_, _ = fmt.Fprintf(rt.ErrWriter(), "Could not store the credential. Add this line to a git-credentials store file to use it:\n%s", credential.Line(token.Token))
		}
		return err
	}
	rt.log.Infow("Credential stored", "mode", result.Mode, "path", result.Path)

	display.Report(presenter, token.ExpiresIn, cfg.GitHubAppURL)
	return nil
}

func (rt *runtimeState) presenter() (display.Presenter, error) {
	if rt.opts.Presenter != nil {
		return rt.opts.Presenter, nil
	}
	return display.New(rt.cfg.Display, display.Options{
		Out:       rt.Writer(),
		In:        rt.input(),
		NoBrowser: rt.cfg.NoBrowser,
	})
}

func (rt *runtimeState) sink() credential.Sink {
	if rt.cfg.ResolvedMode() == credential.ModeFile {
		return &credential.FileSink{Path: rt.cfg.CredentialsPath(), Logger: rt.log}
	}
	git := rt.opts.Git
	if git == nil {
		git = credential.ExecGitConfig{}
	}
	return &credential.GitConfigSink{Dir: rt.opts.GitDir, Git: git, Logger: rt.log}
}
