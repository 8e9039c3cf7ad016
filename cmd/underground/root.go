package main

import (
	"context"
	"fmt"
	"io"

	"github.com/DoyleJ11/underground-client/internal/api"
	"github.com/DoyleJ11/underground-client/internal/config"
	"github.com/DoyleJ11/underground-client/internal/phase"
	"github.com/DoyleJ11/underground-client/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// app is what every subcommand shares once flags are parsed.
type app struct {
	cfg   config.Config
	in    io.Reader
	log   *zap.Logger
	api   *api.Client
	store *store.Store
	// envFiles overrides the default .env lookup in tests.
	envFiles []string
}

func newApp(in io.Reader) *app {
	return &app{cfg: config.Default(), in: in, log: zap.NewNop()}
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := config.Load(cmd.Root().PersistentFlags(), a.envFiles...); err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	log, err := a.cfg.Logger()
	if err != nil {
		return err
	}
	a.log = log
	a.api = api.NewClient(api.Config{BaseURL: a.cfg.ServerURL, Timeout: a.cfg.RequestTimeout}, log)

	st, err := store.Open(a.cfg.DSN, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.store = st
	log.Debug("ready", zap.String("server", a.cfg.ServerURL), zap.String("dsn", a.cfg.DSN))
	return nil
}

func (a *app) close() {
	var err error
	if a.store != nil {
		err = multierr.Append(err, a.store.Close())
		a.store = nil
	}
	// Sync fails on terminals; nothing to do about it.
	_ = a.log.Sync()
	if err != nil {
		a.log.Warn("shutdown", zap.Error(err))
	}
}

// player is --player, or whoever last logged in.
func (a *app) player(ctx context.Context) (string, error) {
	if a.cfg.Player != "" {
		return a.cfg.Player, nil
	}
	p, err := a.store.Player(ctx)
	if err != nil {
		return "", err
	}
	if p == "" {
		return "", phase.ErrNoPlayer
	}
	return p, nil
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "underground",
		Short:         "Terminal client for the Underground social deduction game.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	a.cfg.Register(cmd.PersistentFlags())

	cmd.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newHintCmd(a),
		newPasswdCmd(a),
		newRoomsCmd(a),
		newCreateCmd(a),
		newJoinCmd(a),
		newExitCmd(a),
		newShareCmd(a),
		newRecordsCmd(a),
		newPlayCmd(a),
	)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("underground v{{.Version}}\n")
	return cmd
}
