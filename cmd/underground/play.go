package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/DoyleJ11/underground-client/internal/broadcast"
	"github.com/DoyleJ11/underground-client/internal/engine"
	"github.com/DoyleJ11/underground-client/internal/phase"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) timings() phase.Timings {
	t := phase.DefaultTimings()
	t.VoteCountdown = a.cfg.VoteCountdown
	t.SkillCountdown = a.cfg.SkillCountdown
	t.ResultPoll = a.cfg.ResultPoll
	t.ResultBudget = a.cfg.ResultBudget
	t.RoomPoll = a.cfg.RoomPoll
	t.LobbyPoll = a.cfg.LobbyPoll
	t.VoteNavDelay = a.cfg.VoteNavDelay
	t.SkillNavDelay = a.cfg.SkillNavDelay
	return t
}

func newPlayCmd(a *app) *cobra.Command {
	var (
		page   string
		filter string
	)
	cmd := &cobra.Command{
		Use:   "play [room-id]",
		Short: "Play from the lobby, or from a room's page",
		Long: "Without a room id play starts in the lobby. With one it starts on --page,\n" +
			"the waiting room by default, so a dropped client can rejoin mid game.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			me, err := a.player(ctx)
			if err != nil {
				return err
			}

			start := engine.Navigation{Page: engine.PageLobby}
			if len(args) == 1 {
				start = engine.Navigation{Page: engine.PageRoom, RoomID: args[0]}
			}
			if page != "" {
				p, ok := engine.ParsePage(page)
				if !ok {
					return fmt.Errorf("invalid --page: %q", page)
				}
				start.Page = p
			}

			wsURL, err := broadcast.WebSocketURL(a.cfg.ServerURL, a.cfg.WSPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var decider phase.Decider = phase.NewPrompter(a.in, out)
			if a.cfg.Auto {
				decider = phase.NewAutoDecider(a.cfg.Seed)
			}

			r := &phase.Runner{
				Session: phase.Session{
					API:     a.api,
					Flags:   a.store,
					Decider: decider,
					View:    phase.NewTerminal(out),
					Player:  me,
					Timings: a.timings(),
					Log:     a.log,
				},
				Dial: func(ctx context.Context) (phase.Feed, error) {
					c, err := broadcast.Dial(ctx, wsURL, a.log)
					if err != nil {
						return nil, err
					}
					return c, nil
				},
				Filter: filter,
			}
			a.log.Info("play", zap.String("player", me), zap.String("page", string(start.Page)), zap.String("room", start.RoomID))
			if err := r.Run(ctx, start); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&page, "page", "", "page to start on: room, game-start, front-page, vote, mission, skill, game-end")
	fs.StringVar(&filter, "filter", "", "only list lobby rooms whose name contains this")
	return cmd
}
