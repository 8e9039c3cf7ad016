package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/DoyleJ11/underground-client/internal/api"
	"github.com/DoyleJ11/underground-client/internal/tracker"
	"github.com/DoyleJ11/underground-client/pkg/types"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	minPlayers = 5
	maxPlayers = 10
	qrSize     = 320
)

func printRooms(w io.Writer, rooms []types.Room) {
	if len(rooms) == 0 {
		fmt.Fprintln(w, "目前沒有公開房間")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\t房間名稱\t人數\t狀態")
	for _, r := range rooms {
		status := "等待中"
		switch {
		case r.Started:
			status = "遊戲中"
		case r.Full():
			status = "已滿"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\n", r.ID, r.RoomName, len(r.Players), r.PlayerCount, status)
	}
	_ = tw.Flush()
}

func newRoomsCmd(a *app) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "rooms [name-filter]",
		Short: "List public rooms",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			filter := ""
			if len(args) == 1 {
				filter = args[0]
			}
			out := cmd.OutOrStdout()

			if !watch {
				rooms, err := tracker.LobbyFetcher(a.api)(ctx)
				if err != nil {
					return fmt.Errorf("rooms: %w", err)
				}
				printRooms(out, tracker.FilterByName(rooms, filter))
				return nil
			}

			tr := tracker.New(ctx, tracker.LobbyFetcher(a.api), a.cfg.LobbyPoll, a.log)
			defer tr.Stop()
			for {
				_, snaps := tr.Watch(4)
				for snap := range snaps {
					fmt.Fprintf(out, "--- v%d\n", snap.Version)
					printRooms(out, tracker.FilterByName(snap.State, filter))
				}
				if ctx.Err() != nil {
					return nil
				}
				// dropped for falling behind
				a.log.Debug("rewatch lobby")
			}
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep listing as rooms change")
	return cmd
}

func newCreateCmd(a *app) *cobra.Command {
	var (
		players  int
		private  bool
		password string
	)
	cmd := &cobra.Command{
		Use:   "create <room-name>",
		Short: "Create a room and join it as host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if players < minPlayers || players > maxPlayers {
				return fmt.Errorf("invalid --players (must be between %d-%d inclusive): %d", minPlayers, maxPlayers, players)
			}
			req := types.CreateRoomRequest{RoomName: strings.TrimSpace(args[0]), PlayerCount: players, RoomType: types.RoomPublic}
			if req.RoomName == "" {
				return errors.New("room name cannot be empty")
			}
			if private {
				if password == "" {
					return errors.New("--private needs --password")
				}
				req.RoomType, req.RoomPassword = types.RoomPrivate, password
			}
			me, err := a.player(ctx)
			if err != nil {
				return err
			}

			room, err := a.api.CreateRoom(ctx, me, req)
			if err != nil {
				return fmt.Errorf("create: %s", api.UserMessage(err))
			}
			if err := a.store.SetRoomName(ctx, room.ID, room.RoomName); err != nil {
				a.log.Warn("store room name", zap.Error(err))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "已建立 %s (%s)\n", room.RoomName, room.ID)
			fmt.Fprintf(out, "邀請連結：%s\n", roomLink(a.cfg.ServerURL, room.ID))
			return nil
		},
	}
	fs := cmd.Flags()
	fs.IntVarP(&players, "players", "n", minPlayers, "room size")
	fs.BoolVar(&private, "private", false, "join by link and password only")
	fs.StringVar(&password, "password", "", "password for a private room")
	return cmd
}

func newJoinCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "join <room-id>",
		Short: "Join a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			me, err := a.player(ctx)
			if err != nil {
				return err
			}
			res, err := a.api.JoinRoom(ctx, args[0], me, password)
			if err != nil {
				return fmt.Errorf("join: %s", api.UserMessage(err))
			}
			if !res.Success {
				return errors.New(res.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password for a private room")
	return cmd
}

func newExitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exit <room-id>",
		Short: "Leave a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			me, err := a.player(ctx)
			if err != nil {
				return err
			}
			res, err := a.api.ExitRoom(ctx, args[0], me)
			if err != nil {
				return fmt.Errorf("exit: %s", api.UserMessage(err))
			}
			if err := a.store.ForgetRoom(ctx, args[0]); err != nil {
				a.log.Warn("forget room", zap.Error(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
}

func roomLink(server, roomID string) string {
	return strings.TrimRight(server, "/") + "/room/" + roomID
}

func newShareCmd(a *app) *cobra.Command {
	var png string
	cmd := &cobra.Command{
		Use:   "share <room-id>",
		Short: "Print a room's invite link as a QR code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			link := roomLink(a.cfg.ServerURL, args[0])
			if png != "" {
				if err := qrcode.WriteFile(link, qrcode.Medium, qrSize, png); err != nil {
					return fmt.Errorf("qr: %w", err)
				}
			}
			q, err := qrcode.New(link, qrcode.Medium)
			if err != nil {
				return fmt.Errorf("qr: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, q.ToSmallString(false))
			fmt.Fprintln(out, link)
			return nil
		},
	}
	cmd.Flags().StringVar(&png, "png", "", "also write the QR code to this PNG file")
	return cmd
}
