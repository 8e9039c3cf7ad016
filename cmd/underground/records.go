package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/DoyleJ11/underground-client/pkg/types"
	"github.com/spf13/cobra"
)

const (
	outcomeWin  = "勝利"
	outcomeLose = "落敗"
)

// filterHistory keeps the games where player's outcome matches. "all" or ""
// keeps everything.
func filterHistory(records []types.GameRecord, player, outcome string) ([]types.GameRecord, error) {
	var want string
	switch outcome {
	case "", "all":
		return records, nil
	case "win":
		want = outcomeWin
	case "lose":
		want = outcomeLose
	default:
		return nil, fmt.Errorf("invalid --outcome (want all, win or lose): %q", outcome)
	}
	out := make([]types.GameRecord, 0, len(records))
	for _, r := range records {
		if r.PlayerResults[player].Outcome == want {
			out = append(out, r)
		}
	}
	return out, nil
}

func printHistory(w io.Writer, records []types.GameRecord, player string) {
	if len(records) == 0 {
		fmt.Fprintln(w, "沒有符合的戰績")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "日期\t人數\t結果\t角色\t勝負")
	for _, r := range records {
		me := r.PlayerResults[player]
		date := "-"
		if !r.PlayDate.IsZero() {
			date = r.PlayDate.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", date, r.PlayerCount, r.Result, me.Role, me.Outcome)
	}
	_ = tw.Flush()
}

func newRecordsCmd(a *app) *cobra.Command {
	var outcome string
	cmd := &cobra.Command{
		Use:   "records [player]",
		Short: "Show win rate and game history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var player string
			if len(args) == 1 {
				player = args[0]
			} else {
				p, err := a.player(ctx)
				if err != nil {
					return err
				}
				player = p
			}

			stats, err := a.api.PlayerStats(ctx, player)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			history, err := a.api.PlayerRecords(ctx, player)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			history, err = filterHistory(history, player, outcome)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s：共 %d 場，勝 %d 場，勝率 %.1f%%\n", player, stats.TotalGames, stats.Wins, stats.WinRate)
			printHistory(out, history, player)
			return nil
		},
	}
	cmd.Flags().StringVar(&outcome, "outcome", "all", "all, win or lose")
	return cmd
}
