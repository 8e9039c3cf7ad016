package main

import (
	"errors"
	"fmt"

	"github.com/DoyleJ11/underground-client/internal/engine"
	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username> <password>",
		Short: "Log in and remember the player name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := a.api.Login(ctx, args[0], args[1])
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if !res.Success {
				return errors.New(res.Message)
			}
			if err := a.store.SetPlayer(ctx, args[0]); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
}

func newRegisterCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "register <username> <password>",
		Short: "Create an account (letters and digits only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := engine.ValidateUsername(args[0]); err != nil {
				return err
			}
			res, err := a.api.Register(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("register: %w", err)
			}
			if !res.Success {
				return errors.New(res.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
}

func newHintCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hint <username>",
		Short: "Show the password hint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hint, err := a.api.PasswordHint(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("hint: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "密碼提示：%s\n", hint)
			return nil
		},
	}
}

func newPasswdCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <username> <new-password>",
		Short: "Change a password",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.api.ChangePassword(cmd.Context(), args[0], args[1]); err != nil {
				return fmt.Errorf("passwd: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "密碼已更新")
			return nil
		},
	}
}
