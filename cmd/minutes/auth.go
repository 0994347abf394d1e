package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwulff/minutes/internal/roles"
	"github.com/jwulff/minutes/internal/session"
)

func newLoginCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the user locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			p := newPrompter(cmd)
			if email == "" {
				if email, err = p.line("Email: "); err != nil {
					return err
				}
			}
			password, err := p.secret("Password: ")
			if err != nil {
				return err
			}

			u, err := e.gate.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s [%s]\n", u.FullName(), roles.FromInt(u.Role).Badge())
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "email address (prompted when empty)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the locally stored user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.gate.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			u, err := e.user()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:  %s\n", u.FullName())
			fmt.Fprintf(out, "Email: %s\n", u.Email)
			fmt.Fprintf(out, "Role:  %s\n", roles.FromInt(u.Role).Badge())
			return nil
		},
	}
}

func newPasswdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change the signed-in user's password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			if _, err := e.user(); err != nil {
				return err
			}
			p := newPrompter(cmd)
			current, err := p.secret("Current password: ")
			if err != nil {
				return err
			}
			next, err := p.secret("New password: ")
			if err != nil {
				return err
			}
			confirm, err := p.secret("Confirm password: ")
			if err != nil {
				return err
			}

			if err := e.gate.ChangePassword(cmd.Context(), current, next, confirm); err != nil {
				if errors.Is(err, session.ErrNotAuthenticated) {
					return errNotLoggedIn
				}
				return errors.New(session.PasswordChangeMessage(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password changed successfully")
			return nil
		},
	}
}
