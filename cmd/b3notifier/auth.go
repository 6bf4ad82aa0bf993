package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/b3notifier/internal/models"
	"github.com/bobmcallan/b3notifier/internal/services/report"
)

func newRegisterCmd(opts *globalOpts) *cobra.Command {
	var email, username string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account (or reset its password) with an emailed code",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			p := newPrompter(cmd)

			if email, err = p.askIfEmpty(email, "Email"); err != nil {
				return err
			}
			sent, err := a.Registration.SendOTP(ctx, email)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, sent.Message)
			if sent.UserExists {
				_, _ = fmt.Fprintln(out, "An account already uses this email; registering will update it.")
			}

			otp, err := p.ask("Code")
			if err != nil {
				return err
			}
			if err := a.Registration.VerifyOTP(ctx, email, otp); err != nil {
				return err
			}

			if username, err = p.askIfEmpty(username, "Username"); err != nil {
				return err
			}
			password, err := p.askSecret("Password")
			if err != nil {
				return err
			}
			confirm, err := p.askSecret("Confirm password")
			if err != nil {
				return err
			}

			res, err := a.Registration.Register(ctx, models.Registration{
				Username:        username,
				Email:           email,
				Password:        password,
				ConfirmPassword: confirm,
			})
			if err != nil {
				return err
			}
			verb := "updated"
			if res.Created {
				verb = "created"
			}
			_, _ = fmt.Fprintf(out, "Account %s. Log in with `b3notifier login --username %s`.\n", verb, username)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&username, "username", "", "account username")
	return cmd
}

func newLoginCmd(opts *globalOpts) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in; the session is shared by every b3notifier process",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			p := newPrompter(cmd)
			if username, err = p.askIfEmpty(username, "Username"); err != nil {
				return err
			}
			password, err := p.askSecret("Password")
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := a.Session.Login(ctx, models.Credentials{Username: username, Password: password}); err != nil {
				return err
			}

			waitCtx, cancel := context.WithTimeout(ctx, profileWait)
			defer cancel()
			profile, err := a.Session.AwaitReady(waitCtx)
			if err != nil {
				return fmt.Errorf("logged in but the profile could not be loaded: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", profile.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account username")
	return cmd
}

func newLogoutCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session in every b3notifier process",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newStatusCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show who is logged in and when the access token expires",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := opts.format()
			if err != nil {
				return err
			}
			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Session.IsAuthenticated() {
				waitCtx, cancel := context.WithTimeout(cmd.Context(), profileWait)
				_, _ = a.Session.AwaitReady(waitCtx)
				cancel()
			}
			st := report.NewStatus(a.Session.Snapshot())
			return report.WriteStatus(cmd.OutOrStdout(), format, st, time.Now())
		},
	}
}
