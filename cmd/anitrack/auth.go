package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/vmunix/anitrack/internal/app"
	"github.com/vmunix/anitrack/internal/library"
)

const passwordEnv = "ANITRACK_PASSWORD"

type credentials struct {
	email    string
	password string
}

func (c *credentials) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&c.email, "email", "e", "", "Account email (required)")
	cmd.Flags().StringVarP(&c.password, "password", "p", "", "Password (default: $"+passwordEnv+")")
	_ = cmd.MarkFlagRequired("email")
}

func (c *credentials) resolvePassword() (string, error) {
	if c.password != "" {
		return c.password, nil
	}
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}
	return "", errors.New("password required: use --password or set " + passwordEnv)
}

type signInFunc func(ctx context.Context, a *app.App, email, password string) (*library.User, error)

func newSessionCmd(g *globals, use, short, verb string, signIn signInFunc) *cobra.Command {
	creds := &credentials{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := creds.resolvePassword()
			if err != nil {
				return err
			}
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				user, err := signIn(ctx, a, creds.email, password)
				if err != nil {
					return err
				}
				p := g.printer(cmd)
				if p.json {
					return p.printJSON(user)
				}
				p.printf("%s as %s\n", verb, user.Email)
				return nil
			})
		},
	}
	creds.register(cmd)
	return cmd
}

func newSignupCmd(g *globals) *cobra.Command {
	return newSessionCmd(g, "signup", "Create an account and sign in", "Signed up",
		func(ctx context.Context, a *app.App, email, password string) (*library.User, error) {
			return a.Session.SignUp(ctx, email, password)
		})
}

func newLoginCmd(g *globals) *cobra.Command {
	return newSessionCmd(g, "login", "Sign in to an existing account", "Signed in",
		func(ctx context.Context, a *app.App, email, password string) (*library.User, error) {
			return a.Session.SignIn(ctx, email, password)
		})
}

func newLogoutCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Start(ctx); err != nil {
					return err
				}
				user := a.Session.Current()
				if err := a.Session.SignOut(ctx); err != nil {
					return err
				}
				p := g.printer(cmd)
				if user == nil {
					p.println("Not signed in.")
					return nil
				}
				p.printf("Signed out %s\n", user.Email)
				return nil
			})
		},
	}
}

func newWhoamiCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withUser(cmd, func(ctx context.Context, a *app.App, user *library.User) error {
				profile, err := a.Store.Profile(ctx, user.ID)
				if err != nil {
					return err
				}
				p := g.printer(cmd)
				if p.json {
					return p.printJSON(profile)
				}
				p.printf("Email:          %s\n", user.Email)
				p.printf("User ID:        %s\n", user.ID)
				p.printf("Member since:   %s\n", formatTime(profile.CreatedAt))
				if profile.LastModified != nil {
					p.printf("Last added:     %s\n", formatTime(*profile.LastModified))
				}
				p.printf("Titles:         %d\n", len(a.Library.Titles()))
				return nil
			})
		},
	}
}
