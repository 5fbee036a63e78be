package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/urcuisine/urcuisine/session"
)

const passwordEnv = "URCUISINE_PASSWORD"

// readPassword takes the password from the flag, then the environment, then
// the first line of stdin.
func readPassword(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv(passwordEnv); env != "" {
		return env, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return "", errors.New("password is required")
	}
	return line, nil
}

func loginCmd(g *globalOptions) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: runWithApp(g, func(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			if err := a.sessions.Login(ctx, email, pw); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", a.sessions.Session().User.Name)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (or $"+passwordEnv+", or stdin)")
	cmd.MarkFlagRequired("email")
	return cmd
}

func signupCmd(g *globalOptions) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: runWithApp(g, func(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			if err := a.sessions.Signup(ctx, name, email, pw); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s! You are now logged in.\n", a.sessions.Session().User.Name)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (or $"+passwordEnv+", or stdin)")
	cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the local session",
		Args:  cobra.NoArgs,
		RunE: runWithApp(g, func(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
			a.sessions.Logout(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		}),
	}
}

func whoamiCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: runWithApp(g, func(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
			if a.sessions.Start(ctx) != session.LoggedIn {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			u := a.sessions.Session().User
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", u.Name, u.ID)
			return nil
		}),
	}
}
