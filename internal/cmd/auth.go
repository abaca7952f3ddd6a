package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/charmbracelet/x/term"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var errNoCredentials = errors.New("username and password are required")

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringP("username", "u", "", "Account username")
	}
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session locally",
	Long: heredoc.Doc(`
		Sign in to ChatFun. The password is read from the terminal without
		echo. The session is saved in the data directory and reused by the
		client until it expires or you log out.
	`),
	RunE: func(cmd *cobra.Command, args []string) error {
		return authenticate(cmd, false)
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	RunE: func(cmd *cobra.Command, args []string) error {
		return authenticate(cmd, true)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setupApp(cmd)
		if err != nil {
			return err
		}
		defer a.Shutdown()

		if !a.Session.Authenticated() {
			fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("Not signed in."))
			return nil
		}
		name := a.Session.User().Username
		if err := a.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("Signed out"), name)
		return nil
	},
}

func authenticate(cmd *cobra.Command, register bool) error {
	username, _ := cmd.Flags().GetString("username")
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	if username == "" {
		fmt.Fprint(out, "Username: ")
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return err
		}
		username = strings.TrimSpace(line)
	}
	password, err := readPassword(in)
	if err != nil {
		return err
	}
	if username == "" || password == "" {
		return errNoCredentials
	}

	a, err := setupApp(cmd)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	ctx := cmd.Context()
	if register {
		err = a.Register(ctx, username, password)
	} else {
		err = a.Login(ctx, username, password)
	}
	if err != nil {
		return err
	}
	if err := a.SyncSettings(ctx); err != nil {
		fmt.Fprintln(out, color.YellowString("Settings were not synced: %v", err))
	}

	user := a.Session.User()
	fmt.Fprintf(out, "%s %s (%s)\n", color.GreenString("Signed in as"), color.New(color.Bold).Sprint(user.Username), user.Role)
	return nil
}

// readPassword reads without echo when stdin is a terminal and falls back to
// a plain line otherwise.
func readPassword(in *bufio.Reader) (string, error) {
	fd := os.Stdin.Fd()
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
