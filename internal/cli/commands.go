package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fragmede/authdesk/internal/api"
	"github.com/fragmede/authdesk/internal/render"
	"github.com/fragmede/authdesk/internal/ui"
)

var errNotAuthenticated = errors.New("not authenticated")

func newTUICmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive UI (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}
}

func runTUI(cmd *cobra.Command, opts *options) error {
	e, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	defer e.Close()

	app := ui.NewApp(e.cfg, e.client, e.db, e.log)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	app.SetProgram(p)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}

func newTokenCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Fetch a fresh CSRF token",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			token, err := e.client.RequestToken(cmd.Context())
			if err != nil {
				return err
			}
			out := struct {
				CSRFToken string `json:"csrf_token" yaml:"csrf_token"`
			}{token}
			return writeOutput(cmd.OutOrStdout(), opts.output, out, func(w io.Writer) {
				fmt.Fprintln(w, token)
			})
		},
	}
}

func newLoginCmd(opts *options) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		Long: `Log in with a username and password. The session cookies are saved and
shared with the interactive UI. Without --password the password is read from
the terminal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return errors.New("--username is required")
			}
			if password == "" {
				p, err := readPassword(cmd)
				if err != nil {
					return err
				}
				password = p
			}

			e, err := connect(cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			stop := startSpinner(opts, cmd.ErrOrStderr(), "Logging in...")
			_, err = e.client.Login(ctx, username, password)
			authed := err == nil && e.client.CheckAuth(ctx)
			stop()
			if err != nil {
				return fmt.Errorf("login failed: %s", api.Message(err, err.Error()))
			}
			if !authed {
				return errors.New("login succeeded but the session was not accepted")
			}

			out := struct {
				Username      string `json:"username" yaml:"username"`
				Authenticated bool   `json:"authenticated" yaml:"authenticated"`
			}{username, true}
			return writeOutput(cmd.OutOrStdout(), opts.output, out, func(w io.Writer) {
				successColor.Fprint(w, "Logged in")
				fmt.Fprintf(w, " as %s\n", username)
			})
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}

func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--password is required when stdin is not a terminal")
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

func newRegisterCmd(opts *options) *cobra.Command {
	var req api.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			var missing []string
			for flag, v := range map[string]string{
				"username": req.Username, "password": req.Password,
				"email": req.Email, "dob": req.DateOfBirth,
			} {
				if v == "" {
					missing = append(missing, "--"+flag)
				}
			}
			sort.Strings(missing)
			if len(missing) > 0 {
				return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
			}

			e, err := connect(cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			stop := startSpinner(opts, cmd.ErrOrStderr(), "Registering...")
			_, err = e.client.Register(cmd.Context(), req)
			stop()
			if err != nil {
				printRegisterError(cmd.ErrOrStderr(), err)
				return errors.New("registration failed")
			}

			out := struct {
				Username   string `json:"username" yaml:"username"`
				Registered bool   `json:"registered" yaml:"registered"`
			}{req.Username, true}
			return writeOutput(cmd.OutOrStdout(), opts.output, out, func(w io.Writer) {
				successColor.Fprint(w, "Registered")
				fmt.Fprintf(w, " %s, you can now log in\n", req.Username)
			})
		},
	}

	cmd.Flags().StringVar(&req.Username, "username", "", "Username")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.DateOfBirth, "dob", "", "Date of birth (YYYY-MM-DD)")
	return cmd
}

func printRegisterError(w io.Writer, err error) {
	if fields := api.FieldErrors(err); len(fields) > 0 {
		errorColor.Fprintln(w, api.Message(err, "invalid registration data"))
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %s %s\n", labelColor.Sprint(name+":"), fields[name])
		}
		return
	}
	errorColor.Fprintln(w, api.Message(err, "registration failed"))
}

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check whether the saved session is still valid",
		Long:  "Runs check-auth, refreshing the session once if needed. Exits non-zero when not authenticated.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect(cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			authed := e.client.CheckAuth(cmd.Context())
			out := struct {
				Authenticated bool   `json:"authenticated" yaml:"authenticated"`
				Username      string `json:"username,omitempty" yaml:"username,omitempty"`
			}{authed, e.session.Username()}
			err = writeOutput(cmd.OutOrStdout(), opts.output, out, func(w io.Writer) {
				if !authed {
					warningColor.Fprintln(w, "Not authenticated")
					return
				}
				successColor.Fprint(w, "Authenticated")
				if out.Username != "" {
					fmt.Fprintf(w, " as %s", out.Username)
				}
				fmt.Fprintln(w)
			})
			if err != nil {
				return err
			}
			if !authed {
				return errNotAuthenticated
			}
			return nil
		},
	}
}

func newExampleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "example",
		Short: "Fetch the protected example resource",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect(cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			ex, err := e.client.Example(cmd.Context())
			if errors.Is(err, api.ErrNetwork) {
				if p, _, cerr := e.db.GetProfile(e.session.Username(), e.cfg.ProfileTTL); cerr == nil && p != nil {
					warningColor.Fprintf(cmd.ErrOrStderr(), "Offline, showing data from %s\n", render.TimeAgo(p.FetchedAt))
					ex = &api.ExampleResponse{
						Message:  p.Message,
						UserInfo: api.UserInfo{Username: p.Username, BankBalance: p.BankBalance},
					}
					err = nil
				}
			}
			if err != nil {
				return err
			}

			return writeOutput(cmd.OutOrStdout(), opts.output, ex, func(w io.Writer) {
				fmt.Fprintf(w, "%s %s\n", labelColor.Sprint("message:"), ex.Message)
				fmt.Fprintf(w, "%s %s\n", labelColor.Sprint("username:"), ex.UserInfo.Username)
				fmt.Fprintf(w, "%s %.2f\n", labelColor.Sprint("bank_balance:"), ex.UserInfo.BankBalance)
			})
		},
	}
}
