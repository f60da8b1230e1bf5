package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/medrex/clinic-portal/internal/portal"
	"github.com/medrex/clinic-portal/pkg/types"
)

// ErrLoginFailed is returned when the credential exchange is rejected
var ErrLoginFailed = errors.New("login failed")

func newLoginCommand(opts *rootOptions) *cobra.Command {
	var (
		email          string
		organizationID string
		passwordFile   string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the clinic backend",
		Long: `Exchanges credentials with the clinic backend, fetches the granted
permissions and persists the session for later commands.

The password is read from --password-file, or prompted for on the terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := mustApp(cmd)

			if email == "" {
				return fmt.Errorf("--email is required")
			}
			password, err := readPassword(cmd, passwordFile)
			if err != nil {
				return err
			}

			ok := a.Lifecycle.Login(cmd.Context(), types.Credentials{
				Email:          email,
				Password:       password,
				OrganizationID: organizationID,
			})
			if !ok {
				return ErrLoginFailed
			}

			sess := a.Store.Session()
			if opts.output == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), portal.SessionView{
					Status:      sess.Status,
					User:        &sess.User,
					Permissions: sess.Permissions.Names(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", displayName(sess.User), sess.User.Role)
			fmt.Fprintf(cmd.OutOrStdout(), "%d permission(s) granted\n", len(sess.Permissions))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&organizationID, "organization", "", "Organization (tenant) id")
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "Read the password from a file (- prompts)")
	return cmd
}

// readPassword reads from passwordFile, or prompts with echo disabled
func readPassword(cmd *cobra.Command, passwordFile string) (string, error) {
	if passwordFile != "" && passwordFile != "-" {
		data, err := os.ReadFile(passwordFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		password := strings.TrimRight(string(data), "\r\n")
		if password == "" {
			return "", fmt.Errorf("password file %s is empty", passwordFile)
		}
		return password, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal available for password prompt (use --password-file)")
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

func newLogoutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := mustApp(cmd)
			a.Lifecycle.Logout(cmd.Context())

			if opts.output == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), portal.SessionView{
					Status:      a.Store.Session().Status,
					Permissions: []string{},
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			printRedirect(cmd, a)
			return nil
		},
	}
}

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the restored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := mustApp(cmd)
			sess := a.Store.Session()

			if opts.output == OutputJSON {
				view := portal.SessionView{Status: sess.Status, Permissions: sess.Permissions.Names()}
				if sess.IsAuthenticated() {
					view.User = &sess.User
				}
				return writeJSON(cmd.OutOrStdout(), view)
			}

			out := cmd.OutOrStdout()
			if !sess.IsAuthenticated() {
				fmt.Fprintln(out, "Not logged in")
				return nil
			}
			fmt.Fprintf(out, "User:         %s\n", displayName(sess.User))
			fmt.Fprintf(out, "User ID:      %s\n", sess.User.ID)
			fmt.Fprintf(out, "Role:         %s\n", sess.User.Role)
			if sess.User.OrganizationID != "" {
				fmt.Fprintf(out, "Organization: %s\n", sess.User.OrganizationID)
			}
			fmt.Fprintf(out, "Permissions:  %d\n", len(sess.Permissions))
			return nil
		},
	}
}

func displayName(u types.User) string {
	switch {
	case u.DisplayName != "":
		return u.DisplayName
	case u.Email != "":
		return u.Email
	default:
		return u.ID
	}
}
