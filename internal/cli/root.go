// Package cli implements the clinicctl commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/medrex/clinic-portal/internal/app"
	"github.com/medrex/clinic-portal/pkg/config"
)

type contextKey string

const appKey contextKey = "clinicctl-app"

// Output formats
const (
	OutputText = "text"
	OutputJSON = "json"
)

type rootOptions struct {
	configPath string
	logLevel   string
	output     string
	logOutput  io.Writer

	// app is opened by the root pre-run and closed by run
	app *app.App
}

// NewRootCommand builds the clinicctl command tree
func NewRootCommand() *cobra.Command {
	return newRootCommand(&rootOptions{logOutput: os.Stderr})
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "clinicctl",
		Short: "Clinic portal session and access control",
		Long: `clinicctl manages the clinic portal session on this workstation.

It restores the persisted session on start, signs users in and out against the
clinic backend, shows the navigation menu the session may see, evaluates access
requirements and serves the session model to the local dashboard.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != OutputText && opts.output != OutputJSON {
				return fmt.Errorf("unknown output format %q", opts.output)
			}

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.LogLevel = opts.logLevel
			}

			a, err := app.New(cmd.Context(), cfg, app.WithLogOutput(opts.logOutput))
			if err != nil {
				return err
			}
			opts.app = a
			a.Restore(cmd.Context())

			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file (default: ./clinicctl.yaml, ~/.clinicctl/clinicctl.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", OutputText, "Output format: text or json")

	root.AddCommand(
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newStatusCommand(opts),
		newMenuCommand(opts),
		newCheckCommand(opts),
		newPermissionsCommand(opts),
		newServeCommand(),
	)

	return root
}

// Execute runs clinicctl
func Execute() {
	opts := &rootOptions{logOutput: os.Stderr}
	if err := run(context.Background(), newRootCommand(opts), opts); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// run executes root and closes the app afterwards. cobra skips post-run
// hooks when a command fails, so the close cannot live there.
func run(ctx context.Context, root *cobra.Command, opts *rootOptions) (err error) {
	defer func() {
		if opts.app == nil {
			return
		}
		if closeErr := opts.app.Close(context.Background()); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return root.ExecuteContext(ctx)
}

func fromContext(ctx context.Context) (*app.App, bool) {
	a, ok := ctx.Value(appKey).(*app.App)
	return a, ok
}

// mustApp retrieves the App injected by the root command
func mustApp(cmd *cobra.Command) *app.App {
	a, ok := fromContext(cmd.Context())
	if !ok {
		panic("clinicctl: app not found in context - this is a bug in clinicctl")
	}
	return a
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRedirect reports the navigation the session model asked for
func printRedirect(cmd *cobra.Command, a *app.App) {
	if redirect, ok := a.Redirects.Last(); ok {
		fmt.Fprintf(cmd.ErrOrStderr(), "-> navigate to %s\n", redirect.Path)
	}
}
