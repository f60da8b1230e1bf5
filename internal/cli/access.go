package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/medrex/clinic-portal/internal/guard"
	"github.com/medrex/clinic-portal/internal/permission"
)

// ErrAccessDenied is returned by check when the requirement is not met
var ErrAccessDenied = errors.New("access denied")

func newMenuCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "List the navigation entries the session may see",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items := mustApp(cmd).Menu.Items()

			if opts.output == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), items)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tROUTE\tLABEL")
			for _, item := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\n", item.ID, item.RoutePath, item.LabelKey)
			}
			return w.Flush()
		},
	}
}

func newCheckCommand(opts *rootOptions) *cobra.Command {
	var (
		all    bool
		inline bool
	)

	cmd := &cobra.Command{
		Use:   "check [PERMISSION...]",
		Short: "Evaluate an access requirement against the session",
		Long: `Evaluates whether the current session satisfies a requirement.

With no permissions the requirement is public. By default any one of the
permissions is enough; --all requires every one. Exits non-zero on denial.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := mustApp(cmd)

			req := guard.AnyOf(permission.Names(args...)...)
			if all {
				req.Mode = guard.ModeAll
			}
			policy := guard.FullPage
			if inline {
				policy = guard.Inline
			}

			result := a.Guard.Check(cmd.Context(), req, policy)

			if opts.output == OutputJSON {
				if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), result.Decision)
				if result.Target != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "-> navigate to %s\n", result.Target)
				}
			}

			if !result.Allowed() {
				return ErrAccessDenied
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Require every permission instead of any")
	cmd.Flags().BoolVar(&inline, "inline", false, "Evaluate as an inline region (deny without redirect)")
	return cmd
}

func newPermissionsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "permissions",
		Short: "List granted permissions by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			perms := mustApp(cmd).Store.Session().Permissions
			groups := permission.GroupByCategory(perms)

			if opts.output == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), groups)
			}

			categories := make([]string, 0, len(groups))
			for category := range groups {
				categories = append(categories, category)
			}
			sort.Strings(categories)

			out := cmd.OutOrStdout()
			if len(categories) == 0 {
				fmt.Fprintln(out, "No permissions granted")
				return nil
			}
			for _, category := range categories {
				names := make([]string, len(groups[category]))
				for i, p := range groups[category] {
					names[i] = string(p)
				}
				fmt.Fprintf(out, "%s: %s\n", category, strings.Join(names, ", "))
			}
			return nil
		},
	}
}
