package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func settingsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Show the server's user administration settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.api.Settings(cmd.Context())
			if err != nil {
				return err
			}

			roles := make([]string, 0, len(s.AssignableRoles))
			for _, r := range s.AssignableRoles {
				roles = append(roles, fmt.Sprintf("%s (%s)", r.Label, r.Name))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Advanced permissions: %t\n", s.Features.AdvancedPermissions)
			fmt.Fprintf(out, "Assignable roles:     %s\n", strings.Join(roles, ", "))
			fmt.Fprintf(out, "Confirmation phrase:  %q\n", s.ConfirmationPhrase)
			return nil
		},
	}
}
