package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cimillas/item-reservations/internal/app"
)

type createAdminOptions struct {
	*RootOptions
	Name     string
	Email    string
	Password string
}

// NewCreateAdminCommand seeds an ADMIN account. Registration over HTTP only
// ever creates members.
func NewCreateAdminCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &createAdminOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Example: `  reservations create-admin --name "Site Admin" --email admin@example.com --password s3cret!`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context(), cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer e.close()

			user, err := e.services(nil).users.CreateAdmin(cmd.Context(), app.RegisterInput{
				Name:     opts.Name,
				Email:    opts.Email,
				Password: opts.Password,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s <%s>\n", user.ID, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&opts.Email, "email", "", "login email (required)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "login password (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
