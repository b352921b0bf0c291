package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd(app func() *App) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the sync server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()

			if username == "" {
				u, err := GetSimpleText(a.in, "Username", a.out)
				if err != nil {
					return err
				}
				username = u
			}
			password, err := GetPassword(a.in, a.out)
			if err != nil {
				return err
			}

			sess, err := a.auth.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s\n", sess.UserID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "username")
	return cmd
}

func newLogoutCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}
