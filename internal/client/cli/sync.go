package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSyncCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push local edits and pull everything new",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			report, err := a.sync.Sync(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Pushed %d, pulled %d (applied %d), cursor %d\n",
				report.Pushed, report.Pulled, report.Applied, report.Cursor)
			for _, f := range report.Failed {
				fmt.Fprintf(a.out, "  rejected %s: %s\n", f.ID, f.Reason)
			}
			return nil
		},
	}
}

func newStatusCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show login, pending edits and sync position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			st, err := a.sync.Status(cmd.Context())
			if err != nil {
				return err
			}

			user := "(nobody)"
			if st.UserID != "" {
				user = st.UserID
			}
			if !st.LoggedIn {
				user += " [logged out]"
			}
			last := "never"
			if !st.LastSyncAt.IsZero() {
				last = st.LastSyncAt.Format(time.RFC3339)
			}

			fmt.Fprintf(a.out, "Server:    %s\n", a.cfg.ServerURL)
			fmt.Fprintf(a.out, "Device:    %s\n", a.cfg.DeviceID)
			fmt.Fprintf(a.out, "User:      %s\n", user)
			fmt.Fprintf(a.out, "Pending:   %d\n", st.Pending)
			fmt.Fprintf(a.out, "Cursor:    %d\n", st.Cursor)
			fmt.Fprintf(a.out, "Last sync: %s\n", last)
			return nil
		},
	}
}
