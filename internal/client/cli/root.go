package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the nibble command tree reading prompts from in and
// writing results to out.
func NewRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	opts := &options{}
	var app *App

	root := &cobra.Command{
		Use:           "nibble",
		Short:         "Offline-first activity log that syncs across devices",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, in, out)
			if err != nil {
				return err
			}
			app = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app == nil {
				return nil
			}
			return app.Close()
		},
	}
	root.SetIn(in)
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "path to TOML config (default ~/.nibble/config.toml)")
	pf.StringVar(&opts.serverURL, "server", "", "sync server URL, overrides server_url")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging on stderr")

	current := func() *App { return app }

	root.AddCommand(
		newLoginCmd(current),
		newLogoutCmd(current),
		newCategoryCmd(current),
		newActivityCmd(current),
		newSyncCmd(current),
		newStatusCmd(current),
	)
	return root
}
