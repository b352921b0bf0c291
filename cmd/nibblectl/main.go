// Command nibblectl runs administrative tasks against the sync server's
// store: applying migrations, minting access tokens and archiving deltas.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/nibblelog/internal/logging"
	"github.com/dmitrijs2005/nibblelog/internal/server/archive"
	"github.com/dmitrijs2005/nibblelog/internal/server/config"
	"github.com/dmitrijs2005/nibblelog/internal/server/services"
	"github.com/dmitrijs2005/nibblelog/internal/server/storage"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

// newS3Client is a seam for tests.
var newS3Client = func(ctx context.Context, c archive.S3Config) (archive.ObjectPutter, error) {
	return archive.NewS3Client(ctx, c)
}

func newRootCmd(out io.Writer) *cobra.Command {
	var configPath string

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		return cfg, nil
	}

	rootCmd := &cobra.Command{
		Use:           "nibblectl",
		Short:         "Nibblelog sync server administration",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to JSON config file")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := storage.Open(cmd.Context(), cfg.DatabaseDriver, cfg.DatabaseDSN)
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Schema is up to date (%s)\n", store.Driver)
			return nil
		},
	}

	var (
		tokenUser     string
		tokenValidity time.Duration
	)
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			validity := cfg.AccessTokenValidityDuration
			if tokenValidity > 0 {
				validity = tokenValidity
			}

			tok, err := services.NewAuthService(cfg.Users, cfg.SecretKey, validity, nil).IssueToken(tokenUser)
			if err != nil {
				return fmt.Errorf("issuing token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	tokenCmd.Flags().StringVarP(&tokenUser, "user", "u", "", "user id")
	tokenCmd.Flags().DurationVar(&tokenValidity, "validity", 0, "token lifetime (default from config)")
	_ = tokenCmd.MarkFlagRequired("user")

	var (
		archiveUser  string
		archiveAfter int64
	)
	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Export a user's deltas to object storage as NDJSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			store, err := storage.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
			if err != nil {
				return err
			}
			defer store.Close()

			client, err := newS3Client(ctx, archive.S3Config{
				User:     cfg.S3RootUser,
				Password: cfg.S3RootPassword,
				Bucket:   cfg.S3Bucket,
				Region:   cfg.S3Region,
				Endpoint: cfg.S3BaseEndpoint,
			})
			if err != nil {
				return fmt.Errorf("s3 client: %w", err)
			}

			log := logging.NewJSON(cmd.ErrOrStderr(), cfg.LogLevel)
			exp := archive.NewExporter(store.Deltas(store.DB), client, cfg.S3Bucket, cfg.PullPageLimit, log)

			res, err := exp.Export(ctx, archiveUser, archiveAfter)
			if err != nil {
				return err
			}
			if res.Count == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to archive.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived %d deltas (%d..%d) to s3://%s/%s\n",
				res.Count, res.FirstSeq, res.LastSeq, cfg.S3Bucket, res.Key)
			return nil
		},
	}
	archiveCmd.Flags().StringVarP(&archiveUser, "user", "u", "", "user id")
	archiveCmd.Flags().Int64Var(&archiveAfter, "after", 0, "export deltas with server_seq greater than this")
	_ = archiveCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(migrateCmd, tokenCmd, archiveCmd)
	return rootCmd
}
