package cli

import (
	"bufio"
	"context"
	"database/sql"
	"io"
	"os"

	"github.com/dmitrijs2005/nibblelog/internal/client/client"
	"github.com/dmitrijs2005/nibblelog/internal/client/config"
	"github.com/dmitrijs2005/nibblelog/internal/client/services"
	"github.com/dmitrijs2005/nibblelog/internal/logging"
)

// App holds what every command needs once the config has been read.
type App struct {
	cfg    *config.Config
	db     *sql.DB
	log    logging.Logger
	in     *bufio.Reader
	out    io.Writer
	auth   services.AuthService
	entity services.EntityService
	sync   services.SyncService
}

// options are the persistent flags.
type options struct {
	configPath string
	serverURL  string
	verbose    bool
}

func newApp(ctx context.Context, opts *options, in io.Reader, out io.Writer) (*App, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.serverURL != "" {
		cfg.ServerURL = opts.serverURL
	}

	db, err := client.OpenDatabase(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	log := logging.NewJSON(os.Stderr, level).With("device_id", cfg.DeviceID)

	api := client.NewHTTPClient(cfg.ServerURL, nil)
	return &App{
		cfg:    cfg,
		db:     db,
		log:    log,
		in:     bufio.NewReader(in),
		out:    out,
		auth:   services.NewAuthService(api, db),
		entity: services.NewEntityService(db, cfg.DeviceID),
		sync:   services.NewSyncService(api, db, cfg.DeviceID, log),
	}, nil
}

func (a *App) Close() error {
	return a.db.Close()
}
