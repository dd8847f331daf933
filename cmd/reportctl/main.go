// Command reportctl prints the freight reports from the MongoDB store.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/freight-dispatch/internal/app"
	"github.com/ukydev/freight-dispatch/internal/config"
	"github.com/ukydev/freight-dispatch/internal/reports"
)

func main() {
	root := newRootCmd(openReports, os.Stdout)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openReports connects to the configured MongoDB database.
func openReports(ctx context.Context, opts rootOptions) (*reports.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	cfg.ConfigureLogging()
	if !opts.verbose {
		log.SetLevel(log.WarnLevel)
	}
	cfg.Store = config.StoreMongo
	if opts.mongoURI != "" {
		cfg.MongoURI = opts.mongoURI
	}
	if opts.database != "" {
		cfg.MongoDB = opts.database
	}

	rt, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.Close(closeCtx); err != nil {
			log.WithError(err).Warn("Failed to close store")
		}
	}
	return reports.NewService(&rt.Store, time.Now), closeFn, nil
}
