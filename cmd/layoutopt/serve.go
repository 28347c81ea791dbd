package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/layoutopt/internal/server"
)

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr)
	ctx, cancel := commandContext(logger)
	defer cancel()

	srv := server.New(server.Options{
		Layout:      cfg.LayoutOptions(),
		MaxSessions: cfg.Server.MaxSessions,
		Seed:        cfg.Seed,
		Logger:      logger,
	})
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
