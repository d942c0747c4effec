package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vthunder/nova/internal/config"
	"github.com/vthunder/nova/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat API over HTTP",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, config.SurfaceServe)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(a.Engine, a.Sessions, server.Config{
		Addr:        a.Config.HTTP.Addr,
		CORSOrigins: a.Config.HTTP.CORSOrigins,
		RateLimit:   a.Config.HTTP.RateLimit,
		RateWindow:  a.Config.HTTP.RateWindow,
	})
	return srv.Run(ctx)
}
