package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vthunder/nova/internal/config"
	"github.com/vthunder/nova/internal/discord"
	"github.com/vthunder/nova/internal/logging"
)

var discordCmd = &cobra.Command{
	Use:   "discord",
	Short: "Answer messages in a Discord channel",
	RunE:  runDiscord,
}

func runDiscord(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, config.SurfaceDiscord)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bridge, err := discord.New(discord.Config{
		Token:     a.Config.Discord.Token,
		ChannelID: a.Config.Discord.ChannelID,
	}, a.Engine, a.Sessions)
	if err != nil {
		return err
	}
	if err := bridge.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	logging.Info("discord", "shutting down")
	return bridge.Stop()
}
