package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"disqus-bot/bot"
	"disqus-bot/config"
	"disqus-bot/database"
	"disqus-bot/handlers"
	"disqus-bot/utils"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "disqus-bot",
		Usage: "Forum moderation and chat bot",
		Action: func(ctx context.Context, _ *cli.Command) error {
			return runBot(ctx)
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Poll the forum until interrupted",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return runBot(ctx)
				},
			},
			{
				Name:  "report",
				Usage: "Print the ban report of the last 24 hours from the local store",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "db",
						Usage:   "path to the state database",
						Value:   "disqus_state.db",
						Sources: cli.EnvVars("DB_PATH"),
					},
				},
				Before: func(ctx context.Context, _ *cli.Command) (context.Context, error) {
					// A missing .env is fine.
					_ = godotenv.Load()
					return ctx, nil
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return printReport(ctx, c.String("db"))
				},
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

func runBot(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	return bot.Run(ctx, cfg, logger)
}

func printReport(ctx context.Context, dbPath string) error {
	logger := zap.NewNop()
	store, err := database.InitDB(dbPath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := handlers.NewEngine(nil, store, nil, nil, handlers.Identity{}, logger).BuildReport(ctx, time.Now())
	if err != nil {
		return err
	}
	fmt.Println(report)
	return nil
}
