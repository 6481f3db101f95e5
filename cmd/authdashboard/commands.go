package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-print"
	"github.com/urfave/cli/v2"

	auth "github.com/goliatone/go-auth-dashboard"
	"github.com/goliatone/go-auth-dashboard/config"
	"github.com/goliatone/go-auth-dashboard/server"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// App creates the CLI application
func App() *cli.App {
	return &cli.App{
		Name:    "authdashboard",
		Usage:   "session auth service with an activity dashboard",
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{"AUTHDASH_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			tokenCommand(),
			configCommand(),
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	return config.Load(config.WithConfigFile(c.String("config")))
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP server",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			logger := server.NewLogger(cfg.Log, c.App.ErrWriter)

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.Run(ctx, cfg, logger)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply the store schema migrations",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			logger := server.NewLogger(cfg.Log, c.App.ErrWriter)

			st, err := server.OpenStore(c.Context, cfg.Store, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Migrate(c.Context); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			logger.Info("migrations applied", "driver", cfg.Store.Driver)
			return nil
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "inspect session tokens",
		Subcommands: []*cli.Command{
			{
				Name:      "verify",
				Usage:     "verify a token and print its session",
				ArgsUsage: "<token>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("expected exactly one token argument", 2)
					}

					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}

					return verifyToken(c, cfg.Auth, c.Args().First())
				},
			},
		},
	}
}

func verifyToken(c *cli.Context, cfg auth.Config, token string) error {
	tokens, err := auth.NewTokenServiceFromConfig(cfg)
	if err != nil {
		return err
	}

	claims, err := tokens.Validate(token)
	if err != nil {
		if reason, ok := auth.TokenFailure(err); ok {
			return cli.Exit(fmt.Sprintf("invalid token: %s", reason), 1)
		}
		return cli.Exit(fmt.Sprintf("invalid token: %v", err), 1)
	}

	fmt.Fprintln(c.App.Writer, print.MaybePrettyJSON(auth.SessionFromClaims(claims)))
	return nil
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "print the resolved configuration with secrets redacted",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, cfg.String())
			return nil
		},
	}
}
