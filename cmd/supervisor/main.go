// Package main is the entrypoint for the agent-supervisor.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/morezero/agent-supervisor/internal/config"
	"github.com/morezero/agent-supervisor/internal/server"
	"github.com/morezero/agent-supervisor/pkg/bootstrap"
	"github.com/morezero/agent-supervisor/pkg/db"
)

const usage = `Usage: supervisor [command]
       supervisor serve            Start the supervisor (HTTP, COMMS, dispatch core).
       supervisor migrate up       Run database migrations.
       supervisor migrate status   Show migration status.
       supervisor seed [file]      Seed the responders table from a bootstrap file.
       supervisor clear            Truncate the responders table; schema is preserved.
       supervisor responders       Print the responder set the supervisor would load.

Commands:
  serve           (default) Start the agent supervisor.
  migrate up      Run database migrations only.
  migrate status  Show current migration status.
  seed [file]     Seed responders from a bootstrap file (default: RESPONDERS_FILE).
  clear           Truncate responder data; schema preserved.
  responders      Print the loaded responder descriptors and exit.

Environment: COMMS_URL, SUPERVISOR_HTTP_ADDR (default :8000), RESPONDERS_FILE,
DATABASE_URL (optional), RESPONDER_TIMEOUT, RETRY_DELAY.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("supervisor migrate: require subcommand (up, status)")
		}
		switch sub := args[1]; sub {
		case "up":
			if err := runMigrateUp(); err != nil {
				log.Fatalf("supervisor migrate up: %v", err)
			}
		case "status":
			if err := runMigrateStatus(); err != nil {
				log.Fatalf("supervisor migrate status: %v", err)
			}
		default:
			log.Fatalf("supervisor migrate: unknown subcommand %q (use up, status)", sub)
		}
		return
	case "seed":
		bootstrapFile := ""
		if len(args) > 1 {
			bootstrapFile = args[1]
		}
		if err := runSeed(bootstrapFile); err != nil {
			log.Fatalf("supervisor seed: %v", err)
		}
		return
	case "clear":
		if err := runClear(); err != nil {
			log.Fatalf("supervisor clear: %v", err)
		}
		return
	case "responders":
		if err := runResponders(); err != nil {
			log.Fatalf("supervisor responders: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		break
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("supervisor: %v", err)
	}
}

func runMigrateUp() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func runMigrateStatus() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return db.MigrationStatus(ctx, pool, cfg.MigrationPath)
}

func runSeed(bootstrapFileOverride string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}

	bcfg, err := bootstrap.LoadRespondersConfig(bootstrapFileOverride, cfg.RespondersFile)
	if err != nil {
		return fmt.Errorf("load responders config: %w", err)
	}
	if err := bcfg.Validate(cfg.ProtocolConstraint); err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.NewStore(pool).SeedResponders(ctx, bcfg); err != nil {
		return fmt.Errorf("seed responders: %w", err)
	}
	return nil
}

func runClear() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.NewStore(pool).ClearResponders(ctx); err != nil {
		return fmt.Errorf("clear responders: %w", err)
	}
	return nil
}

func runResponders() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	bcfg, err := bootstrap.LoadRespondersConfig(cfg.RespondersFile)
	if err != nil {
		return fmt.Errorf("load responders config: %w", err)
	}
	if err := bcfg.Validate(cfg.ProtocolConstraint); err != nil {
		return err
	}

	for _, r := range bcfg.Responders {
		fmt.Printf("%-20s %-40s %s\n", r.Identifier, r.Address, r.Capability)
	}
	return nil
}
