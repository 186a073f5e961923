package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"rooflens.io/internal/migrate"
)

const usage = "usage: migrate [-dsn DSN] [-migrations DIR] [-seeds DIR] up|down|seed|status"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dsn := fs.String("dsn", os.Getenv("ROOFLENS_PG_DSN"), "PostgreSQL DSN")
	migrationsDir := fs.String("migrations", "ops/migrations/sql", "directory with .up.sql/.down.sql files")
	seedsDir := fs.String("seeds", "ops/migrations/seeds", "directory with seed files")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dsn == "" {
		return fmt.Errorf("no DSN: pass -dsn or set ROOFLENS_PG_DSN")
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%s", usage)
	}
	command := fs.Arg(0)

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mgr := migrate.NewManager(db, *migrationsDir, *seedsDir)
	switch command {
	case "up":
		return mgr.Up(ctx)
	case "down":
		return mgr.Down(ctx)
	case "seed":
		return mgr.Seed(ctx)
	case "status":
		history, err := mgr.Status(ctx)
		if err != nil {
			return err
		}
		for _, line := range history {
			fmt.Println(line)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}
