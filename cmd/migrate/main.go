package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/elev8/access/internal/config"
	"github.com/elev8/access/internal/store/postgres"
)

func main() {
	down := flag.Bool("down", false, "roll back every migration, dropping the members table")
	flag.Parse()

	if err := run(*down); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}
}

func run(down bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbCfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}

	db, err := postgres.New(ctx, postgres.ConfigFrom(*dbCfg))
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Printf("Connected to %s/%s\n", dbCfg.Host, dbCfg.Database)

	report := func(name string) { fmt.Printf("✓ %s\n", name) }
	if down {
		if err := db.Rollback(ctx, report); err != nil {
			return err
		}
		fmt.Println("All migrations rolled back.")
		return nil
	}

	if err := db.Migrate(ctx, report); err != nil {
		return err
	}
	fmt.Println("All migrations applied.")
	return nil
}
