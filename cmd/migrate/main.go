package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"adminpanel.org/internal/config"
	"adminpanel.org/internal/migrate"
	"adminpanel.org/internal/store/sqlstore"
)

func main() {
	log.SetFlags(0)
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatal(err)
	}
	var defaults config.Console
	if err := config.ParseEnv(&defaults); err != nil {
		log.Fatal(err)
	}

	var (
		driver = flag.String("driver", defaults.SessionDriver, "database/sql driver: sqlite or pgx")
		dsn    = flag.String("dsn", defaults.SessionDSN, "session store DSN")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or ADMIN_SESSION_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [-driver sqlite|pgx] [-dsn DSN] up|down|status")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := sqlstore.Open(*driver, *dsn)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	mgr := store.Migrator()

	switch flag.Arg(0) {
	case "up":
		var applied []string
		applied, err = mgr.Up(ctx)
		for _, name := range applied {
			fmt.Println("applied", name)
		}
		if err == nil && len(applied) == 0 {
			fmt.Println("schema is up to date")
		}
	case "down":
		var name string
		name, err = mgr.Down(ctx)
		switch {
		case errors.Is(err, migrate.ErrNothingApplied):
			fmt.Println("nothing to roll back")
			err = nil
		case err == nil:
			fmt.Println("rolled back", name)
		}
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}
