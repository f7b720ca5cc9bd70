package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"attendance/dashboard/internal/auth"
	"attendance/dashboard/internal/commands"
	"attendance/dashboard/internal/pkg/config"
	"attendance/dashboard/internal/pkg/repository/postgresql"

	"github.com/ardanlabs/conf"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

func main() {
	log := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	if err := run(log); err != nil {
		if errors.Cause(err) != conf.ErrHelpWanted {
			log.Printf("error: %s", err)
		}
		os.Exit(1)
	}
}

func run(log *log.Logger) error {
	if err := godotenv.Load(); err != nil {
		log.Println("main : .env file not found")
	}

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		if err == conf.ErrHelpWanted {
			usage, err := config.Usage()
			if err != nil {
				return errors.Wrap(err, "generating config usage")
			}
			fmt.Println(usage)
			fmt.Println("commands: migrate | seed <name>... | hashpassword <password>")
			return err
		}
		return err
	}

	switch cfg.Args.Num(0) {
	case "migrate":
		return withDB(cfg, func(ctx context.Context, db *postgresql.Database) error {
			if err := commands.MigrateUP(ctx, db, log); err != nil {
				return err
			}
			log.Println("migrations complete")
			return nil
		})

	case "seed":
		return withDB(cfg, func(ctx context.Context, db *postgresql.Database) error {
			n, err := commands.Seed(ctx, db, cfg.Args[1:])
			if err != nil {
				return err
			}
			log.Printf("seeded %d employees", n)
			return nil
		})

	case "hashpassword":
		password := cfg.Args.Num(1)
		if password == "" {
			return errors.New("usage: hashpassword <password>")
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil

	default:
		return errors.Errorf("unknown command %q, expected migrate, seed or hashpassword", cfg.Args.Num(0))
	}
}

func withDB(cfg config.Config, fn func(ctx context.Context, db *postgresql.Database) error) error {
	if err := cfg.ValidateDB(); err != nil {
		return err
	}

	db := postgresql.New(postgresql.Config{
		User:       cfg.DB.User,
		Password:   cfg.DB.Password,
		Host:       cfg.DB.Host,
		Port:       cfg.DB.Port,
		Name:       cfg.DB.Name,
		DisableTLS: cfg.DB.DisableTLS,
		Debug:      cfg.DB.Debug,
	})
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.StatusCheck(ctx); err != nil {
		return errors.Wrap(err, "connecting to db")
	}

	return fn(ctx, db)
}
