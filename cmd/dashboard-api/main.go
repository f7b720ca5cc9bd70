package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"attendance/dashboard/foundation/web"
	"attendance/dashboard/internal/auth"
	"attendance/dashboard/internal/changefeed"
	"attendance/dashboard/internal/hub"
	"attendance/dashboard/internal/pkg/config"
	"attendance/dashboard/internal/pkg/repository/postgresql"
	"attendance/dashboard/internal/reconcile"
	"attendance/dashboard/internal/repository/postgres/recordstore"
	"attendance/dashboard/internal/router"
	"attendance/dashboard/internal/store"
	"attendance/dashboard/internal/store/memory"
	"attendance/dashboard/internal/timepolicy"

	"github.com/ardanlabs/conf"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

func main() {
	log := log.New(os.Stdout, "DASHBOARD : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	if err := run(log); err != nil {
		log.Println("main : error :", err)
		os.Exit(1)
	}
}

func run(log *log.Logger) error {

	// =========================================================================
	// Configuration

	if err := godotenv.Load(); err != nil {
		log.Println("main : .env file not found")
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if err == conf.ErrHelpWanted {
			usage, err := config.Usage()
			if err != nil {
				return errors.Wrap(err, "generating config usage")
			}
			fmt.Println(usage)
			return nil
		}
		return err
	}

	out, err := cfg.String()
	if err != nil {
		return errors.Wrap(err, "generating config for output")
	}
	log.Printf("main : Config :\n%v\n", out)

	policy, err := timepolicy.New(cfg.Policy.LateAfter, cfg.Policy.Location)
	if err != nil {
		return err
	}

	// =========================================================================
	// Record store

	var (
		st store.Store
		db *postgresql.Database
	)

	switch cfg.Store {
	case config.StoreMemory:
		log.Println("main : using in-memory store")
		st = memory.New(memory.WithEcho())

	default:
		db = postgresql.New(postgresql.Config{
			User:         cfg.DB.User,
			Password:     cfg.DB.Password,
			Host:         cfg.DB.Host,
			Port:         cfg.DB.Port,
			Name:         cfg.DB.Name,
			DisableTLS:   cfg.DB.DisableTLS,
			MaxOpenConns: cfg.DB.MaxOpenConns,
			Debug:        cfg.DB.Debug,
		})
		defer func() {
			log.Printf("main : Database Stopping : %s", cfg.DB.Host)
			db.Close()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.StatusCheck(ctx); err != nil {
			return errors.Wrap(err, "connecting to db")
		}

		var (
			feed      changefeed.Feed
			publisher changefeed.Publisher
		)
		switch cfg.Feed {
		case config.FeedRedis:
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer rdb.Close()

			if err := rdb.Ping(ctx).Err(); err != nil {
				return errors.Wrap(err, "connecting to redis")
			}

			r := changefeed.NewRedis(rdb, cfg.Redis.Channel, log)
			feed, publisher = r, r
		default:
			feed = changefeed.NewPostgres(db, changefeed.Channel, log)
		}

		st = recordstore.New(db, feed, publisher, log)
	}

	// =========================================================================
	// Board

	a, err := auth.New(cfg.Auth.Key, cfg.Auth.Issuer, cfg.Auth.TTL,
		auth.User{Username: cfg.Auth.AdminUser, PasswordHash: cfg.Auth.AdminHash, Role: auth.RoleAdmin},
		auth.User{Username: cfg.Auth.DashboardUser, PasswordHash: cfg.Auth.DashboardHash, Role: auth.RoleDashboard},
	)
	if err != nil {
		return errors.Wrap(err, "constructing auth")
	}
	if cfg.Auth.AdminHash == "" {
		log.Println("main : no admin password hash configured, sign-in is disabled for admin")
	}

	h := hub.New(log, hub.DefaultBuffer)
	engine := reconcile.New(st, policy, log, h)
	defer func() {
		if err := engine.Close(); err != nil {
			log.Printf("main : closing board : %v", err)
		}
	}()

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 15*time.Second)
	if err := engine.SelectDate(loadCtx, policy.TodayKey()); err != nil {
		log.Printf("main : initial load : %v", err)
	}
	cancelLoad()

	rolloverCtx, stopRollover := context.WithCancel(context.Background())
	defer stopRollover()
	go rollover(rolloverCtx, log, engine, cfg.Policy.Rollover)

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := web.NewApp(log)
	router.NewRouter(app, db, engine, h, a, cfg.Web.AllowedOrigins).Init()

	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      app,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		log.Printf("main : API listening on %s", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return errors.Wrap(err, "server error")

	case sig := <-shutdown:
		log.Printf("main : %v : Start shutdown", sig)

		stopRollover()

		// Streams end once their client channel is closed.
		h.Close()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return errors.Wrap(err, "could not stop server gracefully")
		}

		log.Printf("main : %v : Completed shutdown", sig)
	}

	return nil
}

// rollover moves a board that follows today onto the new day.
func rollover(ctx context.Context, log *log.Logger, engine *reconcile.Engine, every time.Duration) {
	if every <= 0 {
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			moved, err := engine.Rollover(ctx)
			if err != nil {
				log.Printf("main : rollover : %v", err)
				continue
			}
			if moved {
				log.Printf("main : board moved to %s", engine.Snapshot().Date)
			}
		}
	}
}
