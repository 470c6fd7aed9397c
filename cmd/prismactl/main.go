// Command prismactl installs and serves a declarative Minecraft server
// package set: resolve and fetch a core plus its extensions into a local
// store, validate or repair what's already there, or serve a read-only
// status view of it.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prisma-mc/prisma/internal/config"
	"github.com/prisma-mc/prisma/internal/providers"
	"github.com/prisma-mc/prisma/internal/statusapi"
	"github.com/prisma-mc/prisma/internal/store"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	log := logrus.WithField("component", "prismactl")

	var err error
	switch os.Args[1] {
	case "install":
		err = runInstall(log, os.Args[2:])
	case "validate":
		err = runValidate(log, os.Args[2:])
	case "repair":
		err = runRepair(log, os.Args[2:])
	case "serve":
		err = runServe(log, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: prismactl <install|validate|repair|serve> [flags]")
}

func openStore(configPath string) (*store.Store, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	layout := store.DefaultLayout()
	registry := providers.NewRegistry(providers.DefaultConfig())
	st := store.New(layout, registry)

	if err := st.EnsureDirs(); err != nil {
		return nil, nil, err
	}

	if err := st.Load(layout.StorePath); err != nil {
		return nil, nil, err
	}

	return st, cfg, nil
}

func runInstall(log *logrus.Entry, args []string) error {
	fs := flag.NewFlagSet("install", flag.ExitOnError)
	configPath := fs.String("config", "", "path to prisma.toml")
	_ = fs.Parse(args)

	st, cfg, err := openStore(*configPath)
	if err != nil {
		return err
	}

	items := cfg.Normalize()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := st.FillNew(ctx, items); err != nil {
		return fmt.Errorf("installing items: %w", err)
	}

	log.WithField("count", len(items)).Info("install complete")
	return nil
}

func runValidate(log *logrus.Entry, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "", "path to prisma.toml")
	_ = fs.Parse(args)

	st, _, err := openStore(*configPath)
	if err != nil {
		return err
	}

	errs := st.Validate()
	if len(errs) == 0 {
		log.Info("store is valid")
		return nil
	}

	for _, e := range errs {
		log.Error(e)
	}
	return fmt.Errorf("%d item(s) failed validation", len(errs))
}

func runRepair(log *logrus.Entry, args []string) error {
	fs := flag.NewFlagSet("repair", flag.ExitOnError)
	configPath := fs.String("config", "", "path to prisma.toml")
	_ = fs.Parse(args)

	st, _, err := openStore(*configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	errs := st.Repair(ctx)
	if len(errs) == 0 {
		log.Info("repair complete")
		return nil
	}

	for _, e := range errs {
		log.Error(e)
	}
	return fmt.Errorf("%d item(s) could not be repaired", len(errs))
}

func runServe(log *logrus.Entry, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to prisma.toml")
	_ = fs.Parse(args)

	st, _, err := openStore(*configPath)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	h := statusapi.NewHandler(st)
	r := statusapi.Router(h)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", port).Info("starting status server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
