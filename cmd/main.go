package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"ChurchLedger/internal/appmanager"
	"ChurchLedger/internal/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("churchledger", pflag.ContinueOnError)
	envFile := flags.String("env-file", ".env", "dotenv file loaded before reading the environment")
	servicesPath := flags.String("services", "services.yaml", "service sequence file")
	storeKind := flags.String("store", appmanager.StorePostgres, "ledger backend: postgres or memory")
	if err := flags.Parse(args); err != nil {
		return err
	}

	// Load .env for local dev; a missing file is fine in deployments.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}
	env, err := config.ParseEnv()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	res, err := appmanager.NewResources(ctx, env, *storeKind)
	if err != nil {
		return err
	}
	defer res.Close()

	servicesCfg, err := appmanager.LoadServiceSequence(*servicesPath)
	if err != nil {
		return fmt.Errorf("failed to load service sequence: %w", err)
	}

	manager := appmanager.NewAppManager(res)
	if err := manager.AutoRegisterServices(servicesCfg); err != nil {
		return err
	}
	if err := manager.StartAll(); err != nil {
		manager.StopAll()
		return fmt.Errorf("failed to start: %w", err)
	}

	// Graceful shutdown handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	if err := manager.StopAll(); err != nil {
		return fmt.Errorf("failed to stop: %w", err)
	}
	return nil
}
