package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockboard/internal/api"
	"stockboard/internal/app"
	"stockboard/internal/config"
	"stockboard/internal/util"
)

func main() {
	configPath := flag.String("config", app.DefaultConfigPath, "path to YAML config")
	flag.Parse()

	// api.base_url is not required here.
	if err := config.LoadEnvFile(); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logFile, err := util.OpenLogFile("stockboard-devapi", "")
	if err != nil {
		log.Fatal(err)
	}
	defer logFile.Close()
	logger := util.NewLogger(cfg.Logging.Level, io.MultiWriter(os.Stdout, logFile))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := api.NewServer(cfg, logger, time.Now())
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("dev api stopped", "error", err)
		os.Exit(1)
	}
}
