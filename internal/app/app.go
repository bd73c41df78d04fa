package app

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"playlistomatic/internal/config"
	"playlistomatic/internal/httpx"
)

// Main loads .env and the configuration once, runs the command line and
// exits with its status.
func Main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("dotenv load error: %v", err)
	}

	cfg := config.LoadConfig()
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf(
		"Config loaded. Provider=%s Model=%s DataDir=%s Results=%s Timezone=%s ExternalHTTPTimeout=%s",
		cfg.LLMProvider,
		cfg.LLMModel,
		cfg.DataDir,
		cfg.ResultsPath,
		cfg.Timezone,
		appliedHTTPTimeout,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Execute(ctx, cfg, os.Args[1:])
	stop()
	os.Exit(code)
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(ctx context.Context, cfg config.Config, args []string) int {
	root := newRootCmd(cfg)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		printError(err.Error())
		return 1
	}
	return 0
}
