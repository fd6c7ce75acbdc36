package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vmsops/vmsctl/internal/cli"
)

func main() {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(logLevel())
	zl, err := zapCfg.Build()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := cli.Dependencies{Log: zapr.NewLogger(zl)}
	if err := cli.Execute(ctx, deps); err != nil {
		stop()
		os.Exit(cli.ExitCodeForError(err))
	}
}

func logLevel() zapcore.Level {
	if os.Getenv("VMSCTL_DEBUG") != "" {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}
