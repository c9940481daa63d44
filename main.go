package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"inkpad/internal/app"
	"inkpad/internal/config"
	"inkpad/internal/event"
	mcpserver "inkpad/internal/mcp"
	"inkpad/internal/recognize"
	"inkpad/pkg/logger"
)

func main() {
	mcpMode := flag.Bool("mcp", false, "serve the note library over MCP on stdin/stdout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	logger.Init(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Headless host: no canvas, no OCR engine attached. The UI shell wires
	// real implementations of both when it embeds this package.
	a := app.New(cfg, event.Noop{}, recognize.Static{})
	if err := a.Startup(ctx); err != nil {
		logrus.Fatalf("startup: %v", err)
	}
	defer a.Shutdown()

	if *mcpMode {
		srv := mcpserver.New(mcpserver.Deps{
			Notebooks: a.Notebooks,
			Notes:     a.Notes,
			Tags:      a.Tags,
			Library:   a.Library,
		})
		if err := srv.ServeStdio(); err != nil {
			logrus.Fatalf("mcp server: %v", err)
		}
		return
	}

	<-ctx.Done()
	logrus.Info("shutting down")
}
