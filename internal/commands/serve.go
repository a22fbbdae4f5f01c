package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/idelchi/cloak/internal/config"
	"github.com/idelchi/cloak/internal/logic"
	"github.com/idelchi/cloak/internal/server"
)

// NewServeCommand creates a new cobra command for the serve subcommand.
func NewServeCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve [flags]",
		Short:   "Serve the folder gate over HTTP",
		Args:    cobra.NoArgs,
		PreRunE: preRun(cfg),
		RunE:    run(cfg, runServe),
	}

	cmd.Flags().String("addr", ":8080", "Listen address")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, _ logic.Streams) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := logic.NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	gin.SetMode(gin.ReleaseMode)

	srv, err := server.New(app)
	if err != nil {
		return err
	}

	return srv.Run(ctx, cfg.Addr)
}
