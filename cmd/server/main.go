package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"gallery3d/internal/api"
	"gallery3d/internal/config"
	"gallery3d/internal/geometry/vector"
	"gallery3d/internal/layout"
	"gallery3d/internal/logging"
	"gallery3d/internal/sim"
)

var (
	cfgFile string
	count   int
	seed    int64
	format  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gallery3d",
		Short: "gallery3d — scattered image gallery with a navigable camera",
	}
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to config file (default: configs/config.yaml)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the camera engine and HTTP API",
		RunE:  runServe,
	}

	layoutCmd := &cobra.Command{
		Use:   "layout",
		Short: "Generate item positions and print them",
		RunE:  runLayout,
	}
	layoutCmd.Flags().IntVarP(&count, "count", "n", 30, "Number of positions to generate")
	layoutCmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed, overrides layout.seed when non-zero")
	layoutCmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml | json")

	rootCmd.AddCommand(serveCmd, layoutCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return errors.Wrap(err, "config load")
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return errors.Wrap(err, "logger init")
	}
	defer logger.Sync()

	eng := sim.New(sim.Config{
		TickHz:   cfg.Server.TickHz,
		Standoff: cfg.Scene.Standoff,
		Nav:      cfg.Nav,
	}, logger)

	server := api.NewServer(eng, api.Options{
		Layout:   cfg.Layout.Request,
		Seed:     cfg.Layout.Seed,
		Adjuster: cfg.Scene.Adjuster(),
	}, logger)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return eng.Run(ctx)
	})
	g.Go(func() error {
		logger.Info("starting HTTP server", zap.String("addr", cfg.Server.Addr), zap.String("session", eng.Session()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("shutdown complete")
	return err
}

type layoutOutput struct {
	Seed      int64          `json:"seed" yaml:"seed"`
	Request   layout.Request `json:"request" yaml:"request"`
	Positions []vector.Vec3  `json:"positions" yaml:"positions"`
	Unplaced  int            `json:"unplaced" yaml:"unplaced"`
	Attempts  int            `json:"attempts" yaml:"attempts"`
}

func runLayout(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return errors.Wrap(err, "config load")
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return errors.Wrap(err, "logger init")
	}
	defer logger.Sync()

	req := cfg.Layout.Request
	req.ItemCount = count
	s := cfg.Layout.Seed
	if seed != 0 {
		s = seed
	}

	res, err := layout.NewGenerator(logger).Generate(req, layout.NewRand(s))
	if err != nil {
		return err
	}

	out := layoutOutput{
		Seed:      s,
		Request:   req,
		Positions: res.Positions,
		Unplaced:  res.Unplaced,
		Attempts:  res.Attempts,
	}

	w := cmd.OutOrStdout()
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(out)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	return errors.Errorf("unknown format: %s (use 'yaml' or 'json')", format)
}
