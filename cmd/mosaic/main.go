// Command mosaic fulfills data queries against a configured catalog of
// data interfaces.
//
// Usage:
//
//	mosaic fulfill -config mosaic.yaml -query query.yaml [-out result.csv]
//	mosaic list -config mosaic.yaml
//	mosaic version
//
// The exec-unit subcommand is internal: SubprocessPool re-executes this
// binary with it to run a single interface in an isolated worker process.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mosaic-data/mosaic/infrastructure/catalog"
	"github.com/mosaic-data/mosaic/infrastructure/middleware"
	"github.com/mosaic-data/mosaic/infrastructure/work"
	"github.com/mosaic-data/mosaic/internal/application"
	"github.com/mosaic-data/mosaic/internal/domain"
	"github.com/mosaic-data/mosaic/internal/ports"
	"github.com/mosaic-data/mosaic/internal/sink"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	// Stdout is reserved for results (CSV output, worker wire format);
	// all logging goes to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	var err error
	switch os.Args[1] {
	case "fulfill":
		err = runFulfill(logger, os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	case "exec-unit":
		err = runExecUnit(logger, os.Args[2:])
	case "version":
		fmt.Println(domain.Version)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: mosaic <fulfill|list|version> [flags]")
}

// buildRegistry loads the configuration and constructs the catalog.
func buildRegistry(configPath string, logger *slog.Logger) (*application.Config, *application.Registry, error) {
	cfg, err := application.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	units, err := catalog.Build(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	registry, err := application.NewRegistry(logger, units...)
	if err != nil {
		return nil, nil, err
	}
	return cfg, registry, nil
}

func runFulfill(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("fulfill", flag.ExitOnError)
	configPath := fs.String("config", "mosaic.yaml", "Catalog configuration file")
	queryPath := fs.String("query", "", "Query file to fulfill")
	outPath := fs.String("out", "-", "Output CSV path, - for stdout")
	metricsAddr := fs.String("metrics-addr", "", "Optional address serving /metrics while running")
	fs.Parse(args)

	if *queryPath == "" {
		return fmt.Errorf("-query is required")
	}

	cfg, registry, err := buildRegistry(*configPath, logger)
	if err != nil {
		return err
	}
	query, err := application.LoadQuery(*queryPath)
	if err != nil {
		return err
	}

	var pool ports.WorkerPool
	if cfg.Engine.Isolation == "goroutine" {
		logger.Warn("goroutine isolation selected, a crashing interface can take the engine down")
		pool = work.NewGoroutinePool(logger)
	} else {
		pool, err = work.NewSubprocessPool(*configPath, logger)
		if err != nil {
			return err
		}
	}

	metrics := middleware.NewPrometheusMetrics()
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	engine, err := application.NewEngine(registry, pool,
		application.WithLogger(logger),
		application.WithMetrics(metrics),
		application.WithMaxWorkers(cfg.Engine.MaxWorkers),
	)
	if err != nil {
		return err
	}

	// An interrupt stops admission of new workers; interfaces already
	// running are left to finish.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	table, err := engine.Fulfill(ctx, query)
	if err != nil {
		return err
	}

	out := os.Stdout
	if *outPath != "-" {
		out, err = os.Create(*outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", *outPath, err)
		}
		defer out.Close()
	}
	return sink.WriteCSV(out, table)
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", "mosaic.yaml", "Catalog configuration file")
	fs.Parse(args)

	// Listing is quiet: registry warnings are not interesting here.
	_, registry, err := buildRegistry(*configPath, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return err
	}

	for _, typ := range registry.Types() {
		fmt.Printf("%s:\n", typ)
		for _, u := range registry.AllByType(typ) {
			fmt.Printf("  %s\n", u.Name())
			cols := u.DeclaredColumns()
			if cols == nil {
				fmt.Println("    (no columns declared)")
				continue
			}
			names := make([]string, 0, len(cols))
			for name := range cols {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("    %-20s %s\n", name, cols[name])
			}
		}
	}
	return nil
}

// runExecUnit is the worker side of SubprocessPool: run one interface and
// write its wire-format result to stdout. A captured unit failure is a
// successful worker run; only setup problems exit nonzero.
func runExecUnit(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("exec-unit", flag.ExitOnError)
	configPath := fs.String("config", "mosaic.yaml", "Catalog configuration file")
	name := fs.String("name", "", "Interface to execute")
	fs.Parse(args)

	if *name == "" {
		return fmt.Errorf("-name is required")
	}

	_, registry, err := buildRegistry(*configPath, logger)
	if err != nil {
		return err
	}
	unit, ok := registry.Lookup(*name)
	if !ok {
		return fmt.Errorf("interface %q is not in the catalog", *name)
	}

	res := unit.Execute(context.Background())
	return work.EncodeResult(os.Stdout, res)
}
