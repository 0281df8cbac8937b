package catalog

import (
	"fmt"
	"log/slog"

	"github.com/mosaic-data/mosaic/infrastructure/download"
	"github.com/mosaic-data/mosaic/infrastructure/tabulate"
	"github.com/mosaic-data/mosaic/internal/application"
	"github.com/mosaic-data/mosaic/internal/ports"
)

// Build constructs every data interface declared in the configuration.
// The same configuration produces the same catalog in the parent engine
// process and in worker subprocesses.
func Build(cfg *application.Config, logger *slog.Logger) ([]ports.DataInterface, error) {
	units := make([]ports.DataInterface, 0, len(cfg.Catalog))
	for _, ic := range cfg.Catalog {
		unit, err := buildOne(ic, logger)
		if err != nil {
			return nil, fmt.Errorf("interface %q: %w", ic.Name, err)
		}
		units = append(units, unit)
	}
	return units, nil
}

func buildOne(ic application.InterfaceConfig, logger *slog.Logger) (*DataInterface, error) {
	dl, err := buildDownloader(ic.Source, logger)
	if err != nil {
		return nil, err
	}
	proc, err := buildProcessor(ic.Format)
	if err != nil {
		return nil, err
	}
	return New(ic.Name, ic.Type, ic.Columns, dl, proc, logger)
}

func buildDownloader(src application.SourceConfig, logger *slog.Logger) (ports.Downloader, error) {
	switch src.Kind {
	case "http":
		return download.NewHTTP(src.URL, download.HTTPOptions{
			RatePerSecond: src.RatePerSecond,
			Retries:       src.Retries,
			Logger:        logger,
		})
	case "s3":
		return download.NewObjectStore(download.ObjectStoreOptions{
			Endpoint:  src.Endpoint,
			Bucket:    src.Bucket,
			Key:       src.Key,
			AccessKey: src.AccessKey,
			SecretKey: src.SecretKey,
			UseSSL:    src.UseSSL,
		})
	case "file":
		return download.NewFile(src.Path)
	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
}

func buildProcessor(format application.FormatConfig) (ports.Processor, error) {
	switch format.Kind {
	case "csv":
		return tabulate.NewCSV(',', format.FoldHeaders), nil
	case "tsv":
		return tabulate.NewCSV('\t', format.FoldHeaders), nil
	case "json":
		return tabulate.NewJSON(format.FoldHeaders), nil
	default:
		return nil, fmt.Errorf("unknown format kind %q", format.Kind)
	}
}
