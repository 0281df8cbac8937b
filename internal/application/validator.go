package application

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/agnivade/levenshtein"

	"github.com/mosaic-data/mosaic/internal/domain"
)

// maxSuggestionDistance bounds how far a registered name may be from a
// mistyped one before it stops being offered as a suggestion.
const maxSuggestionDistance = 3

// ValidateQuery checks a query against the registry before any execution.
// It is free of side effects beyond logging and is idempotent: the same
// query and registry always produce the same outcome.
//
// Hard failures, both *domain.InvalidQueryError:
//   - no registered interface has the query's type
//   - a name in the query is not a registered interface
//
// Non-fatal conditions, logged at warning level:
//   - the selected interfaces' types are not all equal to the query's type
//     (the downstream merge may fail)
//   - the query was produced by a different engine version
func ValidateQuery(logger *slog.Logger, registry *Registry, query domain.Query) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if !slices.Contains(registry.Types(), query.Type) {
		logger.Error("query is invalid: unsupported type", "type", query.Type)
		return &domain.InvalidQueryError{
			Reason: domain.ErrUnsupportedType,
			Detail: fmt.Sprintf("no registered interface has type %q", query.Type),
		}
	}

	for _, name := range query.Interfaces {
		if _, ok := registry.Lookup(name); !ok {
			detail := fmt.Sprintf("interface %q is not registered", name)
			if hint := nearestName(name, registry.Names()); hint != "" {
				detail += fmt.Sprintf(" (did you mean %q?)", hint)
			}
			logger.Error("query is invalid: unsupported interface", "interface", name)
			return &domain.InvalidQueryError{
				Reason: domain.ErrUnsupportedInterface,
				Detail: detail,
			}
		}
	}

	for _, name := range query.Interfaces {
		u, _ := registry.Lookup(name)
		if u.Type() != query.Type {
			logger.Warn("not all query interfaces have the query's type, merging may fail",
				"interface", name, "interface_type", u.Type(), "query_type", query.Type)
		}
	}

	if query.ProducedBy != domain.Version {
		logger.Warn("query was produced by a different engine version",
			"query_version", query.ProducedBy, "engine_version", domain.Version)
	}

	return nil
}

// nearestName returns the registered name closest to the given one, or ""
// when nothing is within maxSuggestionDistance edits.
func nearestName(name string, names []string) string {
	best := ""
	bestDist := maxSuggestionDistance + 1
	for _, candidate := range names {
		if d := levenshtein.ComputeDistance(name, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}
