// Package ports defines the contracts between the fulfillment core and the
// pluggable pieces around it: data interfaces, the downloaders and
// processors they are assembled from, and the worker pools that run them.
// These interfaces enable dependency inversion and make the engine testable.
package ports

import (
	"context"

	"github.com/mosaic-data/mosaic/internal/domain"
)

// DataInterface is a self-contained retrieval+transform unit producing one
// tabular result. Any type exposing this contract qualifies; the registry
// checks it at registration time, not at definition time.
//
// Implementations must convert every error raised during their own
// execution into a Failure-tagged result rather than panicking past the
// worker boundary. The engine still defends against implementations that
// break this rule, but relying on that defense loses the failure's context.
type DataInterface interface {
	// Name returns the unit's unique identifier within a registry.
	// Queries reference units by this name.
	Name() string

	// Type returns the unit's data category. Units selected together by a
	// query are expected, but not required, to share one type.
	Type() string

	// DeclaredColumns returns the column contract the unit promises to
	// produce, mapping column name to description. A nil map means the
	// unit declares no specific columns. The promise is checked after
	// execution as a warning, never enforced.
	DeclaredColumns() map[string]string

	// Execute downloads and transforms the unit's data, returning either
	// a table or a captured failure. Execute never panics and never
	// returns a result with neither table nor error.
	Execute(ctx context.Context) domain.ExecutionResult
}

// Downloader retrieves the raw payload a data interface transforms.
// Implementations own their transport concerns: rate limiting, retries,
// authentication.
type Downloader interface {
	// Retrieve fetches the raw bytes from the remote source.
	Retrieve(ctx context.Context) ([]byte, error)
}

// Processor digests a raw payload into a table. The name parameter is the
// owning interface's name, for error context.
type Processor interface {
	Process(name string, raw []byte) (*domain.Table, error)
}

// WorkerPool runs a batch of data interfaces with bounded parallelism and
// delivers each unit's result exactly once.
type WorkerPool interface {
	// Run dispatches every unit, waits for all of them to complete, and
	// returns their results indexed identically to units, regardless of
	// completion order. Run never short-circuits: a failing unit does not
	// cancel its siblings, because in-flight units may have side effects
	// that should not be abandoned.
	//
	// Cancelling ctx stops admission of not-yet-started units, whose
	// results become failures wrapping the context error. Already running
	// units are left to finish.
	Run(ctx context.Context, units []DataInterface, workers int) []domain.ExecutionResult
}
