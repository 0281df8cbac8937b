package work

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mosaic-data/mosaic/internal/domain"
)

// wireResult is the JSON form of an ExecutionResult exchanged between a
// worker subprocess and the engine. Errors cross the process boundary as
// strings; the original error value cannot survive serialization.
type wireResult struct {
	Interface string        `json:"interface"`
	Error     string        `json:"error,omitempty"`
	Failed    bool          `json:"failed"`
	Table     *domain.Table `json:"table,omitempty"`
}

// EncodeResult writes one ExecutionResult to w in the wire format.
func EncodeResult(w io.Writer, res domain.ExecutionResult) error {
	wire := wireResult{Interface: res.Interface, Failed: res.Failed(), Table: res.Table}
	if res.Err != nil {
		wire.Error = res.Err.Error()
	}
	if err := json.NewEncoder(w).Encode(wire); err != nil {
		return fmt.Errorf("encode result for %q: %w", res.Interface, err)
	}
	return nil
}

// DecodeResult reads one wire-format result from r.
func DecodeResult(r io.Reader) (domain.ExecutionResult, error) {
	var wire wireResult
	if err := json.NewDecoder(r).Decode(&wire); err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("decode worker result: %w", err)
	}

	if wire.Failed {
		msg := wire.Error
		if msg == "" {
			msg = "unit failed without a message"
		}
		return domain.Failure(wire.Interface, errors.New(msg)), nil
	}
	if wire.Table == nil {
		return domain.ExecutionResult{}, fmt.Errorf(
			"worker result for %q has neither table nor error", wire.Interface)
	}
	return domain.Success(wire.Interface, wire.Table), nil
}
