package domain

// ExecutionResult is the tagged outcome of one data interface run: either a
// Table or a captured failure, never both. Failures travel as data rather
// than as raised errors so that a worker process can hand them back to the
// engine intact, which decides their fate only after every unit finishes.
type ExecutionResult struct {
	// Interface is the name of the unit that produced this result.
	Interface string

	// Table is the produced dataset. Nil when the unit failed.
	Table *Table

	// Err is the captured failure. Nil when the unit succeeded.
	Err error
}

// Success wraps a produced table in an ExecutionResult.
func Success(iface string, table *Table) ExecutionResult {
	return ExecutionResult{Interface: iface, Table: table}
}

// Failure wraps a captured error in an ExecutionResult.
func Failure(iface string, err error) ExecutionResult {
	return ExecutionResult{Interface: iface, Err: err}
}

// Failed reports whether the result carries a failure. A result with
// neither table nor error counts as failed; a unit that returns nothing
// has broken its contract.
func (r ExecutionResult) Failed() bool {
	return r.Err != nil || r.Table == nil
}
