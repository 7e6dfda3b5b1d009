package base

import "github.com/pkg/errors"

// Error kinds surfaced by the communicator. Call sites wrap them with context;
// test with errors.Is.
var (
	ErrInitialization = errors.New("initialization error")
	ErrAllocation     = errors.New("allocation error")
	ErrSize           = errors.New("size error")
	ErrTopology       = errors.New("topology error")
	ErrNonFinite      = errors.New("non-finite value error")
	ErrCountMismatch  = errors.New("count mismatch")
)
