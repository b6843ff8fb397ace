package ingestion

import (
	"errors"
	"fmt"
	"os"
	"time"

	pkgerrors "github.com/pkg/errors"
)

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// WriteErrorLog overwrites path with a diagnostic for err: the full message
// followed by the deepest stack trace recorded in its chain.
func WriteErrorLog(path string, err error) error {
	f, ferr := os.Create(path)
	if ferr != nil {
		return fmt.Errorf("failed to create error log: %w", ferr)
	}
	defer f.Close()

	fmt.Fprintf(f, "ingestion failed at %s\n%s\n", time.Now().UTC().Format(time.RFC3339), err)

	var deepest stackTracer
	for e := err; e != nil; e = errors.Unwrap(e) {
		if st, ok := e.(stackTracer); ok {
			deepest = st
		}
	}
	if deepest != nil {
		fmt.Fprintf(f, "\nstack trace:%+v\n", deepest.StackTrace())
	}

	return f.Sync()
}
