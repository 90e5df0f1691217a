// Package oplog is the cross-cutting failure logger for service operations.
//
// The services log every failure exactly once, with the operation name and
// its inputs, before surfacing the unchanged error to the caller. Instead
// of repeating that block in every method, operations run through Do.
package oplog

import (
	"context"

	"github.com/ignite/crm-backoffice/internal/pkg/logger"
)

// Do runs fn and, if it fails, logs the operation name, the given
// key-value fields, and the error. The error is returned unchanged: Do
// never swallows, wraps, or retries.
func Do(ctx context.Context, op string, fields []interface{}, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logger.Error("operation failed", append([]interface{}{"op", op, "error", err.Error()}, fields...)...)
		return err
	}
	return nil
}

// Get is Do for operations that return a value alongside the error.
func Get[T any](ctx context.Context, op string, fields []interface{}, fn func(context.Context) (T, error)) (T, error) {
	out, err := fn(ctx)
	if err != nil {
		logger.Error("operation failed", append([]interface{}{"op", op, "error", err.Error()}, fields...)...)
	}
	return out, err
}

// Fields builds the fields slice for Do/Get; purely cosmetic sugar so call
// sites read as Fields("lead_id", id, "delta", delta).
func Fields(kv ...interface{}) []interface{} { return kv }
