package model

import "context"

// Writer defines a generic interface for persisting exported flow rows.
type Writer interface {
	// Write persists one export worth of rows.
	Write(ctx context.Context, records []FlowRecord) error

	// Name identifies the writer in logs.
	Name() string
}
