// Package recovery keeps the vector index consistent across embedding
// model changes. When an ingest or query hits a vector-dimensionality
// mismatch, the controller resets the collection, refreshes the
// embedding backend and retries the operation exactly once. The retry
// bound is structural: the state machine has no edge back from failed.
package recovery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/siherrmann/ragcore/collection"
	"github.com/siherrmann/ragcore/core/embedding"
	"github.com/siherrmann/ragcore/model"
)

// State is the per-request recovery state
type State int

const (
	StateNormal State = iota
	StateRecovering
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateRecovering:
		return "recovering"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Controller drives the reset-and-retry protocol. It is stateless
// between requests; every Run starts fresh in StateNormal.
type Controller struct {
	names    *collection.Manager
	resolver *embedding.Resolver
	log      *slog.Logger
}

// NewController creates a new recovery controller
func NewController(names *collection.Manager, resolver *embedding.Resolver, logger *slog.Logger) *Controller {
	return &Controller{
		names:    names,
		resolver: resolver,
		log:      logger,
	}
}

// Run executes op, recovering from a single dimensionality mismatch by
// resetting the collection and retrying once. Recovery is destructive:
// previously ingested vectors of the collection are discarded. Every
// other error propagates unmodified.
func (c *Controller) Run(ctx context.Context, op func(ctx context.Context) error) error {
	state := StateNormal
	var cause error

	for {
		switch state {
		case StateNormal:
			err := op(ctx)
			if err == nil {
				return nil
			}
			if !model.IsDimensionMismatch(err) {
				return err
			}
			cause = err
			state = StateRecovering

		case StateRecovering:
			c.log.Warn("Embedding dimensionality mismatch detected, resetting collection and retrying once",
				slog.Any("error", cause))

			c.names.Reset(ctx)

			if _, err := c.resolver.Resolve(ctx, true); err != nil {
				cause = err
				state = StateFailed
				continue
			}

			if err := op(ctx); err != nil {
				cause = err
				state = StateFailed
				continue
			}

			c.log.Warn("Recovered after collection reset, previously ingested vectors were discarded",
				slog.String("collection", c.names.CurrentName()))
			return nil

		case StateFailed:
			_, name := c.names.Settings()
			return &model.ConfigurationError{
				Err: fmt.Errorf(
					"vector dimensions still do not match collection %q after a reset: %w; clear the collection or set RAG_COLLECTION to a new name",
					name, cause,
				),
			}
		}
	}
}
