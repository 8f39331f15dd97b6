// Package collection derives the active vector store collection name
// from the resolved embedding backend. Distinct backends produce vectors
// of different dimensionality, so they must never share a collection;
// suffixing the name with the backend identity enforces that unless an
// explicit override pins a single name.
package collection

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/siherrmann/ragcore/core/embedding"
	"github.com/siherrmann/ragcore/helper"
	"github.com/siherrmann/ragcore/store"
)

// DefaultBaseName is the collection name prefix used without an override
const DefaultBaseName = "rag_docs"

var nonAlphanumeric = regexp.MustCompile(`[^0-9a-zA-Z]+`)

// Manager computes the active collection name and drives best-effort
// collection resets during recovery.
type Manager struct {
	base     string
	override string
	dataDir  string
	resolver *embedding.Resolver
	store    store.Store
	log      *slog.Logger
}

// NewManager creates a namespace manager on top of the resolver's
// current backend info.
func NewManager(config *helper.Configuration, resolver *embedding.Resolver, st store.Store, logger *slog.Logger) *Manager {
	return &Manager{
		base:     DefaultBaseName,
		override: config.CollectionOverride,
		dataDir:  config.DataDir,
		resolver: resolver,
		store:    st,
		log:      logger,
	}
}

// CurrentName returns the active collection name. It is recomputed on
// every call so a backend fallback is reflected immediately. An override
// is returned verbatim and ignores the embedding backend entirely.
func (m *Manager) CurrentName() string {
	if m.override != "" {
		return m.override
	}

	info := m.resolver.Info()
	suffix := string(info.Resolved)
	if suffix == "" {
		suffix = string(info.Configured)
	}

	return m.base + "_" + Sanitize(suffix)
}

// Settings returns the persisted storage directory and the active
// collection name.
func (m *Manager) Settings() (string, string) {
	return m.dataDir, m.CurrentName()
}

// Reset deletes the active collection so it can be rebuilt with vectors
// of the new dimensionality. Reset is a best-effort recovery step: a
// missing collection is fine and failures are logged, not returned.
func (m *Manager) Reset(ctx context.Context) {
	name := m.CurrentName()
	if err := m.store.Drop(ctx, name); err != nil {
		m.log.Warn("Failed to drop collection during reset",
			slog.String("collection", name), slog.Any("error", err))
		return
	}
	m.log.Warn("Dropped collection, it must be re-ingested with the new embeddings",
		slog.String("collection", name))
}

// Sanitize normalizes a backend identifier into a collection name
// suffix: non-alphanumeric runs become a single underscore, leading and
// trailing underscores are trimmed, and an empty result falls back to
// "default".
func Sanitize(raw string) string {
	normalized := nonAlphanumeric.ReplaceAllString(raw, "_")
	normalized = strings.Trim(normalized, "_")
	if normalized == "" {
		return "default"
	}
	return normalized
}
