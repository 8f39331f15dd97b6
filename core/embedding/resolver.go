package embedding

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/siherrmann/ragcore/helper"
	"github.com/siherrmann/ragcore/model"
)

// Embedder is the uniform capability every resolved backend provides
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Handle is an immutable (info, embedder) pair. The resolver replaces
// the whole handle atomically on re-resolution, so readers never observe
// a half-updated tuple.
type Handle struct {
	Info     model.BackendInfo
	Embedder Embedder
}

// Resolver selects and caches the embedding backend. Construction can be
// expensive (network calls, local model loads), so a successful
// resolution is reused until a forced refresh.
type Resolver struct {
	config *helper.Configuration
	log    *slog.Logger

	mu     sync.Mutex // serializes rebuilds
	handle atomic.Pointer[Handle]

	// Construction funcs, replaceable in tests
	newLocal  func(modelName string) (Embedder, error)
	newGemini func(ctx context.Context, modelName string, apiKey string) (Embedder, error)
}

// NewResolver creates a resolver for the configured backend
func NewResolver(config *helper.Configuration, logger *slog.Logger) *Resolver {
	r := &Resolver{
		config: config,
		log:    logger,
	}
	r.newLocal = func(modelName string) (Embedder, error) {
		return NewLocalEmbedder(modelName)
	}
	r.newGemini = func(ctx context.Context, modelName string, apiKey string) (Embedder, error) {
		return NewGeminiEmbedder(ctx, modelName, apiKey)
	}
	return r
}

// Resolve returns the cached handle, constructing one on first use.
// With forceRefresh the backend is reconstructed and the cache replaced,
// which admin status checks and dimension recovery rely on.
func (r *Resolver) Resolve(ctx context.Context, forceRefresh bool) (*Handle, error) {
	if !forceRefresh {
		if handle := r.handle.Load(); handle != nil {
			return handle, nil
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another request may have resolved while we waited for the lock
	if !forceRefresh {
		if handle := r.handle.Load(); handle != nil {
			return handle, nil
		}
	}

	handle, err := r.build(ctx)
	if err != nil {
		return nil, err
	}

	if previous := r.handle.Load(); previous != nil && previous.Embedder != handle.Embedder {
		if closer, ok := previous.Embedder.(io.Closer); ok {
			if closeErr := closer.Close(); closeErr != nil {
				r.log.Warn("Failed to close previous embedder", slog.Any("error", closeErr))
			}
		}
	}
	r.handle.Store(handle)

	return handle, nil
}

// build constructs the configured backend, applying the fallback rules:
// a broken local backend falls back to gemini when a key is available,
// a broken or unconfigured gemini backend fails immediately.
func (r *Resolver) build(ctx context.Context) (*Handle, error) {
	configured, err := model.ParseBackendKind(r.config.EmbeddingBackend)
	if err != nil {
		return nil, err
	}

	switch configured {
	case model.BackendGemini:
		embedder, err := r.newGemini(ctx, r.config.GeminiModel, r.config.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		r.log.Info("Resolved embedding backend",
			slog.String("backend", string(model.BackendGemini)),
			slog.String("model", embedder.Model()))
		return &Handle{
			Info: model.BackendInfo{
				Configured: configured,
				Resolved:   model.BackendGemini,
				Model:      embedder.Model(),
			},
			Embedder: embedder,
		}, nil

	case model.BackendLocal:
		embedder, localErr := r.newLocal(r.config.LocalModel)
		if localErr == nil {
			r.log.Info("Resolved embedding backend",
				slog.String("backend", string(model.BackendLocal)),
				slog.String("model", embedder.Model()))
			return &Handle{
				Info: model.BackendInfo{
					Configured: configured,
					Resolved:   model.BackendLocal,
					Model:      embedder.Model(),
				},
				Embedder: embedder,
			}, nil
		}

		r.log.Warn("Local embedding backend failed, falling back to gemini",
			slog.Any("error", localErr))

		if r.config.GeminiAPIKey == "" {
			return nil, &model.ConfigurationError{
				Err: fmt.Errorf("local embedding backend failed (%v) and no GEMINI_API_KEY is set for the gemini fallback", localErr),
			}
		}

		fallback, geminiErr := r.newGemini(ctx, r.config.GeminiModel, r.config.GeminiAPIKey)
		if geminiErr != nil {
			return nil, &model.ConfigurationError{
				Err: fmt.Errorf("local embedding backend failed (%v) and the gemini fallback failed too (%v)", localErr, geminiErr),
			}
		}

		return &Handle{
			Info: model.BackendInfo{
				Configured: configured,
				Resolved:   model.BackendGemini,
				Model:      fallback.Model(),
				Fallback:   true,
				Error:      localErr.Error(),
			},
			Embedder: fallback,
		}, nil

	default:
		return nil, &model.ConfigurationError{
			Err: fmt.Errorf("unsupported embedding backend %q", configured),
		}
	}
}

// Info returns the current backend info without constructing anything.
// Before the first resolution it reports the configured backend with an
// empty resolved field.
func (r *Resolver) Info() model.BackendInfo {
	if handle := r.handle.Load(); handle != nil {
		return handle.Info
	}
	configured, err := model.ParseBackendKind(r.config.EmbeddingBackend)
	if err != nil {
		return model.BackendInfo{
			Configured: model.BackendKind(r.config.EmbeddingBackend),
			Error:      err.Error(),
		}
	}
	return model.BackendInfo{Configured: configured}
}

// Status reports the backend info for admin introspection. With
// forceRefresh the backend is reconstructed first.
func (r *Resolver) Status(ctx context.Context, forceRefresh bool) (model.BackendInfo, error) {
	if forceRefresh {
		handle, err := r.Resolve(ctx, true)
		if err != nil {
			return r.Info(), err
		}
		return handle.Info, nil
	}
	return r.Info(), nil
}

// Close releases the cached embedder if it holds resources
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle := r.handle.Load()
	if handle == nil {
		return nil
	}
	if closer, ok := handle.Embedder.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
