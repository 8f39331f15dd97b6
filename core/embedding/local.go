package embedding

import (
	"context"
	"fmt"

	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/ragcore/helper"
	"github.com/siherrmann/ragcore/model"
)

// LocalEmbedder runs a sentence-transformer ONNX model in-process.
// The default all-MiniLM-L6-v2 model produces 384-dimensional vectors.
// Construction failures (missing model files, download errors, runtime
// setup) are reported as DependencyError so the resolver can fall back.
type LocalEmbedder struct {
	session   *hugot.Session
	embed     func(text string) ([]float32, error)
	modelName string
}

// NewLocalEmbedder downloads the model if needed and loads it
func NewLocalEmbedder(modelName string) (*LocalEmbedder, error) {
	modelPath, err := helper.PrepareModel(modelName, "onnx/model.onnx")
	if err != nil {
		return nil, &model.DependencyError{Backend: model.BackendLocal, Err: err}
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, &model.DependencyError{
			Backend: model.BackendLocal,
			Err:     fmt.Errorf("failed to create hugot session: %w", err),
		}
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "ragcore-embedder",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			err = fmt.Errorf("%w (cleanup error: %v)", err, destroyErr)
		}
		return nil, &model.DependencyError{
			Backend: model.BackendLocal,
			Err:     fmt.Errorf("failed to create sentence pipeline: %w", err),
		}
	}

	embed := func(text string) ([]float32, error) {
		result, err := sentencePipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}
		if len(result.Embeddings) == 0 {
			return nil, fmt.Errorf("no embedding generated")
		}
		return result.Embeddings[0], nil
	}

	return &LocalEmbedder{
		session:   session,
		embed:     embed,
		modelName: modelName,
	}, nil
}

// Embed generates an embedding for the text. The model runs fully
// in-process, so the context is only consulted for early cancellation.
func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.embed(text)
}

// Model returns the loaded model name
func (e *LocalEmbedder) Model() string {
	return e.modelName
}

// Close releases the inference session
func (e *LocalEmbedder) Close() error {
	return e.session.Destroy()
}
