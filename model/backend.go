package model

import "fmt"

// BackendKind identifies an embedding backend implementation.
type BackendKind string

const (
	// BackendGemini maps text to vectors through the Gemini embedding
	// API. Requires GEMINI_API_KEY or GOOGLE_API_KEY.
	BackendGemini BackendKind = "gemini"
	// BackendLocal runs a sentence-transformer ONNX model in-process
	// and needs no credentials.
	BackendLocal BackendKind = "local"
)

// ParseBackendKind validates a configured backend name.
func ParseBackendKind(raw string) (BackendKind, error) {
	switch BackendKind(raw) {
	case BackendGemini, BackendLocal:
		return BackendKind(raw), nil
	case "":
		return BackendGemini, nil
	default:
		return "", &ConfigurationError{
			Err: fmt.Errorf("unsupported embedding backend %q, set EMBEDDING_BACKEND to %q or %q", raw, BackendGemini, BackendLocal),
		}
	}
}

// BackendInfo describes the configured and actually resolved embedding
// backend. It is built on resolution and replaced atomically as a whole,
// never field by field.
type BackendInfo struct {
	Configured BackendKind `json:"configured_backend"`
	Resolved   BackendKind `json:"resolved_backend,omitempty"` // empty until a backend was constructed
	Model      string      `json:"model,omitempty"`
	Fallback   bool        `json:"fallback"`
	Error      string      `json:"error,omitempty"` // cause of the fallback, if one occurred
}
