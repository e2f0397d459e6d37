package classifier

import "context"

// Prediction is the raw outcome of one forward pass.
type Prediction struct {
	Label       string
	Index       int
	Probability float64
}

// Result is what callers render for a classification request.
type Result struct {
	Kind       Kind     `json:"kind"`
	Model      string   `json:"model"`
	Classes    []string `json:"classes"`
	Label      string   `json:"predicted"`
	Confidence float64  `json:"confidence"`
	Demo       bool     `json:"demo"`
	Notice     string   `json:"notice,omitempty"`
}

// Status reports whether a classifier has a loaded engine.
type Status struct {
	Kind      Kind   `json:"kind"`
	Model     string `json:"model"`
	Loaded    bool   `json:"loaded"`
	LastError string `json:"lastError,omitempty"`
}

// Engine runs one forward pass on an already preprocessed tensor and returns
// the first output row.
type Engine interface {
	Run(ctx context.Context, input []float32, shape []int64) ([]float32, error)
	Close() error
}

// Loader turns a model artifact into an Engine.
type Loader interface {
	Load(cfg ModelConfig) (Engine, error)
}
