package classifier

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind names one of the hosted classifiers.
type Kind string

const (
	KindSkin Kind = "skin"
	KindNail Kind = "nail"
)

// Normalization selects the pixel transform applied before inference.
type Normalization string

const (
	// NormalizeEfficientNet feeds raw 0..255 values; EfficientNet exports rescale internally.
	NormalizeEfficientNet Normalization = "efficientnet"
	// NormalizeCaffe converts RGB to BGR and subtracts the ImageNet channel means (ResNet50).
	NormalizeCaffe Normalization = "caffe"
	// NormalizeUnit scales values into [0,1].
	NormalizeUnit Normalization = "unit"
	// NormalizeTorch scales into [0,1] then applies ImageNet mean/std.
	NormalizeTorch Normalization = "torch"
)

// Layout is the memory order of the input tensor.
type Layout string

const (
	LayoutNHWC Layout = "nhwc"
	LayoutNCHW Layout = "nchw"
)

// UnknownLabel is reported when the model emits more classes than configured.
const UnknownLabel = "Unknown"

// ModelConfig describes one classifier instance. It is immutable once the
// classifier is constructed.
type ModelConfig struct {
	Kind            Kind
	ModelPath       string
	InputHeight     int
	InputWidth      int
	Labels          []string
	Normalization   Normalization
	Layout          Layout
	InputName       string
	OutputName      string
	TitleCaseLabels bool
	DemoLabel       string
	DemoConfidence  float64
}

// Config groups the classifiers served by the process.
type Config struct {
	Skin ModelConfig
	Nail ModelConfig
}

// ModelName is the artifact file name shown next to predictions.
func (c ModelConfig) ModelName() string {
	return filepath.Base(c.ModelPath)
}

// Validate rejects configurations that cannot produce a tensor.
func (c ModelConfig) Validate() error {
	if c.InputHeight <= 0 || c.InputWidth <= 0 {
		return fmt.Errorf("%s: input size must be positive", c.Kind)
	}
	if len(c.Labels) == 0 {
		return fmt.Errorf("%s: labels cannot be empty", c.Kind)
	}
	if _, err := ParseNormalization(string(c.Normalization)); err != nil {
		return fmt.Errorf("%s: %w", c.Kind, err)
	}
	if _, err := ParseLayout(string(c.Layout)); err != nil {
		return fmt.Errorf("%s: %w", c.Kind, err)
	}
	return nil
}

// ParseNormalization maps a configuration string onto a Normalization.
func ParseNormalization(raw string) (Normalization, error) {
	switch n := Normalization(strings.ToLower(strings.TrimSpace(raw))); n {
	case NormalizeEfficientNet, NormalizeCaffe, NormalizeUnit, NormalizeTorch:
		return n, nil
	case "resnet50":
		return NormalizeCaffe, nil
	default:
		return "", fmt.Errorf("unknown normalization %q", raw)
	}
}

// ParseLayout maps a configuration string onto a Layout. Empty means NHWC.
func ParseLayout(raw string) (Layout, error) {
	switch l := Layout(strings.ToLower(strings.TrimSpace(raw))); l {
	case "":
		return LayoutNHWC, nil
	case LayoutNHWC, LayoutNCHW:
		return l, nil
	default:
		return "", fmt.Errorf("unknown layout %q", raw)
	}
}

// DefaultSkinConfig mirrors the fine-tuned EfficientNet skin model.
func DefaultSkinConfig(modelsDir string) ModelConfig {
	return ModelConfig{
		Kind:           KindSkin,
		ModelPath:      filepath.Join(modelsDir, "skin_disease_finetuned.onnx"),
		InputHeight:    224,
		InputWidth:     224,
		Labels:         []string{"Normal", "SkinCancer", "Eczema", "Psoriasis"},
		Normalization:  NormalizeEfficientNet,
		Layout:         LayoutNHWC,
		DemoLabel:      "Normal",
		DemoConfidence: 0.92,
	}
}

// DefaultNailConfig mirrors the ResNet50 nail model.
func DefaultNailConfig(modelsDir string) ModelConfig {
	return ModelConfig{
		Kind:            KindNail,
		ModelPath:       filepath.Join(modelsDir, "best_nail_model.onnx"),
		InputHeight:     224,
		InputWidth:      224,
		Labels:          []string{"healthy", "onychomycosis", "psoriasis"},
		Normalization:   NormalizeCaffe,
		Layout:          LayoutNHWC,
		TitleCaseLabels: true,
		DemoLabel:       "Healthy",
		DemoConfidence:  0.88,
	}
}
