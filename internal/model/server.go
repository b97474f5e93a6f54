package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var ErrInputSize = errors.New("input size does not match model")

// Classifier runs one ONNX image model. The input and output tensors belong
// to the session, so Predict calls are serialised.
type Classifier struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

var (
	envMu   sync.Mutex
	envRefs int
)

func acquireEnvironment() error {
	envMu.Lock()
	defer envMu.Unlock()
	if envRefs == 0 {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}
	envRefs++
	return nil
}

func releaseEnvironment() {
	envMu.Lock()
	defer envMu.Unlock()
	envRefs--
	if envRefs == 0 {
		ort.DestroyEnvironment()
	}
}

// LoadMetadata reads and checks a model metadata file.
func LoadMetadata(path string) (Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}

	if len(metadata.Classes) == 0 {
		return Metadata{}, fmt.Errorf("metadata %s lists no classes", path)
	}
	if metadata.ImageSize <= 0 {
		metadata.ImageSize = 224
	}
	switch strings.ToLower(metadata.Layout) {
	case "", LayoutNHWC:
		metadata.Layout = LayoutNHWC
	case LayoutNCHW:
		metadata.Layout = LayoutNCHW
	default:
		return Metadata{}, fmt.Errorf("metadata %s: unknown layout %q", path, metadata.Layout)
	}
	if len(metadata.InputShape) == 0 {
		s := int64(metadata.ImageSize)
		if metadata.Layout == LayoutNCHW {
			metadata.InputShape = []int64{1, 3, s, s}
		} else {
			metadata.InputShape = []int64{1, s, s, 3}
		}
	}
	if len(metadata.OutputShape) == 0 {
		metadata.OutputShape = []int64{1, int64(len(metadata.Classes))}
	}
	if metadata.InputName == "" {
		metadata.InputName = "input"
	}
	if metadata.OutputName == "" {
		metadata.OutputName = "output"
	}
	return metadata, nil
}

func NewClassifier(modelPath, metadataPath string) (*Classifier, error) {
	metadata, err := LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}

	if err := acquireEnvironment(); err != nil {
		return nil, err
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		releaseEnvironment()
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		releaseEnvironment()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		releaseEnvironment()
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", modelPath, err)
	}

	return &Classifier{
		session:      session,
		Metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (c *Classifier) Info() Metadata {
	return c.Metadata
}

func (c *Classifier) Predict(inputData []float32) (*Prediction, error) {
	if len(inputData) != c.Metadata.InputSize() {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrInputSize, c.Metadata.InputSize(), len(inputData))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	copy(c.inputTensor.GetData(), inputData)

	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	return Argmax(c.outputTensor.GetData(), c.Metadata.Classes)
}

// Argmax picks the highest scoring class. Scores beyond the class list are ignored.
func Argmax(scores []float32, classes []string) (*Prediction, error) {
	n := len(scores)
	if len(classes) < n {
		n = len(classes)
	}
	if n == 0 {
		return nil, errors.New("model produced no scores")
	}

	maxIdx := 0
	maxVal := scores[0]
	for i := 1; i < n; i++ {
		if scores[i] > maxVal {
			maxVal = scores[i]
			maxIdx = i
		}
	}

	return &Prediction{
		Class:      classes[maxIdx],
		Confidence: maxVal,
	}, nil
}

func (c *Classifier) Close() {
	if c.inputTensor != nil {
		c.inputTensor.Destroy()
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
	}
	if c.session != nil {
		c.session.Destroy()
	}
	releaseEnvironment()
}
