package model

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var ErrInputShape = errors.New("input does not match model input shape")

// Server owns an onnxruntime session with pre-allocated input and output
// tensors. Forward calls are serialized because the tensors are shared.
type Server struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewServer initializes the onnxruntime environment and opens modelPath.
// libraryPath may be empty to use the runtime's default lookup.
func NewServer(modelPath string, metadata Metadata, libraryPath string) (*Server, error) {
	if err := metadata.Validate(); err != nil {
		return nil, err
	}

	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	inputShape := ort.NewShape(metadata.InputShape...)
	outputShape := ort.NewShape(metadata.OutputShape...)

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		outputTensor.Destroy()
		inputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Server{
		session:      session,
		Metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (s *Server) Forward(input []float32) ([]float32, error) {
	if len(input) != s.Metadata.InputSize() {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrInputShape, s.Metadata.InputSize(), len(input))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, errors.New("model is closed")
	}

	copy(s.inputTensor.GetData(), input)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("session run: %w", err)
	}

	outputData := s.outputTensor.GetData()
	out := make([]float32, len(outputData))
	copy(out, outputData)
	return out, nil
}

func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inputTensor != nil {
		s.inputTensor.Destroy()
		s.inputTensor = nil
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
		s.outputTensor = nil
	}
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
	ort.DestroyEnvironment()
}
