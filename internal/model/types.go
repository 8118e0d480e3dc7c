package model

import (
	"encoding/json"
	"fmt"
	"os"
)

type Metadata struct {
	InputShape    []int64 `json:"input_shape"`
	OutputShape   []int64 `json:"output_shape"`
	InputName     string  `json:"input_name"`
	OutputName    string  `json:"output_name"`
	ImageWidth    int     `json:"image_width"`
	ImageHeight   int     `json:"image_height"`
	DisplayWidth  int     `json:"display_width"`
	DisplayHeight int     `json:"display_height"`
}

// DefaultMetadata describes the stock generator: 512 noise features in,
// a 256x256 RGB image out, shown at 512x512.
func DefaultMetadata() Metadata {
	return Metadata{
		InputShape:    []int64{1, 512},
		OutputShape:   []int64{1, 256 * 256 * 3},
		InputName:     "input",
		OutputName:    "output",
		ImageWidth:    256,
		ImageHeight:   256,
		DisplayWidth:  512,
		DisplayHeight: 512,
	}
}

// LoadMetadata reads path over DefaultMetadata, so a metadata file only has
// to name the fields it changes.
func LoadMetadata(path string) (Metadata, error) {
	metadata := DefaultMetadata()

	metaFile, err := os.ReadFile(path)
	if err != nil {
		return metadata, fmt.Errorf("failed to read metadata: %w", err)
	}

	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return metadata, fmt.Errorf("failed to parse metadata: %w", err)
	}

	return metadata, metadata.Validate()
}

func (m Metadata) InputSize() int {
	return int(elements(m.InputShape))
}

func (m Metadata) OutputSize() int {
	return int(elements(m.OutputShape))
}

func (m Metadata) Validate() error {
	if len(m.InputShape) != 2 || m.InputShape[0] != 1 || m.InputShape[1] <= 0 {
		return fmt.Errorf("input_shape must be [1, N], got %v", m.InputShape)
	}

	if m.ImageWidth <= 0 || m.ImageHeight <= 0 {
		return fmt.Errorf("image size must be positive, got %dx%d", m.ImageWidth, m.ImageHeight)
	}

	if m.DisplayWidth < 0 || m.DisplayHeight < 0 {
		return fmt.Errorf("display size must not be negative, got %dx%d", m.DisplayWidth, m.DisplayHeight)
	}

	if want := m.ImageWidth * m.ImageHeight * 3; m.OutputSize() != want {
		return fmt.Errorf("output_shape %v flattens to %d values, image %dx%d needs %d",
			m.OutputShape, m.OutputSize(), m.ImageWidth, m.ImageHeight, want)
	}

	if m.InputName == "" || m.OutputName == "" {
		return fmt.Errorf("input_name and output_name must be set")
	}

	return nil
}

func elements(shape []int64) int64 {
	if len(shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, dim := range shape {
		n *= dim
	}
	return n
}
