package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMetadata(t *testing.T) {
	m := DefaultMetadata()
	require.NoError(t, m.Validate())
	assert.Equal(t, 512, m.InputSize())
	assert.Equal(t, 196608, m.OutputSize())
}

func TestLoadMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model_metadata.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"input_shape": [1, 100],
		"output_shape": [1, 64, 64, 3],
		"image_width": 64,
		"image_height": 64,
		"display_width": 256,
		"display_height": 256
	}`), 0o644))

	m, err := LoadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, 100, m.InputSize())
	assert.Equal(t, 64*64*3, m.OutputSize())
	assert.Equal(t, "input", m.InputName)
	assert.Equal(t, 256, m.DisplayWidth)
}

func TestLoadMetadataErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadMetadata(filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "failed to read metadata")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"input_shape":`), 0o644))
	_, err = LoadMetadata(bad)
	assert.ErrorContains(t, err, "failed to parse metadata")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Metadata){
		"batched input":   func(m *Metadata) { m.InputShape = []int64{2, 512} },
		"flat input":      func(m *Metadata) { m.InputShape = []int64{512} },
		"output mismatch": func(m *Metadata) { m.OutputShape = []int64{1, 256, 256, 4} },
		"zero width":      func(m *Metadata) { m.ImageWidth = 0 },
		"negative width":  func(m *Metadata) { m.DisplayWidth = -1 },
		"no output name":  func(m *Metadata) { m.OutputName = "" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			m := DefaultMetadata()
			mutate(&m)
			assert.Error(t, m.Validate())
		})
	}
}
