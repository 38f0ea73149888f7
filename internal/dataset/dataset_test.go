package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symevo/internal/symbol"
)

func TestNewValidatesShape(t *testing.T) {
	cases := []struct {
		name    string
		names   []string
		inputs  [][]float64
		targets []float64
	}{
		{"no names", nil, [][]float64{{1}}, []float64{1}},
		{"target count", []string{"x"}, [][]float64{{1}, {2}}, []float64{1}},
		{"row width", []string{"x", "y"}, [][]float64{{1, 2}, {3}}, []float64{1, 2}},
		{"duplicate names", []string{"x", "x"}, [][]float64{{1, 2}}, []float64{1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.names, tc.inputs, tc.targets)
			require.True(t, errors.Is(err, ErrShape), "got %v", err)
		})
	}
}

func TestNewCopiesInputs(t *testing.T) {
	inputs := [][]float64{{1, 2}}
	targets := []float64{3}
	d, err := New([]string{"a", "b"}, inputs, targets)
	require.NoError(t, err)

	inputs[0][0] = 99
	targets[0] = 99
	assert.Equal(t, []float64{1, 2}, d.Input(0))
	assert.Equal(t, 3.0, d.Target(0))

	vars := symbol.Vars{}
	d.Bind(0, vars)
	assert.Equal(t, symbol.Vars{"a": 1, "b": 2}, vars)
}

func TestLoadCSV(t *testing.T) {
	data := "x0, x1, y\n1,2,3\n\n2,3,5\n"
	d, err := LoadCSV(strings.NewReader(data), "")
	require.NoError(t, err)
	assert.Equal(t, 2, d.Rows())
	assert.Equal(t, []string{"x0", "x1"}, d.VariableNames())
	assert.Equal(t, []float64{3, 5}, d.Targets())
}

func TestLoadCSVTargetColumn(t *testing.T) {
	data := "y,x\n1,10\n0,20\n"
	d, err := LoadCSV(strings.NewReader(data), "y")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, d.VariableNames())
	assert.Equal(t, []float64{1, 0}, d.Targets())

	_, err = LoadCSV(strings.NewReader(data), "missing")
	require.True(t, errors.Is(err, ErrShape))
}

func TestLoadCSVErrors(t *testing.T) {
	_, err := LoadCSV(strings.NewReader(""), "")
	require.True(t, errors.Is(err, ErrShape))

	_, err = LoadCSV(strings.NewReader("x,y\n1,abc\n"), "")
	require.Error(t, err)
}

func TestLoadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))
	d, err := LoadCSVFile(path, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, d.Rows())
}
