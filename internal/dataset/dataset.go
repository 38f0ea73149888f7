package dataset

import (
	"errors"
	"fmt"

	"symevo/internal/symbol"
)

var ErrShape = errors.New("dataset shape mismatch")

// Dataset is read-only once constructed; evaluators share it across goroutines.
type Dataset struct {
	variableNames []string
	inputs        [][]float64
	targets       []float64
}

// New validates that every row has one value per variable name and that
// there is one target per row.
func New(variableNames []string, inputs [][]float64, targets []float64) (*Dataset, error) {
	if len(variableNames) == 0 {
		return nil, fmt.Errorf("%w: no variable names", ErrShape)
	}
	if len(inputs) != len(targets) {
		return nil, fmt.Errorf("%w: inputs=%d targets=%d", ErrShape, len(inputs), len(targets))
	}
	seen := make(map[string]struct{}, len(variableNames))
	for _, name := range variableNames {
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate variable name %q", ErrShape, name)
		}
		seen[name] = struct{}{}
	}
	rows := make([][]float64, len(inputs))
	for i, row := range inputs {
		if len(row) != len(variableNames) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrShape, i, len(row), len(variableNames))
		}
		rows[i] = append([]float64(nil), row...)
	}
	return &Dataset{
		variableNames: append([]string(nil), variableNames...),
		inputs:        rows,
		targets:       append([]float64(nil), targets...),
	}, nil
}

func (d *Dataset) Rows() int {
	return len(d.inputs)
}

func (d *Dataset) VariableNames() []string {
	return append([]string(nil), d.variableNames...)
}

func (d *Dataset) Target(i int) float64 {
	return d.targets[i]
}

func (d *Dataset) Targets() []float64 {
	return append([]float64(nil), d.targets...)
}

func (d *Dataset) Input(i int) []float64 {
	return append([]float64(nil), d.inputs[i]...)
}

// Bind writes row i into vars, overwriting previous values.
func (d *Dataset) Bind(i int, vars symbol.Vars) {
	row := d.inputs[i]
	for j, name := range d.variableNames {
		vars[name] = row[j]
	}
}
