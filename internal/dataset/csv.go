package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadCSVFile reads a headered CSV file. targetColumn names the target; when
// empty the last column is used.
func LoadCSVFile(path, targetColumn string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCSV(f, targetColumn)
}

func LoadCSV(in io.Reader, targetColumn string) (*Dataset, error) {
	reader := csv.NewReader(in)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty csv", ErrShape)
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: need at least one input and one target column", ErrShape)
	}

	targetIdx := len(header) - 1
	if targetColumn != "" {
		targetIdx = -1
		for i, name := range header {
			if name == targetColumn {
				targetIdx = i
				break
			}
		}
		if targetIdx < 0 {
			return nil, fmt.Errorf("%w: target column %q not found", ErrShape, targetColumn)
		}
	}

	names := make([]string, 0, len(header)-1)
	for i, name := range header {
		if i != targetIdx {
			names = append(names, name)
		}
	}

	var inputs [][]float64
	var targets []float64
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", line, err)
		}
		line++
		if blankRecord(record) {
			continue
		}

		row := make([]float64, 0, len(names))
		var target float64
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("csv row %d column %q: %w", line, header[i], err)
			}
			if i == targetIdx {
				target = v
				continue
			}
			row = append(row, v)
		}
		inputs = append(inputs, row)
		targets = append(targets, target)
	}
	return New(names, inputs, targets)
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
