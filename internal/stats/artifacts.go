package stats

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"symevo/internal/evo"
)

const (
	runIndexFile = "run_index.json"

	configFile      = "config.json"
	historyJSONFile = "fitness_history.json"
	historyCSVFile  = "fitness_history.csv"
	bestTreeFile    = "best.txt"
	summaryFile     = "summary.json"

	// TimestampLayout is fixed-width so timestamps sort lexically.
	TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

var historyHeader = []string{
	"generation", "best_so_far", "best_fitness", "mean_fitness", "min_fitness",
	"mean_length", "diversity", "evaluations",
}

// RunSummary is the terminal outcome of one run.
type RunSummary struct {
	RunID            string  `json:"run_id"`
	State            string  `json:"state"`
	Generations      int     `json:"generations"`
	Evaluations      int     `json:"evaluations"`
	FinalBestFitness float64 `json:"final_best_fitness"`
	BestTree         string  `json:"best_tree"`
	BestLength       int     `json:"best_length"`
	BestDepth        int     `json:"best_depth"`
	ElapsedMS        int64   `json:"elapsed_ms"`
}

type RunArtifacts struct {
	RunID string
	// Config is written verbatim to config.json.
	Config           any
	BestByGeneration []float64
	Diagnostics      []evo.GenerationDiagnostics
	Summary          RunSummary
}

type RunIndexEntry struct {
	RunID            string  `json:"run_id"`
	Problem          string  `json:"problem"`
	PopulationSize   int     `json:"population_size"`
	Generations      int     `json:"generations"`
	Seed             uint32  `json:"seed"`
	State            string  `json:"state"`
	FinalBestFitness float64 `json:"final_best_fitness"`
	CreatedAtUTC     string  `json:"created_at_utc"`
}

// NewRunArtifacts collects the artifacts of a finished run.
func NewRunArtifacts(runID string, cfg any, result evo.Result) RunArtifacts {
	summary := RunSummary{
		RunID:            runID,
		State:            result.State.String(),
		Generations:      result.Generations,
		Evaluations:      result.Evaluations,
		FinalBestFitness: result.Best.Fitness,
		ElapsedMS:        result.Elapsed.Milliseconds(),
	}
	if result.Best.Tree != nil {
		summary.BestTree = result.Best.Tree.String()
		summary.BestLength = result.Best.Tree.Length()
		summary.BestDepth = result.Best.Tree.Depth()
	}
	return RunArtifacts{
		RunID:            runID,
		Config:           cfg,
		BestByGeneration: append([]float64(nil), result.BestByGeneration...),
		Diagnostics:      append([]evo.GenerationDiagnostics(nil), result.Diagnostics...),
		Summary:          summary,
	}
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	history := map[string]any{
		"best_by_generation": artifacts.BestByGeneration,
		"final_best_fitness": artifacts.Summary.FinalBestFitness,
	}
	if err := writeJSON(filepath.Join(runDir, historyJSONFile), history); err != nil {
		return "", err
	}
	if err := writeHistoryCSV(filepath.Join(runDir, historyCSVFile), artifacts.Diagnostics); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, summaryFile), artifacts.Summary); err != nil {
		return "", err
	}
	best := artifacts.Summary.BestTree + "\n"
	if err := os.WriteFile(filepath.Join(runDir, bestTreeFile), []byte(best), 0o644); err != nil {
		return "", err
	}
	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns index entries newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Later appends win ties.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{configFile, historyJSONFile, historyCSVFile, summaryFile, bestTreeFile} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

func ReadRunSummary(baseDir, runID string) (RunSummary, bool, error) {
	var summary RunSummary
	ok, err := readJSON(filepath.Join(baseDir, runID, summaryFile), &summary)
	return summary, ok, err
}

// ReadConfig decodes a run's config.json into out.
func ReadConfig(baseDir, runID string, out any) (bool, error) {
	return readJSON(filepath.Join(baseDir, runID, configFile), out)
}

func ReadBestTree(baseDir, runID string) (string, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runID, bestTreeFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return strings.TrimSpace(string(data)), true, nil
}

// ReadFitnessHistory returns the best-so-far column of fitness_history.csv.
func ReadFitnessHistory(baseDir, runID string) ([]float64, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, historyCSVFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []float64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("fitness history header must have at least 2 columns")
	}

	series := make([]float64, 0, 128)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, false, err
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, false, fmt.Errorf("fitness history row %d: %w", len(series)+1, err)
		}
		series = append(series, value)
	}
	return series, true, nil
}

func writeHistoryCSV(path string, diagnostics []evo.GenerationDiagnostics) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(historyHeader); err != nil {
		return err
	}
	for _, d := range diagnostics {
		if err := writer.Write([]string{
			strconv.Itoa(d.Generation),
			formatFloat(d.BestSoFar),
			formatFloat(d.BestFitness),
			formatFloat(d.MeanFitness),
			formatFloat(d.MinFitness),
			formatFloat(d.MeanLength),
			strconv.Itoa(d.Diversity),
			strconv.Itoa(d.Evaluations),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
