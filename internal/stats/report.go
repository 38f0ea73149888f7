package stats

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type EvaluationRun struct {
	RunID             string  `json:"run_id"`
	Evaluations       int     `json:"evaluations"`
	Success           bool    `json:"success"`
	ReachedGeneration int     `json:"reached_generation"`
	FinalBest         float64 `json:"final_best"`
}

type EvaluationStats struct {
	TotalRuns      int             `json:"total_runs"`
	SuccessRuns    int             `json:"success_runs"`
	SuccessRate    float64         `json:"success_rate"`
	AvgEvaluations float64         `json:"avg_evaluations"`
	StdEvaluations float64         `json:"std_evaluations"`
	MinEvaluations float64         `json:"min_evaluations"`
	MaxEvaluations float64         `json:"max_evaluations"`
	FitnessGoal    *float64        `json:"fitness_goal,omitempty"`
	Runs           []EvaluationRun `json:"runs"`
}

// CurvePoint aggregates the best-so-far fitness of every run that reached
// Generation.
type CurvePoint struct {
	Generation int     `json:"generation"`
	Runs       int     `json:"runs"`
	Mean       float64 `json:"mean"`
	Std        float64 `json:"std"`
	Max        float64 `json:"max"`
	Min        float64 `json:"min"`
}

type Report struct {
	ExperimentID string          `json:"experiment_id"`
	GeneratedAt  string          `json:"generated_at_utc"`
	Experiment   Experiment      `json:"experiment"`
	Evaluations  EvaluationStats `json:"evaluations"`
	Curve        []CurvePoint    `json:"curve"`
}

// BuildReport reads the fitness history of every run in the experiment.
func BuildReport(baseDir string, exp Experiment) (Report, error) {
	histories := make([][]float64, 0, len(exp.RunIDs))
	for _, runID := range exp.RunIDs {
		series, ok, err := ReadFitnessHistory(baseDir, runID)
		if err != nil {
			return Report{}, err
		}
		if !ok {
			return Report{}, fmt.Errorf("fitness history not found for run id: %s", runID)
		}
		histories = append(histories, series)
	}
	return Report{
		ExperimentID: exp.ID,
		Experiment:   exp,
		Evaluations:  BuildEvaluationStats(exp.RunIDs, histories, exp.PopulationSize, exp.FitnessGoal),
		Curve:        BuildCurve(histories),
	}, nil
}

// BuildEvaluationStats counts how many evaluations each run spent before
// reaching the goal. Without a goal every run succeeds.
func BuildEvaluationStats(runIDs []string, histories [][]float64, populationSize int, fitnessGoal *float64) EvaluationStats {
	result := EvaluationStats{
		TotalRuns:   len(histories),
		FitnessGoal: cloneFloat64Ptr(fitnessGoal),
		Runs:        make([]EvaluationRun, 0, len(histories)),
	}
	successValues := make([]float64, 0, len(histories))
	for i, series := range histories {
		runID := ""
		if i < len(runIDs) {
			runID = runIDs[i]
		}
		run := evaluateSeries(runID, series, populationSize, result.FitnessGoal)
		result.Runs = append(result.Runs, run)
		if run.Success {
			result.SuccessRuns++
			successValues = append(successValues, float64(run.Evaluations))
		}
	}
	if result.TotalRuns > 0 {
		result.SuccessRate = float64(result.SuccessRuns) / float64(result.TotalRuns)
	}
	if len(successValues) > 0 {
		result.AvgEvaluations, result.StdEvaluations = avgStd(successValues)
		result.MinEvaluations = minFloat(successValues)
		result.MaxEvaluations = maxFloat(successValues)
	}
	return result
}

// evaluateSeries walks a best-so-far series where index 0 is the initial
// population.
func evaluateSeries(runID string, series []float64, populationSize int, fitnessGoal *float64) EvaluationRun {
	if populationSize <= 0 {
		populationSize = 1
	}
	run := EvaluationRun{RunID: runID}
	if len(series) > 0 {
		run.FinalBest = series[len(series)-1]
	}
	for generation, best := range series {
		run.Evaluations += populationSize
		run.ReachedGeneration = generation
		if fitnessGoal != nil && best >= *fitnessGoal {
			run.Success = true
			return run
		}
	}
	run.Success = fitnessGoal == nil
	return run
}

// BuildCurve aligns the series by generation. Runs that stopped early drop
// out of later points.
func BuildCurve(histories [][]float64) []CurvePoint {
	longest := 0
	for _, series := range histories {
		longest = max(longest, len(series))
	}
	points := make([]CurvePoint, 0, longest)
	for generation := 0; generation < longest; generation++ {
		values := make([]float64, 0, len(histories))
		for _, series := range histories {
			if generation < len(series) {
				values = append(values, series[generation])
			}
		}
		mean, std := avgStd(values)
		points = append(points, CurvePoint{
			Generation: generation,
			Runs:       len(values),
			Mean:       mean,
			Std:        std,
			Max:        maxFloat(values),
			Min:        minFloat(values),
		})
	}
	return points
}

// WriteReport writes report.json and curve.csv next to the experiment record.
func WriteReport(baseDir string, report Report) (string, error) {
	if report.ExperimentID == "" {
		return "", fmt.Errorf("report experiment id is required")
	}
	reportDir := filepath.Join(baseDir, experimentsDir, report.ExperimentID)
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return "", err
	}
	if report.GeneratedAt == "" {
		report.GeneratedAt = time.Now().UTC().Format(TimestampLayout)
	}
	if err := writeJSON(filepath.Join(reportDir, "report.json"), report); err != nil {
		return "", err
	}
	if err := writeCurveCSV(filepath.Join(reportDir, "curve.csv"), report.Curve); err != nil {
		return "", err
	}
	return reportDir, nil
}

func writeCurveCSV(path string, points []CurvePoint) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"generation", "runs", "mean", "std", "max", "min"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := writer.Write([]string{
			strconv.Itoa(p.Generation),
			strconv.Itoa(p.Runs),
			formatFloat(p.Mean),
			formatFloat(p.Std),
			formatFloat(p.Max),
			formatFloat(p.Min),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// avgStd returns the mean and population standard deviation. The deviation is
// capped at MaxFloat64 when worst-fitness values overflow the squares.
func avgStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	mean := 0.0
	for i, v := range values {
		mean += (v - mean) / float64(i+1)
	}
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	std := math.Sqrt(sum / float64(len(values)))
	if math.IsInf(std, 0) {
		std = math.MaxFloat64
	}
	return mean, std
}

func maxFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		m = max(m, v)
	}
	return m
}

func minFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		m = min(m, v)
	}
	return m
}

func cloneFloat64Ptr(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) {
		return nil
	}
	value := *v
	return &value
}
