package service

import (
	"io"
	"math"
	"strconv"
	"time"

	"dropoutpredictor/internal/apperr"
	"dropoutpredictor/internal/classifier"
	"dropoutpredictor/internal/dataset"
	"dropoutpredictor/internal/logger"
	"dropoutpredictor/internal/model"

	"github.com/google/uuid"
)

// ModelLoader yields the classifier for one request.
type ModelLoader interface {
	Load() (classifier.Predictor, error)
}

// RunRecorder stores finished results for later download.
type RunRecorder interface {
	Save(result *model.Result) error
}

// PredictionService runs uploads through validation, inference and export.
type PredictionService struct {
	loader ModelLoader
	runs   RunRecorder
	log    *logger.Logger
	now    func() time.Time
}

func NewPredictionService(loader ModelLoader, runs RunRecorder, log *logger.Logger) *PredictionService {
	return &PredictionService{
		loader: loader,
		runs:   runs,
		log:    log,
		now:    time.Now,
	}
}

// Predict parses an upload and runs it through the pipeline. On error no
// result is returned.
func (s *PredictionService) Predict(fileName string, r io.Reader) (*model.Result, error) {
	startTime := s.now()

	ds, err := dataset.Read(fileName, r)
	if err != nil {
		return nil, err
	}
	if err := Validate(ds); err != nil {
		return nil, err
	}

	predictor, err := s.loader.Load()
	if err != nil {
		return nil, err
	}

	result, err := Run(ds, predictor)
	if err != nil {
		return nil, err
	}
	result.RunID = uuid.NewString()
	result.CreatedAt = s.now()

	if s.runs != nil {
		if err := s.runs.Save(result); err != nil {
			// The inline download link still works without a stored run.
			s.log.Warn("failed to store run %s: %v", result.RunID, err)
			result.RunID = ""
		}
	}

	s.log.Info("predicted %s: %d records (%d studying, %d dropped) in %v",
		result.FileName, result.Summary.Total, result.Summary.Studying, result.Summary.Dropped, time.Since(startTime))
	return result, nil
}

// Validate checks that every required column is present. Missing names are
// reported in schema order.
func Validate(ds *model.Dataset) error {
	var missing []string
	for _, name := range model.RequiredColumns() {
		if !ds.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return apperr.SchemaError(missing)
	}
	return nil
}

// BuildPool selects the required columns of ds. Numeric fields must parse as
// numbers; an empty cell is passed through as missing.
func BuildPool(ds *model.Dataset) (*classifier.Pool, error) {
	if err := Validate(ds); err != nil {
		return nil, err
	}

	idx := make([]int, len(model.StudentFields))
	for i, f := range model.StudentFields {
		idx[i] = ds.Index(f.Name)
	}

	rows := make([][]string, ds.Len())
	for r, rec := range ds.Records {
		row := make([]string, len(idx))
		for i, f := range model.StudentFields {
			v := rec[idx[i]]
			if f.Type == model.TypeNumber && v != "" {
				if _, err := strconv.ParseFloat(v, 64); err != nil {
					return nil, apperr.ParseError("row %d: %s must be a number, got %q", r+1, f.Name, v)
				}
			}
			row[i] = v
		}
		rows[r] = row
	}

	return &classifier.Pool{
		Columns:     model.RequiredColumns(),
		CatFeatures: model.CategoricalColumns(),
		Rows:        rows,
	}, nil
}

// Run predicts every record of ds with predictor and assembles the result.
func Run(ds *model.Dataset, predictor classifier.Predictor) (*model.Result, error) {
	pool, err := BuildPool(ds)
	if err != nil {
		return nil, err
	}

	pred, err := predictor.Predict(pool)
	if err != nil {
		if !apperr.Is(err, apperr.CodeInference) {
			err = apperr.Wrap(err, apperr.CodeInference, "prediction failed")
		}
		return nil, err
	}
	if len(pred.Labels) != ds.Len() {
		return nil, apperr.InferenceError("model returned %d labels for %d records", len(pred.Labels), ds.Len())
	}
	for i, label := range pred.Labels {
		if label != 0 && label != 1 {
			return nil, apperr.InferenceError("record %d: model returned label %d, want 0 or 1", i+1, label)
		}
	}

	header, rows := assemble(ds, pred.Labels)
	result := &model.Result{
		FileName: ds.Name,
		Input:    ds,
		Header:   header,
		Rows:     rows,
		Labels:   pred.Labels,
		Summary:  summarize(pred.Labels),
		Insights: buildInsights(ds, pred.Labels, meanProbability(pred)),
	}

	result.ExportCSV, err = ExportCSV(header, rows)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "failed to export predictions")
	}
	result.DownloadURI = DataURI(result.ExportCSV)
	return result, nil
}

// assemble copies the input table and sets Prediction and Status on each
// record. Existing columns with those names are overwritten in place.
func assemble(ds *model.Dataset, labels []int) ([]string, []model.Record) {
	header := append([]string(nil), ds.Header...)
	predIdx := ds.Index(model.ColPrediction)
	if predIdx < 0 {
		predIdx = len(header)
		header = append(header, model.ColPrediction)
	}
	statusIdx := ds.Index(model.ColStatus)
	if statusIdx < 0 {
		statusIdx = len(header)
		header = append(header, model.ColStatus)
	}

	rows := make([]model.Record, len(ds.Records))
	for i, rec := range ds.Records {
		row := make(model.Record, len(header))
		copy(row, rec)
		row[predIdx] = strconv.Itoa(labels[i])
		row[statusIdx] = model.StatusFor(labels[i])
		rows[i] = row
	}
	return header, rows
}

func summarize(labels []int) model.Summary {
	sum := model.Summary{Total: len(labels)}
	for _, l := range labels {
		if l == 1 {
			sum.Dropped++
		} else {
			sum.Studying++
		}
	}
	return sum
}

func meanProbability(pred *classifier.Prediction) float64 {
	if len(pred.Probabilities) != len(pred.Labels) {
		return 0
	}
	m := pred.MeanProbability()
	if math.IsNaN(m) {
		return 0
	}
	return m
}
