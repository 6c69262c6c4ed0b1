package service_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"dropoutpredictor/internal/apperr"
	"dropoutpredictor/internal/classifier"
	"dropoutpredictor/internal/database"
	"dropoutpredictor/internal/logger"
	"dropoutpredictor/internal/model"
	"dropoutpredictor/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const studentsCSV = "StudentID,Gender,ChildStatus,DistanceToSchool,BirthOrder,FinancialStatus,Residence,Transport,LightingEnergy\n" +
	"S001,MALE,Orphan,5,Firstborn,Poverty,House,Walking,Solar\n" +
	"S002,FEMALE,Both parents,15,Secondborn,Rich,Apartment,Car,Electricity\n" +
	"S003,MALE,Orphan,12,Thirdborn,Poverty,House,Walking,Solar\n" +
	"S004,FEMALE,One parent,,Firstborn,Medium,House,Car,Solar\n"

type MockModelLoader struct {
	mock.Mock
}

func (m *MockModelLoader) Load() (classifier.Predictor, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(classifier.Predictor), args.Error(1)
}

type MockPredictor struct {
	mock.Mock
}

func (m *MockPredictor) Predict(pool *classifier.Pool) (*classifier.Prediction, error) {
	args := m.Called(pool)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*classifier.Prediction), args.Error(1)
}

type MockRunRecorder struct {
	mock.Mock
}

func (m *MockRunRecorder) Save(result *model.Result) error {
	return m.Called(result).Error(0)
}

func testModelLoader() classifier.FileLoader {
	return classifier.FileLoader{Path: filepath.Join("..", "classifier", "testdata", "model.json")}
}

func quietLogger() *logger.Logger {
	return logger.New(logger.LevelError)
}

func newDataset(t *testing.T, content string) *model.Dataset {
	t.Helper()
	header, rows, err := service.ParseExport([]byte(content))
	require.NoError(t, err)
	return &model.Dataset{Name: "students.csv", Header: header, Records: rows}
}

func TestValidate(t *testing.T) {
	all := model.RequiredColumns()
	tests := []struct {
		name    string
		drop    []string
		missing []string
	}{
		{"all present", nil, nil},
		{"missing gender", []string{"Gender"}, []string{"Gender"}},
		{"missing several", []string{"LightingEnergy", "DistanceToSchool"}, []string{"DistanceToSchool", "LightingEnergy"}},
		{"missing all", all, all},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var header []string
			for _, c := range append([]string{"StudentID"}, all...) {
				keep := true
				for _, d := range tt.drop {
					if c == d {
						keep = false
					}
				}
				if keep {
					header = append(header, c)
				}
			}

			err := service.Validate(&model.Dataset{Header: header})
			if tt.missing == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, apperr.CodeSchema, apperr.CodeOf(err))
			assert.Equal(t, tt.missing, apperr.MissingColumns(err))
		})
	}
}

func TestPredictMissingColumnDoesNotLoadModel(t *testing.T) {
	loader := new(MockModelLoader)
	svc := service.NewPredictionService(loader, nil, quietLogger())

	content := "ChildStatus,DistanceToSchool,BirthOrder,FinancialStatus,Residence,Transport,LightingEnergy\n" +
		"Orphan,5,Firstborn,Poverty,House,Walking,Solar\n"
	result, err := svc.Predict("final_data.csv", strings.NewReader(content))

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, []string{"Gender"}, apperr.MissingColumns(err))
	assert.Equal(t, "Missing required columns: Gender", err.Error())
	loader.AssertNotCalled(t, "Load")
}

func TestPredictSingleRecord(t *testing.T) {
	svc := service.NewPredictionService(testModelLoader(), nil, quietLogger())
	content := "Gender,ChildStatus,DistanceToSchool,BirthOrder,FinancialStatus,Residence,Transport,LightingEnergy\n" +
		"MALE,Orphan,5,Firstborn,Poverty,House,Walking,Solar\n"

	result, err := svc.Predict("final_data.csv", strings.NewReader(content))
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	row := result.Rows[0]
	assert.Equal(t, model.Record{"MALE", "Orphan", "5", "Firstborn", "Poverty", "House", "Walking", "Solar"}, row[:8])
	assert.Equal(t, append(model.RequiredColumns(), "Prediction", "Status"), result.Header)
	assert.Contains(t, []string{model.StatusStudying, model.StatusDroppedOut}, row[9])
	assert.Equal(t, model.Summary{Total: 1, Studying: 1, Dropped: 0}, result.Summary)
	assert.NotEmpty(t, result.RunID)
	assert.False(t, result.CreatedAt.IsZero())
}

func TestRunAssemblesResult(t *testing.T) {
	predictor, err := testModelLoader().Load()
	require.NoError(t, err)
	ds := newDataset(t, studentsCSV)

	result, err := service.Run(ds, predictor)
	require.NoError(t, err)

	assert.Equal(t, "students.csv", result.FileName)
	assert.Same(t, ds, result.Input)
	assert.Equal(t, append(append([]string(nil), ds.Header...), "Prediction", "Status"), result.Header)
	require.Len(t, result.Rows, ds.Len())
	assert.Equal(t, []int{0, 1, 1, 0}, result.Labels)

	statuses := map[string]int{}
	for i, row := range result.Rows {
		assert.Equal(t, []string(ds.Records[i]), []string(row[:len(ds.Header)]))
		statuses[row[len(row)-1]]++
	}
	assert.Equal(t, map[string]int{model.StatusStudying: 2, model.StatusDroppedOut: 2}, statuses)
	assert.Equal(t, "1", result.Rows[1][len(ds.Header)])
	assert.Equal(t, model.StatusDroppedOut, result.Rows[1][len(ds.Header)+1])

	assert.Equal(t, model.Summary{Total: 4, Studying: 2, Dropped: 2}, result.Summary)
	assert.Equal(t, result.Summary.Total, result.Summary.Studying+result.Summary.Dropped)
}

func TestRunExportReproducesTable(t *testing.T) {
	predictor, err := testModelLoader().Load()
	require.NoError(t, err)

	content := studentsCSV + "S005,MALE,\"Both parents\",3.25,Secondborn,Poverty,\"Flat, shared\",Car,Solar\n"
	result, err := service.Run(newDataset(t, content), predictor)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.DownloadURI, "data:file/csv;base64,"))
	decoded, err := service.DecodeDataURI(result.DownloadURI)
	require.NoError(t, err)
	assert.Equal(t, result.ExportCSV, decoded)

	header, rows, err := service.ParseExport(decoded)
	require.NoError(t, err)
	assert.Equal(t, result.Header, header)
	assert.Equal(t, result.Rows, rows)
}

func TestRunInsights(t *testing.T) {
	predictor, err := testModelLoader().Load()
	require.NoError(t, err)

	result, err := service.Run(newDataset(t, studentsCSV), predictor)
	require.NoError(t, err)
	ins := result.Insights

	require.Len(t, ins.ByStatus, 2)
	assert.Equal(t, model.GroupStats{Status: model.StatusStudying, Count: 2, MeanDistance: 5, MedianDist: 5}, ins.ByStatus[0])
	assert.Equal(t, model.GroupStats{Status: model.StatusDroppedOut, Count: 2, MeanDistance: 13.5, MedianDist: 13.5}, ins.ByStatus[1])

	assert.Equal(t, []model.CategoryRate{
		{Value: "Poverty", Count: 2, Dropped: 1, Rate: 0.5},
		{Value: "Rich", Count: 1, Dropped: 1, Rate: 1},
		{Value: "Medium", Count: 1, Dropped: 0, Rate: 0},
	}, ins.ByFinancialStatus)
	assert.Greater(t, ins.MeanDropoutProbability, 0.0)
	assert.Less(t, ins.MeanDropoutProbability, 1.0)
}

func TestRunOverwritesExistingPredictionColumns(t *testing.T) {
	predictor, err := testModelLoader().Load()
	require.NoError(t, err)
	content := "Status,Gender,ChildStatus,DistanceToSchool,BirthOrder,FinancialStatus,Residence,Transport,LightingEnergy\n" +
		"old,FEMALE,Both parents,15,Secondborn,Rich,Apartment,Car,Electricity\n"

	result, err := service.Run(newDataset(t, content), predictor)
	require.NoError(t, err)

	assert.Equal(t, "Status", result.Header[0])
	assert.Equal(t, "Prediction", result.Header[len(result.Header)-1])
	assert.Equal(t, model.StatusDroppedOut, result.Rows[0][0])
	assert.Equal(t, "1", result.Rows[0][len(result.Header)-1])
}

func TestBuildPool(t *testing.T) {
	pool, err := service.BuildPool(newDataset(t, studentsCSV))
	require.NoError(t, err)

	assert.Equal(t, model.RequiredColumns(), pool.Columns)
	assert.Equal(t, model.CategoricalColumns(), pool.CatFeatures)
	require.Len(t, pool.Rows, 4)
	assert.Equal(t, []string{"FEMALE", "One parent", "", "Firstborn", "Medium", "House", "Car", "Solar"}, pool.Rows[3])
}

func TestBuildPoolRejectsNonNumericDistance(t *testing.T) {
	content := "Gender,ChildStatus,DistanceToSchool,BirthOrder,FinancialStatus,Residence,Transport,LightingEnergy\n" +
		"MALE,Orphan,5,Firstborn,Poverty,House,Walking,Solar\n" +
		"MALE,Orphan,far,Firstborn,Poverty,House,Walking,Solar\n"

	_, err := service.BuildPool(newDataset(t, content))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeParse, apperr.CodeOf(err))
	assert.Contains(t, err.Error(), `row 2: DistanceToSchool must be a number, got "far"`)
}

func TestRunPredictorFailures(t *testing.T) {
	tests := []struct {
		name     string
		pred     *classifier.Prediction
		err      error
		contains string
	}{
		{"plain error", nil, errors.New("segfault in model"), "prediction failed: segfault in model"},
		{"inference error", nil, apperr.InferenceError("feature missing"), "feature missing"},
		{"label count", &classifier.Prediction{Labels: []int{0}}, nil, "model returned 1 labels for 4 records"},
		{"label value", &classifier.Prediction{Labels: []int{0, 2, 1, 0}}, nil, "record 2: model returned label 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			predictor := new(MockPredictor)
			predictor.On("Predict", mock.AnythingOfType("*classifier.Pool")).Return(tt.pred, tt.err)

			result, err := service.Run(newDataset(t, studentsCSV), predictor)
			assert.Nil(t, result)
			require.Error(t, err)
			assert.Equal(t, apperr.CodeInference, apperr.CodeOf(err))
			assert.Contains(t, err.Error(), tt.contains)
			predictor.AssertExpectations(t)
		})
	}
}

func TestPredictModelLoadError(t *testing.T) {
	svc := service.NewPredictionService(classifier.FileLoader{Path: filepath.Join(t.TempDir(), "catboost_model.bin")}, nil, quietLogger())

	result, err := svc.Predict("students.csv", strings.NewReader(studentsCSV))
	assert.Nil(t, result)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeModelLoad, apperr.CodeOf(err))
}

func TestPredictParseError(t *testing.T) {
	loader := new(MockModelLoader)
	svc := service.NewPredictionService(loader, nil, quietLogger())

	_, err := svc.Predict("students.csv", strings.NewReader("Gender,Transport\nMALE\n"))
	assert.Equal(t, apperr.CodeParse, apperr.CodeOf(err))
	loader.AssertNotCalled(t, "Load")
}

func TestPredictStoresRun(t *testing.T) {
	db, err := database.Open(database.InMemory)
	require.NoError(t, err)
	runs := service.NewRunService(db)
	svc := service.NewPredictionService(testModelLoader(), runs, quietLogger())

	result, err := svc.Predict("students.csv", strings.NewReader(studentsCSV))
	require.NoError(t, err)

	run, err := runs.GetRun(result.RunID)
	require.NoError(t, err)
	assert.Equal(t, "students.csv", run.FileName)
	assert.Equal(t, 4, run.Total)
	assert.Equal(t, 2, run.Studying)
	assert.Equal(t, 2, run.Dropped)
	assert.Equal(t, result.ExportCSV, run.ResultCSV)
}

func TestPredictSurvivesRunStoreFailure(t *testing.T) {
	recorder := new(MockRunRecorder)
	recorder.On("Save", mock.AnythingOfType("*model.Result")).Return(errors.New("disk full"))
	svc := service.NewPredictionService(testModelLoader(), recorder, quietLogger())

	result, err := svc.Predict("students.csv", strings.NewReader(studentsCSV))
	require.NoError(t, err)
	assert.Empty(t, result.RunID)
	assert.NotEmpty(t, result.DownloadURI)
	recorder.AssertExpectations(t)
}
