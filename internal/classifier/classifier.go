// Package classifier evaluates a pretrained binary oblivious-tree ensemble
// exported as JSON.
package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"dropoutpredictor/internal/apperr"

	"gonum.org/v1/gonum/stat"
)

// Predictor produces one label per pool row.
type Predictor interface {
	Predict(pool *Pool) (*Prediction, error)
}

// Pool is a batch of rows bound to column names. CatFeatures names the
// columns the caller declares categorical.
type Pool struct {
	Columns     []string
	CatFeatures []string
	Rows        [][]string
}

// Prediction is the batch output, aligned with the pool rows.
type Prediction struct {
	Labels        []int
	Probabilities []float64
}

// MeanProbability is the average probability of the positive class.
func (p *Prediction) MeanProbability() float64 {
	if len(p.Probabilities) == 0 {
		return 0
	}
	return stat.Mean(p.Probabilities, nil)
}

// Model is a loaded ensemble. It is immutable and safe for concurrent use.
type Model struct {
	info    map[string]string
	floats  []floatFeature
	cats    []string
	trees   []tree
	scale   float64
	bias    float64
	classes [2]int
}

type floatFeature struct {
	name string
	nan  string
}

type tree struct {
	splits []split
	leaves []float64
}

type split struct {
	kind    string
	feature int
	border  float64
	value   string
}

// Load reads a model artifact from path.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.ModelLoadError(err, path)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, apperr.ModelLoadError(err, path)
	}
	return m, nil
}

// Parse decodes and validates an artifact held in memory.
func Parse(data []byte) (*Model, error) {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return a.compile()
}

// FileLoader loads the artifact at Path each time Load is called.
type FileLoader struct {
	Path string
}

func (l FileLoader) Load() (Predictor, error) {
	m, err := Load(l.Path)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Name returns the model_info name, if any.
func (m *Model) Name() string {
	return m.info["name"]
}

// FeatureNames lists float then categorical feature names.
func (m *Model) FeatureNames() []string {
	names := make([]string, 0, len(m.floats)+len(m.cats))
	for _, f := range m.floats {
		names = append(names, f.name)
	}
	return append(names, m.cats...)
}

// TreeCount returns the ensemble size.
func (m *Model) TreeCount() int {
	return len(m.trees)
}

// Predict scores every row of pool.
func (m *Model) Predict(pool *Pool) (*Prediction, error) {
	if pool == nil {
		return nil, apperr.InferenceError("nil pool")
	}
	floatCols, catCols, err := m.bind(pool)
	if err != nil {
		return nil, err
	}

	out := &Prediction{
		Labels:        make([]int, len(pool.Rows)),
		Probabilities: make([]float64, len(pool.Rows)),
	}
	floats := make([]float64, len(m.floats))
	cats := make([]string, len(m.cats))
	for r, row := range pool.Rows {
		if len(row) != len(pool.Columns) {
			return nil, apperr.InferenceError("row %d has %d values, pool has %d columns", r, len(row), len(pool.Columns))
		}
		for i, c := range floatCols {
			v, err := parseFloat(row[c])
			if err != nil {
				return nil, apperr.InferenceError("row %d: feature %s: %v", r, m.floats[i].name, err)
			}
			floats[i] = v
		}
		for i, c := range catCols {
			cats[i] = row[c]
		}

		raw, err := m.score(floats, cats)
		if err != nil {
			return nil, apperr.InferenceError("row %d: %v", r, err)
		}
		out.Probabilities[r] = sigmoid(raw)
		if raw > 0 {
			out.Labels[r] = m.classes[1]
		} else {
			out.Labels[r] = m.classes[0]
		}
	}
	return out, nil
}

// bind resolves model features to pool columns and checks the declared roles.
func (m *Model) bind(pool *Pool) (floatCols, catCols []int, err error) {
	index := make(map[string]int, len(pool.Columns))
	for i, c := range pool.Columns {
		index[c] = i
	}
	declaredCat := make(map[string]bool, len(pool.CatFeatures))
	for _, c := range pool.CatFeatures {
		if _, ok := index[c]; !ok {
			return nil, nil, apperr.InferenceError("categorical feature %s is not a pool column", c)
		}
		declaredCat[c] = true
	}

	for _, f := range m.floats {
		i, ok := index[f.name]
		if !ok {
			return nil, nil, apperr.InferenceError("pool is missing feature %s", f.name)
		}
		if declaredCat[f.name] {
			return nil, nil, apperr.InferenceError("feature %s is numeric in the model but declared categorical", f.name)
		}
		floatCols = append(floatCols, i)
	}
	for _, name := range m.cats {
		i, ok := index[name]
		if !ok {
			return nil, nil, apperr.InferenceError("pool is missing feature %s", name)
		}
		if !declaredCat[name] {
			return nil, nil, apperr.InferenceError("feature %s is categorical in the model but not declared categorical", name)
		}
		catCols = append(catCols, i)
	}
	return floatCols, catCols, nil
}

func (m *Model) score(floats []float64, cats []string) (float64, error) {
	var sum float64
	for _, t := range m.trees {
		idx := 0
		for bit, s := range t.splits {
			hit, err := m.eval(s, floats, cats)
			if err != nil {
				return 0, err
			}
			if hit {
				idx |= 1 << bit
			}
		}
		sum += t.leaves[idx]
	}
	return m.scale*sum + m.bias, nil
}

func (m *Model) eval(s split, floats []float64, cats []string) (bool, error) {
	if s.kind == SplitOneHot {
		return cats[s.feature] == s.value, nil
	}
	v := floats[s.feature]
	if math.IsNaN(v) {
		switch m.floats[s.feature].nan {
		case NanAsTrue:
			return true, nil
		case NanForbidden:
			return false, fmt.Errorf("feature %s is missing", m.floats[s.feature].name)
		default:
			return false, nil
		}
	}
	return v > s.border, nil
}

// parseFloat treats an empty cell as missing.
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return v, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
