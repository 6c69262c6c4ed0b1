package classifier

import (
	"encoding/json"
	"fmt"
)

// Split types of an oblivious tree.
const (
	SplitFloat  = "FloatFeature"
	SplitOneHot = "OneHotFeature"
)

// NaN handling of a float feature.
const (
	NanAsFalse   = "AsFalse"
	NanAsTrue    = "AsTrue"
	NanForbidden = "Forbidden"
)

// artifact mirrors the JSON export layout of a binary oblivious-tree ensemble.
type artifact struct {
	ModelInfo      map[string]string `json:"model_info"`
	FeaturesInfo   featuresInfo      `json:"features_info"`
	ObliviousTrees []treeJSON        `json:"oblivious_trees"`
	ScaleAndBias   scaleAndBias      `json:"scale_and_bias"`
	ClassNames     []int             `json:"class_names"`
}

type featuresInfo struct {
	FloatFeatures       []floatFeatureJSON `json:"float_features"`
	CategoricalFeatures []catFeatureJSON   `json:"categorical_features"`
}

type floatFeatureJSON struct {
	FeatureName       string `json:"feature_name"`
	NanValueTreatment string `json:"nan_value_treatment"`
}

type catFeatureJSON struct {
	FeatureName string `json:"feature_name"`
}

type treeJSON struct {
	Splits     []splitJSON `json:"splits"`
	LeafValues []float64   `json:"leaf_values"`
}

type splitJSON struct {
	SplitType         string  `json:"split_type"`
	FloatFeatureIndex int     `json:"float_feature_index"`
	Border            float64 `json:"border"`
	CatFeatureIndex   int     `json:"cat_feature_index"`
	Value             string  `json:"value"`
}

// scaleAndBias decodes the [scale, [bias]] pair. A bare bias number is accepted too.
type scaleAndBias struct {
	Scale float64
	Bias  float64
	set   bool
}

func (sb *scaleAndBias) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("scale_and_bias: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("scale_and_bias: want 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &sb.Scale); err != nil {
		return fmt.Errorf("scale_and_bias scale: %w", err)
	}
	var biases []float64
	if err := json.Unmarshal(pair[1], &biases); err != nil {
		if err := json.Unmarshal(pair[1], &sb.Bias); err != nil {
			return fmt.Errorf("scale_and_bias bias: %w", err)
		}
	} else {
		if len(biases) != 1 {
			return fmt.Errorf("scale_and_bias: binary model needs 1 bias, got %d", len(biases))
		}
		sb.Bias = biases[0]
	}
	sb.set = true
	return nil
}

// compile checks the decoded artifact and builds the evaluation form.
func (a *artifact) compile() (*Model, error) {
	if len(a.ObliviousTrees) == 0 {
		return nil, fmt.Errorf("model has no trees")
	}

	m := &Model{
		info:  a.ModelInfo,
		scale: 1,
	}
	if a.ScaleAndBias.set {
		m.scale, m.bias = a.ScaleAndBias.Scale, a.ScaleAndBias.Bias
	}

	switch len(a.ClassNames) {
	case 0:
		m.classes = [2]int{0, 1}
	case 2:
		m.classes = [2]int{a.ClassNames[0], a.ClassNames[1]}
	default:
		return nil, fmt.Errorf("binary model needs 2 class names, got %d", len(a.ClassNames))
	}

	seen := make(map[string]bool)
	for i, f := range a.FeaturesInfo.FloatFeatures {
		if f.FeatureName == "" {
			return nil, fmt.Errorf("float feature %d has no name", i)
		}
		if seen[f.FeatureName] {
			return nil, fmt.Errorf("duplicate feature %q", f.FeatureName)
		}
		seen[f.FeatureName] = true
		nan := f.NanValueTreatment
		switch nan {
		case "":
			nan = NanAsFalse
		case NanAsFalse, NanAsTrue, NanForbidden:
		default:
			return nil, fmt.Errorf("float feature %q: unknown nan_value_treatment %q", f.FeatureName, nan)
		}
		m.floats = append(m.floats, floatFeature{name: f.FeatureName, nan: nan})
	}
	for i, f := range a.FeaturesInfo.CategoricalFeatures {
		if f.FeatureName == "" {
			return nil, fmt.Errorf("categorical feature %d has no name", i)
		}
		if seen[f.FeatureName] {
			return nil, fmt.Errorf("duplicate feature %q", f.FeatureName)
		}
		seen[f.FeatureName] = true
		m.cats = append(m.cats, f.FeatureName)
	}

	for ti, t := range a.ObliviousTrees {
		if len(t.Splits) > 16 {
			return nil, fmt.Errorf("tree %d: depth %d exceeds 16", ti, len(t.Splits))
		}
		if want := 1 << len(t.Splits); len(t.LeafValues) != want {
			return nil, fmt.Errorf("tree %d: want %d leaf values, got %d", ti, want, len(t.LeafValues))
		}
		ct := tree{leaves: t.LeafValues}
		for si, s := range t.Splits {
			sp := split{kind: s.SplitType}
			switch s.SplitType {
			case SplitFloat:
				if s.FloatFeatureIndex < 0 || s.FloatFeatureIndex >= len(m.floats) {
					return nil, fmt.Errorf("tree %d split %d: float feature index %d out of range", ti, si, s.FloatFeatureIndex)
				}
				sp.feature, sp.border = s.FloatFeatureIndex, s.Border
			case SplitOneHot:
				if s.CatFeatureIndex < 0 || s.CatFeatureIndex >= len(m.cats) {
					return nil, fmt.Errorf("tree %d split %d: categorical feature index %d out of range", ti, si, s.CatFeatureIndex)
				}
				sp.feature, sp.value = s.CatFeatureIndex, s.Value
			default:
				return nil, fmt.Errorf("tree %d split %d: unsupported split type %q", ti, si, s.SplitType)
			}
			ct.splits = append(ct.splits, sp)
		}
		m.trees = append(m.trees, ct)
	}
	return m, nil
}
