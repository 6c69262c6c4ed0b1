package model

import "time"

// Appended result columns.
const (
	ColPrediction = "Prediction"
	ColStatus     = "Status"
)

const (
	StatusStudying   = "STUDYING"
	StatusDroppedOut = "DROPPED OUT"
)

// StatusFor maps a predicted label to its display string.
func StatusFor(label int) string {
	if label == 1 {
		return StatusDroppedOut
	}
	return StatusStudying
}

// Summary holds the aggregate counts of one run.
type Summary struct {
	Total    int `json:"total"`
	Studying int `json:"studying"`
	Dropped  int `json:"dropped"`
}

// GroupStats describes DistanceToSchool within one predicted status.
type GroupStats struct {
	Status       string  `json:"status"`
	Count        int     `json:"count"`
	MeanDistance float64 `json:"mean_distance"`
	MedianDist   float64 `json:"median_distance"`
}

// CategoryRate is the dropout share for one value of a categorical column.
type CategoryRate struct {
	Value   string  `json:"value"`
	Count   int     `json:"count"`
	Dropped int     `json:"dropped"`
	Rate    float64 `json:"rate"`
}

// Insights are descriptive extras shown beneath the summary metrics.
type Insights struct {
	MeanDropoutProbability float64        `json:"mean_dropout_probability"`
	ByStatus               []GroupStats   `json:"by_status"`
	ByFinancialStatus      []CategoryRate `json:"by_financial_status"`
}

// Result is the assembled output of one prediction run.
type Result struct {
	RunID       string    `json:"run_id"`
	FileName    string    `json:"file_name"`
	Input       *Dataset  `json:"-"`
	Header      []string  `json:"header"`
	Rows        []Record  `json:"rows"`
	Labels      []int     `json:"-"`
	Summary     Summary   `json:"summary"`
	Insights    Insights  `json:"insights"`
	ExportCSV   []byte    `json:"-"`
	DownloadURI string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// Run is the session record of a completed result.
type Run struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	FileName  string    `json:"file_name"`
	Total     int       `json:"total"`
	Studying  int       `json:"studying"`
	Dropped   int       `json:"dropped"`
	ResultCSV []byte    `json:"-"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
