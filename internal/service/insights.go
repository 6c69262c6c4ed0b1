package service

import (
	"math"
	"strconv"

	"dropoutpredictor/internal/model"

	"github.com/montanaflynn/stats"
)

// buildInsights summarizes distance per predicted status and dropout share
// per financial status. Missing distances are left out of the averages.
func buildInsights(ds *model.Dataset, labels []int, meanProb float64) model.Insights {
	distIdx := ds.Index(model.ColDistanceToSchool)
	finIdx := ds.Index(model.ColFinancialStatus)

	ins := model.Insights{MeanDropoutProbability: meanProb}

	distances := map[int][]float64{}
	counts := map[int]int{}
	for i, rec := range ds.Records {
		counts[labels[i]]++
		if v, err := strconv.ParseFloat(rec[distIdx], 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			distances[labels[i]] = append(distances[labels[i]], v)
		}
	}
	for _, label := range []int{0, 1} {
		g := model.GroupStats{Status: model.StatusFor(label), Count: counts[label]}
		if d := distances[label]; len(d) > 0 {
			g.MeanDistance, _ = stats.Mean(d)
			g.MedianDist, _ = stats.Median(d)
		}
		ins.ByStatus = append(ins.ByStatus, g)
	}

	index := map[string]int{}
	for i, rec := range ds.Records {
		v := rec[finIdx]
		pos, ok := index[v]
		if !ok {
			pos = len(ins.ByFinancialStatus)
			index[v] = pos
			ins.ByFinancialStatus = append(ins.ByFinancialStatus, model.CategoryRate{Value: v})
		}
		ins.ByFinancialStatus[pos].Count++
		if labels[i] == 1 {
			ins.ByFinancialStatus[pos].Dropped++
		}
	}
	for i := range ins.ByFinancialStatus {
		c := &ins.ByFinancialStatus[i]
		c.Rate = float64(c.Dropped) / float64(c.Count)
	}
	return ins
}
