package piezometry

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// GroupBy partitions items by key. Keys are returned in first-seen order and
// each group keeps the relative order of its items.
func GroupBy[T any, K comparable](items []T, key func(T) K) ([]K, map[K][]T) {
	groups := make(map[K][]T)
	order := make([]K, 0)
	for _, item := range items {
		k := key(item)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], item)
	}
	return order, groups
}

// ByVariable groups a mixed series per piezometer variable code.
func ByVariable(series Series) ([]string, map[string]Series) {
	order, groups := GroupBy(series, func(r Reading) string { return r.VariableCode })
	out := make(map[string]Series, len(groups))
	for k, v := range groups {
		out[k] = Series(v)
	}
	return order, out
}

// ArrayAvg returns the arithmetic mean, NaN for an empty slice.
func ArrayAvg(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}

// ClosestValue returns the reading nearest to date. Ties keep the earliest
// position in the series.
func ClosestValue(series Series, date time.Time) (Reading, bool) {
	if len(series) == 0 {
		return Reading{}, false
	}
	best := 0
	bestDist := absDuration(date.Sub(series[0].Time))
	for i := 1; i < len(series); i++ {
		if dist := absDuration(date.Sub(series[i].Time)); dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return series[best], true
}

// DiffDays is the number of started days between two instants.
func DiffDays(start, end time.Time) int {
	diff := absDuration(start.Sub(end))
	return int(math.Ceil(float64(diff) / float64(24*time.Hour)))
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func values(series Series) []float64 {
	out := make([]float64, 0, len(series))
	for _, r := range series {
		out = append(out, r.Value)
	}
	return out
}

// SortDescending orders a copy of the series from most recent to oldest.
func SortDescending(series Series) Series {
	out := make(Series, len(series))
	copy(out, series)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.After(out[j].Time)
	})
	return out
}
