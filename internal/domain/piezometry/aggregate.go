package piezometry

import (
	"math"
	"time"
)

// AggregateByDate reduces a multi-piezometer series to one delta. For every
// piezometer the reading closest to ref is the init value and its most recent
// reading is the end value; pairs sharing a timestamp are skipped.
// ok is false when no piezometer contributed a pair.
func AggregateByDate(series Series, ref time.Time) (Aggregate, bool) {
	order, groups := ByVariable(series)
	initValues := make([]float64, 0, len(order))
	endValues := make([]float64, 0, len(order))
	for _, code := range order {
		group := groups[code]
		init, ok := ClosestValue(group, ref)
		if !ok {
			continue
		}
		end := group[0]
		if !pairUsable(init, end) {
			continue
		}
		initValues = append(initValues, init.Value)
		endValues = append(endValues, end.Value)
	}
	return aggregate(initValues, endValues)
}

// AggregateInitControl pairs each piezometer's first listed reading with its
// last one. Degenerate pairs are dropped by timestamp, like AggregateByDate.
func AggregateInitControl(series Series) (Aggregate, bool) {
	order, groups := ByVariable(series)
	initValues := make([]float64, 0, len(order))
	endValues := make([]float64, 0, len(order))
	for _, code := range order {
		group := groups[code]
		init, end := group[0], group[len(group)-1]
		if !pairUsable(init, end) {
			continue
		}
		initValues = append(initValues, init.Value)
		endValues = append(endValues, end.Value)
	}
	return aggregate(initValues, endValues)
}

func pairUsable(init, end Reading) bool {
	if init.Value == 0 || end.Value == 0 || math.IsNaN(init.Value) || math.IsNaN(end.Value) {
		return false
	}
	return !init.Time.Equal(end.Time)
}

func aggregate(initValues, endValues []float64) (Aggregate, bool) {
	avgInit := ArrayAvg(initValues)
	avgEnd := ArrayAvg(endValues)
	delta := avgEnd - avgInit
	if math.IsNaN(delta) {
		return Aggregate{}, false
	}
	return Aggregate{AvgInit: avgInit, AvgEnd: avgEnd, Delta: delta}, true
}
