package piezometry

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DefaultDateLayout renders dates as day/month/year without padding.
const DefaultDateLayout = "2/1/2006"

// TableOptions controls how a strategy table renders dates.
type TableOptions struct {
	Location   *time.Location
	DateLayout string
}

func (o TableOptions) normalized() TableOptions {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if strings.TrimSpace(o.DateLayout) == "" {
		o.DateLayout = DefaultDateLayout
	}
	return o
}

func (o TableOptions) date(t time.Time) string {
	return t.In(o.Location).Format(o.DateLayout)
}

// evaluation is the single delta computation both the color and the display
// text of a strategy are derived from.
type evaluation struct {
	delta float64
	init  Reading
	end   Reading
	agg   Aggregate
}

// Strategy is the immutable policy of one time range for one target.
type Strategy struct {
	Range  TimeRange
	Target Target

	body      func(now time.Time) RequestBody
	reference func(now time.Time) (time.Time, bool)
	evaluate  func(series Series, now time.Time) (evaluation, bool)
	color     func(delta float64) Color
	render    func(ev evaluation) []string
	legend    func() []LegendItem
}

// RequestBody returns the backend query payload for this range.
func (s Strategy) RequestBody(now time.Time) RequestBody {
	return s.body(now)
}

// StateColor classifies the series; missing or degenerate data is black.
func (s Strategy) StateColor(series Series, now time.Time) Color {
	ev, ok := s.evaluate(series, now)
	if !ok {
		return ColorBlack
	}
	return s.color(ev.delta)
}

// DisplayInfo renders the summary shown next to the map feature, or "" when
// the series cannot be classified. numPiezometers adds a member count line
// for aquifers when positive.
func (s Strategy) DisplayInfo(series Series, numPiezometers int, now time.Time) string {
	ev, ok := s.evaluate(series, now)
	if !ok {
		return ""
	}
	lines := s.render(ev)
	if s.Target == TargetAquifer && numPiezometers > 0 {
		lines = append(lines, fmt.Sprintf("Number of piezometers: %d", numPiezometers))
	}
	return strings.Join(lines, "\n")
}

// Delta exposes the classified value, false when it is undefined.
func (s Strategy) Delta(series Series, now time.Time) (float64, bool) {
	ev, ok := s.evaluate(series, now)
	if !ok {
		return math.NaN(), false
	}
	return ev.delta, true
}

// DiffDays is the length of the range in days. The latest range has none.
func (s Strategy) DiffDays(now time.Time) (int, bool) {
	ref, ok := s.reference(now)
	if !ok {
		return 0, false
	}
	return DiffDays(ref, now), true
}

// Legend lists the color buckets of this range.
func (s Strategy) Legend() []LegendItem {
	return s.legend()
}

// Table is the fixed set of strategies for one target.
type Table struct {
	target     Target
	strategies map[TimeRange]Strategy
}

// Target reports which rules the table holds.
func (t Table) Target() Target {
	return t.target
}

// Lookup finds the strategy of a range.
func (t Table) Lookup(r TimeRange) (Strategy, bool) {
	s, ok := t.strategies[r]
	return s, ok
}

// Strategies returns the strategies in presentation order.
func (t Table) Strategies() []Strategy {
	out := make([]Strategy, 0, len(Ranges))
	for _, r := range Ranges {
		if s, ok := t.strategies[r]; ok {
			out = append(out, s)
		}
	}
	return out
}

// NewPiezometerTable builds the rules for single piezometer series.
func NewPiezometerTable(opts TableOptions) Table {
	opts = opts.normalized()
	strategies := map[TimeRange]Strategy{
		RangeLatest: {
			Range:     RangeLatest,
			Target:    TargetPiezometer,
			body:      latestBody,
			reference: noReference,
			evaluate:  evaluateLatestReading,
			color:     StateColorLatest,
			render: func(ev evaluation) []string {
				return []string{
					"PNP: "+toFixed(ev.delta, 2),
					fmt.Sprintf("Date: %s", opts.date(ev.end.Time)),
				}
			},
			legend: latestLegend,
		},
		RangeInitControl: {
			Range:     RangeInitControl,
			Target:    TargetPiezometer,
			body:      initialBody,
			reference: epochReference,
			evaluate:  evaluateControlPair,
			color:     StateColorInitControl,
			render: func(ev evaluation) []string {
				return []string{
					"Delta: "+toFixed(ev.delta, 2),
					fmt.Sprintf("Initial date: %s (%s)", opts.date(ev.init.Time), toFixed(ev.init.Value, 2)),
					fmt.Sprintf("Latest date: %s (%s)", opts.date(ev.end.Time), toFixed(ev.end.Value, 2)),
				}
			},
			legend: initControlLegend,
		},
	}
	for r, ref := range datedReferences(opts.Location) {
		r, ref := r, ref
		strategies[r] = Strategy{
			Range:     r,
			Target:    TargetPiezometer,
			body:      customBody(ref),
			reference: withReference(ref),
			evaluate: func(series Series, now time.Time) (evaluation, bool) {
				return evaluateDatedPair(series, ref(now))
			},
			color: StateColorInitYear,
			render: func(ev evaluation) []string {
				return []string{
					"Delta: "+toFixed(ev.delta, 2),
					fmt.Sprintf("Initial date: %s (%s)", opts.date(ev.init.Time), toFixed(ev.init.Value, 0)),
					fmt.Sprintf("End date: %s (%s)", opts.date(ev.end.Time), toFixed(ev.end.Value, 0)),
				}
			},
			legend: deltaLegend,
		}
	}
	return Table{target: TargetPiezometer, strategies: strategies}
}

// NewAquiferTable builds the rules for series spanning several piezometers.
func NewAquiferTable(opts TableOptions) Table {
	opts = opts.normalized()
	renderAggregate := func(ev evaluation) []string {
		return []string{
			"Delta: "+toFixed(ev.delta, 2),
			"Initial average: "+toFixed(ev.agg.AvgInit, 2),
			"End average: "+toFixed(ev.agg.AvgEnd, 2),
		}
	}
	strategies := map[TimeRange]Strategy{
		RangeLatest: {
			Range:     RangeLatest,
			Target:    TargetAquifer,
			body:      latestBody,
			reference: noReference,
			evaluate:  evaluateMeanLevel,
			color:     StateColorLatest,
			render: func(ev evaluation) []string {
				return []string{"PNP (average): "+toFixed(ev.delta, 2)}
			},
			legend: latestLegend,
		},
		RangeInitControl: {
			Range:     RangeInitControl,
			Target:    TargetAquifer,
			body:      initialBody,
			reference: epochReference,
			evaluate: func(series Series, _ time.Time) (evaluation, bool) {
				if len(series) < 2 {
					return evaluation{}, false
				}
				return fromAggregate(AggregateInitControl(series))
			},
			color:  StateColorInitControl,
			render: renderAggregate,
			legend: initControlLegend,
		},
	}
	for r, ref := range datedReferences(opts.Location) {
		r, ref := r, ref
		strategies[r] = Strategy{
			Range:     r,
			Target:    TargetAquifer,
			body:      customBody(ref),
			reference: withReference(ref),
			evaluate: func(series Series, now time.Time) (evaluation, bool) {
				if len(series) == 0 {
					return evaluation{}, false
				}
				return fromAggregate(AggregateByDate(series, ref(now)))
			},
			color:  StateColorInitYear,
			render: renderAggregate,
			legend: deltaLegend,
		}
	}
	return Table{target: TargetAquifer, strategies: strategies}
}

func datedReferences(loc *time.Location) map[TimeRange]func(now time.Time) time.Time {
	return map[TimeRange]func(now time.Time) time.Time{
		RangeLastYear: Last365Days,
		RangeInitYear: StartOfYear,
		RangeInitHydroYear: func(time.Time) time.Time {
			return HydroYearStart(loc)
		},
	}
}

func latestBody(time.Time) RequestBody {
	return RequestBody{Type: "latest"}
}

func initialBody(time.Time) RequestBody {
	return RequestBody{Type: "initial"}
}

func customBody(ref func(time.Time) time.Time) func(time.Time) RequestBody {
	return func(now time.Time) RequestBody {
		return RequestBody{
			Type:  "custom",
			Range: &DateRange{Start: isoString(ref(now)), End: isoString(now)},
		}
	}
}

func noReference(time.Time) (time.Time, bool) {
	return time.Time{}, false
}

func epochReference(time.Time) (time.Time, bool) {
	return time.Unix(0, 0), true
}

func withReference(ref func(time.Time) time.Time) func(time.Time) (time.Time, bool) {
	return func(now time.Time) (time.Time, bool) {
		return ref(now), true
	}
}

func evaluateLatestReading(series Series, _ time.Time) (evaluation, bool) {
	if len(series) == 0 {
		return evaluation{}, false
	}
	last := series[len(series)-1]
	if math.IsNaN(last.Value) {
		return evaluation{}, false
	}
	return evaluation{delta: last.Value, end: last}, true
}

func evaluateDatedPair(series Series, ref time.Time) (evaluation, bool) {
	init, ok := ClosestValue(series, ref)
	if !ok || !init.Valid() || !series[0].Valid() {
		return evaluation{}, false
	}
	end := series[0]
	return evaluation{delta: end.Value - init.Value, init: init, end: end}, true
}

func evaluateControlPair(series Series, _ time.Time) (evaluation, bool) {
	if len(series) < 2 {
		return evaluation{}, false
	}
	init, end := series[0], series[len(series)-1]
	delta := end.Value - init.Value
	if math.IsNaN(delta) {
		return evaluation{}, false
	}
	return evaluation{delta: delta, init: init, end: end}, true
}

func evaluateMeanLevel(series Series, _ time.Time) (evaluation, bool) {
	if len(series) == 0 {
		return evaluation{}, false
	}
	avg := ArrayAvg(values(series))
	if math.IsNaN(avg) {
		return evaluation{}, false
	}
	return evaluation{delta: avg}, true
}

func fromAggregate(agg Aggregate, ok bool) (evaluation, bool) {
	if !ok {
		return evaluation{}, false
	}
	return evaluation{delta: agg.Delta, agg: agg}, true
}
