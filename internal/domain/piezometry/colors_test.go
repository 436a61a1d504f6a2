package piezometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateColorLatestBoundaries(t *testing.T) {
	cases := []struct {
		value float64
		want  Color
	}{
		{-3, ColorGreen},
		{50, ColorGreen},
		{50.0001, ColorBlue},
		{100, ColorBlue},
		{100.5, ColorCyan},
		{150, ColorCyan},
		{150.01, ColorOrange},
		{250, ColorOrange},
		{251, ColorRed},
		{350, ColorRed},
		{350.01, ColorPurple},
		{math.NaN(), ColorBlack},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, StateColorLatest(tc.value), "value %v", tc.value)
	}
}

func TestStateColorInitYearBoundaries(t *testing.T) {
	cases := []struct {
		delta float64
		want  Color
	}{
		{-10, ColorGreen},
		{-0.5, ColorGreen},
		{-0.4999, ColorBlue},
		{0, ColorBlue},
		{0.0001, ColorCyan},
		{0.5, ColorCyan},
		{0.75, ColorOrange},
		{1, ColorOrange},
		{1.0001, ColorRed},
		{math.NaN(), ColorBlack},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, StateColorInitYear(tc.delta), "delta %v", tc.delta)
	}
}

func TestStateColorInitControlBoundaries(t *testing.T) {
	cases := []struct {
		delta float64
		want  Color
	}{
		{12, ColorGreen},
		{-0.9999, ColorGreen},
		{-1, ColorBlue},
		{-1.0001, ColorBlue},
		{-24.99, ColorBlue},
		{-25, ColorCyan},
		{-49.99, ColorCyan},
		{-50, ColorOrange},
		{-99.99, ColorOrange},
		{-100, ColorRed},
		{-199.99, ColorRed},
		{-200, ColorPurple},
		{-1000, ColorPurple},
		{math.NaN(), ColorBlack},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, StateColorInitControl(tc.delta), "delta %v", tc.delta)
	}
}

func TestLegendsEndWithNoData(t *testing.T) {
	for _, legend := range [][]LegendItem{latestLegend(), deltaLegend(), initControlLegend()} {
		require.NotEmpty(t, legend)
		last := legend[len(legend)-1]
		require.Equal(t, ColorBlack, last.Color)
		require.Equal(t, noDataText, last.Text)
	}
}

func TestLegendColorsMatchThresholdOrder(t *testing.T) {
	probes := []struct {
		name   string
		legend []LegendItem
		color  func(float64) Color
		values []float64
	}{
		{"latest", latestLegend(), StateColorLatest, []float64{10, 75, 125, 200, 300, 400}},
		{"delta", deltaLegend(), StateColorInitYear, []float64{-1, -0.2, 0.2, 0.7, 3}},
		{"initControl", initControlLegend(), StateColorInitControl, []float64{0, -10, -30, -70, -150, -300}},
	}
	for _, p := range probes {
		require.Len(t, p.legend, len(p.values)+1, p.name)
		for i, v := range p.values {
			require.Equal(t, p.legend[i].Color, p.color(v), "%s bucket %d", p.name, i)
		}
	}
}
