package piezometry

// Color is the hex value the map paints a piezometer or aquifer with.
type Color string

const (
	ColorGreen  Color = "#1BF540"
	ColorBlue   Color = "#4699E6"
	ColorCyan   Color = "#39FFDE"
	ColorOrange Color = "#EB951C"
	ColorRed    Color = "#D13608"
	ColorPurple Color = "#C330FA"
	// ColorBlack marks missing or unclassifiable data.
	ColorBlack Color = "#000000"
)

const noDataText = "No data"

// StateColorLatest buckets a raw PNP value (meters below surface).
func StateColorLatest(value float64) Color {
	switch {
	case value <= 50:
		return ColorGreen
	case value > 50 && value <= 100:
		return ColorBlue
	case value > 100 && value <= 150:
		return ColorCyan
	case value > 150 && value <= 250:
		return ColorOrange
	case value > 250 && value <= 350:
		return ColorRed
	case value > 350:
		return ColorPurple
	default:
		return ColorBlack
	}
}

// StateColorInitYear buckets the PNP delta of a dated window.
func StateColorInitYear(delta float64) Color {
	switch {
	case delta <= -0.5:
		return ColorGreen
	case delta > -0.5 && delta <= 0:
		return ColorBlue
	case delta > 0 && delta <= 0.5:
		return ColorCyan
	case delta > 0.5 && delta <= 1:
		return ColorOrange
	case delta > 1:
		return ColorRed
	default:
		return ColorBlack
	}
}

// StateColorInitControl buckets the delta between the first control reading
// and the latest one.
func StateColorInitControl(delta float64) Color {
	switch {
	case delta > -1:
		return ColorGreen
	case delta <= -1 && delta > -25:
		return ColorBlue
	case delta <= -25 && delta > -50:
		return ColorCyan
	case delta <= -50 && delta > -100:
		return ColorOrange
	case delta <= -100 && delta > -200:
		return ColorRed
	case delta <= -200:
		return ColorPurple
	default:
		return ColorBlack
	}
}

func latestLegend() []LegendItem {
	return []LegendItem{
		{Color: ColorGreen, Text: "pnp <= 50"},
		{Color: ColorBlue, Text: "50 < pnp <= 100"},
		{Color: ColorCyan, Text: "100 < pnp <= 150"},
		{Color: ColorOrange, Text: "150 < pnp <= 250"},
		{Color: ColorRed, Text: "250 < pnp <= 350"},
		{Color: ColorPurple, Text: "> 350"},
		{Color: ColorBlack, Text: noDataText},
	}
}

func deltaLegend() []LegendItem {
	return []LegendItem{
		{Color: ColorGreen, Text: "delta <= -0.5"},
		{Color: ColorBlue, Text: "-0.5 < delta <= 0"},
		{Color: ColorCyan, Text: "0 < delta <= 0.5"},
		{Color: ColorOrange, Text: "0.5 < delta <= 1"},
		{Color: ColorRed, Text: "> 1"},
		{Color: ColorBlack, Text: noDataText},
	}
}

func initControlLegend() []LegendItem {
	return []LegendItem{
		{Color: ColorGreen, Text: "delta > -1"},
		{Color: ColorBlue, Text: "-25 < delta <= -1"},
		{Color: ColorCyan, Text: "-50 < delta <= -25"},
		{Color: ColorOrange, Text: "-100 < delta <= -50"},
		{Color: ColorRed, Text: "-200 < delta <= -100"},
		{Color: ColorPurple, Text: "<= -200"},
		{Color: ColorBlack, Text: noDataText},
	}
}
