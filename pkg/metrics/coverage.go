package metrics

// Coverage reports how much of a requested network had data behind a map.
type Coverage struct {
	Piezometers int `json:"piezometers"`
	WithData    int `json:"withData"`
	Classified  int `json:"classified"`
	Unclassed   int `json:"unclassified,omitempty"`
}

// Ratio is the share of piezometers that returned readings.
func (c Coverage) Ratio() float64 {
	if c.Piezometers == 0 {
		return 0
	}
	return float64(c.WithData) / float64(c.Piezometers)
}
