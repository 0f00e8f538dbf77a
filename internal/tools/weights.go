package tools

import "fmt"

// Weights carries the tuning constants of the analysis tools. The values
// are inherited from the production analysis engine and are deliberately
// kept as configuration rather than re-derived; override them per
// deployment if a better calibration is ever established.
type Weights struct {
	// Connection signal weights, summing to 1.
	Semantic   float64 `koanf:"semantic" json:"semantic"`
	Geographic float64 `koanf:"geographic" json:"geographic"`
	Temporal   float64 `koanf:"temporal" json:"temporal"`
	Attribute  float64 `koanf:"attribute" json:"attribute"`

	// SpikeStdDev is the z-score above which a period counts as a spike.
	SpikeStdDev float64 `koanf:"spike_stddev" json:"spike_stddev"`

	// HotspotShare is the fraction of records one area must hold to count
	// as a hotspot.
	HotspotShare float64 `koanf:"hotspot_share" json:"hotspot_share"`

	// DominanceShare is the fraction of records one category must hold to
	// count as dominant.
	DominanceShare float64 `koanf:"dominance_share" json:"dominance_share"`

	// CooccurrenceFloor is the minimum times an attribute pair must
	// co-occur before it is reported, regardless of apparent strength.
	CooccurrenceFloor int `koanf:"cooccurrence_floor" json:"cooccurrence_floor"`
}

// DefaultWeights returns the inherited production constants.
func DefaultWeights() Weights {
	return Weights{
		Semantic:          0.4,
		Geographic:        0.3,
		Temporal:          0.2,
		Attribute:         0.1,
		SpikeStdDev:       1.5,
		HotspotShare:      0.25,
		DominanceShare:    0.40,
		CooccurrenceFloor: 3,
	}
}

// Validate checks the weights for internal consistency.
func (w Weights) Validate() error {
	sum := w.Semantic + w.Geographic + w.Temporal + w.Attribute
	if sum <= 0 {
		return fmt.Errorf("connection signal weights must sum to a positive value, got %v", sum)
	}
	for name, v := range map[string]float64{
		"semantic":   w.Semantic,
		"geographic": w.Geographic,
		"temporal":   w.Temporal,
		"attribute":  w.Attribute,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s cannot be negative", name)
		}
	}
	if w.SpikeStdDev <= 0 {
		return fmt.Errorf("spike threshold must be > 0, got %v", w.SpikeStdDev)
	}
	if w.HotspotShare <= 0 || w.HotspotShare > 1 {
		return fmt.Errorf("hotspot share must be in (0,1], got %v", w.HotspotShare)
	}
	if w.DominanceShare <= 0 || w.DominanceShare > 1 {
		return fmt.Errorf("dominance share must be in (0,1], got %v", w.DominanceShare)
	}
	if w.CooccurrenceFloor < 1 {
		return fmt.Errorf("co-occurrence floor must be >= 1, got %d", w.CooccurrenceFloor)
	}
	return nil
}
