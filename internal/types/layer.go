package types

// StatKind identifies a statistic computed for a layer.
type StatKind string

const (
	StatDensity     StatKind = "density"      // features per km²
	StatTotalLength StatKind = "total_length" // summed length in meters, line layers
	StatTotalArea   StatKind = "total_area"   // summed area in m², polygon layers
	StatAreaShare   StatKind = "area_share"   // percent of the boundary covered
)

// LayerSpec describes one fetchable OSM layer: which elements to query and
// which statistics to derive from the clipped result.
type LayerSpec struct {
	ID            string       `mapstructure:"id"`
	Name          string       `mapstructure:"name"`
	Kind          GeometryKind `mapstructure:"kind"`
	Selectors     []string     `mapstructure:"selectors"` // Overpass QL element selectors, e.g. `way["highway"]`
	Stats         []StatKind   `mapstructure:"stats"`
	DefaultActive bool         `mapstructure:"default_active"`
}

// WantsStat reports whether the layer requests the given statistic.
func (l LayerSpec) WantsStat(kind StatKind) bool {
	for _, s := range l.Stats {
		if s == kind {
			return true
		}
	}
	return false
}

// LayerStats holds the statistics derived from a clipped layer. Count is
// always present; the remaining fields are set only when the layer requests
// them and they apply to its geometry kind.
type LayerStats struct {
	Count       int      `json:"count"`
	Density     *float64 `json:"density,omitempty"`     // features per km²
	TotalLength *float64 `json:"totalLength,omitempty"` // meters
	TotalArea   *float64 `json:"totalArea,omitempty"`   // m²
	AreaShare   *float64 `json:"areaShare,omitempty"`   // percent
}
