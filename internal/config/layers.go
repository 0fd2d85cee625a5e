package config

import "github.com/raynbowy23/Axon-City-sub002/internal/types"

// DefaultLayers is the built-in layer catalog. Selectors follow Overpass QL
// element syntax and are combined with a per-element bbox filter at query
// time. Stations and amenities start inactive to keep the initial fetch per
// area small.
func DefaultLayers() []types.LayerSpec {
	return []types.LayerSpec{
		{
			ID:   "buildings",
			Name: "Buildings",
			Kind: types.KindPolygon,
			Selectors: []string{
				`way["building"]`,
				`relation["building"]["type"="multipolygon"]`,
			},
			Stats:         []types.StatKind{types.StatDensity, types.StatTotalArea, types.StatAreaShare},
			DefaultActive: true,
		},
		{
			ID:   "roads",
			Name: "Roads",
			Kind: types.KindLine,
			Selectors: []string{
				`way["highway"]`,
			},
			Stats:         []types.StatKind{types.StatTotalLength, types.StatDensity},
			DefaultActive: true,
		},
		{
			ID:   "green",
			Name: "Green spaces",
			Kind: types.KindPolygon,
			Selectors: []string{
				`way["leisure"="park"]`,
				`way["leisure"="garden"]`,
				`way["landuse"="forest"]`,
				`way["landuse"="grass"]`,
				`way["landuse"="meadow"]`,
				`relation["leisure"="park"]`,
			},
			Stats:         []types.StatKind{types.StatTotalArea, types.StatAreaShare},
			DefaultActive: true,
		},
		{
			ID:   "water",
			Name: "Water",
			Kind: types.KindPolygon,
			Selectors: []string{
				`way["natural"="water"]`,
				`relation["natural"="water"]`,
			},
			Stats:         []types.StatKind{types.StatAreaShare},
			DefaultActive: true,
		},
		{
			ID:   "transit",
			Name: "Transit stops",
			Kind: types.KindPoint,
			Selectors: []string{
				`node["public_transport"="station"]`,
				`node["railway"="station"]`,
				`node["highway"="bus_stop"]`,
			},
			Stats:         []types.StatKind{types.StatDensity},
			DefaultActive: false,
		},
		{
			ID:   "amenities",
			Name: "Amenities",
			Kind: types.KindPoint,
			Selectors: []string{
				`node["amenity"]`,
			},
			Stats:         []types.StatKind{types.StatDensity},
			DefaultActive: false,
		},
	}
}
