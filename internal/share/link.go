// Package share encodes session state into compact URL query strings so a
// view, including drawn comparison areas, can be restored from a link.
package share

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/raynbowy23/Axon-City-sub002/internal/polyline"
	"github.com/raynbowy23/Axon-City-sub002/internal/types"
)

// Camera defaults. The pitch/bearing parameter is omitted from links when
// both match these values.
const (
	DefaultPitch   = 45
	DefaultBearing = 0
)

// AreaState is one shared comparison area: a display name and its boundary.
type AreaState struct {
	Name string
	Ring orb.Ring
}

// State captures everything a share link restores.
type State struct {
	Center   orb.Point // lng, lat
	Zoom     float64
	Pitch    int
	Bearing  int
	Areas    []AreaState
	Preset   string // two-letter layer preset code, empty for default
	Exploded bool
	Style    string // one-letter map style code, empty for default
}

// NewState returns a State with camera defaults applied.
func NewState() State {
	return State{Pitch: DefaultPitch, Bearing: DefaultBearing}
}

// Encode serializes the state to a URL query string (without leading "?").
// Query keys:
//
//	c  center as lng,lat,zoom (required; 3dp coordinates, zoom rounded to int)
//	p  pitch,bearing (omitted at defaults)
//	a  areas as name~polyline entries joined by "|"
//	s  layer preset code
//	e  exploded view flag ("1")
//	m  map style code
func Encode(s State) string {
	v := url.Values{}
	v.Set("c", fmt.Sprintf("%.3f,%.3f,%d",
		s.Center[0], s.Center[1], int(math.Round(s.Zoom))))

	if s.Pitch != DefaultPitch || s.Bearing != DefaultBearing {
		v.Set("p", fmt.Sprintf("%d,%d", s.Pitch, s.Bearing))
	}

	if len(s.Areas) > 0 {
		entries := make([]string, 0, len(s.Areas))
		for _, a := range s.Areas {
			entries = append(entries, encodeArea(a))
		}
		v.Set("a", strings.Join(entries, "|"))
	}

	if s.Preset != "" {
		v.Set("s", s.Preset)
	}
	if s.Exploded {
		v.Set("e", "1")
	}
	if s.Style != "" {
		v.Set("m", s.Style)
	}
	return v.Encode()
}

// Decode parses a query string back into session state. The center parameter
// is required; malformed optional parameters are dropped rather than failing
// the whole link, so stale or hand-edited links degrade gracefully.
func Decode(query string) (State, error) {
	v, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		return State{}, fmt.Errorf("parsing share link: %w", err)
	}

	s := NewState()

	center := v.Get("c")
	if center == "" {
		return State{}, fmt.Errorf("share link missing center parameter")
	}
	parts := strings.Split(center, ",")
	if len(parts) != 3 {
		return State{}, fmt.Errorf("malformed center parameter %q", center)
	}
	lng, errLng := strconv.ParseFloat(parts[0], 64)
	lat, errLat := strconv.ParseFloat(parts[1], 64)
	zoom, errZoom := strconv.ParseFloat(parts[2], 64)
	if errLng != nil || errLat != nil || errZoom != nil {
		return State{}, fmt.Errorf("malformed center parameter %q", center)
	}
	s.Center = orb.Point{lng, lat}
	s.Zoom = zoom

	if p := v.Get("p"); p != "" {
		if pitch, bearing, ok := parsePitchBearing(p); ok {
			s.Pitch = pitch
			s.Bearing = bearing
		}
	}

	if a := v.Get("a"); a != "" {
		for _, entry := range strings.Split(a, "|") {
			area, ok := decodeArea(entry)
			if !ok {
				continue
			}
			s.Areas = append(s.Areas, area)
		}
	}

	s.Preset = v.Get("s")
	s.Exploded = v.Get("e") == "1"
	s.Style = v.Get("m")
	return s, nil
}

// encodeArea writes one area as name~polyline. The closing point is dropped
// before encoding and restored on decode. Separator characters in the name
// are replaced so the entry stays parseable.
func encodeArea(a AreaState) string {
	ring := a.Ring
	if len(ring) > 1 && ring.Closed() {
		ring = ring[:len(ring)-1]
	}
	coords := make([]polyline.Coord, len(ring))
	for i, p := range ring {
		coords[i] = polyline.Coord{Lat: p[1], Lng: p[0]}
	}
	name := strings.NewReplacer("~", "-", "|", "-").Replace(a.Name)
	return name + "~" + polyline.Encode(coords)
}

func decodeArea(entry string) (AreaState, bool) {
	name, encoded, found := strings.Cut(entry, "~")
	if !found {
		return AreaState{}, false
	}
	coords, err := polyline.Decode(encoded)
	if err != nil || len(coords) < 3 {
		return AreaState{}, false
	}
	ring := make(orb.Ring, len(coords))
	for i, c := range coords {
		ring[i] = orb.Point{c.Lng, c.Lat}
	}
	ring = types.CloseRing(ring)
	if err := types.ValidRing(ring); err != nil {
		return AreaState{}, false
	}
	return AreaState{Name: name, Ring: ring}, true
}

func parsePitchBearing(p string) (pitch, bearing int, ok bool) {
	first, second, found := strings.Cut(p, ",")
	if !found {
		return 0, 0, false
	}
	pitch, errP := strconv.Atoi(first)
	bearing, errB := strconv.Atoi(second)
	if errP != nil || errB != nil {
		return 0, 0, false
	}
	return pitch, bearing, true
}
