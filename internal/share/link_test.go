package share

import (
	"net/url"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMinimal(t *testing.T) {
	s := NewState()
	s.Center = orb.Point{139.745, 35.658}
	s.Zoom = 13

	encoded := Encode(s)
	assert.Equal(t, "c=139.745%2C35.658%2C13", encoded)

	// Defaults stay out of the link.
	assert.NotContains(t, encoded, "p=")
	assert.NotContains(t, encoded, "e=")
}

func TestEncodeOmitsDefaultCamera(t *testing.T) {
	s := NewState()
	s.Center = orb.Point{-0.124, 51.5}
	s.Zoom = 11.5

	v, err := url.ParseQuery(Encode(s))
	require.NoError(t, err)
	assert.False(t, v.Has("p"))

	s.Pitch = 60
	v, err = url.ParseQuery(Encode(s))
	require.NoError(t, err)
	assert.Equal(t, "60,0", v.Get("p"))
}

func TestRoundTripFullState(t *testing.T) {
	s := NewState()
	s.Center = orb.Point{139.745, 35.658}
	s.Zoom = 12.5
	s.Pitch = 30
	s.Bearing = 180
	s.Preset = "tr"
	s.Exploded = true
	s.Style = "d"
	s.Areas = []AreaState{
		{
			Name: "Shibuya",
			Ring: orb.Ring{
				{139.6917, 35.6595}, {139.7044, 35.6595},
				{139.7044, 35.6711}, {139.6917, 35.6711},
				{139.6917, 35.6595},
			},
		},
		{
			Name: "Shinjuku",
			Ring: orb.Ring{
				{139.691, 35.6895}, {139.7109, 35.6895},
				{139.7109, 35.7005}, {139.691, 35.6895},
			},
		},
	}

	decoded, err := Decode(Encode(s))
	require.NoError(t, err)

	assert.InDelta(t, s.Center[0], decoded.Center[0], 1e-3)
	assert.InDelta(t, s.Center[1], decoded.Center[1], 1e-3)
	// Links carry an integer zoom.
	assert.Equal(t, 13.0, decoded.Zoom)
	assert.Equal(t, s.Pitch, decoded.Pitch)
	assert.Equal(t, s.Bearing, decoded.Bearing)
	assert.Equal(t, s.Preset, decoded.Preset)
	assert.True(t, decoded.Exploded)
	assert.Equal(t, s.Style, decoded.Style)

	require.Len(t, decoded.Areas, 2)
	for i, area := range decoded.Areas {
		assert.Equal(t, s.Areas[i].Name, area.Name)
		require.True(t, area.Ring.Closed(), "area %d ring not closed", i)
		// Vertices come back on the codec's 1e-4 grid.
		orig := s.Areas[i].Ring
		require.Len(t, area.Ring, len(orig))
		for j, p := range area.Ring {
			assert.InDelta(t, orig[j][0], p[0], 1e-4)
			assert.InDelta(t, orig[j][1], p[1], 1e-4)
		}
	}
}

func TestDecodeMissingCenter(t *testing.T) {
	_, err := Decode("a=Park~AA??")
	assert.Error(t, err)

	_, err = Decode("")
	assert.Error(t, err)
}

func TestDecodeMalformedCenter(t *testing.T) {
	for _, q := range []string{"c=1,2", "c=a,b,c", "c=1,2,3,4"} {
		_, err := Decode(q)
		assert.Error(t, err, q)
	}
}

func TestDecodeSkipsBadAreas(t *testing.T) {
	s := NewState()
	s.Center = orb.Point{10, 20}
	s.Zoom = 10
	s.Areas = []AreaState{{
		Name: "Good",
		Ring: orb.Ring{{10, 20}, {10.01, 20}, {10.01, 20.01}, {10, 20}},
	}}

	encoded := Encode(s)
	v, err := url.ParseQuery(encoded)
	require.NoError(t, err)

	// Append a broken entry and one without enough vertices.
	v.Set("a", v.Get("a")+"|broken|Tiny~AA")
	decoded, err := Decode(v.Encode())
	require.NoError(t, err)
	require.Len(t, decoded.Areas, 1)
	assert.Equal(t, "Good", decoded.Areas[0].Name)
}

func TestEncodeSanitizesNames(t *testing.T) {
	s := NewState()
	s.Center = orb.Point{0, 0}
	s.Zoom = 5
	s.Areas = []AreaState{{
		Name: "A|B~C",
		Ring: orb.Ring{{0, 0}, {0.01, 0}, {0.01, 0.01}, {0, 0}},
	}}

	decoded, err := Decode(Encode(s))
	require.NoError(t, err)
	require.Len(t, decoded.Areas, 1)
	assert.Equal(t, "A-B-C", decoded.Areas[0].Name)
	assert.False(t, strings.ContainsAny(decoded.Areas[0].Name, "~|"))
}

func TestDecodeQuestionPrefix(t *testing.T) {
	decoded, err := Decode("?c=1.000%2C2.000%2C8")
	require.NoError(t, err)
	assert.Equal(t, 8.0, decoded.Zoom)
	assert.InDelta(t, 1.0, decoded.Center[0], 1e-9)
}
