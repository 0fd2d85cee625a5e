package cmd

import (
	"testing"

	"github.com/raynbowy23/Axon-City-sub002/internal/types"
)

func TestParseRing(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantPoints int
		wantErr    bool
	}{
		{
			name:       "triangle",
			input:      "139.69,35.68;139.70,35.68;139.70,35.69",
			wantPoints: 4, // closed on parse
		},
		{
			name:       "already closed",
			input:      "0,0;1,0;1,1;0,1;0,0",
			wantPoints: 5,
		},
		{
			name:       "spaces tolerated",
			input:      " 0,0 ; 1,0 ; 1,1 ",
			wantPoints: 4,
		},
		{
			name:    "two points",
			input:   "0,0;1,1",
			wantErr: true,
		},
		{
			name:    "missing comma",
			input:   "0 0;1 0;1 1",
			wantErr: true,
		},
		{
			name:    "bad number",
			input:   "a,b;1,0;1,1",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ring, err := parseRing(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseRing(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("parseRing(%q) unexpected error: %v", tt.input, err)
				return
			}
			if len(ring) != tt.wantPoints {
				t.Errorf("parseRing(%q) = %d points, want %d", tt.input, len(ring), tt.wantPoints)
			}
			if !ring.Closed() {
				t.Errorf("parseRing(%q) returned an open ring", tt.input)
			}
		})
	}
}

func TestSelectLayers(t *testing.T) {
	catalog := []types.LayerSpec{
		{ID: "roads", DefaultActive: true},
		{ID: "water", DefaultActive: true},
		{ID: "transit", DefaultActive: false},
	}

	t.Run("default active set", func(t *testing.T) {
		layers, err := selectLayers(catalog, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(layers) != 2 {
			t.Fatalf("got %d layers, want 2", len(layers))
		}
		if layers[0].ID != "roads" || layers[1].ID != "water" {
			t.Errorf("got %s,%s, want roads,water", layers[0].ID, layers[1].ID)
		}
	})

	t.Run("explicit selection", func(t *testing.T) {
		layers, err := selectLayers(catalog, "transit, roads")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(layers) != 2 {
			t.Fatalf("got %d layers, want 2", len(layers))
		}
		if layers[0].ID != "transit" || layers[1].ID != "roads" {
			t.Errorf("selection order not preserved: %s,%s", layers[0].ID, layers[1].ID)
		}
	})

	t.Run("unknown layer", func(t *testing.T) {
		if _, err := selectLayers(catalog, "roads,ghost"); err == nil {
			t.Error("expected error for unknown layer id")
		}
	})

	t.Run("empty selection", func(t *testing.T) {
		if _, err := selectLayers(catalog, " , "); err == nil {
			t.Error("expected error for empty selection")
		}
	})
}

func TestCollectBoundaries(t *testing.T) {
	t.Run("mutually exclusive inputs", func(t *testing.T) {
		if _, err := collectBoundaries("file.geojson", "0,0;1,0;1,1", "x"); err == nil {
			t.Error("expected error when both --input and --coords are set")
		}
	})

	t.Run("neither input", func(t *testing.T) {
		if _, err := collectBoundaries("", "", "x"); err == nil {
			t.Error("expected error when no input mode is chosen")
		}
	})

	t.Run("inline coords", func(t *testing.T) {
		bs, err := collectBoundaries("", "0,0;0.1,0;0.1,0.1", "Downtown")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(bs) != 1 {
			t.Fatalf("got %d boundaries, want 1", len(bs))
		}
		if bs[0].Name != "Downtown" {
			t.Errorf("name = %q, want Downtown", bs[0].Name)
		}
	})
}

func TestFileSafeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Downtown", "downtown"},
		{"West Side", "west-side"},
		{"Área 51!", "rea-51"},
		{"", "area"},
		{"###", "area"},
	}
	for _, tt := range tests {
		if got := fileSafeName(tt.input); got != tt.want {
			t.Errorf("fileSafeName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
