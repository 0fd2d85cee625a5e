package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/raynbowy23/Axon-City-sub002/internal/share"
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Encode and decode shareable session links",
}

var linkEncodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Build a share link query string from camera and area flags",
	RunE:  runLinkEncode,
}

var linkDecodeCmd = &cobra.Command{
	Use:   "decode <query>",
	Short: "Decode a share link query string to JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runLinkDecode,
}

func init() {
	rootCmd.AddCommand(linkCmd)
	linkCmd.AddCommand(linkEncodeCmd)
	linkCmd.AddCommand(linkDecodeCmd)

	linkEncodeCmd.Flags().String("center", "", "Camera center: lng,lat (required)")
	linkEncodeCmd.Flags().Float64("zoom", 13, "Camera zoom")
	linkEncodeCmd.Flags().Int("pitch", share.DefaultPitch, "Camera pitch in degrees")
	linkEncodeCmd.Flags().Int("bearing", share.DefaultBearing, "Camera bearing in degrees")
	linkEncodeCmd.Flags().StringArray("area", nil, "Area as name~lng,lat;lng,lat;... (repeatable)")
	linkEncodeCmd.Flags().String("preset", "", "Layer preset code")
	linkEncodeCmd.Flags().Bool("exploded", false, "Exploded view flag")
	linkEncodeCmd.Flags().String("style", "", "Map style code")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"link.center", "center"},
		{"link.zoom", "zoom"},
		{"link.pitch", "pitch"},
		{"link.bearing", "bearing"},
		{"link.area", "area"},
		{"link.preset", "preset"},
		{"link.exploded", "exploded"},
		{"link.style", "style"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, linkEncodeCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runLinkEncode(cmd *cobra.Command, args []string) error {
	center := viper.GetString("link.center")
	if center == "" {
		return fmt.Errorf("--center is required")
	}
	lngStr, latStr, found := strings.Cut(center, ",")
	if !found {
		return fmt.Errorf("invalid center %q: expected lng,lat", center)
	}
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if errLng != nil || errLat != nil {
		return fmt.Errorf("invalid center %q: expected lng,lat", center)
	}

	state := share.NewState()
	state.Center = orb.Point{lng, lat}
	state.Zoom = viper.GetFloat64("link.zoom")
	state.Pitch = viper.GetInt("link.pitch")
	state.Bearing = viper.GetInt("link.bearing")
	state.Preset = viper.GetString("link.preset")
	state.Exploded = viper.GetBool("link.exploded")
	state.Style = viper.GetString("link.style")

	for _, entry := range viper.GetStringSlice("link.area") {
		name, coords, found := strings.Cut(entry, "~")
		if !found {
			return fmt.Errorf("invalid area %q: expected name~lng,lat;lng,lat;...", entry)
		}
		ring, err := parseRing(coords)
		if err != nil {
			return fmt.Errorf("invalid area %q: %w", name, err)
		}
		state.Areas = append(state.Areas, share.AreaState{Name: name, Ring: ring})
	}

	fmt.Fprintln(cmd.OutOrStdout(), share.Encode(state))
	return nil
}

func runLinkDecode(cmd *cobra.Command, args []string) error {
	state, err := share.Decode(args[0])
	if err != nil {
		return err
	}

	out := struct {
		Center   [2]float64 `json:"center"`
		Zoom     float64    `json:"zoom"`
		Pitch    int        `json:"pitch"`
		Bearing  int        `json:"bearing"`
		Preset   string     `json:"preset,omitempty"`
		Exploded bool       `json:"exploded"`
		Style    string     `json:"style,omitempty"`
		Areas    []struct {
			Name    string   `json:"name"`
			Polygon orb.Ring `json:"polygon"`
		} `json:"areas,omitempty"`
	}{
		Center:   [2]float64{state.Center[0], state.Center[1]},
		Zoom:     state.Zoom,
		Pitch:    state.Pitch,
		Bearing:  state.Bearing,
		Preset:   state.Preset,
		Exploded: state.Exploded,
		Style:    state.Style,
	}
	for _, a := range state.Areas {
		out.Areas = append(out.Areas, struct {
			Name    string   `json:"name"`
			Polygon orb.Ring `json:"polygon"`
		}{Name: a.Name, Polygon: a.Ring})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal decoded state: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
