package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/paulmach/orb"
	orbjson "github.com/paulmach/orb/geojson"

	"github.com/raynbowy23/Axon-City-sub002/internal/area"
	"github.com/raynbowy23/Axon-City-sub002/internal/geojson"
	"github.com/raynbowy23/Axon-City-sub002/internal/share"
	"github.com/raynbowy23/Axon-City-sub002/internal/types"
)

type viewPayload struct {
	Center   [2]float64 `json:"center"` // lng, lat
	Zoom     float64    `json:"zoom"`
	Pitch    int        `json:"pitch"`
	Bearing  int        `json:"bearing"`
	Preset   string     `json:"preset,omitempty"`
	Exploded bool       `json:"exploded"`
	Style    string     `json:"style,omitempty"`
}

type layerState struct {
	Stats     *types.LayerStats `json:"stats,omitempty"`
	FetchedAt time.Time         `json:"fetched_at"`
	Valid     bool              `json:"valid"`
}

type areaSummary struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Color     string                `json:"color"`
	Polygon   orb.Ring              `json:"polygon"`
	Active    bool                  `json:"active"`
	CreatedAt time.Time             `json:"created_at"`
	Layers    map[string]layerState `json:"layers"`
}

type sessionResponse struct {
	View         viewPayload   `json:"view"`
	Areas        []areaSummary `json:"areas"`
	ActiveAreaID string        `json:"active_area_id,omitempty"`
	Capacity     int           `json:"capacity"`
}

type areaRequest struct {
	Name    string   `json:"name"`
	Polygon orb.Ring `json:"polygon"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	areas := s.store.Areas()
	summaries := make([]areaSummary, 0, len(areas))
	for _, a := range areas {
		summaries = append(summaries, s.summarize(a))
	}

	s.writeJSON(w, http.StatusOK, sessionResponse{
		View:         s.currentView(),
		Areas:        summaries,
		ActiveAreaID: s.store.ActiveAreaID(),
		Capacity:     area.MaxAreas,
	})
}

// handleUpdateView applies a camera update. Fields absent from the body keep
// their current values.
func (s *Server) handleUpdateView(w http.ResponseWriter, r *http.Request) {
	p := s.currentView()
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	s.view.Center = orb.Point{p.Center[0], p.Center[1]}
	s.view.Zoom = p.Zoom
	s.view.Pitch = p.Pitch
	s.view.Bearing = p.Bearing
	s.view.Preset = p.Preset
	s.view.Exploded = p.Exploded
	s.view.Style = p.Style
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, p)
}

type layerInfo struct {
	ID     string             `json:"id"`
	Name   string             `json:"name"`
	Kind   types.GeometryKind `json:"kind"`
	Stats  []types.StatKind   `json:"stats,omitempty"`
	Active bool               `json:"active"`
}

func (s *Server) handleLayers(w http.ResponseWriter, r *http.Request) {
	catalog := s.coord.Layers()
	infos := make([]layerInfo, 0, len(catalog))
	for _, l := range catalog {
		infos = append(infos, layerInfo{
			ID:     l.ID,
			Name:   l.Name,
			Kind:   l.Kind,
			Stats:  l.Stats,
			Active: s.coord.LayerActive(l.ID),
		})
	}
	s.writeJSON(w, http.StatusOK, infos)
}

// handleToggleLayer flips a layer, or sets it explicitly when the body
// carries an "active" field.
func (s *Server) handleToggleLayer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Active *bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	target := !s.coord.LayerActive(id)
	if req.Active != nil {
		target = *req.Active
	}

	if err := s.coord.SetLayerActive(id, target); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"id": id, "active": target})
}

func (s *Server) handleCreateArea(w http.ResponseWriter, r *http.Request) {
	var req areaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id, err := s.coord.CompleteBoundary(req.Name, req.Polygon, "")
	if err != nil {
		s.writeAreaError(w, err)
		return
	}

	a, ok := s.store.Area(id)
	if !ok {
		writeError(w, http.StatusInternalServerError, "area vanished after creation")
		return
	}
	s.writeJSON(w, http.StatusCreated, s.summarize(a))
}

func (s *Server) handleEditPolygon(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req areaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if _, err := s.coord.CompleteBoundary("", req.Polygon, id); err != nil {
		s.writeAreaError(w, err)
		return
	}

	a, ok := s.store.Area(id)
	if !ok {
		writeError(w, http.StatusNotFound, "area not found")
		return
	}
	s.writeJSON(w, http.StatusOK, s.summarize(a))
}

func (s *Server) handleRenameArea(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name must not be empty")
		return
	}

	if err := s.coord.RenameArea(id, req.Name); err != nil {
		s.writeAreaError(w, err)
		return
	}

	a, ok := s.store.Area(id)
	if !ok {
		writeError(w, http.StatusNotFound, "area not found")
		return
	}
	s.writeJSON(w, http.StatusOK, s.summarize(a))
}

func (s *Server) handleActivateArea(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.coord.SwitchActiveArea(id); err != nil {
		s.writeAreaError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"active_area_id": id})
}

func (s *Server) handleRemoveArea(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.coord.RemoveArea(id); err != nil {
		s.writeAreaError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearAreas(w http.ResponseWriter, r *http.Request) {
	s.coord.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}

type layerDetail struct {
	Raw       int                        `json:"raw"`
	Clipped   *orbjson.FeatureCollection `json:"clipped"`
	Stats     *types.LayerStats          `json:"stats,omitempty"`
	FetchedAt time.Time                  `json:"fetched_at"`
	Valid     bool                       `json:"valid"`
}

type areaDetailResponse struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Color     string                 `json:"color"`
	Boundary  *orbjson.Feature       `json:"boundary"`
	Active    bool                   `json:"active"`
	CreatedAt time.Time              `json:"created_at"`
	Layers    map[string]layerDetail `json:"layers"`
}

// handleAreaDetail returns the full per-layer payload for one area: raw
// feature count, clipped features as GeoJSON, and derived statistics.
func (s *Server) handleAreaDetail(w http.ResponseWriter, r *http.Request) {
	a, ok := s.store.Area(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "area not found")
		return
	}

	layers := make(map[string]layerDetail, len(a.Layers))
	for layerID, ld := range a.Layers {
		layers[layerID] = layerDetail{
			Raw:       ld.Raw.Count(),
			Clipped:   geojson.ToFeatureCollection(ld.Clipped, layerID),
			Stats:     ld.Stats,
			FetchedAt: ld.FetchedAt,
			Valid:     a.LayerValid(layerID),
		}
	}

	s.writeJSON(w, http.StatusOK, areaDetailResponse{
		ID:    a.ID,
		Name:  a.Name,
		Color: a.Color,
		Boundary: geojson.RingFeature(a.Ring, map[string]interface{}{
			"name":  a.Name,
			"color": a.Color,
		}),
		Active:    s.store.ActiveAreaID() == a.ID,
		CreatedAt: a.CreatedAt,
		Layers:    layers,
	})
}

func (s *Server) handleEncodeLink(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"query": share.Encode(s.shareState())})
}

type decodedArea struct {
	Name    string   `json:"name"`
	Polygon orb.Ring `json:"polygon"`
}

type decodedLink struct {
	View  viewPayload   `json:"view"`
	Areas []decodedArea `json:"areas"`
}

func (s *Server) handleDecodeLink(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter")
		return
	}

	st, err := share.Decode(query)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := decodedLink{
		View: viewPayload{
			Center:   [2]float64{st.Center[0], st.Center[1]},
			Zoom:     st.Zoom,
			Pitch:    st.Pitch,
			Bearing:  st.Bearing,
			Preset:   st.Preset,
			Exploded: st.Exploded,
			Style:    st.Style,
		},
		Areas: make([]decodedArea, 0, len(st.Areas)),
	}
	for _, a := range st.Areas {
		resp.Areas = append(resp.Areas, decodedArea{Name: a.Name, Polygon: a.Ring})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeAreaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, area.ErrAreaLimit):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, area.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (s *Server) currentView() viewPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return viewPayload{
		Center:   [2]float64{s.view.Center[0], s.view.Center[1]},
		Zoom:     s.view.Zoom,
		Pitch:    s.view.Pitch,
		Bearing:  s.view.Bearing,
		Preset:   s.view.Preset,
		Exploded: s.view.Exploded,
		Style:    s.view.Style,
	}
}

// shareState snapshots the camera plus all drawn areas for link encoding.
func (s *Server) shareState() share.State {
	s.mu.Lock()
	st := s.view
	s.mu.Unlock()

	st.Areas = nil
	for _, a := range s.store.Areas() {
		st.Areas = append(st.Areas, share.AreaState{Name: a.Name, Ring: a.Ring})
	}
	return st
}

func (s *Server) summarize(a *area.Area) areaSummary {
	layers := make(map[string]layerState, len(a.Layers))
	for layerID, ld := range a.Layers {
		layers[layerID] = layerState{
			Stats:     ld.Stats,
			FetchedAt: ld.FetchedAt,
			Valid:     a.LayerValid(layerID),
		}
	}
	return areaSummary{
		ID:        a.ID,
		Name:      a.Name,
		Color:     a.Color,
		Polygon:   a.Ring,
		Active:    s.store.ActiveAreaID() == a.ID,
		CreatedAt: a.CreatedAt,
		Layers:    layers,
	}
}
