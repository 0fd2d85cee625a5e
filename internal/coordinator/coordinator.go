// Package coordinator turns user events (boundary completed, polygon
// edited, layer toggled, area switched or removed) into pipeline runs while
// keeping at most one in-flight fetch session per area.
//
// Every event becomes a task on a per-area queue drained by one goroutine,
// so runs for the same area are strictly sequential. A superseding edit
// cancels the in-flight session; tasks re-check the area's current polygon
// when dequeued and skip themselves if a later edit already replaced it.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/paulmach/orb"

	"github.com/raynbowy23/Axon-City-sub002/internal/area"
	"github.com/raynbowy23/Axon-City-sub002/internal/fetch"
	"github.com/raynbowy23/Axon-City-sub002/internal/metrics"
	"github.com/raynbowy23/Axon-City-sub002/internal/pipeline"
	"github.com/raynbowy23/Axon-City-sub002/internal/types"
)

// DefaultQueueSize bounds how many pending tasks one area can accumulate.
const DefaultQueueSize = 16

// Config wires the coordinator's collaborators.
type Config struct {
	Store     *area.Store
	Pipeline  *pipeline.Pipeline
	Layers    []types.LayerSpec
	QueueSize int
	Logger    *slog.Logger
}

type fetchTask struct {
	ring   orb.Ring
	layers []types.LayerSpec
}

type areaRunner struct {
	id    string
	tasks chan fetchTask
}

// AreaFetchStatus is one area's live fetch progress, polled by the server.
type AreaFetchStatus struct {
	AreaID    string `json:"area_id"`
	Fetching  bool   `json:"fetching"`
	Layer     string `json:"layer,omitempty"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Queued    int    `json:"queued"`
}

// Coordinator serializes fetch work per area and owns the active-layer set.
type Coordinator struct {
	store     *area.Store
	pipeline  *pipeline.Pipeline
	logger    *slog.Logger
	queueSize int

	baseCtx   context.Context
	cancelAll context.CancelFunc
	wg        sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	runners map[string]*areaRunner
	catalog []types.LayerSpec
	active  map[string]bool
	status  map[string]*AreaFetchStatus
}

// New builds a coordinator. The catalog's DefaultActive flags seed the
// active-layer set.
func New(cfg Config) *Coordinator {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		store:     cfg.Store,
		pipeline:  cfg.Pipeline,
		logger:    cfg.Logger,
		queueSize: cfg.QueueSize,
		baseCtx:   ctx,
		cancelAll: cancel,
		runners:   make(map[string]*areaRunner),
		catalog:   append([]types.LayerSpec(nil), cfg.Layers...),
		active:    make(map[string]bool, len(cfg.Layers)),
		status:    make(map[string]*AreaFetchStatus),
	}
	for _, l := range cfg.Layers {
		c.active[l.ID] = l.DefaultActive
	}
	return c
}

// CompleteBoundary handles a finished boundary ring. With an empty target
// it creates a new area (failing fast with area.ErrAreaLimit at capacity),
// makes it active, and queues a fetch of all active layers. With a target
// it is an edit: an unchanged polygon is a no-op, otherwise the polygon is
// replaced, any in-flight session for that area is cancelled, and a fresh
// fetch is queued. Last edit wins.
func (c *Coordinator) CompleteBoundary(name string, ring orb.Ring, targetAreaID string) (string, error) {
	if targetAreaID == "" {
		a, err := c.store.AddArea(name, ring)
		if err != nil {
			return "", err
		}
		if err := c.store.SetActiveArea(a.ID); err != nil {
			return "", err
		}
		c.enqueue(a.ID, fetchTask{ring: a.Ring, layers: c.ActiveLayers()})
		return a.ID, nil
	}

	current, ok := c.store.Area(targetAreaID)
	if !ok {
		return "", fmt.Errorf("editing boundary of %s: %w", targetAreaID, area.ErrNotFound)
	}
	if types.RingsEqual(current.Ring, closedCopy(ring)) {
		c.logger.Debug("boundary unchanged, nothing to do", "area", targetAreaID)
		return targetAreaID, nil
	}

	if err := c.store.UpdateAreaPolygon(targetAreaID, ring); err != nil {
		return "", err
	}
	c.store.CancelSession(targetAreaID)

	updated, ok := c.store.Area(targetAreaID)
	if !ok {
		return "", fmt.Errorf("editing boundary of %s: %w", targetAreaID, area.ErrNotFound)
	}
	c.enqueue(targetAreaID, fetchTask{ring: updated.Ring, layers: c.ActiveLayers()})
	return targetAreaID, nil
}

// SwitchActiveArea changes the selection. It never queues work; cached
// entries stay as they are and their validity is derived from polygon
// equality when read.
func (c *Coordinator) SwitchActiveArea(id string) error {
	return c.store.SetActiveArea(id)
}

// RemoveArea cancels the area's in-flight session, deletes the area, and
// tears down its task queue. Queued tasks drain as no-ops.
func (c *Coordinator) RemoveArea(id string) error {
	c.store.CancelSession(id)
	if err := c.store.RemoveArea(id); err != nil {
		return err
	}

	c.mu.Lock()
	if r, ok := c.runners[id]; ok {
		delete(c.runners, id)
		close(r.tasks)
	}
	delete(c.status, id)
	c.mu.Unlock()
	return nil
}

// RenameArea updates an area's display name.
func (c *Coordinator) RenameArea(id, name string) error {
	return c.store.RenameArea(id, name)
}

// ClearAll cancels every session and removes every area and queue.
func (c *Coordinator) ClearAll() {
	c.store.CancelAllSessions()
	c.store.ClearAreas()

	c.mu.Lock()
	for id, r := range c.runners {
		delete(c.runners, id)
		close(r.tasks)
	}
	c.status = make(map[string]*AreaFetchStatus)
	c.mu.Unlock()
}

// SetLayerActive toggles one layer. Activating a layer queues a fetch of
// just that layer for the selected area when its cache entry is missing or
// stale; deactivating touches nothing.
func (c *Coordinator) SetLayerActive(layerID string, activate bool) error {
	c.mu.Lock()
	var spec *types.LayerSpec
	for i := range c.catalog {
		if c.catalog[i].ID == layerID {
			spec = &c.catalog[i]
			break
		}
	}
	if spec == nil {
		c.mu.Unlock()
		return fmt.Errorf("unknown layer %q", layerID)
	}
	was := c.active[layerID]
	c.active[layerID] = activate
	c.mu.Unlock()

	if !activate || was {
		return nil
	}

	activeID := c.store.ActiveAreaID()
	if activeID == "" {
		return nil
	}
	if a, ok := c.store.Area(activeID); ok {
		c.enqueue(activeID, fetchTask{ring: a.Ring, layers: []types.LayerSpec{*spec}})
	}
	return nil
}

// ActiveLayers returns the active layers in catalog order.
func (c *Coordinator) ActiveLayers() []types.LayerSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.LayerSpec, 0, len(c.catalog))
	for _, l := range c.catalog {
		if c.active[l.ID] {
			out = append(out, l)
		}
	}
	return out
}

// Layers returns the full layer catalog.
func (c *Coordinator) Layers() []types.LayerSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.LayerSpec(nil), c.catalog...)
}

// LayerActive reports whether a layer is currently active.
func (c *Coordinator) LayerActive(layerID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active[layerID]
}

// Status reports live fetch progress per area, sorted by area ID.
func (c *Coordinator) Status() []AreaFetchStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]AreaFetchStatus, 0, len(c.status))
	for id, st := range c.status {
		snapshot := *st
		if r, ok := c.runners[id]; ok {
			snapshot.Queued = len(r.tasks)
		}
		out = append(out, snapshot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AreaID < out[j].AreaID })
	return out
}

// Close stops all queues and waits for in-flight runs to wind down.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for id, r := range c.runners {
		delete(c.runners, id)
		close(r.tasks)
	}
	c.mu.Unlock()

	c.cancelAll()
	c.wg.Wait()
}

func (c *Coordinator) enqueue(areaID string, t fetchTask) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	r, ok := c.runners[areaID]
	if !ok {
		if _, exists := c.store.Area(areaID); !exists {
			return
		}
		r = &areaRunner{
			id:    areaID,
			tasks: make(chan fetchTask, c.queueSize),
		}
		c.runners[areaID] = r
		c.wg.Add(1)
		go c.runArea(r)
	}
	select {
	case r.tasks <- t:
	default:
		c.logger.Warn("fetch queue full, dropping request", "area", areaID)
	}
}

func (c *Coordinator) runArea(r *areaRunner) {
	defer c.wg.Done()
	for t := range r.tasks {
		c.process(r.id, t)
	}
}

// process runs one queued task. Sessions for one area start and finish
// inside this method on a single goroutine, which is what guarantees the
// one-session-per-area invariant.
func (c *Coordinator) process(areaID string, t fetchTask) {
	current, ok := c.store.Area(areaID)
	if !ok {
		return
	}
	if !types.RingsEqual(current.Ring, t.ring) {
		c.logger.Debug("skipping superseded fetch", "area", areaID)
		metrics.FetchSessions.WithLabelValues("superseded").Inc()
		return
	}

	// A layer already valid for this polygon needs no refetch.
	layers := make([]types.LayerSpec, 0, len(t.layers))
	for _, l := range t.layers {
		if !c.store.LayerValid(areaID, l.ID) {
			layers = append(layers, l)
		}
	}
	if len(layers) == 0 {
		return
	}

	sess := fetch.NewSession(c.baseCtx, areaID)
	c.store.SetSession(areaID, sess)
	c.beginStatus(areaID, len(layers))

	err := c.pipeline.Run(sess.Context(), areaID, current.Ring, layers,
		func(layerID string, completed, total int) {
			c.updateStatus(areaID, layerID, completed, total)
		})

	sess.Finish()
	c.store.ClearSession(areaID, sess)
	c.endStatus(areaID)

	if err != nil {
		// Cancellation is an expected outcome, not a failure.
		metrics.FetchSessions.WithLabelValues("cancelled").Inc()
		c.logger.Info("fetch session cancelled", "area", areaID)
		return
	}
	metrics.FetchSessions.WithLabelValues("completed").Inc()
}

func (c *Coordinator) beginStatus(areaID string, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status[areaID] = &AreaFetchStatus{
		AreaID:   areaID,
		Fetching: true,
		Total:    total,
	}
}

func (c *Coordinator) updateStatus(areaID, layerID string, completed, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.status[areaID]; ok {
		st.Layer = layerID
		st.Completed = completed
		st.Total = total
	}
}

func (c *Coordinator) endStatus(areaID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.status[areaID]; ok {
		st.Fetching = false
		st.Layer = ""
	}
}

func closedCopy(ring orb.Ring) orb.Ring {
	out := make(orb.Ring, len(ring))
	copy(out, ring)
	return types.CloseRing(out)
}
