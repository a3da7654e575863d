package types

// Position is a geographic coordinate in degrees.
type Position struct {
	// Latitude in degrees.
	// example: 59.3293
	Lat float64 `json:"lat" example:"59.3293"`
	// Longitude in degrees.
	// example: 18.0686
	Lon float64 `json:"lon" example:"18.0686"`
}

// EntityUpdate is one element of an ordered live-data batch: the latest
// known state of a tracked entity. Updates with an empty ID are malformed
// and skipped individually by the render cache.
type EntityUpdate struct {
	// Stable identifier for the entity.
	// example: vehicle-1042
	ID string `json:"id" example:"vehicle-1042"`
	// Last reported position.
	Position Position `json:"position"`
	// Discrete state fields compared verbatim during diffing
	// (e.g. "status": "moving", "heading": "ne").
	State map[string]string `json:"state,omitempty"`
}

// RenderObject is a visual object built by the rendering collaborator.
// The core never inspects it; it only decides when one must be rebuilt
// and disposes it when its entity leaves the scene.
type RenderObject interface {
	// Dispose releases renderer-side resources (textures, geometry).
	Dispose()
}

// ObjectBuilder constructs a RenderObject for an entity update. The
// epsilon is the current tier's geometry simplification tolerance.
type ObjectBuilder func(u EntityUpdate, simplifyEpsilon float64) RenderObject

// DiffResult reports the outcome of one render-cache diff pass.
type DiffResult struct {
	// Objects built this pass (first sighting or state change).
	Created int `json:"created"`
	// Objects carried over unchanged.
	Reused int `json:"reused"`
	// Objects disposed because their entity went stale.
	Removed int `json:"removed"`
	// Malformed updates skipped this pass.
	Skipped int `json:"skipped"`
	// Live objects for the admitted entities of this batch, in admission
	// order. The caller mounts/unmounts against this set.
	Objects []RenderObject `json:"-"`
	// Per-field rebuild causes ("position", "state", "selection"),
	// populated only when diagnostics are enabled.
	ChangedFields map[string]int `json:"changed_fields,omitempty"`
}
