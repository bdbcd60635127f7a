package projection

import "time"

// Metadata captures persistence timestamps and the optimistic version shared by projections.
type Metadata struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	// Version starts at 1 and increases by exactly one per successful write.
	Version int64
}

// Projection represents an aggregate view plus persistence metadata.
type Projection[T any] struct {
	Entity   T
	Metadata Metadata
}

// Entities strips metadata from a list of projections.
func Entities[T any](list []*Projection[T]) []T {
	out := make([]T, 0, len(list))
	for _, p := range list {
		if p != nil {
			out = append(out, p.Entity)
		}
	}
	return out
}
