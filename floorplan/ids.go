package floorplan

import "github.com/google/uuid"

// NewID returns a short random id with the given prefix, e.g. "room-1a2b3c4d"
func NewID(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8]
}
