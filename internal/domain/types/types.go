// Package types contains common types used across the application
package types

// CollectionStats describes one entity collection.
type CollectionStats struct {
	Name    string `json:"name"`
	Tag     uint8  `json:"tag"`
	Records int    `json:"records"`
	Slots   int64  `json:"slots"`
	Pages   int64  `json:"pages"`
}

// Stats is a point-in-time view of the store.
type Stats struct {
	LastID        uint64            `json:"last_id"`
	MemoryBytes   int64             `json:"memory_bytes"`
	BucketPages   int64             `json:"bucket_pages"`
	Collections   []CollectionStats `json:"collections"`
	QueueLength   int               `json:"queue_length"`
	QueueCapacity int               `json:"queue_capacity"`
}

// Records returns the number of records across all collections.
func (s Stats) Records() int {
	n := 0
	for _, c := range s.Collections {
		n += c.Records
	}
	return n
}

// Collection returns the stats of the named collection.
func (s Stats) Collection(name string) (CollectionStats, bool) {
	for _, c := range s.Collections {
		if c.Name == name {
			return c, true
		}
	}
	return CollectionStats{}, false
}
