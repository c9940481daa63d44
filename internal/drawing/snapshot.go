// Package drawing defines the immutable canvas snapshot exchanged with the
// drawing surface. The surface itself (rendering, tool palette) lives outside
// this module; it hands over a Snapshot on every stroke completion and
// accepts one to display.
package drawing

import (
	"encoding/json"
	"fmt"
)

// Point is a single sampled pen position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one completed pen stroke.
type Stroke struct {
	Points []Point `json:"points"`
	Width  float64 `json:"width"`
	Color  string  `json:"color"`
}

// Snapshot is a point-in-time copy of the canvas contents. Snapshots are
// value data: the editor never mutates one after receiving it.
type Snapshot struct {
	Strokes []Stroke `json:"strokes"`
}

// Empty reports whether the snapshot contains no strokes.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Strokes) == 0
}

// Encode serializes the snapshot for out-of-line storage on a note.
func (s *Snapshot) Encode() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode drawing: %w", err)
	}
	return data, nil
}

// Decode deserializes a stored drawing payload.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode drawing: %w", err)
	}
	return &s, nil
}
