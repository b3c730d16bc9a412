// Package model contains the domain types passed between the decision core,
// its adapters and the transport layers.
package model

import (
	"image"
	"time"
)

// Box is a face region (x1,y1)-(x2,y2) in frame pixel coordinates. The
// second corner is exclusive, matching image.Rectangle.
type Box struct {
	X1 int `json:"x1" yaml:"x1"`
	Y1 int `json:"y1" yaml:"y1"`
	X2 int `json:"x2" yaml:"x2"`
	Y2 int `json:"y2" yaml:"y2"`
}

// BoxFromRect converts an image.Rectangle.
func BoxFromRect(r image.Rectangle) Box {
	return Box{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// Rect returns the box as an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Width of the box; zero for inverted boxes.
func (b Box) Width() int {
	if b.X2 <= b.X1 {
		return 0
	}
	return b.X2 - b.X1
}

// Height of the box; zero for inverted boxes.
func (b Box) Height() int {
	if b.Y2 <= b.Y1 {
		return 0
	}
	return b.Y2 - b.Y1
}

// Area of the box in pixels.
func (b Box) Area() int {
	return b.Width() * b.Height()
}

// Empty reports whether the box covers no pixels.
func (b Box) Empty() bool {
	return b.Area() == 0
}

// Clamp restricts the box to bounds.
func (b Box) Clamp(bounds image.Rectangle) Box {
	return BoxFromRect(b.Rect().Intersect(bounds))
}

// Embedding is one extraction result from a single backend model.
type Embedding struct {
	Backend string
	Vector  []float64
}

// Dim returns the vector length.
func (e Embedding) Dim() int { return len(e.Vector) }

// FusedEmbedding is the element-wise mean of one or more embeddings of the
// same face crop. Backends lists the contributing backend names.
type FusedEmbedding struct {
	Vector   []float64 `json:"vector" yaml:"vector"`
	Backends []string  `json:"backends" yaml:"backends"`
}

// Dim returns the vector length.
func (f FusedEmbedding) Dim() int { return len(f.Vector) }

// Pose labels a head orientation used during enrollment.
type Pose string

// Pose labels in capture order.
const (
	PoseStraight Pose = "straight"
	PoseLeft     Pose = "left"
	PoseRight    Pose = "right"
	PoseUp       Pose = "up"
	PoseDown     Pose = "down"
)

// DefaultPoses returns the fixed capture order. A fresh slice is returned on
// every call.
func DefaultPoses() []Pose {
	return []Pose{PoseStraight, PoseLeft, PoseRight, PoseUp, PoseDown}
}

// EnrolledIdentity is one person known to the access point.
type EnrolledIdentity struct {
	Name       string
	Embedding  *FusedEmbedding
	Poses      map[Pose][]image.Image
	EnrolledAt time.Time
}

// HasEmbedding reports whether the single-shot matcher can use the identity.
func (id EnrolledIdentity) HasEmbedding() bool {
	return id.Embedding != nil && len(id.Embedding.Vector) > 0
}

// HasPoses reports whether the quorum matcher can use the identity.
func (id EnrolledIdentity) HasPoses() bool {
	for _, refs := range id.Poses {
		if len(refs) > 0 {
			return true
		}
	}
	return false
}

// ReferenceCount returns the number of stored pose images.
func (id EnrolledIdentity) ReferenceCount() int {
	n := 0
	for _, refs := range id.Poses {
		n += len(refs)
	}
	return n
}

// IdentitySummary is the image-free view of an identity returned to callers.
type IdentitySummary struct {
	Name         string       `json:"name"`
	HasEmbedding bool         `json:"has_embedding"`
	Poses        map[Pose]int `json:"poses"`
	EnrolledAt   time.Time    `json:"enrolled_at"`
}

// Summary returns the image-free view of the identity.
func (id EnrolledIdentity) Summary() IdentitySummary {
	poses := make(map[Pose]int, len(id.Poses))
	for pose, refs := range id.Poses {
		poses[pose] = len(refs)
	}
	return IdentitySummary{
		Name:         id.Name,
		HasEmbedding: id.HasEmbedding(),
		Poses:        poses,
		EnrolledAt:   id.EnrolledAt,
	}
}
