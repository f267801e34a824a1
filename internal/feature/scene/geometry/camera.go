// Package geometry implements the pinhole-camera math used to lift 2D
// detections into room space. Everything here is pure and allocation-light.
package geometry

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"roomscene_backend/internal/feature/scene/domain/entity"
)

const (
	// DefaultFocalLength is an empirical focal length in pixels for typical phone cameras.
	DefaultFocalLength = 1825.0
	// DefaultRoomHeight is the assumed ceiling height in meters.
	DefaultRoomHeight = 2.7
	// DefaultItemDepth is the fixed front-to-back extent given to every item.
	DefaultItemDepth = 0.5
)

var (
	// ErrDepthOutOfRange is returned when a pixel falls outside the depth map grid.
	ErrDepthOutOfRange = errors.New("pixel outside depth map")
	// ErrInvalidDepth is returned for NaN, infinite or negative depth samples.
	ErrInvalidDepth = errors.New("invalid depth sample")
)

// FallbackRoom is used whenever depth statistics are degenerate.
var FallbackRoom = entity.RoomDimensions{Width: 5.0, Height: 2.7, Depth: 6.0}

// Camera holds the fixed intrinsics of the approximation. There is no
// per-image calibration.
type Camera struct {
	FocalLength  float64
	RoomHeight   float64
	ItemDepth    float64
	FallbackRoom entity.RoomDimensions
}

// DefaultCamera returns the calibrated defaults.
func DefaultCamera() Camera {
	return Camera{
		FocalLength:  DefaultFocalLength,
		RoomHeight:   DefaultRoomHeight,
		ItemDepth:    DefaultItemDepth,
		FallbackRoom: FallbackRoom,
	}
}

// BoxCenter returns the center of a normalized bounding box.
func BoxCenter(b entity.BBox) (cx, cy float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// ToPixel converts normalized coordinates to pixel indices, rounding to the
// nearest pixel and clamping into [0, dim-1].
func ToPixel(cx, cy float64, width, height int) (px, py int) {
	px = clamp(int(math.Round(cx*float64(width))), 0, width-1)
	py = clamp(int(math.Round(cy*float64(height))), 0, height-1)
	return px, py
}

// SampleDepth reads depthMap[py][px].
func (c Camera) SampleDepth(d entity.DepthMap, px, py int) (float64, error) {
	if py < 0 || py >= len(d.Values) || px < 0 || px >= len(d.Values[py]) {
		return 0, ErrDepthOutOfRange
	}
	v := d.Values[py][px]
	if !finite(v) || v < 0 {
		return 0, ErrInvalidDepth
	}
	return v, nil
}

// BackProject lifts pixel (px, py) at the given depth into camera space with
// the origin at the image center. Y is inverted so up in the photo is up in
// the world.
func (c Camera) BackProject(px, py, width, height int, depth float64) entity.Vec3 {
	return entity.Vec3{
		X: ((float64(px) - float64(width)/2) / c.FocalLength) * depth,
		Y: ((float64(height)/2 - float64(py)) / c.FocalLength) * depth,
		Z: depth,
	}
}

// EstimateRoom derives room dimensions from depth statistics. Width scales the
// horizontal field of view by the mean depth, depth is the farthest sample and
// height is the assumed ceiling. Empty, all-zero or non-finite input yields
// c.FallbackRoom.
func (c Camera) EstimateRoom(d entity.DepthMap, imageWidth int) entity.RoomDimensions {
	values := d.Flatten()
	if len(values) == 0 {
		return c.FallbackRoom
	}
	avg := stat.Mean(values, nil)
	maxDepth := floats.Max(values)
	if !finite(avg) || !finite(maxDepth) || maxDepth <= 0 {
		return c.FallbackRoom
	}

	room := entity.RoomDimensions{
		Width:  (float64(imageWidth) / c.FocalLength) * avg,
		Height: c.RoomHeight,
		Depth:  maxDepth,
	}
	if !finite(room.Width) || room.Width < 0 || !finite(room.Height) || room.Height < 0 {
		return c.FallbackRoom
	}
	return room
}

// ItemSize approximates an item's extent by scaling its absolute box against
// the room. Depth is a constant since boxes carry no depth extent.
func (c Camera) ItemSize(abs entity.BBox, width, height int, room entity.RoomDimensions) entity.Size3 {
	return entity.Size3{
		Width:  (abs.Width / float64(width)) * room.Width,
		Height: (abs.Height / float64(height)) * room.Height,
		Depth:  c.ItemDepth,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
