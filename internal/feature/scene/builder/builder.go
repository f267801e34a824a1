// Package builder converts detections and a depth map into a scene document.
package builder

import (
	"errors"
	"fmt"

	"roomscene_backend/internal/feature/scene/domain/entity"
	"roomscene_backend/internal/feature/scene/geometry"
)

// ErrInvalidDimensions is returned when the image size cannot anchor a projection.
var ErrInvalidDimensions = errors.New("image dimensions must be positive")

// SkippedItem records a detection that could not be placed.
type SkippedItem struct {
	Index int    // position in the input slice
	Label string // detection label
	Err   error
}

// Result is the output of Build. Skipped lists the detections dropped from
// Scene.Furniture, in input order.
type Result struct {
	Scene   entity.Scene
	Skipped []SkippedItem
}

// Builder assembles scenes with a fixed camera model.
type Builder struct {
	camera geometry.Camera
}

// New returns a Builder using camera.
func New(camera geometry.Camera) *Builder {
	return &Builder{camera: camera}
}

// Build places every detection in 3D. Detections are processed in the given
// order and furniture ids are assigned 1..n over the placed items. A detection
// whose center cannot be sampled from the depth map is skipped and reported in
// Result.Skipped rather than failing the build.
func (b *Builder) Build(detections []entity.Detection, depth entity.DepthMap, width, height int) (Result, error) {
	if width <= 0 || height <= 0 {
		return Result{}, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}

	room := b.camera.EstimateRoom(depth, width)

	furniture := make([]entity.FurnitureItem, 0, len(detections))
	var skipped []SkippedItem
	for i, det := range detections {
		pos, err := b.place(det, depth, width, height)
		if err != nil {
			skipped = append(skipped, SkippedItem{Index: i, Label: det.Label, Err: err})
			continue
		}
		furniture = append(furniture, entity.FurnitureItem{
			ID:         len(furniture) + 1,
			Type:       det.Label,
			Confidence: det.Confidence,
			Position:   pos,
			Size:       b.camera.ItemSize(det.BBoxAbsolute, width, height, room),
			Rotation:   entity.Vec3{},
		})
	}

	return Result{
		Scene: entity.Scene{
			Room:      defaultRoom(room),
			Furniture: furniture,
			Lighting:  defaultLighting(),
			Camera:    defaultCameraPose(),
		},
		Skipped: skipped,
	}, nil
}

func (b *Builder) place(det entity.Detection, depth entity.DepthMap, width, height int) (entity.Vec3, error) {
	cx, cy := geometry.BoxCenter(det.BBoxNormalized)
	px, py := geometry.ToPixel(cx, cy, width, height)
	d, err := b.camera.SampleDepth(depth, px, py)
	if err != nil {
		return entity.Vec3{}, fmt.Errorf("sample depth at (%d,%d): %w", px, py, err)
	}
	return b.camera.BackProject(px, py, width, height, d), nil
}
