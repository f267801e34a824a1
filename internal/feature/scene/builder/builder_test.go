package builder_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomscene_backend/internal/feature/scene/builder"
	"roomscene_backend/internal/feature/scene/domain/entity"
	"roomscene_backend/internal/feature/scene/geometry"
)

func uniformDepth(w, h int, v float64) entity.DepthMap {
	rows := make([][]float64, h)
	for y := range rows {
		rows[y] = make([]float64, w)
		for x := range rows[y] {
			rows[y][x] = v
		}
	}
	return entity.DepthMap{Values: rows, Min: v, Max: v}
}

func chair() entity.Detection {
	return entity.NewDetectionFromCorners("chair", 0.85, 320, 300, 480, 480, 800, 600)
}

func TestBuild_SingleChair(t *testing.T) {
	t.Parallel()

	b := builder.New(geometry.DefaultCamera())
	res, err := b.Build([]entity.Detection{chair()}, uniformDepth(800, 600, 4.0), 800, 600)
	require.NoError(t, err)
	require.Empty(t, res.Skipped)
	require.Len(t, res.Scene.Furniture, 1)

	item := res.Scene.Furniture[0]
	assert.Equal(t, 1, item.ID)
	assert.Equal(t, "chair", item.Type)
	assert.Equal(t, 0.85, item.Confidence)
	assert.Equal(t, 4.0, item.Position.Z)
	assert.InDelta(t, 0.0, item.Position.X, 1e-9)
	assert.InDelta(t, -90.0/geometry.DefaultFocalLength*4.0, item.Position.Y, 1e-9)
	assert.Equal(t, entity.Vec3{}, item.Rotation)

	roomWidth := 800.0 / geometry.DefaultFocalLength * 4.0
	assert.Equal(t, 4.0, res.Scene.Room.Dimensions.Depth)
	assert.InDelta(t, roomWidth, res.Scene.Room.Dimensions.Width, 1e-12)
	assert.Equal(t, geometry.DefaultRoomHeight, res.Scene.Room.Dimensions.Height)

	assert.InDelta(t, 0.2*roomWidth, item.Size.Width, 1e-9)
	assert.InDelta(t, 0.3*geometry.DefaultRoomHeight, item.Size.Height, 1e-9)
	assert.Equal(t, geometry.DefaultItemDepth, item.Size.Depth)
}

func TestBuild_StaticDefaults(t *testing.T) {
	t.Parallel()

	res, err := builder.New(geometry.DefaultCamera()).Build(nil, entity.DepthMap{}, 640, 480)
	require.NoError(t, err)

	s := res.Scene
	assert.NotNil(t, s.Furniture)
	assert.Empty(t, s.Furniture)
	assert.Equal(t, geometry.FallbackRoom, s.Room.Dimensions)
	assert.Equal(t, entity.Material{Color: "#ffffff", Texture: "default"}, s.Room.Walls)
	assert.Equal(t, entity.Material{Color: "#8B7355", Texture: "wood"}, s.Room.Floor)
	assert.Equal(t, entity.Material{Color: "#f0f0f0", Texture: "default"}, s.Room.Ceiling)
	assert.Equal(t, 0.5, s.Lighting.Ambient)
	assert.Equal(t, []entity.DirectionalLight{{Position: [3]float64{5, 5, 5}, Intensity: 1.0}}, s.Lighting.Directional)
	assert.Equal(t, entity.CameraPose{Position: [3]float64{0, 2, 5}, Target: [3]float64{0, 1, 0}}, s.Camera)
}

func TestBuild_PreservesOrderAndAssignsSequentialIDs(t *testing.T) {
	t.Parallel()

	dets := []entity.Detection{
		entity.NewDetectionFromCorners("sofa", 0.4, 0, 0, 100, 100, 200, 100),
		entity.NewDetectionFromCorners("lamp", 0.9, 100, 0, 200, 100, 200, 100),
		entity.NewDetectionFromCorners("table", 0.6, 50, 50, 150, 100, 200, 100),
	}

	res, err := builder.New(geometry.DefaultCamera()).Build(dets, uniformDepth(200, 100, 3.0), 200, 100)
	require.NoError(t, err)
	require.Len(t, res.Scene.Furniture, len(dets))

	for i, item := range res.Scene.Furniture {
		assert.Equal(t, i+1, item.ID)
		assert.Equal(t, dets[i].Label, item.Type, "builder must not reorder detections")
	}
}

func TestBuild_SkipsItemsOutsideDepthMap(t *testing.T) {
	t.Parallel()

	// The depth map is smaller than the image, so the second box's center
	// falls outside it.
	depth := uniformDepth(100, 100, 2.0)
	dets := []entity.Detection{
		entity.NewDetectionFromCorners("chair", 0.9, 0, 0, 40, 40, 400, 400),
		entity.NewDetectionFromCorners("bed", 0.8, 200, 200, 400, 400, 400, 400),
		entity.NewDetectionFromCorners("lamp", 0.7, 10, 10, 50, 50, 400, 400),
	}

	res, err := builder.New(geometry.DefaultCamera()).Build(dets, depth, 400, 400)
	require.NoError(t, err)

	require.Len(t, res.Scene.Furniture, 2)
	assert.LessOrEqual(t, len(res.Scene.Furniture), len(dets))
	assert.Equal(t, "chair", res.Scene.Furniture[0].Type)
	assert.Equal(t, 1, res.Scene.Furniture[0].ID)
	assert.Equal(t, "lamp", res.Scene.Furniture[1].Type)
	assert.Equal(t, 2, res.Scene.Furniture[1].ID)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 1, res.Skipped[0].Index)
	assert.Equal(t, "bed", res.Skipped[0].Label)
	assert.True(t, errors.Is(res.Skipped[0].Err, geometry.ErrDepthOutOfRange))
}

func TestBuild_EdgeBoxesClampWithinImage(t *testing.T) {
	t.Parallel()

	dets := []entity.Detection{
		{Label: "full-width", Confidence: 0.5, BBoxNormalized: entity.BBox{X: 0, Y: 0, Width: 1.0, Height: 1.0}, BBoxAbsolute: entity.BBox{Width: 80, Height: 60}},
		{Label: "right-edge", Confidence: 0.5, BBoxNormalized: entity.BBox{X: 1.0, Y: 1.0}, BBoxAbsolute: entity.BBox{}},
	}

	res, err := builder.New(geometry.DefaultCamera()).Build(dets, uniformDepth(80, 60, 1.5), 80, 60)
	require.NoError(t, err)
	require.Empty(t, res.Skipped)
	require.Len(t, res.Scene.Furniture, 2)

	edge := res.Scene.Furniture[1].Position
	assert.InDelta(t, (79.0-40.0)/geometry.DefaultFocalLength*1.5, edge.X, 1e-12)
	assert.InDelta(t, (30.0-59.0)/geometry.DefaultFocalLength*1.5, edge.Y, 1e-12)
}

func TestBuild_InvalidDimensions(t *testing.T) {
	t.Parallel()

	b := builder.New(geometry.DefaultCamera())
	for _, dims := range [][2]int{{0, 600}, {800, 0}, {-1, -1}} {
		_, err := b.Build([]entity.Detection{chair()}, uniformDepth(1, 1, 1), dims[0], dims[1])
		assert.ErrorIs(t, err, builder.ErrInvalidDimensions)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	t.Parallel()

	depth := uniformDepth(160, 120, 2.0)
	for y := range depth.Values {
		for x := range depth.Values[y] {
			depth.Values[y][x] = 1.0 + float64(x*y%17)/7.0
		}
	}
	dets := []entity.Detection{
		entity.NewDetectionFromCorners("chair", 0.91, 10, 20, 50, 90, 160, 120),
		entity.NewDetectionFromCorners("tv", 0.55, 90, 5, 150, 40, 160, 120),
	}

	b := builder.New(geometry.DefaultCamera())
	first, err := b.Build(dets, depth, 160, 120)
	require.NoError(t, err)
	second, err := b.Build(dets, depth, 160, 120)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Build() not deterministic (-first +second):\n%s", diff)
	}
}
