package di

import (
	"fmt"
	"os"
	"strconv"

	"roomscene_backend/internal/feature/scene/geometry"
)

// LoadCamera returns the default camera with CAMERA_FOCAL_LENGTH,
// CAMERA_ROOM_HEIGHT and CAMERA_ITEM_DEPTH overrides applied.
func LoadCamera() (geometry.Camera, error) {
	cam := geometry.DefaultCamera()
	overrides := []struct {
		key string
		dst *float64
	}{
		{"CAMERA_FOCAL_LENGTH", &cam.FocalLength},
		{"CAMERA_ROOM_HEIGHT", &cam.RoomHeight},
		{"CAMERA_ITEM_DEPTH", &cam.ItemDepth},
	}
	for _, o := range overrides {
		v := os.Getenv(o.key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cam, fmt.Errorf("parse %s %q: %w", o.key, v, err)
		}
		if f <= 0 {
			return cam, fmt.Errorf("%s must be positive, got %v", o.key, f)
		}
		*o.dst = f
	}
	return cam, nil
}
