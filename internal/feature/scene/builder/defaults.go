package builder

import "roomscene_backend/internal/feature/scene/domain/entity"

// Static scene decoration. None of it is derived from the image.

func defaultRoom(dims entity.RoomDimensions) entity.Room {
	return entity.Room{
		Dimensions: dims,
		Walls:      entity.Material{Color: "#ffffff", Texture: "default"},
		Floor:      entity.Material{Color: "#8B7355", Texture: "wood"},
		Ceiling:    entity.Material{Color: "#f0f0f0", Texture: "default"},
	}
}

func defaultLighting() entity.Lighting {
	return entity.Lighting{
		Ambient: 0.5,
		Directional: []entity.DirectionalLight{
			{Position: [3]float64{5, 5, 5}, Intensity: 1.0},
		},
	}
}

func defaultCameraPose() entity.CameraPose {
	return entity.CameraPose{
		Position: [3]float64{0, 2, 5},
		Target:   [3]float64{0, 1, 0},
	}
}
