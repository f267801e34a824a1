package entity

import "time"

// Vec3 は3次元ベクトル（メートル）です。
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Size3 は3次元の大きさ（メートル）です。
type Size3 struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

// RoomDimensions は推定された部屋の寸法です。
type RoomDimensions = Size3

// Material は壁・床・天井の固定マテリアル記述です。
type Material struct {
	Color   string `json:"color"`
	Texture string `json:"texture"`
}

// Room は部屋の寸法とマテリアルです。
type Room struct {
	Dimensions RoomDimensions `json:"dimensions"`
	Walls      Material       `json:"walls"`
	Floor      Material       `json:"floor"`
	Ceiling    Material       `json:"ceiling"`
}

// FurnitureItem は3D空間に配置された家具1点です。
type FurnitureItem struct {
	ID         int     `json:"id"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Position   Vec3    `json:"position"`
	Size       Size3   `json:"size"`
	Rotation   Vec3    `json:"rotation"`
}

// DirectionalLight は平行光源です。
type DirectionalLight struct {
	Position  [3]float64 `json:"position"`
	Intensity float64    `json:"intensity"`
}

// Lighting はシーンの照明設定です。
type Lighting struct {
	Ambient     float64            `json:"ambient"`
	Directional []DirectionalLight `json:"directional"`
}

// CameraPose はビューアの初期カメラ姿勢です。
type CameraPose struct {
	Position [3]float64 `json:"position"`
	Target   [3]float64 `json:"target"`
}

// Scene は1プロジェクト分の3Dシーン記述です。
type Scene struct {
	Room      Room            `json:"room"`
	Furniture []FurnitureItem `json:"furniture"`
	Lighting  Lighting        `json:"lighting"`
	Camera    CameraPose      `json:"camera"`
}

// SceneRecord はプロジェクトに紐づけて永続化されるシーンと部屋寸法です。
type SceneRecord struct {
	ProjectID   string
	DepthMapURL string // 深度可視化画像のURL（アップロード失敗時は空）
	Dimensions  RoomDimensions
	Scene       Scene
	CreatedAt   time.Time
}
