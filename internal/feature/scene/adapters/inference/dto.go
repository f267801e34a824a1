package inference

// detectResponse is the body returned by POST /detect.
// Boxes are absolute pixel corners [x1, y1, x2, y2] of the submitted image.
type detectResponse struct {
	Detections []struct {
		Label string     `json:"label"`
		Score float64    `json:"score"`
		Box   [4]float64 `json:"box"`
	} `json:"detections"`
}

// depthResponse is the body returned by POST /depth.
// Depth holds Height rows of Width values in row-major order.
type depthResponse struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Depth  []float64 `json:"depth"`
}

// errorResponse is the body returned by either server on failure.
type errorResponse struct {
	Error string `json:"error"`
}
