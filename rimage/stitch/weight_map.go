package stitch

// WeightMap accumulates the blending weight contributed to every canvas pixel. Pixels that were
// never drawn have weight 0.
type WeightMap struct {
	data   []float64
	width  int
	height int
}

// NewWeightMap returns a zeroed weight map of the given size.
func NewWeightMap(width, height int) *WeightMap {
	width, height = max(width, 0), max(height, 0)
	return &WeightMap{data: make([]float64, width*height), width: width, height: height}
}

// Get returns the weight accumulated at (x, y).
func (wm *WeightMap) Get(x, y int) float64 {
	return wm.data[y*wm.width+x]
}

// Add accumulates w at (x, y).
func (wm *WeightMap) Add(x, y int, w float64) {
	wm.data[y*wm.width+x] += w
}
