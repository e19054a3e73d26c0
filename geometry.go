package tilestream

import "math"

// Vec3 is a direction or point in the viewer's Y-up world space.
type Vec3 struct {
	X, Y, Z float64
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(w Vec3) float64 {
	return v.X*w.X + v.Y*w.Y + v.Z*w.Z
}

// Cross returns the cross product v × w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		X: v.Y*w.Z - v.Z*w.Y,
		Y: v.Z*w.X - v.X*w.Z,
		Z: v.X*w.Y - v.Y*w.X,
	}
}

// Length returns the magnitude of the vector.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns a unit vector in the same direction.
// Returns the zero vector if v has zero length.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return Vec3{X: v.X / l, Y: v.Y / l, Z: v.Z / l}
}

// AngleTo returns the angle in radians between v and w.
func (v Vec3) AngleTo(w Vec3) float64 {
	den := v.Length() * w.Length()
	if den == 0 {
		return math.Pi / 2
	}
	c := v.Dot(w) / den
	// rounding can push |c| slightly past 1
	c = math.Max(-1, math.Min(1, c))
	return math.Acos(c)
}

// DirectionFromSpherical converts a longitude/latitude pair (radians) to a
// unit vector. Longitude 0 looks down +Z, latitude π/2 is straight up.
func DirectionFromSpherical(lon, lat float64) Vec3 {
	return Vec3{
		X: -math.Cos(lat) * math.Sin(lon),
		Y: math.Sin(lat),
		Z: math.Cos(lat) * math.Cos(lon),
	}
}

// Tile addresses one cell of the panorama grid.
type Tile struct {
	Col int
	Row int
}

// ID returns the canonical dedup key of the tile within cfg's grid.
func (t Tile) ID(cfg PanoramaConfig) int {
	return t.Col*cfg.Rows + t.Row
}

// Valid reports whether the tile lies inside cfg's grid.
func (t Tile) Valid(cfg PanoramaConfig) bool {
	return t.Col >= 0 && t.Col < cfg.Cols && t.Row >= 0 && t.Row < cfg.Rows
}

// TileSize returns the width and height in texture pixels of a single tile.
func TileSize(cfg PanoramaConfig) (colSize, rowSize float64) {
	colSize = float64(cfg.Width) / float64(cfg.Cols)
	rowSize = float64(cfg.Width) / 2 / float64(cfg.Rows)
	return colSize, rowSize
}

// TextureCoordsToDirection maps a texture-space point of the full
// equirectangular image to a unit direction. The horizontal center of the
// image is longitude 0; x=0 is longitude π.
func TextureCoordsToDirection(x, y float64, cfg PanoramaConfig) Vec3 {
	w := float64(cfg.Width)
	h := w / 2

	relX := x / w * 2 * math.Pi
	relY := y / h * math.Pi

	lon := relX + math.Pi
	if relX >= math.Pi {
		lon = relX - math.Pi
	}
	lat := math.Pi/2 - relY

	return DirectionFromSpherical(lon, lat)
}

// WrapTile folds an out-of-grid tile position back into the grid.
//
// Crossing a pole reflects the row and moves to the antipodal column band
// (cols/2 away). The column is then wrapped around the seam regardless of
// whether the pole shift already moved it.
func WrapTile(col, row int, cfg PanoramaConfig) Tile {
	if row < 0 {
		row = -row - 1
		col += cfg.Cols / 2
	} else if row >= cfg.Rows {
		row = (cfg.Rows - 1) - (row - cfg.Rows)
		col += cfg.Cols / 2
	}

	if col < 0 {
		col += cfg.Cols
	} else if col >= cfg.Cols {
		col -= cfg.Cols
	}

	return Tile{Col: col, Row: row}
}

// AdjacentTiles returns the four tiles sharing the grid corner (col, row),
// i.e. the tiles whose top-left corners are (col-1,row-1), (col,row-1),
// (col,row) and (col-1,row), each wrapped into the grid.
func AdjacentTiles(col, row int, cfg PanoramaConfig) [4]Tile {
	return [4]Tile{
		WrapTile(col-1, row-1, cfg),
		WrapTile(col, row-1, cfg),
		WrapTile(col, row, cfg),
		WrapTile(col-1, row, cfg),
	}
}
