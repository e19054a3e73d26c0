package tilestream_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ts "github.com/cooljackie/tilestream"
)

func assertVecNear(t *testing.T, want, got ts.Vec3) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9, "x")
	assert.InDelta(t, want.Y, got.Y, 1e-9, "y")
	assert.InDelta(t, want.Z, got.Z, 1e-9, "z")
}

func TestTileSize(t *testing.T) {
	cfg := newTestConfig()
	colSize, rowSize := ts.TileSize(cfg)
	assert.Equal(t, 100.0, colSize)
	assert.Equal(t, 100.0, rowSize)

	cfg.Width = 8000
	cfg.Cols = 32
	cfg.Rows = 4
	colSize, rowSize = ts.TileSize(cfg)
	assert.Equal(t, 250.0, colSize)
	assert.Equal(t, 1000.0, rowSize)
}

func TestTextureCoordsToDirection(t *testing.T) {
	cfg := newTestConfig() // 1600x800

	tests := []struct {
		name string
		x, y float64
		want ts.Vec3
	}{
		{"image center looks forward", 800, 400, ts.Vec3{Z: 1}},
		{"left edge looks backward", 0, 400, ts.Vec3{Z: -1}},
		{"top edge is the zenith", 800, 0, ts.Vec3{Y: 1}},
		{"bottom edge is the nadir", 800, 800, ts.Vec3{Y: -1}},
		{"three quarters is longitude pi/2", 1200, 400, ts.Vec3{X: -1}},
		{"one quarter is longitude -pi/2", 400, 400, ts.Vec3{X: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ts.TextureCoordsToDirection(tt.x, tt.y, cfg)
			assertVecNear(t, tt.want, got)
			assert.InDelta(t, 1.0, got.Length(), 1e-12)
		})
	}
}

func TestWrapTile_Examples(t *testing.T) {
	cfg := newTestConfig() // cols=16, rows=8

	tests := []struct {
		name     string
		col, row int
		want     ts.Tile
	}{
		{"over the north pole", 0, -1, ts.Tile{Col: 8, Row: 0}},
		{"over the south pole", 0, 8, ts.Tile{Col: 8, Row: 7}},
		{"left of the seam", -1, 3, ts.Tile{Col: 15, Row: 3}},
		{"right of the seam", 16, 3, ts.Tile{Col: 0, Row: 3}},
		{"inside is untouched", 5, 5, ts.Tile{Col: 5, Row: 5}},
		{"pole shift then seam wrap", 12, -1, ts.Tile{Col: 4, Row: 0}},
		{"pole and seam together", -1, -1, ts.Tile{Col: 7, Row: 0}},
		{"south pole past the seam", 16, 8, ts.Tile{Col: 8, Row: 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ts.WrapTile(tt.col, tt.row, cfg))
		})
	}
}

func TestWrapTile_PoleRoundTrip(t *testing.T) {
	cfg := newTestConfig()

	for col := -1; col <= cfg.Cols; col++ {
		for _, row := range []int{-1, cfg.Rows} {
			got := ts.WrapTile(col, row, cfg)
			require.True(t, got.Valid(cfg), "col=%d row=%d wrapped to %+v", col, row, got)

			// undoing the hemisphere shift lands back on the original band
			back := ts.WrapTile(got.Col+cfg.Cols/2, got.Row, cfg)
			wantCol := (col%cfg.Cols + cfg.Cols) % cfg.Cols
			assert.Equal(t, wantCol, back.Col, "col=%d row=%d", col, row)
		}
	}
}

func TestAdjacentTiles(t *testing.T) {
	cfg := newTestConfig()

	assert.Equal(t, [4]ts.Tile{
		{Col: 4, Row: 2}, {Col: 5, Row: 2}, {Col: 5, Row: 3}, {Col: 4, Row: 3},
	}, ts.AdjacentTiles(5, 3, cfg))

	// the top-left corner of the grid touches the pole and the seam
	assert.Equal(t, [4]ts.Tile{
		{Col: 7, Row: 0}, {Col: 8, Row: 0}, {Col: 0, Row: 0}, {Col: 15, Row: 0},
	}, ts.AdjacentTiles(0, 0, cfg))

	// every corner of the lattice yields in-grid tiles
	for col := 0; col <= cfg.Cols; col++ {
		for row := 0; row <= cfg.Rows; row++ {
			for _, tile := range ts.AdjacentTiles(col, row, cfg) {
				require.True(t, tile.Valid(cfg), "corner %d,%d gave %+v", col, row, tile)
			}
		}
	}
}

func TestTileID_Unique(t *testing.T) {
	cfg := newTestConfig()
	seen := make(map[int]ts.Tile)
	for col := 0; col < cfg.Cols; col++ {
		for row := 0; row < cfg.Rows; row++ {
			tile := ts.Tile{Col: col, Row: row}
			id := tile.ID(cfg)
			prev, dup := seen[id]
			require.False(t, dup, "%+v and %+v share id %d", prev, tile, id)
			seen[id] = tile
		}
	}
	assert.Len(t, seen, cfg.Tiles())
}

func TestVec3(t *testing.T) {
	x := ts.Vec3{X: 1}
	y := ts.Vec3{Y: 1}

	assert.Equal(t, ts.Vec3{Z: 1}, x.Cross(y))
	assert.Equal(t, 0.0, x.Dot(y))
	assert.InDelta(t, math.Pi/2, x.AngleTo(y), 1e-12)
	assert.InDelta(t, 0, x.AngleTo(x), 1e-12)
	assert.InDelta(t, math.Pi, x.AngleTo(ts.Vec3{X: -2}), 1e-12)
	assert.Equal(t, ts.Vec3{}, ts.Vec3{}.Normalize())
	assert.InDelta(t, 1, ts.Vec3{X: 3, Y: 4}.Normalize().Length(), 1e-12)
}
