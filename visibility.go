package tilestream

import "sort"

// Candidate is a tile proposed for loading together with the angular
// distance (radians) between the view direction and the closest visible
// corner of that tile.
type Candidate struct {
	Tile  Tile
	Angle float64
}

// ComputeVisibleTiles returns the tiles touching at least one visible grid
// corner.
//
// Corners, not centers, are sampled: the (cols+1)×(rows+1) lattice of grid
// line intersections is tested, so a tile only partially inside the viewport
// is still picked up through whichever of its corners is on screen. Corners
// in the back hemisphere are rejected before projection. Every tile adjacent
// to a visible corner becomes a candidate; when several corners produce the
// same tile the smallest angle wins.
//
// The result is ordered by tile id. Callers should not rely on the order.
func ComputeVisibleTiles(direction Vec3, viewport Viewport, cfg PanoramaConfig, proj Projector) []Candidate {
	direction = direction.Normalize()
	colSize, rowSize := TileSize(cfg)

	best := make(map[int]Candidate)

	for col := 0; col <= cfg.Cols; col++ {
		for row := 0; row <= cfg.Rows; row++ {
			pos := TextureCoordsToDirection(float64(col)*colSize, float64(row)*rowSize, cfg)

			if pos.Dot(direction) <= 0 {
				continue
			}
			x, y := proj.Project(pos)
			if !viewport.Contains(x, y) {
				continue
			}

			angle := pos.AngleTo(direction)
			for _, t := range AdjacentTiles(col, row, cfg) {
				id := t.ID(cfg)
				if prev, ok := best[id]; !ok || angle < prev.Angle {
					best[id] = Candidate{Tile: t, Angle: angle}
				}
			}
		}
	}

	out := make([]Candidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Tile.ID(cfg) < out[j].Tile.ID(cfg)
	})
	return out
}
