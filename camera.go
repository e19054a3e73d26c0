package tilestream

import "math"

// Viewport is the size of the viewer's drawing area in screen pixels.
type Viewport struct {
	Width  float64
	Height float64
}

// Contains reports whether the screen point lies inside the viewport,
// edges included.
func (v Viewport) Contains(x, y float64) bool {
	return x >= 0 && x <= v.Width && y >= 0 && y <= v.Height
}

// Projector maps a world direction to viewport coordinates. The lens model
// belongs to the viewer; the sampler only asks where a direction lands.
type Projector interface {
	Project(dir Vec3) (x, y float64)
}

// ProjectorFunc adapts a plain function to Projector.
type ProjectorFunc func(dir Vec3) (x, y float64)

func (f ProjectorFunc) Project(dir Vec3) (x, y float64) { return f(dir) }

// worldUp is the Y axis of the viewer's world.
var worldUp = Vec3{Y: 1}

// Camera is a pinhole perspective camera looking from the sphere's center.
//
// Yaw is the longitude and Pitch the latitude of the view direction, both
// in radians. FOV is the vertical field of view in radians.
type Camera struct {
	Yaw      float64
	Pitch    float64
	FOV      float64
	Viewport Viewport
}

// Direction returns the unit view direction.
func (c Camera) Direction() Vec3 {
	return DirectionFromSpherical(c.Yaw, c.Pitch)
}

// basis returns the camera's forward, right and up vectors.
func (c Camera) basis() (fwd, right, up Vec3) {
	fwd = c.Direction()
	right = fwd.Cross(worldUp).Normalize()
	if right == (Vec3{}) {
		// looking straight up or down: pick right from yaw alone
		right = Vec3{X: -math.Cos(c.Yaw), Z: -math.Sin(c.Yaw)}
	}
	up = right.Cross(fwd)
	return fwd, right, up
}

// Project implements Projector. Directions behind the camera project to
// NaN so they never pass a viewport test.
func (c Camera) Project(dir Vec3) (x, y float64) {
	fwd, right, up := c.basis()

	z := dir.Dot(fwd)
	if z <= 0 {
		return math.NaN(), math.NaN()
	}

	aspect := 1.0
	if c.Viewport.Height > 0 {
		aspect = c.Viewport.Width / c.Viewport.Height
	}
	tanV := math.Tan(c.FOV / 2)
	tanH := tanV * aspect

	ndcX := dir.Dot(right) / z / tanH
	ndcY := dir.Dot(up) / z / tanV

	x = (ndcX + 1) / 2 * c.Viewport.Width
	y = (1 - ndcY) / 2 * c.Viewport.Height
	return x, y
}
