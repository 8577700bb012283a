package compute

import (
	"github.com/Carmen-Shannon/oxy-bounds/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Visibility classifies a sphere against the near plane.
type Visibility uint32

const (
	// VisibilityCulled marks a sphere entirely behind the near plane. Every output is zero.
	VisibilityCulled Visibility = iota

	// VisibilityStraddling marks a sphere crossing the near plane. It covers the whole view.
	VisibilityStraddling

	// VisibilityVisible marks a sphere entirely beyond the near plane, projected exactly.
	VisibilityVisible
)

func (v Visibility) String() string {
	switch v {
	case VisibilityCulled:
		return "culled"
	case VisibilityStraddling:
		return "straddling"
	default:
		return "visible"
	}
}

// Projection holds everything the three compute passes write for one sphere.
type Projection struct {
	Visibility Visibility
	Bounds     common.SphereBounds
	LongAxis   common.Line
	Circle     common.Circle
}

// fullView is the bounds of a sphere crossing the near plane.
var fullView = common.SphereBounds{Min: [2]float32{-1, -1}, Max: [2]float32{1, 1}}

// ProjectSphere projects a world-space sphere into normalized device coordinates on the CPU,
// following the same math as the compute kernels.
//
// Parameters:
//   - worldToCamera: the rigid view transform
//   - cameraToClip: a perspective projection with w = -z
//   - s: the sphere
//
// Returns:
//   - Projection: the bounds, long axis and occluder circle of the sphere
func ProjectSphere(worldToCamera, cameraToClip mgl32.Mat4, s common.Sphere) Projection {
	c := worldToCamera.Mul4x1(mgl32.Vec3(s.Origin).Vec4(1)).Vec3()
	r := s.Radius

	near := cameraToClip.At(2, 3) / cameraToClip.At(2, 2)
	switch {
	case c.Z()-r >= -near:
		return Projection{Visibility: VisibilityCulled}
	case c.Z()+r >= -near:
		return Projection{Visibility: VisibilityStraddling, Bounds: fullView}
	}

	sx, sy := cameraToClip.At(0, 0), cameraToClip.At(1, 1)
	p := Projection{Visibility: VisibilityVisible}

	xlo, xhi := tangentExtent(c.X(), c.Z(), r)
	ylo, yhi := tangentExtent(c.Y(), c.Z(), r)
	p.Bounds = common.SphereBounds{
		Min: [2]float32{xlo * sx, ylo * sy},
		Max: [2]float32{xhi * sx, yhi * sy},
	}

	dx, dy := axisDirection(c)
	lo, hi := tangentExtent(math32.Hypot(c.X(), c.Y()), c.Z(), r)
	p.LongAxis = common.Line{
		Start: [2]float32{dx * lo * sx, dy * lo * sy},
		End:   [2]float32{dx * hi * sx, dy * hi * sy},
	}

	mid := (lo + hi) * 0.5
	major := (hi - lo) * 0.5
	minor := r / math32.Sqrt(c.Z()*c.Z()-r*r)
	p.Circle = common.Circle{
		Origin: [2]float32{dx * mid * sx, dy * mid * sy},
		Radius: inscribedRadius(dx, dy, major, minor, sx, sy),
	}
	return p
}

// tangentExtent returns the image-plane interval covered by a sphere along one lateral axis,
// bounded by the two planes through the eye tangent to the sphere.
//
// Parameters:
//   - u: the lateral coordinate of the centre
//   - z: the depth of the centre, negative in front of the camera
//   - r: the radius
//
// Returns:
//   - float32: the lower end of the interval
//   - float32: the upper end of the interval
func tangentExtent(u, z, r float32) (float32, float32) {
	lenSq := u*u + z*z
	l := math32.Sqrt(lenSq)
	cosT := math32.Sqrt(lenSq-r*r) / l
	sinT := r / l
	a := (cosT*u + sinT*z) / (sinT*u - cosT*z)
	b := (cosT*u - sinT*z) / (-sinT*u - cosT*z)
	return math32.Min(a, b), math32.Max(a, b)
}

// axisDirection is the unit image-plane direction from the view axis towards the centre.
// A centre on the view axis projects to a circle, so any direction will do.
func axisDirection(c mgl32.Vec3) (float32, float32) {
	l := math32.Hypot(c.X(), c.Y())
	if l < 1e-6 {
		return 1, 0
	}
	return c.X() / l, c.Y() / l
}

// inscribedRadius returns the smallest semi-axis of the ellipse with the given image-plane
// semi-axes after scaling x by sx and y by sy.
func inscribedRadius(dx, dy, major, minor, sx, sy float32) float32 {
	ax, ay := sx*dx*major, sy*dy*major
	bx, by := -sx*dy*minor, sy*dx*minor
	f := ax*ax + ay*ay + bx*bx + by*by
	det := math32.Abs(ax*by - ay*bx)
	sMax := math32.Sqrt((f + math32.Sqrt(math32.Max(f*f-4*det*det, 0))) * 0.5)
	if sMax <= 0 {
		return 0
	}
	return det / sMax
}

// MaxDeviation compares GPU output with the CPU reference and returns the largest absolute
// coordinate difference. Elements are compared index by index up to the shorter slice.
//
// Parameters:
//   - gpu: the values read back from the GPU
//   - cpu: the reference values
//   - coords: flattens one element into its coordinates
//
// Returns:
//   - float32: the largest difference, 0 for empty input
func MaxDeviation[T any](gpu, cpu []T, coords func(T) []float32) float32 {
	var worst float32
	for i := range min(len(gpu), len(cpu)) {
		g, c := coords(gpu[i]), coords(cpu[i])
		for j := range g {
			worst = math32.Max(worst, math32.Abs(g[j]-c[j]))
		}
	}
	return worst
}

// BoundsCoords flattens SphereBounds for MaxDeviation.
func BoundsCoords(b common.SphereBounds) []float32 {
	return []float32{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
}

// LineCoords flattens a Line for MaxDeviation.
func LineCoords(l common.Line) []float32 {
	return []float32{l.Start[0], l.Start[1], l.End[0], l.End[1]}
}

// CircleCoords flattens a Circle for MaxDeviation.
func CircleCoords(c common.Circle) []float32 {
	return []float32{c.Origin[0], c.Origin[1], c.Radius}
}
