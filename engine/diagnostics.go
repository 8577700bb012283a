package engine

import (
	"github.com/Carmen-Shannon/oxy-bounds/common"
	"github.com/Carmen-Shannon/oxy-bounds/engine/camera"
	"github.com/Carmen-Shannon/oxy-bounds/engine/compute"
)

// reference projects every sphere on the CPU with the matrices the GPU used.
func reference(spheres []common.Sphere, m camera.Matrices) []compute.Projection {
	out := make([]compute.Projection, len(spheres))
	for i, s := range spheres {
		out[i] = compute.ProjectSphere(m.WorldToCamera, m.CameraToClip, s)
	}
	return out
}

// BoundsDeviation compares sphere bounds read back from the GPU with the CPU projection of spheres.
//
// Parameters:
//   - gpu: the bounds read back from the GPU
//   - spheres: the spheres the bounds were computed for
//   - m: the camera matrices of the compute dispatch
//
// Returns:
//   - float32: the largest coordinate difference
func BoundsDeviation(gpu []common.SphereBounds, spheres []common.Sphere, m camera.Matrices) float32 {
	ref := reference(spheres, m)
	cpu := make([]common.SphereBounds, len(ref))
	for i, p := range ref {
		cpu[i] = p.Bounds
	}
	return compute.MaxDeviation(gpu, cpu, compute.BoundsCoords)
}

// AxesDeviation compares long axes read back from the GPU with the CPU projection of spheres.
// Culled and straddling spheres are skipped since their axes are left unspecified.
func AxesDeviation(gpu []common.Line, spheres []common.Sphere, m camera.Matrices) float32 {
	ref := reference(spheres, m)
	var g, c []common.Line
	for i, p := range ref {
		if i >= len(gpu) || p.Visibility != compute.VisibilityVisible {
			continue
		}
		g = append(g, gpu[i])
		c = append(c, p.LongAxis)
	}
	return compute.MaxDeviation(g, c, compute.LineCoords)
}

// CirclesDeviation compares occluder circles read back from the GPU with the CPU projection of
// spheres, skipping culled and straddling spheres.
func CirclesDeviation(gpu []common.Circle, spheres []common.Sphere, m camera.Matrices) float32 {
	ref := reference(spheres, m)
	var g, c []common.Circle
	for i, p := range ref {
		if i >= len(gpu) || p.Visibility != compute.VisibilityVisible {
			continue
		}
		g = append(g, gpu[i])
		c = append(c, p.Circle)
	}
	return compute.MaxDeviation(g, c, compute.CircleCoords)
}
