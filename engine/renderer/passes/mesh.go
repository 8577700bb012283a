package passes

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-bounds/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrGridTooLarge is returned when the grids of a scene need more vertices than a u16 index can address.
var ErrGridTooLarge = errors.New("grid vertices exceed the u16 index range")

// Grid is a rectangular line lattice of Width x Height unit cells centred on its origin in the
// local XY plane, then scaled, rotated and translated into the world.
type Grid struct {
	Scale       float32
	Width       uint32
	Height      uint32
	Position    mgl32.Vec3
	Orientation mgl32.Quat
}

// DefaultGrid returns the 20x20 floor grid: the XY lattice rotated a quarter turn about X.
//
// Returns:
//   - Grid: the grid
func DefaultGrid() Grid {
	return Grid{
		Scale:       1,
		Width:       20,
		Height:      20,
		Orientation: common.AxisAngle(mgl32.Vec3{1, 0, 0}, 0.5*math.Pi),
	}
}

// VertexCount returns the number of lattice vertices, (Width+1)(Height+1).
func (g Grid) VertexCount() int {
	return int(g.Width+1) * int(g.Height+1)
}

// IndexCount returns the number of line-list indices, two per line across each axis.
func (g Grid) IndexCount() int {
	return 2*int(g.Width+1) + 2*int(g.Height+1)
}

// GridMesh builds one line-list mesh holding every grid. Each grid contributes its lattice vertices
// and one line per lattice column and row, with indices offset by the vertices of the grids before it.
//
// Parameters:
//   - grids: the grids to build
//
// Returns:
//   - []mgl32.Vec3: world-space lattice vertices
//   - []uint16: line-list indices
//   - error: ErrGridTooLarge when the vertex count exceeds the u16 range
func GridMesh(grids []Grid) ([]mgl32.Vec3, []uint16, error) {
	total := 0
	indexTotal := 0
	for _, g := range grids {
		total += g.VertexCount()
		indexTotal += g.IndexCount()
	}
	if total > math.MaxUint16+1 {
		return nil, nil, fmt.Errorf("%w: %d vertices", ErrGridTooLarge, total)
	}

	vertices := make([]mgl32.Vec3, 0, total)
	indices := make([]uint16, 0, indexTotal)
	for _, g := range grids {
		base := uint16(len(vertices))
		model := common.ScaleRotationTranslation(g.Scale, g.Orientation.Normalize(), g.Position)
		w, h := g.Width, g.Height
		halfW, halfH := float32(w)*0.5, float32(h)*0.5

		// The whole lattice is uploaded but the line list only indexes its boundary vertices.
		for j := range h + 1 {
			for i := range w + 1 {
				local := mgl32.Vec4{float32(i) - halfW, float32(j) - halfH, 0, 1}
				vertices = append(vertices, model.Mul4x1(local).Vec3())
			}
		}

		at := func(i, j uint32) uint16 {
			return base + uint16(j*(w+1)+i)
		}
		for i := range w + 1 {
			indices = append(indices, at(i, 0), at(i, h))
		}
		for j := range h + 1 {
			indices = append(indices, at(0, j), at(w, j))
		}
	}
	return vertices, indices, nil
}

// Icosphere builds a unit sphere by subdividing an icosahedron level times and pushing every new
// vertex onto the sphere. Level L has 10*4^L+2 vertices and 20*4^L triangles.
//
// Parameters:
//   - level: the number of subdivisions
//
// Returns:
//   - []mgl32.Vec3: unit-length vertices, which double as normals
//   - []uint32: counter-clockwise triangle-list indices
func Icosphere(level int) ([]mgl32.Vec3, []uint32) {
	t := (1 + math32.Sqrt(5)) / 2
	vertices := []mgl32.Vec3{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
	for i := range vertices {
		vertices[i] = vertices[i].Normalize()
	}
	indices := []uint32{
		0, 11, 5, 0, 5, 1, 0, 1, 7, 0, 7, 10, 0, 10, 11,
		1, 5, 9, 5, 11, 4, 11, 10, 2, 10, 7, 6, 7, 1, 8,
		3, 9, 4, 3, 4, 2, 3, 2, 6, 3, 6, 8, 3, 8, 9,
		4, 9, 5, 2, 4, 11, 6, 2, 10, 8, 6, 7, 9, 8, 1,
	}

	for range max(level, 0) {
		midpoints := make(map[[2]uint32]uint32)
		midpoint := func(a, b uint32) uint32 {
			key := [2]uint32{min(a, b), max(a, b)}
			if m, ok := midpoints[key]; ok {
				return m
			}
			m := uint32(len(vertices))
			vertices = append(vertices, vertices[a].Add(vertices[b]).Normalize())
			midpoints[key] = m
			return m
		}

		next := make([]uint32, 0, len(indices)*4)
		for i := 0; i < len(indices); i += 3 {
			a, b, c := indices[i], indices[i+1], indices[i+2]
			ab, bc, ca := midpoint(a, b), midpoint(b, c), midpoint(c, a)
			next = append(next,
				a, ab, ca,
				b, bc, ab,
				c, ca, bc,
				ab, bc, ca,
			)
		}
		indices = next
	}
	return vertices, indices
}

// CircleFan builds a unit disc as a triangle fan: the centre followed by subdivisions rim vertices.
//
// Parameters:
//   - subdivisions: the number of rim segments, at least 3
//
// Returns:
//   - [][2]float32: the centre and the rim vertices
//   - []uint32: one (centre, i, i+1) triangle per segment, wrapping at the end
func CircleFan(subdivisions uint32) ([][2]float32, []uint32) {
	subdivisions = max(subdivisions, 3)
	vertices := make([][2]float32, 0, subdivisions+1)
	vertices = append(vertices, [2]float32{0, 0})
	step := 2 * math32.Pi / float32(subdivisions)
	for i := range subdivisions {
		s, c := math32.Sincos(step * float32(i))
		vertices = append(vertices, [2]float32{c, s})
	}

	indices := make([]uint32, 0, 3*subdivisions)
	for i := range subdivisions {
		indices = append(indices, 0, i+1, (i+1)%subdivisions+1)
	}
	return vertices, indices
}

// vec3Bytes packs positions as tightly packed vec3<f32> vertices.
func vec3Bytes(vs []mgl32.Vec3) []byte {
	buf := make([]byte, 12*len(vs))
	for i, v := range vs {
		for j := range 3 {
			binary.LittleEndian.PutUint32(buf[i*12+j*4:], math.Float32bits(v[j]))
		}
	}
	return buf
}

// vec2Bytes packs positions as tightly packed vec2<f32> vertices.
func vec2Bytes(vs [][2]float32) []byte {
	buf := make([]byte, 8*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(buf[i*8:], math.Float32bits(v[0]))
		binary.LittleEndian.PutUint32(buf[i*8+4:], math.Float32bits(v[1]))
	}
	return buf
}

func uint32Bytes(indices []uint32) []byte {
	buf := make([]byte, 4*len(indices))
	for i, v := range indices {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

// uint16Bytes packs u16 indices, padding the buffer to a multiple of four bytes as WriteBuffer requires.
func uint16Bytes(indices []uint16) []byte {
	buf := make([]byte, (2*len(indices)+3)&^3)
	for i, v := range indices {
		binary.LittleEndian.PutUint16(buf[i*2:], v)
	}
	return buf
}
