package kernel

import "math"

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Label    string    `json:"label"`    // canonical header of the source node
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Bounds returns the axis-aligned bounds of the vertices. An empty mesh
// has zero bounds.
func (m *Mesh) Bounds() (min, max [3]float32) {
	if m.IsEmpty() {
		return min, max
	}
	copy(min[:], m.Vertices[:3])
	copy(max[:], m.Vertices[:3])
	for i := 3; i+2 < len(m.Vertices); i += 3 {
		for j := 0; j < 3; j++ {
			v := m.Vertices[i+j]
			if v < min[j] {
				min[j] = v
			}
			if v > max[j] {
				max[j] = v
			}
		}
	}
	return min, max
}

// SmoothNormals replaces Normals with area weighted vertex normals taken
// from the triangles sharing each vertex. Vertices used by no triangle get
// a zero normal.
func (m *Mesh) SmoothNormals() {
	n := make([]float64, len(m.Vertices))
	at := func(i uint32) [3]float64 {
		return [3]float64{float64(m.Vertices[i*3]), float64(m.Vertices[i*3+1]), float64(m.Vertices[i*3+2])}
	}
	for t := 0; t+2 < len(m.Indices); t += 3 {
		tri := m.Indices[t : t+3]
		a, b, c := at(tri[0]), at(tri[1]), at(tri[2])
		u := [3]float64{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
		v := [3]float64{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
		cross := [3]float64{u[1]*v[2] - u[2]*v[1], u[2]*v[0] - u[0]*v[2], u[0]*v[1] - u[1]*v[0]}
		for _, i := range tri {
			for j := 0; j < 3; j++ {
				n[int(i)*3+j] += cross[j]
			}
		}
	}

	m.Normals = make([]float32, len(n))
	for i := 0; i+2 < len(n); i += 3 {
		l := math.Sqrt(n[i]*n[i] + n[i+1]*n[i+1] + n[i+2]*n[i+2])
		if l < 1e-12 {
			continue
		}
		for j := 0; j < 3; j++ {
			m.Normals[i+j] = float32(n[i+j] / l)
		}
	}
}
