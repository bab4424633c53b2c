//go:build manifold

// Package manifold binds the Manifold C library as a geometry kernel.
// It needs manifoldc installed under /usr/local and the "manifold" build
// tag.
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/chazu/lathe/pkg/kernel"
)

var (
	_ kernel.Kernel = (*ManifoldKernel)(nil)
	_ kernel.Solid  = (*solid)(nil)
)

// solid owns one C manifold; the finalizer frees it.
type solid struct {
	ptr *C.ManifoldManifold
}

func own(ptr *C.ManifoldManifold) *solid {
	s := &solid{ptr: ptr}
	runtime.SetFinalizer(s, func(s *solid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

func ptrOf(s kernel.Solid) *C.ManifoldManifold {
	return s.(*solid).ptr
}

func (s *solid) BoundingBox() (min, max [3]float64) {
	box := C.manifold_bounding_box(C.manifold_alloc_box(), s.ptr)
	defer C.manifold_delete_box(box)
	runtime.KeepAlive(s)

	min = [3]float64{float64(C.manifold_box_min_x(box)), float64(C.manifold_box_min_y(box)), float64(C.manifold_box_min_z(box))}
	max = [3]float64{float64(C.manifold_box_max_x(box)), float64(C.manifold_box_max_y(box)), float64(C.manifold_box_max_z(box))}
	return min, max
}

// ManifoldKernel implements kernel.Kernel on manifoldc. Primitives are
// built centered, matching the sdfx kernel.
type ManifoldKernel struct{}

func New() (kernel.Kernel, error) {
	return &ManifoldKernel{}, nil
}

func (k *ManifoldKernel) Box(x, y, z float64) kernel.Solid {
	return own(C.manifold_cube(C.manifold_alloc_manifold(), C.double(x), C.double(y), C.double(z), 1))
}

func (k *ManifoldKernel) Sphere(radius float64, segments int) kernel.Solid {
	return own(C.manifold_sphere(C.manifold_alloc_manifold(), C.double(radius), C.int(segments)))
}

func (k *ManifoldKernel) Cylinder(height, radius float64, segments int) kernel.Solid {
	r := C.double(radius)
	return own(C.manifold_cylinder(C.manifold_alloc_manifold(), C.double(height), r, r, C.int(segments), 1))
}

func (k *ManifoldKernel) Union(a, b kernel.Solid) kernel.Solid {
	return binary(a, b, func(m *C.ManifoldManifold) *C.ManifoldManifold {
		return C.manifold_union(m, ptrOf(a), ptrOf(b))
	})
}

func (k *ManifoldKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return binary(a, b, func(m *C.ManifoldManifold) *C.ManifoldManifold {
		return C.manifold_difference(m, ptrOf(a), ptrOf(b))
	})
}

func (k *ManifoldKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return binary(a, b, func(m *C.ManifoldManifold) *C.ManifoldManifold {
		return C.manifold_intersection(m, ptrOf(a), ptrOf(b))
	})
}

func binary(a, b kernel.Solid, op func(*C.ManifoldManifold) *C.ManifoldManifold) kernel.Solid {
	out := own(op(C.manifold_alloc_manifold()))
	runtime.KeepAlive(a)
	runtime.KeepAlive(b)
	return out
}

func (k *ManifoldKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	out := own(C.manifold_translate(C.manifold_alloc_manifold(), ptrOf(s), C.double(x), C.double(y), C.double(z)))
	runtime.KeepAlive(s)
	return out
}

// Rotate takes Euler angles in degrees, applied X then Y then Z.
func (k *ManifoldKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	out := own(C.manifold_rotate(C.manifold_alloc_manifold(), ptrOf(s), C.double(x), C.double(y), C.double(z)))
	runtime.KeepAlive(s)
	return out
}

func (k *ManifoldKernel) Scale(s kernel.Solid, x, y, z float64) kernel.Solid {
	out := own(C.manifold_scale(C.manifold_alloc_manifold(), ptrOf(s), C.double(x), C.double(y), C.double(z)))
	runtime.KeepAlive(s)
	return out
}

// ToMesh copies the MeshGL buffers out of C memory. MeshGL interleaves
// per-vertex properties with position first; normals, when present, sit
// at offsets 3 to 5.
func (k *ManifoldKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	gl := C.manifold_get_meshgl(C.manifold_alloc_meshgl(), ptrOf(s))
	defer C.manifold_delete_meshgl(gl)
	runtime.KeepAlive(s)

	nv := int(C.manifold_meshgl_num_vert(gl))
	nt := int(C.manifold_meshgl_num_tri(gl))
	if nv == 0 || nt == 0 {
		return &kernel.Mesh{}, nil
	}
	stride := int(C.manifold_meshgl_num_prop(gl))
	if stride < 3 {
		return nil, fmt.Errorf("manifold: %d properties per vertex, need at least 3", stride)
	}

	props := make([]float32, nv*stride)
	C.manifold_meshgl_vert_properties((*C.float)(unsafe.Pointer(&props[0])), gl)
	m := &kernel.Mesh{
		Vertices: make([]float32, nv*3),
		Indices:  make([]uint32, nt*3),
	}
	C.manifold_meshgl_tri_verts((*C.uint32_t)(unsafe.Pointer(&m.Indices[0])), gl)

	if stride >= 6 {
		m.Normals = make([]float32, nv*3)
	}
	for i := 0; i < nv; i++ {
		p := props[i*stride:]
		copy(m.Vertices[i*3:i*3+3], p[:3])
		if m.Normals != nil {
			copy(m.Normals[i*3:i*3+3], p[3:6])
		}
	}
	if m.Normals == nil {
		m.SmoothNormals()
	}
	return m, nil
}
