// Package hull provides N-dimensional convex hulls and Delaunay
// triangulations in a struct-of-arrays format, together with a stateful
// simplex locator. The geometry engine is an in-package quickhull with a
// coplanarity tolerance and a deterministic joggle fallback for
// degenerate inputs, so the facade types behave like a wrapper around a
// qhull-family library.
package hull

import (
	"errors"
	"fmt"
)

// Point is a d-dimensional coordinate.
type Point []float64

// ErrHullConstruction is returned when the geometry engine rejects an
// input point set, typically because it is degenerate beyond what the
// joggle fallback can repair (e.g. fewer than d+1 points).
var ErrHullConstruction = errors.New("hull construction failed")

// ConvexHull is a d-dimensional convex hull. All data is copied out of
// the engine at construction time; the facade owns every datum it hands
// out.
type ConvexHull struct {
	dim       int
	vertices  []Point
	facets    [][]int
	neighbors [][]int
	normals   []Point
	offsets   []float64
}

// New computes the convex hull of points in the given dimension.
//
// For d=3 the facet vertex order is repaired so that
// ((v1-v0)×(v2-v0))·normal >= 0 holds for every facet; the underlying
// engine, like qhull, does not guarantee it.
func New(dim int, points []Point) (*ConvexHull, error) {
	pts := make([][]float64, len(points))
	for i, p := range points {
		pts[i] = p
	}
	data, err := hullFacets(dim, pts)
	if err != nil {
		return nil, fmt.Errorf("%w: %d points in %d dims", ErrHullConstruction, len(points), dim)
	}

	h := &ConvexHull{dim: dim}

	// Surviving vertices are indexed in order of first appearance over
	// the engine's facet list.
	vertexID := make(map[int]int)
	for _, f := range data.facets {
		for _, vi := range f.verts {
			if _, seen := vertexID[vi]; !seen {
				vertexID[vi] = len(h.vertices)
				p := make(Point, dim)
				copy(p, data.points[vi])
				h.vertices = append(h.vertices, p)
			}
		}
	}
	for _, f := range data.facets {
		verts := make([]int, dim)
		for k, vi := range f.verts {
			verts[k] = vertexID[vi]
		}
		nbrs := make([]int, dim)
		copy(nbrs, f.nbrs)
		normal := make(Point, dim)
		copy(normal, f.normal)
		h.facets = append(h.facets, verts)
		h.neighbors = append(h.neighbors, nbrs)
		h.normals = append(h.normals, normal)
		h.offsets = append(h.offsets, f.offset)
	}

	if dim == 3 {
		h.repairOrientation()
	}
	return h, nil
}

// repairOrientation swaps the first two vertices (and the first two
// neighbor entries, keeping neighbor k opposite vertex k) of every facet
// whose winding disagrees with its outward normal.
func (h *ConvexHull) repairOrientation() {
	for i, f := range h.facets {
		p0, p1, p2 := h.vertices[f[0]], h.vertices[f[1]], h.vertices[f[2]]
		e0 := [3]float64{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		e1 := [3]float64{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}
		cross := [3]float64{
			e0[1]*e1[2] - e0[2]*e1[1],
			e0[2]*e1[0] - e0[0]*e1[2],
			e0[0]*e1[1] - e0[1]*e1[0],
		}
		n := h.normals[i]
		if cross[0]*n[0]+cross[1]*n[1]+cross[2]*n[2] < 0 {
			f[0], f[1] = f[1], f[0]
			nb := h.neighbors[i]
			nb[0], nb[1] = nb[1], nb[0]
		}
	}
}

// Dim returns the dimension of the hull.
func (h *ConvexHull) Dim() int { return h.dim }

// NumVertices returns the number of extreme points of the hull.
func (h *ConvexHull) NumVertices() int { return len(h.vertices) }

// NumFacets returns the number of facets of the hull.
func (h *ConvexHull) NumFacets() int { return len(h.facets) }

// Vertex returns a handle to the i-th vertex.
func (h *ConvexHull) Vertex(i int) Vertex { return Vertex{hull: h, idx: i} }

// Vertices returns handles to all vertices in index order.
func (h *ConvexHull) Vertices() []Vertex {
	vs := make([]Vertex, len(h.vertices))
	for i := range vs {
		vs[i] = Vertex{hull: h, idx: i}
	}
	return vs
}

// Facet returns a handle to the i-th facet.
func (h *ConvexHull) Facet(i int) Facet { return Facet{hull: h, idx: i} }

// Facets returns handles to all facets in index order.
func (h *ConvexHull) Facets() []Facet {
	fs := make([]Facet, len(h.facets))
	for i := range fs {
		fs[i] = Facet{hull: h, idx: i}
	}
	return fs
}

// Vertex is a cheap, comparable handle to a hull vertex.
type Vertex struct {
	hull *ConvexHull
	idx  int
}

// Point returns the coordinates of the vertex. The returned slice is
// owned by the hull and must not be modified.
func (v Vertex) Point() Point { return v.hull.vertices[v.idx] }

// Index returns the vertex index inside the hull's struct-of-arrays.
// Useful as a key for side tables.
func (v Vertex) Index() int { return v.idx }

// Facet is a cheap, comparable handle to a hull facet.
type Facet struct {
	hull *ConvexHull
	idx  int
}

// Vertices returns the d vertices of the facet. For d=3 the order is
// consistent with the outward normal.
func (f Facet) Vertices() []Vertex {
	ids := f.hull.facets[f.idx]
	vs := make([]Vertex, len(ids))
	for k, vi := range ids {
		vs[k] = Vertex{hull: f.hull, idx: vi}
	}
	return vs
}

// Neighbors returns the facets adjacent to this one; neighbor k is
// opposite vertex k.
func (f Facet) Neighbors() []Facet {
	ids := f.hull.neighbors[f.idx]
	fs := make([]Facet, len(ids))
	for k, fi := range ids {
		fs[k] = Facet{hull: f.hull, idx: fi}
	}
	return fs
}

// Normal returns the outward unit normal of the facet. The returned
// slice is owned by the hull and must not be modified.
func (f Facet) Normal() Point { return f.hull.normals[f.idx] }

// Offset returns the plane offset of the facet, so that
// normal·p + offset = 0 on the facet plane.
func (f Facet) Offset() float64 { return f.hull.offsets[f.idx] }

// Index returns the facet index inside the hull's struct-of-arrays.
func (f Facet) Index() int { return f.idx }
