package hull

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sortedPoints(pts []Point) []Point {
	out := append([]Point(nil), pts...)
	sort.Slice(out, func(i, j int) bool {
		for k := range out[i] {
			if out[i][k] != out[j][k] {
				return out[i][k] < out[j][k]
			}
		}
		return false
	})
	return out
}

func TestConvexHull2D(t *testing.T) {
	assert := assert.New(t)

	points := []Point{
		{1, 1},
		{2, 1},
		{1, 2},
		{2, 2},
		{1.5, 1.5},
		{1.5, 1.0},
	}
	ch, err := New(2, points)
	assert.NoError(err)

	// Interior and edge-collinear points are not vertices.
	var verts []Point
	for _, v := range ch.Vertices() {
		verts = append(verts, v.Point())
	}
	assert.Equal([]Point{{1, 1}, {1, 2}, {2, 1}, {2, 2}}, sortedPoints(verts))

	assert.Equal(4, ch.NumFacets())
	var edges []Point
	for _, f := range ch.Facets() {
		vs := f.Vertices()
		assert.Len(vs, 2)
		edge := sortedPoints([]Point{vs[0].Point(), vs[1].Point()})
		edges = append(edges, append(append(Point{}, edge[0]...), edge[1]...))
	}
	assert.Equal([]Point{
		{1, 1, 1, 2},
		{1, 1, 2, 1},
		{1, 2, 2, 2},
		{2, 1, 2, 2},
	}, sortedPoints(edges))
}

func TestConvexHull3DOrientation(t *testing.T) {
	assert := assert.New(t)

	// A lopsided octahedron plus interior points; every facet's winding
	// must agree with its outward normal.
	points := []Point{
		{2.1, 0, 0}, {-1.9, 0, 0},
		{0, 1.7, 0}, {0, -2.3, 0},
		{0, 0, 1.3}, {0, 0, -2.0},
		{0.2, 0.3, 0.1}, {-0.1, -0.2, 0.3},
	}
	ch, err := New(3, points)
	assert.NoError(err)
	assert.Equal(6, ch.NumVertices())
	assert.Equal(8, ch.NumFacets())

	for _, f := range ch.Facets() {
		vs := f.Vertices()
		p0, p1, p2 := vs[0].Point(), vs[1].Point(), vs[2].Point()
		e0 := Point{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		e1 := Point{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}
		cross := Point{
			e0[1]*e1[2] - e0[2]*e1[1],
			e0[2]*e1[0] - e0[0]*e1[2],
			e0[0]*e1[1] - e0[1]*e1[0],
		}
		n := f.Normal()
		dot := cross[0]*n[0] + cross[1]*n[1] + cross[2]*n[2]
		assert.GreaterOrEqual(dot, 0.0, "facet %d winding disagrees with its normal", f.Index())
	}
}

func TestConvexHullNeighborsOpposite(t *testing.T) {
	assert := assert.New(t)

	points := []Point{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1},
	}
	ch, err := New(3, points)
	assert.NoError(err)

	// Neighbor k shares every vertex of the facet except vertex k.
	for _, f := range ch.Facets() {
		vs := f.Vertices()
		for k, nb := range f.Neighbors() {
			shared := make(map[int]bool)
			for _, nv := range nb.Vertices() {
				shared[nv.Index()] = true
			}
			for kk, v := range vs {
				if kk == k {
					assert.False(shared[v.Index()])
				} else {
					assert.True(shared[v.Index()])
				}
			}
		}
	}
}

func TestConvexHullDegenerateInput(t *testing.T) {
	// Too few points to span the dimension.
	_, err := New(3, []Point{{0, 0, 0}, {1, 0, 0}})
	if !errors.Is(err, ErrHullConstruction) {
		t.Fatalf("error %v, want ErrHullConstruction", err)
	}
}

func TestConvexHullCoplanarInputJoggles(t *testing.T) {
	assert := assert.New(t)

	// A flat 3D point set cannot form a polytope exactly; the joggle
	// fallback must still produce one rather than failing.
	var points []Point
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			points = append(points, Point{float64(x), float64(y), 0})
		}
	}
	ch, err := New(3, points)
	assert.NoError(err)
	assert.GreaterOrEqual(ch.NumVertices(), 4)
}
