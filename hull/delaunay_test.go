package hull

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDelaunay2DSquare(t *testing.T) {
	assert := assert.New(t)

	points := []Point{
		{1, 1},
		{2, 1},
		{1, 2},
		{2, 2},
	}
	tri, err := NewDelaunay(2, points)
	assert.NoError(err)
	assert.Equal(4, tri.NumVertices())
	assert.Equal(2, tri.NumSimplices())

	var triangles [][]Point
	for _, s := range tri.Simplices() {
		var pts []Point
		for _, v := range s.Sites() {
			pts = append(pts, v.Point())
		}
		triangles = append(triangles, sortedPoints(pts))
	}
	sort.Slice(triangles, func(i, j int) bool {
		for k := range triangles[i] {
			for c := range triangles[i][k] {
				if triangles[i][k][c] != triangles[j][k][c] {
					return triangles[i][k][c] < triangles[j][k][c]
				}
			}
		}
		return false
	})
	assert.Equal([][]Point{
		{{1, 1}, {1, 2}, {2, 2}},
		{{1, 1}, {2, 1}, {2, 2}},
	}, triangles)

	// The two triangles share one face; the other faces border the
	// outside.
	for _, s := range tri.Simplices() {
		inner := 0
		for _, n := range s.NeighborIndices() {
			if n != None {
				inner++
			}
		}
		assert.Equal(1, inner)
	}
}

func TestDelaunaySingleSimplex(t *testing.T) {
	assert := assert.New(t)

	points := []Point{{0, 0}, {4, 0}, {0, 3}}
	tri, err := NewDelaunay(2, points)
	assert.NoError(err)
	assert.Equal(1, tri.NumSimplices())
	assert.Equal(3, tri.NumVertices())
	assert.Equal([]int{None, None, None}, tri.Simplex(0).NeighborIndices())

	searcher := tri.SimplexSearcher()
	_, bcoords, ok := searcher.FindSimplex(Point{1, 1})
	assert.True(ok)
	sum := 0.0
	for _, c := range bcoords {
		assert.GreaterOrEqual(c, -1e-9)
		sum += c
	}
	assert.InDelta(1.0, sum, 1e-9)
}

func TestDelaunayTooFewSites(t *testing.T) {
	_, err := NewDelaunay(3, []Point{{0, 0, 0}, {1, 1, 1}})
	if !errors.Is(err, ErrHullConstruction) {
		t.Fatalf("error %v, want ErrHullConstruction", err)
	}
}

func TestDelaunay3DTetrahedron(t *testing.T) {
	assert := assert.New(t)

	// Four 3D sites: the minimal case that the lifted hull cannot
	// express directly.
	points := []Point{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1},
	}
	tri, err := NewDelaunay(3, points)
	assert.NoError(err)
	assert.Equal(1, tri.NumSimplices())

	searcher := tri.SimplexSearcher()
	_, _, ok := searcher.FindSimplex(Point{0.2, 0.2, 0.2})
	assert.True(ok)
	_, _, ok = searcher.FindSimplex(Point{0.9, 0.9, 0.9})
	assert.False(ok)
}
