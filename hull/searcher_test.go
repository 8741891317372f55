package hull

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func genericSites() []Point {
	return []Point{
		{0, 0},
		{2, 0},
		{1, 1.7},
		{0.4, 0.6},
		{1.9, 1.2},
		{-0.3, 1.1},
	}
}

func TestSearcherFindsEverySite(t *testing.T) {
	assert := assert.New(t)

	tri, err := NewDelaunay(2, genericSites())
	assert.NoError(err)

	searcher := tri.SimplexSearcher()
	searcher.SetEps(1e-10)
	for _, site := range tri.Sites() {
		simplex, bcoords, ok := searcher.FindSimplex(site.Point())
		assert.True(ok, "site %d not found", site.Index())

		// A site is a vertex of its containing simplex: its barycentric
		// coordinates are one-hot.
		sum := 0.0
		hits := 0
		for k, c := range bcoords {
			sum += c
			if c > 0.5 {
				hits++
				assert.Equal(site.Index(), simplex.Sites()[k].Index())
			}
		}
		assert.InDelta(1.0, sum, 1e-9)
		assert.Equal(1, hits)
	}
}

func TestSearcherOutsidePoint(t *testing.T) {
	assert := assert.New(t)

	tri, err := NewDelaunay(2, genericSites())
	assert.NoError(err)

	searcher := tri.SimplexSearcher()
	_, _, ok := searcher.FindSimplex(Point{50, 50})
	assert.False(ok)

	// Bruteforce rejects out-of-bounds points outright.
	searcher.SetBruteforce(true)
	_, _, ok = searcher.FindSimplex(Point{50, 50})
	assert.False(ok)
	_, _, ok = searcher.FindSimplex(Point{1, 0.8})
	assert.True(ok)
}

func TestSearcherWarmStart(t *testing.T) {
	assert := assert.New(t)

	tri, err := NewDelaunay(2, []Point{{1, 1}, {2, 1}, {1, 2}, {2, 2}})
	assert.NoError(err)

	// (1.7, 1.2) lies strictly inside one of the two triangles.
	searcher := tri.SimplexSearcher()
	first, _, ok := searcher.FindSimplex(Point{1.7, 1.2})
	assert.True(ok)

	// A nearby query starts from the recorded hint and lands in the
	// same simplex.
	second, _, ok := searcher.FindSimplex(Point{1.72, 1.21})
	assert.True(ok)
	assert.Equal(first.Index(), second.Index())

	searcher.ClearStartHint()
	third, _, ok := searcher.FindSimplex(Point{1.7, 1.2})
	assert.True(ok)
	assert.Equal(first.Index(), third.Index())
}

func TestSearcherEpsLoosening(t *testing.T) {
	assert := assert.New(t)

	tri, err := NewDelaunay(2, genericSites())
	assert.NoError(err)

	// A point nudged just past the boundary is rejected at a tight
	// tolerance and accepted once the tolerance is loosened past the
	// overshoot.
	searcher := tri.SimplexSearcher()
	searcher.SetEps(1e-12)
	outside := Point{1, -1e-8}
	_, _, ok := searcher.FindSimplex(outside)
	assert.False(ok)

	for !ok {
		searcher.SetEps(searcher.Eps() * 2)
		_, ok = searcher.FindSimplexInto(outside, make([]float64, 3))
	}
	assert.True(ok)
	assert.LessOrEqual(searcher.Eps(), 1e-4)
}
