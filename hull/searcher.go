package hull

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SimplexSearcher locates the simplex of a Delaunay triangulation that
// contains a query point, and computes the point's barycentric
// coordinates in it.
//
// The searcher carries mutable state: the tolerance, the bruteforce
// flag and a start hint recording where the previous search ended, so
// that batches of nearby queries walk only a few simplices each. Share
// the parent Delaunay freely across goroutines, but give each goroutine
// its own searcher.
//
// The search strategy follows SciPy's simplex location: a directed
// descent over lifted plane distances, a directed barycentric walk, and
// a bruteforce scan as the fallback.
type SimplexSearcher struct {
	tri        *Delaunay
	transforms []baryTransform

	minBounds Point
	maxBounds Point

	bruteforce bool
	eps        float64
	startHint  int

	lifted []float64
}

// NewSimplexSearcher builds a searcher over tri, precomputing the
// barycentric transform of every simplex.
func NewSimplexSearcher(tri *Delaunay) *SimplexSearcher {
	dim := tri.dim
	minB := make(Point, dim)
	maxB := make(Point, dim)
	for j := 0; j < dim; j++ {
		minB[j] = math.Inf(1)
		maxB[j] = math.Inf(-1)
	}
	for _, v := range tri.vertices {
		for j := 0; j < dim; j++ {
			minB[j] = math.Min(minB[j], v[j])
			maxB[j] = math.Max(maxB[j], v[j])
		}
	}
	transforms := make([]baryTransform, len(tri.simplices))
	for i := range tri.simplices {
		transforms[i] = newBaryTransform(tri, i)
	}
	return &SimplexSearcher{
		tri:        tri,
		transforms: transforms,
		minBounds:  minB,
		maxBounds:  maxB,
		eps:        machEps,
		startHint:  None,
		lifted:     make([]float64, dim+1),
	}
}

// SimplexSearcher returns a fresh searcher for the triangulation.
func (d *Delaunay) SimplexSearcher() *SimplexSearcher {
	return NewSimplexSearcher(d)
}

// Bruteforce reports whether every search scans all simplices instead of
// using bruteforce only as a fallback. Default false.
func (s *SimplexSearcher) Bruteforce() bool { return s.bruteforce }

// SetBruteforce sets whether every search scans all simplices.
func (s *SimplexSearcher) SetBruteforce(b bool) *SimplexSearcher {
	s.bruteforce = b
	return s
}

// Eps returns the containment tolerance: a point is inside a simplex
// when all its barycentric coordinates lie in [-eps, 1+eps]. Default is
// the machine epsilon.
func (s *SimplexSearcher) Eps() float64 { return s.eps }

// SetEps sets the containment tolerance.
func (s *SimplexSearcher) SetEps(eps float64) *SimplexSearcher {
	s.eps = eps
	return s
}

// ClearStartHint forgets where the previous search ended.
func (s *SimplexSearcher) ClearStartHint() *SimplexSearcher {
	s.startHint = None
	return s
}

// FindSimplex locates a simplex containing point. The second return
// value holds the point's dim+1 barycentric coordinates in it.
func (s *SimplexSearcher) FindSimplex(point Point) (Simplex, []float64, bool) {
	bcoords := make([]float64, s.tri.dim+1)
	simplex, ok := s.FindSimplexInto(point, bcoords)
	return simplex, bcoords, ok
}

// FindSimplexInto is FindSimplex writing the barycentric coordinates
// into bcoords, which must have length dim+1. When the search fails the
// contents of bcoords are unspecified.
func (s *SimplexSearcher) FindSimplexInto(point Point, bcoords []float64) (Simplex, bool) {
	if s.bruteforce {
		return s.findBruteforce(point, bcoords)
	}

	cur := s.startHint
	if cur == None {
		cur = 1
	}
	if cur >= len(s.tri.simplices) {
		cur = len(s.tri.simplices) - 1
	}

	// Directed descent: walk toward the neighbor whose lifted facet
	// plane is closest to the lifted query point.
	s.tri.liftPoint(point, s.lifted)
	best := s.tri.planeDist(cur, s.lifted)
	changed := true
	for changed && best <= 0 {
		changed = false
		for _, ni := range s.tri.neighbors[cur] {
			if ni == None {
				continue
			}
			if d := s.tri.planeDist(ni, s.lifted); d > best+s.eps*(1+math.Abs(best)) {
				cur = ni
				best = d
				changed = true
			}
		}
	}

	return s.findDirected(point, cur, bcoords)
}

// findDirected walks from start by jumping through the face opposite the
// first negative barycentric coordinate.
func (s *SimplexSearcher) findDirected(point Point, start int, bcoords []float64) (Simplex, bool) {
	dim := s.tri.dim
	cur := start
outer:
	for cycle := 0; cycle < (len(s.tri.simplices)+3)/4+1; cycle++ {
		tr := &s.transforms[cur]
		if tr.degenerate() {
			break
		}
		tr.solve(dim, point, bcoords)
		inside := true
		for k := 0; k <= dim; k++ {
			if bcoords[k] < -s.eps {
				ni := s.tri.neighbors[cur][k]
				if ni == None {
					// The point lies outside the triangulation.
					s.startHint = cur
					return Simplex{}, false
				}
				cur = ni
				continue outer
			} else if !(bcoords[k] <= 1+s.eps) {
				inside = false
			}
		}
		if inside {
			s.startHint = cur
			return Simplex{tri: s.tri, idx: cur}, true
		}
		// No negative coordinate yet not inside: a degenerate simplex is
		// in the way somewhere.
		break
	}
	return s.findBruteforce(point, bcoords)
}

// findBruteforce scans every simplex in index order. Degenerate
// simplices are handled through their non-degenerate neighbors with a
// loosened tolerance on the coordinate of the shared face.
func (s *SimplexSearcher) findBruteforce(point Point, bcoords []float64) (Simplex, bool) {
	dim := s.tri.dim
	for j := 0; j < dim; j++ {
		if point[j] > s.maxBounds[j]+s.eps || point[j] < s.minBounds[j]-s.eps {
			return Simplex{}, false
		}
	}

	epsBroad := math.Sqrt(s.eps)
	for i := range s.tri.simplices {
		tr := &s.transforms[i]
		if !tr.degenerate() {
			tr.solve(dim, point, bcoords)
			if s.allInside(bcoords, s.eps, -1, 0) {
				s.startHint = i
				return Simplex{tri: s.tri, idx: i}, true
			}
			continue
		}
		for _, ni := range s.tri.neighbors[i] {
			if ni == None || s.transforms[ni].degenerate() {
				continue
			}
			shared := -1
			for k, nn := range s.tri.neighbors[ni] {
				if nn == i {
					shared = k
					break
				}
			}
			s.transforms[ni].solve(dim, point, bcoords)
			if s.allInside(bcoords, s.eps, shared, epsBroad) {
				s.startHint = ni
				return Simplex{tri: s.tri, idx: ni}, true
			}
		}
	}
	return Simplex{}, false
}

// allInside reports whether every coordinate lies in [-eps, 1+eps],
// except index loose which may reach down to -looseEps.
func (s *SimplexSearcher) allInside(bcoords []float64, eps float64, loose int, looseEps float64) bool {
	for k, c := range bcoords {
		lo := -eps
		if k == loose {
			lo = -looseEps
		}
		if c < lo || c > 1+eps {
			return false
		}
	}
	return true
}

// BarycentricCoords computes the barycentric coordinates of point in the
// given simplex, without searching.
func (s *SimplexSearcher) BarycentricCoords(simplex Simplex, point Point) []float64 {
	bcoords := make([]float64, s.tri.dim+1)
	s.transforms[simplex.idx].solve(s.tri.dim, point, bcoords)
	return bcoords
}

// baryTransform holds the inverse of the matrix T whose columns are
// v_i - v_d for the simplex vertices v_0..v_d. A NaN in the first cell
// marks a simplex whose T could not be inverted.
type baryTransform struct {
	tinv []float64 // dim x dim, row-major
	ref  []float64 // v_d
}

func newBaryTransform(tri *Delaunay, simplex int) baryTransform {
	dim := tri.dim
	verts := tri.simplices[simplex]
	ref := tri.vertices[verts[dim]]

	t := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			t.Set(i, j, tri.vertices[verts[j]][i]-ref[i])
		}
	}
	tinv := make([]float64, dim*dim)
	var inv mat.Dense
	if err := inv.Inverse(t); err != nil {
		cond, ill := err.(mat.Condition)
		if !ill || math.IsInf(float64(cond), 0) {
			tinv[0] = math.NaN()
			return baryTransform{tinv: tinv, ref: ref}
		}
		// Ill-conditioned but still usable.
	}
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			tinv[i*dim+j] = inv.At(i, j)
		}
	}
	return baryTransform{tinv: tinv, ref: ref}
}

func (t *baryTransform) degenerate() bool { return math.IsNaN(t.tinv[0]) }

// solve writes the dim+1 barycentric coordinates of point into out;
// coordinate k belongs to vertex k of the simplex, the last one being
// 1 minus the rest.
func (t *baryTransform) solve(dim int, point Point, out []float64) {
	out[dim] = 1
	for i := 0; i < dim; i++ {
		sum := 0.0
		for j := 0; j < dim; j++ {
			sum += t.tinv[i*dim+j] * (point[j] - t.ref[j])
		}
		out[i] = sum
		out[dim] -= sum
	}
}
