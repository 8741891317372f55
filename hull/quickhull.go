package hull

import (
	"errors"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// machEps is the double precision machine epsilon.
var machEps = math.Nextafter(1, 2) - 1

// errDegenerate reports that a point set does not span the full dimension
// (or that round-off collapsed part of the hull). Callers retry with a
// joggled copy of the input before giving up.
var errDegenerate = errors.New("hull: degenerate point set")

// engineFacet is a simplicial facet under construction. Neighbor k sits
// opposite vertex k; the searcher and the facade both depend on that
// alignment.
type engineFacet struct {
	verts   []int
	nbrs    []int
	normal  []float64
	offset  float64
	outside []int
	dead    bool
	visit   int
}

// hullData is the engine's output: the coordinates it worked on (joggled
// when the input was degenerate) and the live facets with aligned
// neighbor tables.
type hullData struct {
	dim    int
	points [][]float64
	facets []*engineFacet
}

func (h *hullData) signedDist(f *engineFacet, p []float64) float64 {
	return floats.Dot(f.normal, p) + f.offset
}

// pointTolerance is the width below which a point is considered to lie on
// a facet plane. Coplanar points are merged into the facet instead of
// becoming hull vertices.
func pointTolerance(dim int, pts [][]float64) float64 {
	maxAbs := 0.0
	for _, p := range pts {
		for _, c := range p {
			if a := math.Abs(c); a > maxAbs {
				maxAbs = a
			}
		}
	}
	tol := maxAbs * float64(dim) * machEps * 16
	if tol < machEps {
		tol = machEps
	}
	return tol
}

// quickhull computes the convex hull of pts in the given dimension.
// Returns errDegenerate when the points do not span the dimension.
func quickhull(dim int, pts [][]float64) (*hullData, error) {
	if dim < 2 {
		return nil, errDegenerate
	}
	if len(pts) < dim+1 {
		return nil, errDegenerate
	}
	tol := pointTolerance(dim, pts)

	initial, err := initialSimplex(dim, pts, tol)
	if err != nil {
		return nil, err
	}

	interior := make([]float64, dim)
	for _, vi := range initial {
		floats.Add(interior, pts[vi])
	}
	floats.Scale(1/float64(len(initial)), interior)

	h := &hullData{dim: dim, points: pts}

	// The d+1 facets of the initial simplex. Facet i omits initial[i];
	// its neighbor opposite vertex initial[j] is facet j.
	for i := 0; i <= dim; i++ {
		verts := make([]int, 0, dim)
		nbrs := make([]int, 0, dim)
		for j := 0; j <= dim; j++ {
			if j == i {
				continue
			}
			verts = append(verts, initial[j])
			nbrs = append(nbrs, j)
		}
		normal, offset, ok := hyperplane(dim, pts, verts, interior)
		if !ok {
			return nil, errDegenerate
		}
		h.facets = append(h.facets, &engineFacet{
			verts:  verts,
			nbrs:   nbrs,
			normal: normal,
			offset: offset,
		})
	}

	isInitial := make(map[int]bool, dim+1)
	for _, vi := range initial {
		isInitial[vi] = true
	}
	for pi := range pts {
		if isInitial[pi] {
			continue
		}
		for _, f := range h.facets {
			if h.signedDist(f, pts[pi]) > tol {
				f.outside = append(f.outside, pi)
				break
			}
		}
	}

	if err := h.expand(tol, interior); err != nil {
		return nil, err
	}
	if err := h.compact(); err != nil {
		return nil, err
	}
	return h, nil
}

// initialSimplex picks d+1 affinely independent points, starting from the
// farthest pair of axis extremes and greedily maximizing the distance to
// the affine hull of the points chosen so far.
func initialSimplex(dim int, pts [][]float64, tol float64) ([]int, error) {
	extremes := make(map[int]bool)
	for j := 0; j < dim; j++ {
		minI, maxI := 0, 0
		for i, p := range pts {
			if p[j] < pts[minI][j] {
				minI = i
			}
			if p[j] > pts[maxI][j] {
				maxI = i
			}
		}
		extremes[minI] = true
		extremes[maxI] = true
	}
	cand := make([]int, 0, len(extremes))
	for i := range extremes {
		cand = append(cand, i)
	}

	bestA, bestB, bestD := -1, -1, -1.0
	for x := 0; x < len(cand); x++ {
		for y := x + 1; y < len(cand); y++ {
			d := floats.Distance(pts[cand[x]], pts[cand[y]], 2)
			if d > bestD {
				bestA, bestB, bestD = cand[x], cand[y], d
			}
		}
	}
	if bestD <= tol {
		return nil, errDegenerate
	}

	chosen := []int{bestA, bestB}
	// Orthonormal basis of the directions spanned so far.
	basis := make([][]float64, 0, dim)
	first := make([]float64, dim)
	floats.SubTo(first, pts[bestB], pts[bestA])
	floats.Scale(1/floats.Norm(first, 2), first)
	basis = append(basis, first)

	resid := make([]float64, dim)
	for len(chosen) < dim+1 {
		bestI, bestR := -1, tol
		var bestResid []float64
		for i, p := range pts {
			floats.SubTo(resid, p, pts[bestA])
			for _, b := range basis {
				floats.AddScaled(resid, -floats.Dot(resid, b), b)
			}
			if r := floats.Norm(resid, 2); r > bestR {
				bestI, bestR = i, r
				bestResid = append(bestResid[:0], resid...)
			}
		}
		if bestI < 0 {
			return nil, errDegenerate
		}
		chosen = append(chosen, bestI)
		floats.Scale(1/bestR, bestResid)
		basis = append(basis, bestResid)
	}
	return chosen, nil
}

// expand runs the quickhull refinement loop: pick a facet with outside
// points, lift its furthest point to a vertex, replace the visible cone.
func (h *hullData) expand(tol float64, interior []float64) error {
	visit := 0
	for {
		var fi = -1
		for i, f := range h.facets {
			if !f.dead && len(f.outside) > 0 {
				fi = i
				break
			}
		}
		if fi < 0 {
			return nil
		}
		f := h.facets[fi]

		apex, apexD := -1, -1.0
		for _, pi := range f.outside {
			if d := h.signedDist(f, h.points[pi]); d > apexD {
				apex, apexD = pi, d
			}
		}
		if apex < 0 || apexD <= tol {
			f.outside = nil
			continue
		}
		p := h.points[apex]

		// Visible set via BFS over neighbors.
		visit++
		visible := []int{fi}
		f.visit = visit
		for qi := 0; qi < len(visible); qi++ {
			vf := h.facets[visible[qi]]
			for _, ni := range vf.nbrs {
				nf := h.facets[ni]
				if nf.visit == visit || nf.dead {
					continue
				}
				nf.visit = visit
				if h.signedDist(nf, p) > tol {
					visible = append(visible, ni)
				}
			}
		}
		inVisible := make(map[int]bool, len(visible))
		for _, vi := range visible {
			inVisible[vi] = true
		}

		// Horizon ridges and the cone of new facets.
		type subRidgeRef struct {
			facet int
			pos   int
		}
		subRidges := make(map[string]subRidgeRef)
		var created []int
		for _, vi := range visible {
			vf := h.facets[vi]
			for k, ni := range vf.nbrs {
				if inVisible[ni] {
					continue
				}
				ridge := make([]int, 0, h.dim-1)
				for kk, v := range vf.verts {
					if kk != k {
						ridge = append(ridge, v)
					}
				}
				verts := append(append(make([]int, 0, h.dim), ridge...), apex)
				normal, offset, ok := hyperplane(h.dim, h.points, verts, interior)
				if !ok {
					return errDegenerate
				}
				nfIdx := len(h.facets)
				nf := &engineFacet{
					verts:  verts,
					nbrs:   make([]int, h.dim),
					normal: normal,
					offset: offset,
				}
				nf.nbrs[h.dim-1] = ni
				h.facets = append(h.facets, nf)
				created = append(created, nfIdx)

				// Point the non-visible neighbor back at the new facet.
				old := h.facets[ni]
				for j, nn := range old.nbrs {
					if nn == vi {
						old.nbrs[j] = nfIdx
						break
					}
				}

				// Link cone facets that share a sub-ridge (apex implied).
				for r := 0; r < h.dim-1; r++ {
					key := ridgeKey(ridge, r)
					if other, seen := subRidges[key]; seen {
						nf.nbrs[r] = other.facet
						h.facets[other.facet].nbrs[other.pos] = nfIdx
						delete(subRidges, key)
					} else {
						subRidges[key] = subRidgeRef{facet: nfIdx, pos: r}
					}
				}
			}
		}
		if len(subRidges) != 0 {
			return errDegenerate
		}

		// Re-home the outside points of the dead cone.
		for _, vi := range visible {
			vf := h.facets[vi]
			for _, pi := range vf.outside {
				if pi == apex {
					continue
				}
				for _, ci := range created {
					if h.signedDist(h.facets[ci], h.points[pi]) > tol {
						h.facets[ci].outside = append(h.facets[ci].outside, pi)
						break
					}
				}
			}
			vf.dead = true
			vf.outside = nil
		}
	}
}

// ridgeKey identifies the sub-ridge of ridge with element r removed.
func ridgeKey(ridge []int, r int) string {
	sub := make([]int, 0, len(ridge)-1)
	for i, v := range ridge {
		if i != r {
			sub = append(sub, v)
		}
	}
	for i := 1; i < len(sub); i++ {
		for j := i; j > 0 && sub[j] < sub[j-1]; j-- {
			sub[j], sub[j-1] = sub[j-1], sub[j]
		}
	}
	buf := make([]byte, 0, 8*len(sub))
	for _, v := range sub {
		for v >= 0x80 {
			buf = append(buf, byte(v)|0x80)
			v >>= 7
		}
		buf = append(buf, byte(v))
	}
	return string(buf)
}

// compact drops dead facets and rebuilds the neighbor tables from the
// ridge structure so that neighbor k is opposite vertex k.
func (h *hullData) compact() error {
	alive := make([]*engineFacet, 0, len(h.facets))
	for _, f := range h.facets {
		if !f.dead {
			f.outside = nil
			alive = append(alive, f)
		}
	}
	h.facets = alive

	type ridgeRef struct {
		facet int
		pos   int
	}
	ridges := make(map[string][]ridgeRef, len(alive)*h.dim/2)
	for fi, f := range alive {
		for k := range f.verts {
			key := ridgeKey(f.verts, k)
			ridges[key] = append(ridges[key], ridgeRef{facet: fi, pos: k})
		}
	}
	for _, refs := range ridges {
		if len(refs) != 2 {
			return errDegenerate
		}
		a, b := refs[0], refs[1]
		alive[a.facet].nbrs[a.pos] = b.facet
		alive[b.facet].nbrs[b.pos] = a.facet
	}
	return nil
}

// hyperplane computes the unit outward normal and offset of the facet
// spanned by vs, oriented away from the interior point. The normal is the
// generalized cross product of the facet's edge vectors, with components
// given by cofactor determinants.
func hyperplane(dim int, pts [][]float64, vs []int, interior []float64) (normal []float64, offset float64, ok bool) {
	p0 := pts[vs[0]]
	rows := dim - 1
	m := mat.NewDense(rows, dim, nil)
	for i := 1; i < dim; i++ {
		for j := 0; j < dim; j++ {
			m.Set(i-1, j, pts[vs[i]][j]-p0[j])
		}
	}
	normal = make([]float64, dim)
	sub := mat.NewDense(rows, rows, nil)
	sign := 1.0
	for j := 0; j < dim; j++ {
		cc := 0
		for c := 0; c < dim; c++ {
			if c == j {
				continue
			}
			for r := 0; r < rows; r++ {
				sub.Set(r, cc, m.At(r, c))
			}
			cc++
		}
		normal[j] = sign * mat.Det(sub)
		sign = -sign
	}
	n := floats.Norm(normal, 2)
	if n == 0 || math.IsNaN(n) {
		return nil, 0, false
	}
	floats.Scale(1/n, normal)
	offset = -floats.Dot(normal, p0)
	if floats.Dot(normal, interior)+offset > 0 {
		floats.Scale(-1, normal)
		offset = -offset
	}
	return normal, offset, true
}

// joggled returns a copy of pts with every coordinate perturbed by a
// deterministic pseudo-random offset of magnitude mag relative to the
// widest coordinate span. Used to put degenerate inputs into general
// position; the perturbed coordinates are what the hull reports, the way
// a joggling hull library would.
func joggled(pts [][]float64, mag float64) [][]float64 {
	if len(pts) == 0 {
		return nil
	}
	dim := len(pts[0])
	width := 0.0
	for j := 0; j < dim; j++ {
		lo, hi := pts[0][j], pts[0][j]
		for _, p := range pts {
			lo = math.Min(lo, p[j])
			hi = math.Max(hi, p[j])
		}
		width = math.Max(width, hi-lo)
	}
	if width == 0 {
		width = 1
	}
	rng := rand.New(rand.NewSource(1))
	out := make([][]float64, len(pts))
	for i, p := range pts {
		q := make([]float64, dim)
		for j, c := range p {
			q[j] = c + mag*width*(rng.Float64()-0.5)
		}
		out[i] = q
	}
	return out
}

// hullFacets builds the hull of pts, falling back to progressively larger
// joggles when the input is degenerate. The returned data reports the
// coordinates actually used, so callers see joggled points whenever the
// fallback fired.
func hullFacets(dim int, pts [][]float64) (*hullData, error) {
	h, err := quickhull(dim, pts)
	if err == nil {
		return h, nil
	}
	if !errors.Is(err, errDegenerate) {
		return nil, err
	}
	for _, mag := range []float64{1e-9, 1e-7, 1e-5} {
		jpts := joggled(pts, mag)
		if h, err = quickhull(dim, jpts); err == nil {
			return h, nil
		}
	}
	return nil, err
}
