package recolor

import (
	"image"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/aprilwade/image-palette-recoloring/hull"
)

// DefaultErrorBound is a conservative default for the per-pixel average
// error allowed during palette simplification.
const DefaultErrorBound = 2.0 / 255.0

// ComputePalette computes a decomposition palette for an image.
//
// The pixels are treated as 3D points and their convex hull is
// iteratively simplified by collapsing edges, until either minSize
// vertices remain or the average pixel error exceeds errorBound. Each
// collapse strictly grows the hull, so every pixel stays representable;
// the only source of error is vertices pushed outside the unit cube,
// which must be clamped. The error estimate measures the distance from
// out-of-hull pixels to the clamped hull and is therefore an
// approximation of the final reconstruction error, not an exact
// prediction; pick a conservative errorBound (or start from 0) when
// fidelity matters.
//
// Because the simplification works on 3D polytopes, the smallest
// possible palette is the 4 vertices of a tetrahedron; minSize is
// clamped up to 4. The error check only runs once the hull has at most
// maxSize vertices, since it is costly.
func ComputePalette(img image.Image, minSize, maxSize int, errorBound float64) ([]RGB, error) {
	nrgba, err := toNRGBA(img)
	if err != nil {
		return nil, err
	}
	if minSize < 4 {
		minSize = 4
	}

	w, h := nrgba.Rect.Dx(), nrgba.Rect.Dy()
	pts := make([]hull.Point, 0, w*h)
	counts := make(map[RGB]float64)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := pixelRGB(nrgba, x, y)
			pts = append(pts, hull.Point{
				float64(r) / 255.0,
				float64(g) / 255.0,
				float64(b) / 255.0,
			})
			counts[RGB{r, g, b}]++
		}
	}

	ch, err := hull.New(3, pts)
	if err != nil {
		return nil, err
	}

	type weightedPixel struct {
		point vec3
		count float64
	}
	pixelCounts := make([]weightedPixel, 0, len(counts))
	for c, n := range counts {
		pixelCounts = append(pixelCounts, weightedPixel{
			point: vec3{
				float64(c.R) / 255.0,
				float64(c.G) / 255.0,
				float64(c.B) / 255.0,
			},
			count: n,
		})
	}
	totalCount := float64(w * h)

	pixelError := func(cand *hull.ConvexHull) (float64, error) {
		clamped := make([]hull.Point, cand.NumVertices())
		unclamped := make([]hull.Point, cand.NumVertices())
		for i, v := range cand.Vertices() {
			p := v.Point()
			unclamped[i] = p
			clamped[i] = hull.Point{clamp01(p[0]), clamp01(p[1]), clamp01(p[2])}
		}
		clampedCH, err := hull.New(3, clamped)
		if err != nil {
			return 0, err
		}
		tri, err := hull.NewDelaunay(3, unclamped)
		if err != nil {
			return 0, err
		}
		searcher := tri.SimplexSearcher()
		bcoords := make([]float64, 4)

		type triangle struct{ v0, v1, v2 vec3 }
		facets := make([]triangle, clampedCH.NumFacets())
		for i, f := range clampedCH.Facets() {
			vs := f.Vertices()
			facets[i] = triangle{
				pointToVec3(vs[0].Point()),
				pointToVec3(vs[1].Point()),
				pointToVec3(vs[2].Point()),
			}
		}

		sum := 0.0
		for _, wp := range pixelCounts {
			p := hull.Point{wp.point.X, wp.point.Y, wp.point.Z}
			if _, ok := searcher.FindSimplexInto(p, bcoords); ok {
				// Inside the hull; contributes no error.
				continue
			}
			minDist := math.Inf(1)
			for _, t := range facets {
				if d := triangleDistSqr(wp.point, t.v0, t.v1, t.v2); d < minDist {
					minDist = d
				}
			}
			sum += minDist * wp.count
		}
		// Pixels inside the hull pull the average toward zero.
		return math.Sqrt(sum / totalCount), nil
	}

	previous := ch.NumVertices()
	for ch.NumVertices() > minSize {
		newPoint, removed, ok := locateEdgeToCollapse(ch)
		if !ok {
			// No edge admits a containing replacement point.
			break
		}
		candPts := make([]hull.Point, 0, ch.NumVertices()-1)
		for _, v := range ch.Vertices() {
			if v.Index() == removed[0] || v.Index() == removed[1] {
				continue
			}
			candPts = append(candPts, v.Point())
		}
		candPts = append(candPts, newPoint)
		cand, err := hull.New(3, candPts)
		if err != nil {
			break
		}

		if ch.NumVertices() <= maxSize {
			e, err := pixelError(cand)
			if err != nil {
				break
			}
			if e > errorBound {
				// The previous hull is the last one inside the bound.
				break
			}
		}
		ch = cand

		vcount := ch.NumVertices()
		if vcount == previous {
			// The re-hull did not actually shrink; bail out.
			break
		}
		previous = vcount
	}

	palette := make([]RGB, ch.NumVertices())
	for i, v := range ch.Vertices() {
		p := v.Point()
		palette[i] = RGB{
			uint8(math.Round(clamp01(p[0]) * 255)),
			uint8(math.Round(clamp01(p[1]) * 255)),
			uint8(math.Round(clamp01(p[2]) * 255)),
		}
	}
	return palette, nil
}

// locateEdgeToCollapse examines every edge of the hull and, for each,
// solves a small LP for a replacement point that keeps the hull of all
// facets incident to either endpoint on its inside, so the collapse can
// only grow the hull. Among the edges whose LP succeeds, the one whose
// replacement adds the least tetrahedral volume wins. Reports false when
// no edge has a solvable LP.
func locateEdgeToCollapse(ch *hull.ConvexHull) (hull.Point, [2]int, bool) {
	facetsForVertex := make(map[int][]int)
	edgeSet := make(map[[2]int]struct{})
	for _, f := range ch.Facets() {
		vs := f.Vertices()
		a, b, c := vs[0].Index(), vs[1].Index(), vs[2].Index()
		facetsForVertex[a] = append(facetsForVertex[a], f.Index())
		facetsForVertex[b] = append(facetsForVertex[b], f.Index())
		facetsForVertex[c] = append(facetsForVertex[c], f.Index())
		for _, e := range [][2]int{{a, b}, {b, c}, {c, a}} {
			if e[0] > e[1] {
				e[0], e[1] = e[1], e[0]
			}
			edgeSet[e] = struct{}{}
		}
	}
	edges := make([][2]int, 0, len(edgeSet))
	for e := range edgeSet {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})

	var (
		bestPoint hull.Point
		bestEdge  [2]int
		bestVol   = math.Inf(1)
		found     bool
	)
	for _, e := range edges {
		faces := append([]int(nil), facetsForVertex[e[0]]...)
		faces = append(faces, facetsForVertex[e[1]]...)
		sort.Ints(faces)
		faces = dedupInts(faces)

		p, ok := solveCollapseLP(ch, faces)
		if !ok {
			// The LP solver failed; this edge is not a collapse
			// candidate.
			continue
		}
		vol := 0.0
		apex := pointToVec3(p)
		for _, fi := range faces {
			vs := ch.Facet(fi).Vertices()
			vol += tetrahedronVolume(
				pointToVec3(vs[0].Point()),
				pointToVec3(vs[1].Point()),
				pointToVec3(vs[2].Point()),
				apex,
			)
		}
		if vol < bestVol {
			bestPoint, bestEdge, bestVol = p, e, vol
			found = true
		}
	}
	return bestPoint, bestEdge, found
}

// solveCollapseLP minimizes (Σ n_f)·p subject to p lying on or beyond
// the plane of every incident facet (n_f·p >= n_f·p0_f), so the old
// facets stay inside the new hull. The objective is a first-order proxy
// for the volume added by the collapse; the caller then compares edges
// by the true added volume.
func solveCollapseLP(ch *hull.ConvexHull, faces []int) (hull.Point, bool) {
	m := len(faces)
	g := mat.NewDense(m, 3, nil)
	h := make([]float64, m)
	c := make([]float64, 3)
	for i, fi := range faces {
		vs := ch.Facet(fi).Vertices()
		p0 := pointToVec3(vs[0].Point())
		p1 := pointToVec3(vs[1].Point())
		p2 := pointToVec3(vs[2].Point())

		// The facet vertex order is consistent with the outward normal,
		// so the cross product points outward.
		n := p1.sub(p0).cross(p2.sub(p0))
		norm := math.Sqrt(n.dot(n))
		if norm == 0 {
			return nil, false
		}
		n = n.scale(1 / norm)

		g.Set(i, 0, -n.X)
		g.Set(i, 1, -n.Y)
		g.Set(i, 2, -n.Z)
		h[i] = -n.dot(p0)
		c[0] += n.X
		c[1] += n.Y
		c[2] += n.Z
	}

	cNew, aNew, bNew := lp.Convert(c, g, h, nil, nil)
	_, xStd, err := lp.Simplex(cNew, aNew, bNew, 1e-10, nil)
	if err != nil {
		return nil, false
	}
	// Convert splits the free variables into positive and negative
	// parts: x = x⁺ - x⁻.
	return hull.Point{
		xStd[0] - xStd[3],
		xStd[1] - xStd[4],
		xStd[2] - xStd[5],
	}, true
}

func tetrahedronVolume(a, b, c, d vec3) float64 {
	return math.Abs(a.sub(d).dot(b.sub(d).cross(c.sub(d)))) / 6
}

func pointToVec3(p hull.Point) vec3 {
	return vec3{p[0], p[1], p[2]}
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func dedupInts(s []int) []int {
	out := s[:0]
	for i, v := range s {
		if i == 0 || v != s[i-1] {
			out = append(out, v)
		}
	}
	return out
}
