package hull

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// None marks the absence of a neighboring simplex, i.e. the face in
// question lies on the boundary of the triangulation.
const None = -1

// The engine applies no rescaling to the lifted paraboloid coordinate;
// these are the identity parameters a rescaling hull library would
// report for it.
const (
	lastLow     = 0.0
	lastHigh    = 1.0
	lastNewHigh = 1.0
)

// Delaunay is a d-dimensional Delaunay triangulation, computed by lifting
// the sites onto a paraboloid in d+1 dimensions and keeping the lower
// hull. Upper-Delaunay facets (artifacts of the lift) are filtered out,
// along with any site used only by them.
type Delaunay struct {
	dim       int
	vertices  []Point // d-dimensional site coordinates
	simplices [][]int // d+1 vertex indices each
	neighbors [][]int // neighbor k opposite vertex k; None on the boundary
	normals   []Point // lifted (d+1)-dimensional facet normals
	offsets   []float64

	paraboloidScale float64
	paraboloidShift float64
}

// NewDelaunay triangulates the given d-dimensional sites.
func NewDelaunay(dim int, points []Point) (*Delaunay, error) {
	if len(points) < dim+1 {
		return nil, fmt.Errorf("%w: %d sites cannot span %d dims", ErrHullConstruction, len(points), dim)
	}

	scale := lastNewHigh/lastHigh - lastLow
	shift := lastLow * scale
	d := &Delaunay{dim: dim, paraboloidScale: scale, paraboloidShift: shift}

	if len(points) == dim+1 {
		if d.buildSingleSimplex(points) {
			return d, nil
		}
		// Degenerate site set. The hull path below cannot span the
		// lifted dimension with d+1 sites, joggled or not, so it reports
		// ErrHullConstruction.
	}

	pts := make([][]float64, len(points))
	for i, p := range points {
		pts[i] = p
	}

	report := pts
	data, err := quickhull(dim+1, d.liftAll(pts, false))
	if errors.Is(err, errDegenerate) {
		// Cospherical sites make the lifted set flat. First perturb only
		// the derived paraboloid coordinate, which keeps the reported
		// site coordinates exact; joggle the sites themselves only when
		// they are degenerate in the base dimension too.
		data, err = quickhull(dim+1, d.liftAll(pts, true))
		for _, mag := range []float64{1e-9, 1e-7, 1e-5} {
			if err == nil {
				break
			}
			jpts := joggled(pts, mag)
			if data, err = quickhull(dim+1, d.liftAll(jpts, true)); err == nil {
				report = jpts
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: delaunay of %d sites in %d dims", ErrHullConstruction, len(points), dim)
	}

	// Keep lower-hull facets only, and only the sites they reference.
	keptIdx := make([]int, len(data.facets))
	vertexID := make(map[int]int)
	for fi, f := range data.facets {
		if f.normal[dim] >= 0 {
			keptIdx[fi] = None
			continue
		}
		keptIdx[fi] = len(d.simplices)
		verts := make([]int, dim+1)
		for k, vi := range f.verts {
			id, seen := vertexID[vi]
			if !seen {
				id = len(d.vertices)
				vertexID[vi] = id
				p := make(Point, dim)
				copy(p, report[vi])
				d.vertices = append(d.vertices, p)
			}
			verts[k] = id
		}
		d.simplices = append(d.simplices, verts)
		normal := make(Point, dim+1)
		copy(normal, f.normal)
		d.normals = append(d.normals, normal)
		d.offsets = append(d.offsets, f.offset)
	}
	for fi, f := range data.facets {
		if keptIdx[fi] == None {
			continue
		}
		nbrs := make([]int, dim+1)
		for k, ni := range f.nbrs {
			nbrs[k] = keptIdx[ni]
		}
		d.neighbors = append(d.neighbors, nbrs)
	}
	return d, nil
}

// buildSingleSimplex handles the minimal d+1 site case, which the lifted
// hull cannot express (d+1 points never span d+1 dimensions). Reports
// whether the sites were independent enough to form the simplex.
func (d *Delaunay) buildSingleSimplex(points []Point) bool {
	dim := d.dim
	t := mat.NewDense(dim, dim, nil)
	for i := 1; i <= dim; i++ {
		for j := 0; j < dim; j++ {
			t.Set(i-1, j, points[i][j]-points[0][j])
		}
	}
	det := mat.Det(t)
	if det == 0 || math.IsNaN(det) {
		return false
	}

	lifted := make([][]float64, dim+1)
	interior := make([]float64, dim+1)
	for i, p := range points {
		q := make(Point, dim)
		copy(q, p)
		d.vertices = append(d.vertices, q)
		lifted[i] = d.liftPoint(p, make([]float64, dim+1))
		for j, c := range lifted[i] {
			interior[j] += c
		}
	}
	for j := range interior {
		interior[j] /= float64(dim + 1)
	}
	// Orient the facet plane downward, as a lower-hull facet.
	interior[dim] += 1

	vs := make([]int, dim+1)
	nbrs := make([]int, dim+1)
	for i := range vs {
		vs[i] = i
		nbrs[i] = None
	}
	normal, offset, ok := hyperplane(dim+1, lifted, vs, interior)
	if !ok {
		d.vertices = nil
		return false
	}
	d.simplices = [][]int{vs}
	d.neighbors = [][]int{nbrs}
	d.normals = []Point{normal}
	d.offsets = []float64{offset}
	return true
}

// liftAll lifts every site onto the paraboloid. With zjoggle set, the
// lifted coordinate of site i is additionally lowered by an amount that
// grows quadratically with i — a deterministic symbolic perturbation that
// resolves cospherical ties toward the earlier sites without touching the
// site coordinates themselves.
func (d *Delaunay) liftAll(pts [][]float64, zjoggle bool) [][]float64 {
	lifted := make([][]float64, len(pts))
	zlo, zhi := 0.0, 0.0
	for i, p := range pts {
		lifted[i] = d.liftPoint(p, make([]float64, d.dim+1))
		z := lifted[i][d.dim]
		if i == 0 || z < zlo {
			zlo = z
		}
		if i == 0 || z > zhi {
			zhi = z
		}
	}
	if zjoggle {
		span := zhi - zlo
		if span == 0 {
			span = 1
		}
		n := float64(len(pts))
		for i := range lifted {
			f := float64(i+1) / n
			lifted[i][d.dim] -= 1e-9 * span * f * f
		}
	}
	return lifted
}

// liftPoint writes the paraboloid lift of p into dst and returns it.
func (d *Delaunay) liftPoint(p Point, dst []float64) []float64 {
	sum := 0.0
	for j := 0; j < d.dim; j++ {
		dst[j] = p[j]
		sum += p[j] * p[j]
	}
	dst[d.dim] = sum*d.paraboloidScale + d.paraboloidShift
	return dst
}

// planeDist returns the signed distance from a lifted point to the
// simplex's facet plane in the lifted space.
func (d *Delaunay) planeDist(simplex int, lifted []float64) float64 {
	n := d.normals[simplex]
	sum := d.offsets[simplex]
	for j, c := range lifted {
		sum += n[j] * c
	}
	return sum
}

// Dim returns the dimension of the triangulated sites.
func (d *Delaunay) Dim() int { return d.dim }

// NumVertices returns the number of sites used by the triangulation.
func (d *Delaunay) NumVertices() int { return len(d.vertices) }

// NumSimplices returns the number of simplices.
func (d *Delaunay) NumSimplices() int { return len(d.simplices) }

// Site returns a handle to the i-th site.
func (d *Delaunay) Site(i int) Site { return Site{tri: d, idx: i} }

// Sites returns handles to all sites in index order. The index order is
// the column order downstream consumers must use when attaching data to
// sites.
func (d *Delaunay) Sites() []Site {
	ss := make([]Site, len(d.vertices))
	for i := range ss {
		ss[i] = Site{tri: d, idx: i}
	}
	return ss
}

// Simplex returns a handle to the i-th simplex.
func (d *Delaunay) Simplex(i int) Simplex { return Simplex{tri: d, idx: i} }

// Simplices returns handles to all simplices in index order.
func (d *Delaunay) Simplices() []Simplex {
	ss := make([]Simplex, len(d.simplices))
	for i := range ss {
		ss[i] = Simplex{tri: d, idx: i}
	}
	return ss
}

// Site is a cheap, comparable handle to a triangulation site.
type Site struct {
	tri *Delaunay
	idx int
}

// Point returns the d-dimensional coordinates of the site. The returned
// slice is owned by the triangulation and must not be modified.
func (s Site) Point() Point { return s.tri.vertices[s.idx] }

// Index returns the site index inside the triangulation's
// struct-of-arrays.
func (s Site) Index() int { return s.idx }

// Simplex is a cheap, comparable handle to a simplex of the
// triangulation.
type Simplex struct {
	tri *Delaunay
	idx int
}

// Sites returns the d+1 sites of the simplex.
func (s Simplex) Sites() []Site {
	ids := s.tri.simplices[s.idx]
	ss := make([]Site, len(ids))
	for k, vi := range ids {
		ss[k] = Site{tri: s.tri, idx: vi}
	}
	return ss
}

// NeighborIndices returns the indices of the adjacent simplices; entry k
// is opposite site k and None where the adjacent lifted facet was
// upper-Delaunay.
func (s Simplex) NeighborIndices() []int { return s.tri.neighbors[s.idx] }

// Index returns the simplex index inside the triangulation's
// struct-of-arrays.
func (s Simplex) Index() int { return s.idx }
