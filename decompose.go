package recolor

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/aprilwade/image-palette-recoloring/hull"
)

// starCoordTolerance bounds how far outside [0, 1] a barycentric
// coordinate may fall before a vertex is treated as outside its
// tetrahedron.
const starCoordTolerance = 1e-6

// DecomposedImage is an image decomposed into per-pixel weights over a
// palette of colors.
//
// Like ImageWeights, the decomposition is expensive to build and cheap
// to reuse; it is immutable after construction. Reconstructing with the
// decomposition palette itself is a quick fidelity check: a palette that
// cannot closely recreate the original has lost information.
type DecomposedImage struct {
	matrix        *mat.Dense // (W·H) x K, rows sum to 1
	width, height int
}

// NewDecomposedImage decomposes an image into channels over the given
// palette.
//
// The palette needs at least 4 colors, and no color may be redundant:
// every color must appear as a vertex of the palette's 3D convex hull,
// compared in 8-bit integer space. The output of ComputePalette never
// contains redundant colors.
func NewDecomposedImage(weights *ImageWeights, palette []RGB) (*DecomposedImage, error) {
	if len(palette) < 4 {
		return nil, fmt.Errorf("%w: only %d colors were provided", ErrPaletteTooSmall, len(palette))
	}
	// A single-color palette (the solid-color image case) keeps all its
	// duplicates as copies of the one channel; a duplicate among
	// distinct colors is unrecoverable.
	seen := make(map[RGB]bool, len(palette))
	for _, c := range palette {
		seen[c] = true
	}
	singleColor := len(seen) == 1
	if !singleColor && len(seen) != len(palette) {
		return nil, fmt.Errorf("%w: duplicate colors", ErrRedundantPalette)
	}

	palettePts := make([]hull.Point, len(palette))
	for i, c := range palette {
		palettePts[i] = hull.Point{float64(c.R), float64(c.G), float64(c.B)}
	}
	paletteCH, err := hull.New(3, palettePts)
	if err != nil {
		return nil, err
	}

	// Map hull vertices back to palette indices by 8-bit equality, and
	// require the mapping to cover the whole palette.
	vertexToPalette := make([]int, paletteCH.NumVertices())
	covered := make(map[int]bool, len(palette))
	for i, v := range paletteCH.Vertices() {
		c := roundRGB(v.Point())
		idx := -1
		for j, pc := range palette {
			if pc == c {
				idx = j
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("%w: hull vertex %02x%02x%02x is not a palette color", ErrRedundantPalette, c.R, c.G, c.B)
		}
		vertexToPalette[i] = idx
		covered[idx] = true
	}
	if !singleColor && len(covered) != len(palette) {
		return nil, fmt.Errorf("%w: not every color is a vertex of the palette's convex hull", ErrRedundantPalette)
	}

	vp, err := starTriangulationCoordinates(paletteCH, vertexToPalette, len(palette), weights.chRGBVertices)
	if err != nil {
		return nil, err
	}

	rows := weights.width * weights.height
	matrix := mat.NewDense(rows, len(palette), nil)
	weights.weights.DoNonZero(func(i, j int, v float64) {
		for k := 0; k < len(palette); k++ {
			matrix.Set(i, k, matrix.At(i, k)+v*vp.At(j, k))
		}
	})

	return &DecomposedImage{
		matrix: matrix,
		width:  weights.width,
		height: weights.height,
	}, nil
}

// starTriangulationCoordinates expresses every RGBXY hull vertex as
// barycentric coordinates over the palette.
//
// The palette hull is triangulated into tetrahedra that all share a
// "star" vertex — the color closest to black — one tetrahedron per hull
// facet not containing the star. Vertices outside the palette hull are
// projected onto the closest facet first.
func starTriangulationCoordinates(paletteCH *hull.ConvexHull, vertexToPalette []int, paletteSize int, rgbVertices []hull.Point) (*mat.Dense, error) {
	star := 0
	starNorm := floats.Norm(paletteCH.Vertex(0).Point(), 2)
	for _, v := range paletteCH.Vertices()[1:] {
		if n := floats.Norm(v.Point(), 2); n < starNorm {
			star, starNorm = v.Index(), n
		}
	}
	starPoint := paletteCH.Vertex(star).Point()

	type tetrahedron struct {
		inv     [16]float64 // inverse of [s v0 v1 v2; 1 1 1 1]
		indices [4]int      // hull vertex indices
	}
	var tetras []tetrahedron
	for _, f := range paletteCH.Facets() {
		vs := f.Vertices()
		if vs[0].Index() == star || vs[1].Index() == star || vs[2].Index() == star {
			// A tetrahedron over a facet touching the star would be
			// degenerate.
			continue
		}
		m := mat.NewDense(4, 4, nil)
		for r := 0; r < 3; r++ {
			m.Set(r, 0, starPoint[r])
		}
		m.Set(3, 0, 1)
		for c, v := range vs {
			p := v.Point()
			for r := 0; r < 3; r++ {
				m.Set(r, c+1, p[r])
			}
			m.Set(3, c+1, 1)
		}
		var inv mat.Dense
		if err := inv.Inverse(m); err != nil {
			if cond, ill := err.(mat.Condition); !ill || math.IsInf(float64(cond), 0) {
				return nil, fmt.Errorf("%w: star triangulation produced a singular tetrahedron", ErrRedundantPalette)
			}
			// Ill-conditioned but invertible; keep going.
		}
		t := tetrahedron{
			indices: [4]int{star, vs[0].Index(), vs[1].Index(), vs[2].Index()},
		}
		for r := 0; r < 4; r++ {
			for c := 0; c < 4; c++ {
				t.inv[r*4+c] = inv.At(r, c)
			}
		}
		tetras = append(tetras, t)
	}

	type triangle struct {
		v0, v1, v2 vec3
		indices    [3]int
	}
	facets := make([]triangle, paletteCH.NumFacets())
	for i, f := range paletteCH.Facets() {
		vs := f.Vertices()
		facets[i] = triangle{
			v0:      pointToVec3(vs[0].Point()),
			v1:      pointToVec3(vs[1].Point()),
			v2:      pointToVec3(vs[2].Point()),
			indices: [3]int{vs[0].Index(), vs[1].Index(), vs[2].Index()},
		}
	}

	solve := func(t *tetrahedron, p [4]float64) [4]float64 {
		var bc [4]float64
		for r := 0; r < 4; r++ {
			bc[r] = t.inv[r*4]*p[0] + t.inv[r*4+1]*p[1] + t.inv[r*4+2]*p[2] + t.inv[r*4+3]*p[3]
		}
		return bc
	}
	inTolerance := func(bc [4]float64) bool {
		for _, c := range bc {
			if c < -starCoordTolerance || c > 1+starCoordTolerance {
				return false
			}
		}
		return true
	}

	vp := mat.NewDense(len(rgbVertices), paletteSize, nil)
	for row, p := range rgbVertices {
		vec := [4]float64{p[0], p[1], p[2], 1}
		matched := -1
		var bc [4]float64
		for ti := range tetras {
			bc = solve(&tetras[ti], vec)
			if inTolerance(bc) {
				matched = ti
				break
			}
		}
		if matched < 0 {
			// The vertex is outside the palette hull. Project it onto
			// the closest facet and solve in the tetrahedron over that
			// facet.
			pv := pointToVec3(p)
			bestDist := math.Inf(1)
			bestFacet := -1
			var projected vec3
			for fi, t := range facets {
				q := triangleClosestPoint(pv, t.v0, t.v1, t.v2)
				diff := pv.sub(q)
				if d := diff.dot(diff); d < bestDist {
					bestDist, bestFacet, projected = d, fi, q
				}
			}
			want := facets[bestFacet].indices
			for ti := range tetras {
				if containsAll(tetras[ti].indices, want) {
					matched = ti
					break
				}
			}
			if matched < 0 {
				// Cannot happen: the tetrahedron over the closest facet
				// (or over the facet across the shared edge, when the
				// closest facet touches the star) always exists.
				return nil, fmt.Errorf("%w: no tetrahedron covers the closest palette facet", ErrRedundantPalette)
			}
			bc = solve(&tetras[matched], [4]float64{projected.X, projected.Y, projected.Z, 1})
		}
		for k, vi := range tetras[matched].indices {
			col := vertexToPalette[vi]
			vp.Set(row, col, vp.At(row, col)+bc[k])
		}
	}
	return vp, nil
}

// containsAll reports whether every element of want occurs in indices.
func containsAll(indices [4]int, want [3]int) bool {
	for _, w := range want {
		if w != indices[0] && w != indices[1] && w != indices[2] && w != indices[3] {
			return false
		}
	}
	return true
}

func roundRGB(p hull.Point) RGB {
	return RGB{
		uint8(math.Round(clamp(p[0], 0, 255))),
		uint8(math.Round(clamp(p[1], 0, 255))),
		uint8(math.Round(clamp(p[2], 0, 255))),
	}
}

// NumChannels returns the number of colors in the decomposition palette.
func (d *DecomposedImage) NumChannels() int { return d.matrix.RawMatrix().Cols }

// Width returns the width of the original image.
func (d *DecomposedImage) Width() int { return d.width }

// Height returns the height of the original image.
func (d *DecomposedImage) Height() int { return d.height }

// Reconstruct rebuilds a recolored image from a new palette, which must
// have the same size as the decomposition palette. Compared to building
// the weights and the decomposition this is a very cheap operation.
func (d *DecomposedImage) Reconstruct(palette []RGB) (*image.NRGBA, error) {
	k := d.NumChannels()
	if len(palette) != k {
		return nil, fmt.Errorf("%w: decomposition has %d channels, got %d colors", ErrPaletteSizeMismatch, k, len(palette))
	}
	pm := mat.NewDense(k, 3, nil)
	for i, c := range palette {
		pm.Set(i, 0, float64(c.R))
		pm.Set(i, 1, float64(c.G))
		pm.Set(i, 2, float64(c.B))
	}
	var res mat.Dense
	res.Mul(d.matrix, pm)

	img := image.NewNRGBA(image.Rect(0, 0, d.width, d.height))
	for i := 0; i < d.width*d.height; i++ {
		off := i * 4
		img.Pix[off] = uint8(clamp(res.At(i, 0), 0, 255))
		img.Pix[off+1] = uint8(clamp(res.At(i, 1), 0, 255))
		img.Pix[off+2] = uint8(clamp(res.At(i, 2), 0, 255))
		img.Pix[off+3] = 255
	}
	return img, nil
}

// ChannelGrayscale renders the n-th palette channel's weights as a
// grayscale image.
func (d *DecomposedImage) ChannelGrayscale(n int) (*image.Gray, error) {
	if n < 0 || n >= d.NumChannels() {
		return nil, fmt.Errorf("%w: channel %d of %d", ErrChannelOutOfRange, n, d.NumChannels())
	}
	img := image.NewGray(image.Rect(0, 0, d.width, d.height))
	for i := 0; i < d.width*d.height; i++ {
		img.Pix[i] = uint8(clamp(d.matrix.At(i, n)*255, 0, 255))
	}
	return img, nil
}
