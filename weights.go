package recolor

import (
	"image"

	"github.com/james-bowman/sparse"

	"github.com/aprilwade/image-palette-recoloring/hull"
)

// ImageWeights represents an image in terms of the vertices of its 5D
// RGBXY convex hull: every pixel is a barycentric combination of at most
// 6 hull vertices.
//
// Computing the per-vertex weights is costly; keep this value around if
// you plan on creating multiple decompositions of the same image. It is
// immutable after construction and safe to share.
type ImageWeights struct {
	weights       *sparse.CSR
	chRGBVertices []hull.Point // RGB in [0, 255], in Delaunay vertex order
	width, height int
}

// NewImageWeights computes the per-vertex weights of img.
//
// Each pixel is lifted to (r, g, b, x/W, y/H); the Delaunay
// triangulation of the lifted pixels' convex hull vertices is searched
// for a simplex containing each pixel, whose barycentric coordinates
// become the pixel's weight row.
func NewImageWeights(img image.Image) (*ImageWeights, error) {
	nrgba, err := toNRGBA(img)
	if err != nil {
		return nil, err
	}
	w, h := nrgba.Rect.Dx(), nrgba.Rect.Dy()

	pts := make([]hull.Point, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := pixelRGB(nrgba, x, y)
			pts = append(pts, hull.Point{
				float64(r) / 255.0,
				float64(g) / 255.0,
				float64(b) / 255.0,
				float64(x) / float64(w),
				float64(y) / float64(h),
			})
		}
	}

	ch, err := hull.New(5, pts)
	if err != nil {
		return nil, err
	}
	chVertices := make([]hull.Point, ch.NumVertices())
	for i, v := range ch.Vertices() {
		chVertices[i] = v.Point()
	}

	// Triangulate the hull's vertex set, not the original pixels.
	tri, err := hull.NewDelaunay(5, chVertices)
	if err != nil {
		return nil, err
	}

	rowCount := w * h
	rows := make([]int, 0, rowCount*6)
	cols := make([]int, 0, rowCount*6)
	vals := make([]float64, 0, rowCount*6)

	searcher := tri.SimplexSearcher()
	bcoords := make([]float64, 6)
	for i, p := range pts {
		// Every pixel must land in a simplex: the pixels were the hull's
		// input. Start from a tight tolerance that covers the vast
		// majority and double it for the stragglers.
		const initialTolerance = 1e-10
		searcher.SetEps(initialTolerance)
		var simplex hull.Simplex
		for {
			var ok bool
			if simplex, ok = searcher.FindSimplexInto(p, bcoords); ok {
				break
			}
			searcher.SetEps(searcher.Eps() * 2)
		}
		for k, site := range simplex.Sites() {
			rows = append(rows, i)
			cols = append(cols, site.Index())
			vals = append(vals, bcoords[k])
		}
	}

	coo := sparse.NewCOO(rowCount, tri.NumVertices(), rows, cols, vals)

	// The decomposition step needs the RGB projection of the hull
	// vertices, in the order the triangulation indexes them.
	chRGB := make([]hull.Point, tri.NumVertices())
	for i, s := range tri.Sites() {
		p := s.Point()
		chRGB[i] = hull.Point{p[0] * 255, p[1] * 255, p[2] * 255}
	}

	return &ImageWeights{
		weights:       coo.ToCSR(),
		chRGBVertices: chRGB,
		width:         w,
		height:        h,
	}, nil
}

// Width returns the width of the original image.
func (w *ImageWeights) Width() int { return w.width }

// Height returns the height of the original image.
func (w *ImageWeights) Height() int { return w.height }
