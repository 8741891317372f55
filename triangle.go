package recolor

// The closest-point-on-triangle solution below is adapted from the
// region-switched implementation in Geometric Tools
// (https://www.geometrictools.com/GTE/Mathematics/DistPointTriangle.h).

// vec3 is a small value-type 3D vector.
type vec3 struct {
	X, Y, Z float64
}

func (a vec3) add(b vec3) vec3      { return vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a vec3) sub(b vec3) vec3      { return vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a vec3) scale(s float64) vec3 { return vec3{a.X * s, a.Y * s, a.Z * s} }

func (a vec3) dot(b vec3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func (a vec3) cross(b vec3) vec3 {
	return vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

// triangleClosestPoint returns the point of the triangle (v0, v1, v2)
// closest to point. The triangle is parameterized as
// v0 + s*(v1-v0) + t*(v2-v0); the region containing the minimum is
// selected from the signs of the boundary quantities f00, f01, f10.
func triangleClosestPoint(point, v0, v1, v2 vec3) vec3 {
	diff := v0.sub(point)
	edge0 := v1.sub(v0)
	edge1 := v2.sub(v0)

	a00 := edge0.dot(edge0)
	a01 := edge0.dot(edge1)
	a11 := edge1.dot(edge1)

	b0 := diff.dot(edge0)
	b1 := diff.dot(edge1)

	f00 := b0
	f10 := b0 + a00
	f01 := b0 + a01

	var s, t float64
	switch {
	case f00 >= 0:
		if f01 >= 0 {
			// (1) p0 = (0,0), p1 = (0,1), H(z) = G(L(z))
			s, t = minEdge02(a11, b1)
		} else {
			// (2) p0 = (0,t10), p1 = (t01,1-t01), H(z) = (t11-t10)*G(L(z))
			p0s, p0t := 0.0, f00/(f00-f01)
			tmp := f01 / (f01 - f10)
			p1s, p1t := tmp, 1-tmp
			dt1 := p1t - p0t
			h0 := dt1 * (a11*p0t + b1)
			if h0 >= 0 {
				s, t = minEdge02(a11, b1)
			} else {
				h1 := dt1 * (a01*p1s + a11*p1t + b1)
				if h1 <= 0 {
					s, t = minEdge12(a01, a11, b1, f10, f01)
				} else {
					s, t = minInterior(p0s, p0t, h0, p1s, p1t, h1)
				}
			}
		}
	case f01 <= 0:
		if f10 <= 0 {
			// (3) p0 = (1,0), p1 = (0,1), H(z) = G(L(z)) - F(L(z))
			s, t = minEdge12(a01, a11, b1, f10, f01)
		} else {
			// (4) p0 = (t00,0), p1 = (t01,1-t01), H(z) = t11*G(L(z))
			p0s, p0t := f00/(f00-f10), 0.0
			tmp := f01 / (f01 - f10)
			p1s, p1t := tmp, 1-tmp
			h0 := p1t * (a01*p0s + b1)
			if h0 >= 0 {
				s, t = p0s, p0t // edge 01 minimum
			} else {
				h1 := p1t * (a01*p1s + a11*p1t + b1)
				if h1 <= 0 {
					s, t = minEdge12(a01, a11, b1, f10, f01)
				} else {
					s, t = minInterior(p0s, p0t, h0, p1s, p1t, h1)
				}
			}
		}
	case f10 <= 0:
		// (5) p0 = (0,t10), p1 = (t01,1-t01), H(z) = (t11-t10)*G(L(z))
		p0s, p0t := 0.0, f00/(f00-f01)
		tmp := f01 / (f01 - f10)
		p1s, p1t := tmp, 1-tmp
		dt1 := p1t - p0t
		h0 := dt1 * (a11*p0t + b1)
		if h0 >= 0 {
			s, t = minEdge02(a11, b1)
		} else {
			h1 := dt1 * (a01*p1s + a11*p1t + b1)
			if h1 <= 0 {
				s, t = minEdge12(a01, a11, b1, f10, f01)
			} else {
				s, t = minInterior(p0s, p0t, h0, p1s, p1t, h1)
			}
		}
	default:
		// (6) p0 = (t00,0), p1 = (0,t11), H(z) = t11*G(L(z))
		p0s, p0t := f00/(f00-f10), 0.0
		p1s, p1t := 0.0, f00/(f00-f01)
		h0 := p1t * (a01*p0s + b1)
		if h0 >= 0 {
			s, t = p0s, p0t // edge 01 minimum
		} else {
			h1 := p1t * (a11*p1t + b1)
			if h1 <= 0 {
				s, t = minEdge02(a11, b1)
			} else {
				s, t = minInterior(p0s, p0t, h0, p1s, p1t, h1)
			}
		}
	}

	return v0.add(edge0.scale(s)).add(edge1.scale(t))
}

// triangleDistSqr returns the squared distance between point and the
// triangle (v0, v1, v2).
func triangleDistSqr(point, v0, v1, v2 vec3) float64 {
	diff := point.sub(triangleClosestPoint(point, v0, v1, v2))
	return diff.dot(diff)
}

func minEdge02(a11, b1 float64) (s, t float64) {
	switch {
	case b1 >= 0:
		t = 0
	case a11+b1 <= 0:
		t = 1
	default:
		t = -b1 / a11
	}
	return 0, t
}

func minEdge12(a01, a11, b1, f10, f01 float64) (s, t float64) {
	h0 := a01 + b1 - f10
	var snd float64
	if h0 >= 0 {
		snd = 0
	} else {
		h1 := a11 + b1 - f01
		if h1 <= 0 {
			snd = 1
		} else {
			snd = h0 / (h0 - h1)
		}
	}
	return 1 - snd, snd
}

func minInterior(p0s, p0t, h0, p1s, p1t, h1 float64) (s, t float64) {
	z := h0 / (h0 - h1)
	omz := 1 - z
	return omz*p0s + z*p1s, omz*p0t + z*p1t
}
