package recolor

import (
	"math"
	"testing"
)

// Randomly generated reference cases checked against the Geometric Tools
// C++ implementation.
func TestTriangleDistance(t *testing.T) {
	round := func(f float64) float64 { return math.Round(f*1e6) / 1e6 }

	cases := []struct {
		point, v0, v1, v2 vec3
		want              float64
	}{
		{
			point: vec3{4.2381113609571495, 2.654380745759032, 4.478436557768529},
			v0:    vec3{2.2609034558129397, 0.7363934424590568, 4.659304572410262},
			v1:    vec3{4.871750378385647, 1.5944896964713688, 3.256035491109088},
			v2:    vec3{1.779212205656786, 0.3153905092238507, 4.3033114466181015},
			want:  2.383489,
		},
		{
			point: vec3{3.2996507884558666, 2.888416530961966, 0.055325508435971615},
			v0:    vec3{0.4469603349442086, 3.067410367768883, 4.047282586990228},
			v1:    vec3{2.026616372521026, 3.63393618523506, 3.627165893214766},
			v2:    vec3{2.0951418285736096, 1.7760971249855912, 4.255170120997059},
			want:  14.934460,
		},
		{
			point: vec3{3.63001328574124, 0.9742400008433816, 0.46387335118145023},
			v0:    vec3{1.5902550325185771, 2.0151381618856004, 2.3538083350440964},
			v1:    vec3{1.5829566010328917, 2.2573090844329076, 1.4852626251123495},
			v2:    vec3{3.4711046329853827, 2.8842909238485435, 1.1209094996367985},
			want:  3.999367,
		},
		{
			point: vec3{1.357186896450708, 3.639403896176408, 2.774094433133812},
			v0:    vec3{1.6172890396363315, 1.1964919656765431, 4.899777432333721},
			v1:    vec3{3.1343908648935925, 3.310698406970189, 1.995967206937237},
			v2:    vec3{2.7491235792601767, 4.2708245849151005, 2.5801396887048327},
			want:  1.397370,
		},
		{
			point: vec3{4.093430783344875, 1.3740254394134255, 4.434413112423077},
			v0:    vec3{0.5860098196120694, 0.012696049771021012, 1.1539482653141853},
			v1:    vec3{2.4278036299572463, 2.284992994739776, 3.702239903113251},
			v2:    vec3{0.26710102987762385, 1.7806223059369723, 1.9514793956088183},
			want:  4.140253,
		},
		{
			point: vec3{0.7550628981335006, 1.044694489765015, 2.3919975501480515},
			v0:    vec3{2.524640179659943, 4.749403785745272, 2.8887203969061934},
			v1:    vec3{1.1538267147503323, 1.0781899077274066, 1.6384947945695294},
			v2:    vec3{3.3930550989939356, 3.200444706485666, 3.328060634863086},
			want:  0.720180,
		},
	}
	for i, c := range cases {
		got := round(triangleDistSqr(c.point, c.v0, c.v1, c.v2))
		if got != c.want {
			t.Errorf("case %d: squared distance %v, want %v", i, got, c.want)
		}
	}
}

func TestTriangleClosestPointOnVertex(t *testing.T) {
	v0 := vec3{0, 0, 0}
	v1 := vec3{1, 0, 0}
	v2 := vec3{0, 1, 0}

	// A point beyond a vertex projects onto the vertex itself.
	q := triangleClosestPoint(vec3{-1, -1, 1}, v0, v1, v2)
	if q != v0 {
		t.Errorf("closest point %+v, want %+v", q, v0)
	}

	// A point above the interior projects straight down onto the plane.
	q = triangleClosestPoint(vec3{0.25, 0.25, 3}, v0, v1, v2)
	want := vec3{0.25, 0.25, 0}
	if math.Abs(q.X-want.X) > 1e-12 || math.Abs(q.Y-want.Y) > 1e-12 || math.Abs(q.Z-want.Z) > 1e-12 {
		t.Errorf("closest point %+v, want %+v", q, want)
	}
}
