package geo

import "testing"

func TestDistanceKeyZeroForSamePoint(t *testing.T) {
	p := Coordinate{Lat: 39.74051727562952, Lng: -8.770375324893696}
	if d := DistanceKey(p, p); d != 0 {
		t.Errorf("expected zero distance, got %f", d)
	}
}

func TestDistanceKeyPreservesRelativeOrder(t *testing.T) {
	// Reference point in Leiria, the two targets are Torres Vedras (closer)
	// and Lisbon (farther), same fixture as the ordering behavior uses.
	ref := Coordinate{Lat: 38.720661384644046, Lng: -9.16044783453807}
	torresVedras := Coordinate{Lat: 39.07753883078113, Lng: -9.281266331143293}
	leiria := Coordinate{Lat: 39.74051727562952, Lng: -8.770375324893696}

	near := DistanceKey(ref, torresVedras)
	far := DistanceKey(ref, leiria)
	if near >= far {
		t.Errorf("expected %f < %f", near, far)
	}
}

func TestDistanceKeySymmetry(t *testing.T) {
	a := Coordinate{Lat: 40.0, Lng: -8.0}
	b := Coordinate{Lat: 41.0, Lng: -9.0}
	ab := DistanceKey(a, b)
	ba := DistanceKey(b, a)
	if diff := ab - ba; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("distance not symmetric: %f vs %f", ab, ba)
	}
}
