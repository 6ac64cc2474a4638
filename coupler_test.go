package resflow

import (
	"math"
	"testing"
)

// TestConfluencePoolsSharedSurface builds two confluent domains and checks
// that after one coupler step they share exactly one inverted surface
// elevation, and that the pooled total volume equals the sum of each
// domain's own accumulated inflow (spec.md §8 scenario 5).
func TestConfluencePoolsSharedSurface(t *testing.T) {
	a := flatDomain(5, 10)
	b := flatDomain(5, 10)
	a.ID, b.ID = 1, 2
	a.Boundaries.Confluences = []*ConfluenceLink{{I: a.Nx, OtherDomain: 2}}
	b.Boundaries.Confluences = []*ConfluenceLink{{I: 1, OtherDomain: 1}}

	if err := a.UpdateSurfaceLayer(4.0); err != nil {
		t.Fatal(err)
	}
	if err := b.UpdateSurfaceLayer(4.0); err != nil {
		t.Fatal(err)
	}
	var err error
	if a.TotalVol, err = a.VolumeFromSurfaceHeight(4.0); err != nil {
		t.Fatal(err)
	}
	if b.TotalVol, err = b.VolumeFromSurfaceHeight(4.0); err != nil {
		t.Fatal(err)
	}

	s := &Simulation{Doms: []*Domain{a, b}, DtSec: 1.0}
	a.Sources = []SourceTerm{{Kind: "inlet", I: 1, Q: 2.0}}
	b.Sources = []SourceTerm{{Kind: "inlet", I: 1, Q: 1.0}}

	wantVol := a.TotalVol + b.TotalVol + (2.0+1.0)*s.DtSec

	if err := UpdateCoupler(s); err != nil {
		t.Fatal(err)
	}

	if math.Abs(a.ZSrf-b.ZSrf) > 1e-10 {
		t.Fatalf("confluent domains have divergent surfaces: %g vs %g", a.ZSrf, b.ZSrf)
	}
	if got := a.TotalVol + b.TotalVol; math.Abs(got-wantVol) > 1e-8 {
		t.Fatalf("pooled volume mismatch: got %g want %g", got, wantVol)
	}
}

func TestUpdateColumnTargetsAccumulatesUpstream(t *testing.T) {
	d := flatDomain(5, 10)
	d.Sources = []SourceTerm{{Kind: "inlet", I: 2, Q: 3.0}}
	updateColumnTargets(d)
	if d.QCol[1] != 0 {
		t.Fatalf("column upstream of source should be 0, got %g", d.QCol[1])
	}
	for i := 2; i < d.Nx; i++ {
		if d.QCol[i] != 3.0 {
			t.Fatalf("column %d downstream of source: got %g want 3.0", i, d.QCol[i])
		}
	}
}
