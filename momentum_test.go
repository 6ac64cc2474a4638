package resflow

import (
	"math"
	"testing"
)

func TestRescaleColumnsToTarget(t *testing.T) {
	d := flatDomain(5, 10)
	if err := d.UpdateSurfaceLayer(8.3); err != nil {
		t.Fatal(err)
	}
	for i := 1; i < d.Nx; i++ {
		for k := d.KcBot[i]; k <= d.KSrf; k++ {
			d.U.Set(0.4+0.1*float64(k), i, k)
		}
	}
	d.QCol = make([]float64, d.Nx+1)
	for i := 1; i < d.Nx; i++ {
		d.QCol[i] = 3.2
	}
	d.rescaleColumnsToTarget()

	for i := 1; i < d.Nx; i++ {
		var sum float64
		for k := d.KcBot[i]; k <= d.KSrf; k++ {
			sum += d.Au.Get(i, k) * d.U.Get(i, k)
		}
		if math.Abs(sum-d.QCol[i]) > 1e-8 {
			t.Fatalf("column %d: got sum %g, want %g", i, sum, d.QCol[i])
		}
	}
}

func TestReconstructWZeroAtBed(t *testing.T) {
	d := flatDomain(5, 10)
	if err := d.UpdateSurfaceLayer(8.3); err != nil {
		t.Fatal(err)
	}
	d.reconstructW()
	for i := 1; i <= d.Nx; i++ {
		if w := d.W.Get(i, d.KcBot[i]-1); w != 0 {
			t.Fatalf("w at bed face (i=%d) should be zero, got %g", i, w)
		}
	}
}
