package resflow

import (
	"math"
	"testing"
)

func TestGaussianWeightsSumToOne(t *testing.T) {
	d := flatDomain(5, 20)
	if err := d.UpdateSurfaceLayer(18.5); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= d.Nx; i++ {
		for k := 0; k <= d.Nz; k++ {
			d.RhoAvg[k] = 1000 + float64(k) // stable stratification
		}
	}
	w, err := d.gaussianWeights(10.0, 5.0, 1.0, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, v := range w {
		sum += v
	}
	if math.Abs(sum-1) > 1e-10 {
		t.Fatalf("gaussian weights do not sum to 1: got %g", sum)
	}
}

func TestOpenEastBoundaryCopiesGhostColumn(t *testing.T) {
	d := flatDomain(5, 10)
	if err := d.UpdateSurfaceLayer(8.4); err != nil {
		t.Fatal(err)
	}
	nx := d.Nx
	for k := 0; k <= d.Nz+1; k++ {
		d.T.Set(12.3, nx-1, k)
	}
	for k := 1; k <= d.Nz; k++ {
		d.U.Set(0.7, nx-1, k)
	}
	if err := buildBoundarySources(d, 1.0); err != nil {
		t.Fatal(err)
	}
	for k := 0; k <= d.Nz+1; k++ {
		if d.T.Get(nx, k) != 12.3 || d.T.Get(nx+1, k) != 12.3 {
			t.Fatalf("ghost column T not copied at k=%d", k)
		}
	}
	for k := 1; k <= d.Nz; k++ {
		if d.U.Get(nx, k) != 0.7 {
			t.Fatalf("ghost column u not copied at k=%d", k)
		}
	}
}

func TestDensityMatchedElevationFindsBracket(t *testing.T) {
	d := flatDomain(5, 20)
	if err := d.UpdateSurfaceLayer(18.5); err != nil {
		t.Fatal(err)
	}
	for k := 0; k <= d.Nz; k++ {
		d.RhoAvg[k] = 999.5 - float64(k)*0.05
	}
	tSrc := 15.0
	zSrc, err := d.densityMatchedElevation(tSrc, nil)
	if err != nil {
		t.Fatal(err)
	}
	if zSrc < 0 || zSrc > d.Z[d.Nz] {
		t.Fatalf("density-matched elevation out of range: %g", zSrc)
	}
}
