package resflow

import (
	"math"
	"testing"
)

// TestDensityIncreasesPressureDownward exercises component D: with a
// uniform temperature field (so rho is constant), hydrostatic pressure
// must increase monotonically with depth and match the analytic
// rho*g*h profile.
func TestDensityIncreasesPressureDownward(t *testing.T) {
	d := flatDomain(3, 10)
	if err := d.UpdateSurfaceLayer(9.4); err != nil {
		t.Fatal(err)
	}
	for i := 0; i <= d.Nx+1; i++ {
		for k := 0; k <= d.Nz+1; k++ {
			d.T.Set(15.0, i, k)
		}
	}
	if err := d.UpdateDensityPressure(); err != nil {
		t.Fatal(err)
	}

	rho := waterDensity(15.0)
	for i := 1; i <= d.Nx; i++ {
		var prev float64
		for k := d.KSrf; k >= d.KcBot[i]; k-- {
			p := d.P.Get(i, k)
			if k < d.KSrf && p < prev-1e-9 {
				t.Fatalf("pressure not monotone with depth at (%d,%d): %g < %g", i, k, p, prev)
			}
			want := rho * gravity * (d.ZSrf - d.zc(k))
			if math.Abs(p-want) > 1e-6*want+1e-6 {
				t.Fatalf("pressure at (%d,%d): got %g want %g", i, k, p, want)
			}
			prev = p
		}
	}
}

func TestRhoAvgFallsBackToPriorLevelWhenDry(t *testing.T) {
	d := flatDomain(3, 10)
	if err := d.UpdateSurfaceLayer(3.0); err != nil {
		t.Fatal(err)
	}
	for i := 0; i <= d.Nx+1; i++ {
		for k := 0; k <= d.Nz+1; k++ {
			d.T.Set(10.0, i, k)
		}
	}
	if err := d.UpdateDensityPressure(); err != nil {
		t.Fatal(err)
	}
	for k := d.KSrf + 1; k <= d.Nz; k++ {
		if d.RhoAvg[k] != d.RhoAvg[k-1] {
			t.Fatalf("rho_avg above surface should hold the last wet value: k=%d got %g want %g", k, d.RhoAvg[k], d.RhoAvg[k-1])
		}
	}
}
