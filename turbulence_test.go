package resflow

import "testing"

// TestRichardsonClosureProducesFiniteNonNegativeDiffusivities exercises
// component T's default closure (spec.md §4.T) on a stably stratified
// column and checks the resulting diffusivity fields stay finite and
// non-negative, the minimum physical requirement for any closure mode.
func TestRichardsonClosureProducesFiniteNonNegativeDiffusivities(t *testing.T) {
	d := flatDomain(3, 20)
	if err := d.UpdateSurfaceLayer(18.0); err != nil {
		t.Fatal(err)
	}
	for i := 0; i <= d.Nx+1; i++ {
		for k := 0; k <= d.Nz+1; k++ {
			d.T.Set(10.0+float64(k)*0.2, i, k) // warmer near the surface
		}
	}
	d.Turbulence = TurbulenceConfig{Mode: "richardson", LL: 1, MM: 1, NN: 1}
	if err := d.UpdateDensityPressure(); err != nil {
		t.Fatal(err)
	}
	if err := d.UpdateTurbulence(1.0); err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= d.Nx; i++ {
		for k := d.KcBot[i]; k <= d.KSrf; k++ {
			for _, v := range []float64{d.Dmx.Get(i, k), d.Dhx.Get(i, k), d.Dcx.Get(i, k), d.Dmz.Get(i, k), d.Dhz.Get(i, k), d.Dcz.Get(i, k)} {
				if v != v {
					t.Fatalf("NaN diffusivity at (%d,%d)", i, k)
				}
				if v < 0 {
					t.Fatalf("negative diffusivity at (%d,%d): %g", i, k, v)
				}
			}
		}
	}
}
