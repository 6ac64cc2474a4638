package resflow

import "testing"

// TestSurfaceCoolingLowersTemperature exercises component H's surface
// flux term in isolation: a warm, still column under cold, dry, sunless
// air should cool at the surface after one step and stay finite
// everywhere else.
func TestSurfaceCoolingLowersTemperature(t *testing.T) {
	d := flatDomain(3, 10)
	if err := d.UpdateSurfaceLayer(8.0); err != nil {
		t.Fatal(err)
	}
	for i := 0; i <= d.Nx+1; i++ {
		for k := 0; k <= d.Nz+1; k++ {
			d.T.Set(20.0, i, k)
		}
	}
	d.Heat = HeatConfig{
		Ar:        0.03,
		Eta:       0.75,
		AlphaHeat: 0.0,
		Met: Meteorology{
			AirTempC:    5.0,
			WindSpeedMs: 3.0,
			RelHumidity: 0.5,
			SolarWm2:    0,
		},
	}

	before := d.T.Get(2, d.KSrf)
	if err := d.UpdateHeat(10.0); err != nil {
		t.Fatal(err)
	}
	after := d.T.Get(2, d.KSrf)
	if after >= before {
		t.Fatalf("surface did not cool under cold sunless air: before %g after %g", before, after)
	}

	for i := 1; i <= d.Nx; i++ {
		for k := d.KcBot[i]; k <= d.KSrf; k++ {
			v := d.T.Get(i, k)
			if v != v { // NaN check
				t.Fatalf("NaN temperature at (%d,%d)", i, k)
			}
		}
	}
}
