package resflow

import "testing"

func TestApplyInitialStateUniformDefault(t *testing.T) {
	d := flatDomain(3, 10)
	dr := DomainRecord{ID: 1, Name: "test"}
	if err := applyInitialState(d, dr, waterDensity(20)); err != nil {
		t.Fatal(err)
	}
	if d.ZSrf != d.Z[d.Nz] {
		t.Fatalf("uniform initial state should fill to the mesh top: got z_srf %g want %g", d.ZSrf, d.Z[d.Nz])
	}
	for i := 1; i <= d.Nx; i++ {
		for k := d.KcBot[i]; k <= d.KSrf; k++ {
			if d.T.Get(i, k) != 20 {
				t.Fatalf("uniform initial temperature not applied at (%d,%d): got %g", i, k, d.T.Get(i, k))
			}
		}
	}
}
