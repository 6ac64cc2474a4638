package resflow

import (
	"math"
	"testing"

	"github.com/ctessum/sparse"
)

// particleDomain builds a flat, still-water domain with a single
// particle class settling at wss, with concentration c0 in every wet
// cell and zero velocity everywhere.
func particleDomain(nx, nz int, wss, c0 float64) *Domain {
	p := ParticleClass{Name: "silt", Diameter: 1e-5, RhoSS: 2650, AlphaSS: 0, Wss: wss}
	d := NewDomain(1, "test", nx, nz, []ParticleClass{p})
	x := make([]float64, nx+1)
	z := make([]float64, nz+1)
	zBed := make([]float64, nx+1)
	for i := range x {
		x[i] = float64(i)
	}
	for k := range z {
		z[k] = float64(k)
	}
	b := sparse.ZerosDense(nx+1, nz+1)
	for i := 0; i <= nx; i++ {
		for k := 0; k <= nz; k++ {
			b.Set(1, i, k)
		}
	}
	if err := d.BuildMesh(x, z, zBed, b); err != nil {
		panic(err)
	}
	if err := d.UpdateSurfaceLayer(float64(nz)); err != nil {
		panic(err)
	}
	for i := 1; i <= d.Nx; i++ {
		for k := d.KcBot[i]; k <= d.KSrf; k++ {
			d.C[0].Set(c0, i, k)
		}
	}
	return d
}

// TestSolidsSettlingDepletesColumn exercises spec.md §8 scenario 6: with
// no inflow and no horizontal motion, a column of suspended solids
// settles out under its Stokes velocity, with the settled mass
// appearing in CSed and nowhere else.
func TestSolidsSettlingDepletesColumn(t *testing.T) {
	nz := 20
	wss := 0.5
	c0 := 100.0
	d := particleDomain(3, nz, wss, c0)

	columnMass := func() float64 {
		var m float64
		for i := 1; i <= d.Nx; i++ {
			for k := d.KcBot[i]; k <= d.KSrf; k++ {
				m += d.C[0].Get(i, k) * d.Vol.Get(i, k)
			}
		}
		return m
	}
	initialMass := columnMass()

	dt := 0.5
	steps := int(float64(nz)/wss/dt) + 40
	for n := 0; n < steps; n++ {
		if err := d.UpdateSolids(dt, 0); err != nil {
			t.Fatal(err)
		}
	}

	finalMass := columnMass()
	if finalMass > 0.01*initialMass {
		t.Fatalf("column mass did not deplete: initial %g, final %g", initialMass, finalMass)
	}

	depleted := initialMass - finalMass
	var totalSed float64
	for i := 1; i <= d.Nx; i++ {
		totalSed += d.CSed[0][i]
	}
	if totalSed <= 0 {
		t.Fatalf("c_sed did not accumulate any settled mass")
	}
	if math.Abs(totalSed-depleted)/depleted > 0.2 {
		t.Fatalf("c_sed %g not commensurate with depleted column mass %g", totalSed, depleted)
	}
}
