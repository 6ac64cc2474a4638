package resflow

import (
	"math"
	"testing"

	"github.com/ctessum/sparse"
)

// flatDomain builds an nx-by-nz domain with a flat bed at z=0, uniform
// width b=1, dx=1, dz=1, for use across the package's tests.
func flatDomain(nx, nz int) *Domain {
	d := NewDomain(1, "test", nx, nz, nil)
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
	return d
}

func TestVolHgtMonotone(t *testing.T) {
	d := flatDomain(5, 10)
	for k := 1; k <= d.Nz; k++ {
		if d.VolHgt[k] < d.VolHgt[k-1] {
			t.Fatalf("vol_hgt not monotone at k=%d: %g < %g", k, d.VolHgt[k], d.VolHgt[k-1])
		}
	}
}

func TestUpdateSurfaceLayerConservesVolume(t *testing.T) {
	d := flatDomain(5, 10)
	zSrf := 6.3
	if err := d.UpdateSurfaceLayer(zSrf); err != nil {
		t.Fatal(err)
	}
	var sum float64
	for i := 1; i <= d.Nx; i++ {
		for k := d.KcBot[i]; k <= d.KSrf; k++ {
			sum += d.Vol.Get(i, k)
		}
	}
	want, err := d.VolumeFromSurfaceHeight(zSrf)
	if err != nil {
		t.Fatal(err)
	}
	eps := 1e-10 * float64(d.Nx*d.Nz) * want
	if math.Abs(sum-want) > eps && eps > 0 {
		t.Fatalf("volume mismatch: got %g want %g (eps %g)", sum, want, eps)
	}
}

func TestUpdateSurfaceLayerIdempotent(t *testing.T) {
	d := flatDomain(4, 8)
	if err := d.UpdateSurfaceLayer(5.2); err != nil {
		t.Fatal(err)
	}
	au1 := d.Au.Copy()
	vol1 := d.Vol.Copy()
	if err := d.UpdateSurfaceLayer(5.2); err != nil {
		t.Fatal(err)
	}
	for i := range au1.Elements {
		if au1.Elements[i] != d.Au.Elements[i] {
			t.Fatalf("au changed on repeated UpdateSurfaceLayer at element %d", i)
		}
		if vol1.Elements[i] != d.Vol.Elements[i] {
			t.Fatalf("vol changed on repeated UpdateSurfaceLayer at element %d", i)
		}
	}
}

func TestSurfaceHeightVolumeRoundTrip(t *testing.T) {
	d := flatDomain(4, 8)
	zSrf := 5.7
	vol, err := d.VolumeFromSurfaceHeight(zSrf)
	if err != nil {
		t.Fatal(err)
	}
	back, err := d.SurfaceHeightFromVolume(vol)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(back-zSrf) > 1e-8 {
		t.Fatalf("round trip mismatch: got %g want %g", back, zSrf)
	}
}
