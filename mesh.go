/*
Copyright © 2026 the resflow authors.
This file is part of resflow.

resflow is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

resflow is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with resflow.  If not, see <http://www.gnu.org/licenses/>.
*/
package resflow

import (
	"math"

	"github.com/ctessum/sparse"
)

// Mesh holds the staggered geometry of one Domain (component G of
// spec.md §4.G): node coordinates, cell widths, face/cell areas and
// volumes, the bed profile, and the cumulative height tables used to
// convert between free-surface elevation and total volume.
//
// Faces are indexed 0..Nx / 0..Nz; centers 1..Nx / 1..Nz. Dense 2-D
// tables are backed by sparse.DenseArray the way the teacher's CTMData
// backs gridded met fields in vargrid.go, sized generously (Nx+1 x Nz+1,
// or Nx+2 x Nz+2 for ghost-banded scalar fields) so every index named in
// spec.md can be addressed directly without an offset.
type Mesh struct {
	Nx, Nz int

	X    []float64 // nx+1, node coordinates, 0..nx
	Z    []float64 // nz+1, node coordinates, 0..nz
	ZBed []float64 // nx+1, bed elevation at each x node

	Dx  []float64 // nx+1, cell widths, 1..nx
	Dz  []float64 // nz+1, cell heights, 1..nz
	Dxs []float64 // nx+1, staggered widths, 1..nx-1
	Dzs []float64 // nz+1, staggered heights, 1..nz-1

	B *sparse.DenseArray // (nx+1,nz+1) reservoir width at each node

	Au, Aw   *sparse.DenseArray // face areas
	Aus, Aws *sparse.DenseArray // staggered face areas
	Vol      *sparse.DenseArray // cell volume
	Vols     *sparse.DenseArray // staggered cell volume

	KBot  []int // nx+1, bottom cell index at faces
	KcBot []int // nx+1, bottom cell index at centers

	VolHgt  []float64 // nz+1, cumulative volume below elevation z(k)
	AreaHgt []float64 // nz+1, surface area at elevation z(k)
	LenHgt  []float64 // nz+1, effective reservoir length at elevation z(k)

	// Reference (immobile-surface) geometry, frozen at BuildMesh time.
	Dz0, Au0, Vol0 *sparse.DenseArray

	ZSrf     float64 // free-surface elevation
	KSrf     int     // index of the surface cell
	DzSrf    float64 // height of the surface cell
	WSrf     float64 // vertical velocity of the surface
	TotalVol float64
	QTotalVol float64
}

// NewMesh allocates a Mesh for an nx-by-nz domain. Ghost-banded scalar
// fields (t, c, p, rho) are allocated separately in NewDomain with shape
// (nx+2, nz+2); the face/cell tables here use (nx+1, nz+1), the largest
// range any face or center index in spec.md §3 needs.
func NewMesh(nx, nz int) *Mesh {
	m := &Mesh{Nx: nx, Nz: nz}
	m.X = make([]float64, nx+1)
	m.Z = make([]float64, nz+1)
	m.ZBed = make([]float64, nx+1)
	m.Dx = make([]float64, nx+1)
	m.Dz = make([]float64, nz+1)
	m.Dxs = make([]float64, nx+1)
	m.Dzs = make([]float64, nz+1)
	m.B = sparse.ZerosDense(nx+1, nz+1)
	m.Au = sparse.ZerosDense(nx+1, nz+1)
	m.Aw = sparse.ZerosDense(nx+1, nz+1)
	m.Aus = sparse.ZerosDense(nx+1, nz+1)
	m.Aws = sparse.ZerosDense(nx+1, nz+1)
	m.Vol = sparse.ZerosDense(nx+1, nz+1)
	m.Vols = sparse.ZerosDense(nx+1, nz+1)
	m.Dz0 = sparse.ZerosDense(nx+1, nz+1)
	m.Au0 = sparse.ZerosDense(nx+1, nz+1)
	m.Vol0 = sparse.ZerosDense(nx+1, nz+1)
	m.KBot = make([]int, nx+1)
	m.KcBot = make([]int, nx+1)
	m.VolHgt = make([]float64, nz+1)
	m.AreaHgt = make([]float64, nz+1)
	m.LenHgt = make([]float64, nz+1)
	return m
}

// zc returns the center elevation of vertical cell k.
func (m *Mesh) zc(k int) float64 { return 0.5 * (m.Z[k-1] + m.Z[k]) }

// xc returns the center coordinate of horizontal cell i.
func (m *Mesh) xc(i int) float64 { return 0.5 * (m.X[i-1] + m.X[i]) }

// BuildMesh computes the full static geometry table from the node
// coordinates, bed profile and width matrix supplied by the (external)
// geometry reader, per spec.md §4.G. It is called once, at domain setup.
func (d *Domain) BuildMesh(x, z, zBed []float64, b *sparse.DenseArray) error {
	nx, nz := d.Nx, d.Nz
	copy(d.X, x)
	copy(d.Z, z)
	copy(d.ZBed, zBed)

	for i := 1; i <= nx; i++ {
		d.Dx[i] = d.X[i] - d.X[i-1]
	}
	for k := 1; k <= nz; k++ {
		d.Dz[k] = d.Z[k] - d.Z[k-1]
	}
	for i := 1; i < nx; i++ {
		d.Dxs[i] = 0.5 * (d.Dx[i] + d.Dx[i+1])
	}
	for k := 1; k < nz; k++ {
		d.Dzs[k] = 0.5 * (d.Dz[k] + d.Dz[k+1])
	}

	// Width above the bed is clamped forward from the highest wet node,
	// so dry cells inherit a valid width rather than zero.
	for i := 0; i <= nx; i++ {
		last := 0.0
		for k := nz; k >= 0; k-- {
			v := b.Get(i, k)
			if d.Z[k] >= zBed[i] {
				if v <= 0 {
					v = last
				}
				last = v
			}
			d.B.Set(math.Max(v, 0), i, k)
		}
	}

	// k_bot[i]: smallest k with zc(k) >= z_bed[i].
	for i := 0; i <= nx; i++ {
		kb := nz
		for k := 1; k <= nz; k++ {
			if d.zc(k) >= zBed[i] {
				kb = k
				break
			}
		}
		d.KBot[i] = kb
	}
	d.KcBot[0] = d.KBot[0]
	for i := 1; i <= nx; i++ {
		d.KcBot[i] = minInt(d.KBot[i-1], d.KBot[i])
	}

	d.computeFaceAreasAndVolumes(0, nz)

	// Reference (immobile-surface) geometry.
	d.Dz0 = d.Dz0copy()
	d.Au0 = d.Au.Copy()
	d.Vol0 = d.Vol.Copy()

	d.buildHeightTables()
	return nil
}

// Dz0copy stores a reference copy of Dz indexed like the 2-D tables
// (every row k carries the same Dz[k] value) so update_surface_layer can
// restore non-surface rows uniformly with the *0 tables.
func (d *Domain) Dz0copy() *sparse.DenseArray {
	a := sparse.ZerosDense(d.Nx+1, d.Nz+1)
	for i := 0; i <= d.Nx; i++ {
		for k := 0; k <= d.Nz; k++ {
			a.Set(d.Dz[k], i, k)
		}
	}
	return a
}

// computeFaceAreasAndVolumes recomputes au, aw, aus, aws, vol, vols for
// rows kLow..kHigh (inclusive), using the current B/Dx/Dz/Dxs/Dzs tables.
func (d *Domain) computeFaceAreasAndVolumes(kLow, kHigh int) {
	nx, nz := d.Nx, d.Nz
	for i := 0; i <= nx; i++ {
		for k := kLow; k <= kHigh; k++ {
			if k < 1 || k > nz {
				continue
			}
			// u-face area: width at the face times cell height.
			d.Au.Set(d.B.Get(i, k)*d.Dz[k], i, k)
			if i >= 1 && i < nx {
				d.Aus.Set(d.B.Get(i, k)*d.Dz[k], i, k)
			}
		}
	}
	for i := 1; i <= nx; i++ {
		for k := kLow; k <= kHigh; k++ {
			if k < 0 || k > nz {
				continue
			}
			// w-face area: width at the face times cell width.
			wface := 0.5 * (d.B.Get(i-1, k) + d.B.Get(i, k))
			d.Aw.Set(wface*d.Dx[i], i, k)
			if k >= 1 && k < nz {
				d.Aws.Set(wface*d.Dx[i], i, k)
			}
		}
	}
	for i := 1; i <= nx; i++ {
		for k := kLow; k <= kHigh; k++ {
			if k < 1 || k > nz {
				continue
			}
			bc := 0.25 * (d.B.Get(i-1, k-1) + d.B.Get(i, k-1) + d.B.Get(i-1, k) + d.B.Get(i, k))
			vol := bc * d.Dx[i] * d.Dz[k]
			d.Vol.Set(vol, i, k)
			if i < nx && k < nz {
				volS := bc * d.Dxs[i] * d.Dzs[k]
				d.Vols.Set(volS, i, k)
			}
		}
	}
}

// buildHeightTables computes vol_hgt, area_hgt and len_hgt: cumulative
// volume, surface area and effective reservoir length at each node
// elevation z(k), per spec.md §3/§4.G.
func (d *Domain) buildHeightTables() {
	nx, nz := d.Nx, d.Nz
	d.VolHgt[0] = 0
	d.AreaHgt[0] = 0
	for k := 1; k <= nz; k++ {
		areaAtK := 0.0
		volRow := 0.0
		for i := 1; i <= nx; i++ {
			bc := 0.5 * (d.B.Get(i-1, k) + d.B.Get(i, k))
			areaAtK += bc * d.Dx[i]
			volRow += bc * d.Dx[i] * d.Dz[k]
		}
		d.AreaHgt[k] = areaAtK
		d.VolHgt[k] = d.VolHgt[k-1] + volRow
	}
	// len_hgt[k]: reservoir length at elevation z(k), by linear
	// interpolation across the first bed segment crossed by z(k).
	for k := 0; k <= nz; k++ {
		length := 0.0
		for i := 1; i <= nx; i++ {
			lowBed, highBed := d.ZBed[i-1], d.ZBed[i]
			lo, hi := lowBed, highBed
			if lo > hi {
				lo, hi = hi, lo
			}
			switch {
			case d.Z[k] >= hi:
				length += d.Dx[i]
			case d.Z[k] <= lo:
				// fully dry at this elevation; contributes nothing
			default:
				frac := (d.Z[k] - lo) / (hi - lo)
				length += frac * d.Dx[i]
			}
		}
		d.LenHgt[k] = length
	}
}

// UpdateSurfaceLayer rebuilds only the row k_srf of the mesh tables for
// the given free-surface elevation, per spec.md §4.G. Calling it twice
// with the same z_srf is idempotent (it always restores non-surface rows
// from the reference *0 tables before recomputing row k_srf).
func (d *Domain) UpdateSurfaceLayer(zSrf float64) error {
	nz := d.Nz
	if zSrf > d.Z[nz] || zSrf <= d.zc(1) {
		return DomainError{DomainID: d.ID, Step: d.step, Msg: "surface elevation out of mesh range"}
	}

	// Restore all rows from the reference tables first.
	d.Au = d.Au0.Copy()
	d.Vol = d.Vol0.Copy()
	for i := 0; i <= d.Nx; i++ {
		for k := 0; k <= d.Nz; k++ {
			d.Dz[k] = d.Dz0.Get(i, k)
		}
	}

	// Find k_srf: the first layer with z(k_srf-1) < z_srf <= z(k_srf).
	kSrf := 1
	for k := 1; k <= nz; k++ {
		if zSrf <= d.Z[k] {
			kSrf = k
			break
		}
		kSrf = k
	}
	d.KSrf = kSrf
	d.DzSrf = zSrf - d.Z[kSrf-1]
	d.ZSrf = zSrf

	d.Dz[kSrf] = d.DzSrf

	// Surface width profile: linear blend between the layer below and
	// the surface layer (or extended into the next layer if z_srf sits
	// above z(k_srf)).
	for i := 0; i <= d.Nx; i++ {
		var bSrf float64
		bLow := d.B.Get(i, kSrf-1)
		bHigh := d.B.Get(i, kSrf)
		if zSrf <= d.Z[kSrf] {
			frac := 0.0
			if d.Dz0.Get(i, kSrf) != 0 {
				frac = d.DzSrf / d.Dz0.Get(i, kSrf)
			}
			bSrf = bLow + frac*(bHigh-bLow)
		} else {
			bSrf = bHigh
		}
		d.B.Set(bSrf, i, kSrf)
	}

	d.computeFaceAreasAndVolumes(kSrf-1, kSrf+1)
	return nil
}

// VolumeFromSurfaceHeight converts a free-surface elevation to total
// volume via linear interpolation on vol_hgt. Monotone and strictly
// invertible per spec.md §4.G.
func (d *Domain) VolumeFromSurfaceHeight(zSrf float64) (float64, error) {
	nz := d.Nz
	if zSrf < d.Z[0] || zSrf > d.Z[nz] {
		return 0, DomainError{DomainID: d.ID, Step: d.step, Msg: "surface elevation outside vol_hgt range"}
	}
	k := interpIndex(d.Z, zSrf)
	frac := 0.0
	if d.Z[k+1] != d.Z[k] {
		frac = (zSrf - d.Z[k]) / (d.Z[k+1] - d.Z[k])
	}
	return d.VolHgt[k] + frac*(d.VolHgt[k+1]-d.VolHgt[k]), nil
}

// SurfaceHeightFromVolume is the inverse of VolumeFromSurfaceHeight.
func (d *Domain) SurfaceHeightFromVolume(totalVol float64) (float64, error) {
	nz := d.Nz
	if totalVol < d.VolHgt[0] || totalVol > d.VolHgt[nz] {
		return 0, CapacityError{DomainID: d.ID, Step: d.step, TotalVol: totalVol, Capacity: d.VolHgt[nz], MinimumAllowed: 1e-3}
	}
	k := interpIndex(d.VolHgt, totalVol)
	frac := 0.0
	if d.VolHgt[k+1] != d.VolHgt[k] {
		frac = (totalVol - d.VolHgt[k]) / (d.VolHgt[k+1] - d.VolHgt[k])
	}
	return d.Z[k] + frac*(d.Z[k+1]-d.Z[k]), nil
}

// interpIndex returns the smallest k such that x <= table[k+1] (so
// table[k] < x <= table[k+1] for x inside a strictly increasing table),
// clamped to [0, len(table)-2]. table must be non-decreasing.
func interpIndex(table []float64, x float64) int {
	n := len(table)
	for k := 0; k < n-1; k++ {
		if x <= table[k+1] {
			return k
		}
	}
	return n - 2
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
