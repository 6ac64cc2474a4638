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

import "gonum.org/v1/gonum/floats"

// UpdateDensityPressure recomputes density and hydrostatic pressure for
// the whole domain (component D of spec.md §4.D). D must run before T in
// every step, since the turbulence closure reads rho (spec.md §5).
func (d *Domain) UpdateDensityPressure() error {
	nx, nz := d.Nx, d.Nz

	for i := 0; i <= nx+1; i++ {
		for k := 0; k <= nz+1; k++ {
			rho := waterDensity(d.T.Get(i, k))
			c := 0.0
			for ci := range d.Particles {
				c += d.C[ci].Get(i, k)
			}
			if len(d.Particles) > 0 {
				rhoSS := d.Particles[0].RhoSS
				rho += c / 1000 * (1 - rho/rhoSS)
			}
			d.Rho.Set(rho, i, k)
		}
	}

	for i := 1; i <= nx; i++ {
		d.P.Set(d.Rho.Get(i, d.KSrf)*gravity*(d.ZSrf-d.zc(d.KSrf)), i, d.KSrf)
		for k := d.KSrf - 1; k >= d.KcBot[i]; k-- {
			avgRho := 0.5 * (d.Rho.Get(i, k) + d.Rho.Get(i, k+1))
			d.P.Set(d.P.Get(i, k+1)+avgRho*gravity*d.Dzs[k], i, k)
		}
	}

	d.updateRhoAvg()
	return nil
}

// updateRhoAvg computes rho_avg[k], the volume-weighted cell-averaged
// density at each w-face, aggregated column-by-column across the domain.
// It is used by every density-selective boundary source (spec.md §4.B)
// and by the Richardson-number turbulence closure (spec.md §4.T).
func (d *Domain) updateRhoAvg() {
	if d.RhoAvg == nil {
		d.RhoAvg = make([]float64, d.Nz+1)
	}
	vols := make([]float64, 0, d.Nx)
	rhoVols := make([]float64, 0, d.Nx)
	for k := 0; k <= d.Nz; k++ {
		vols = vols[:0]
		rhoVols = rhoVols[:0]
		for i := 1; i <= d.Nx; i++ {
			if k < d.KcBot[i] || k > d.KSrf {
				continue
			}
			v := d.Vol.Get(i, k)
			vols = append(vols, v)
			rhoVols = append(rhoVols, v*d.Rho.Get(i, k))
		}
		volSum := floats.Sum(vols)
		if volSum > 0 {
			d.RhoAvg[k] = floats.Sum(rhoVols) / volSum
		} else if k > 0 {
			d.RhoAvg[k] = d.RhoAvg[k-1]
		}
	}
}
