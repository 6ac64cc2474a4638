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

import "github.com/ctessum/atmos/advect"

// HeatConfig holds the per-domain options of component H (spec.md §4.H,
// and the global heat options of §6).
type HeatConfig struct {
	Radiation bool
	Ar        float64 // shortwave reflection coefficient
	Beta      float64 // Beer's-law extinction coefficient
	Eta       float64 // atmospheric long-wave emissivity factor
	ZWind     float64 // wind measurement height
	AlphaHeat float64 // diffusion scale factor

	Met Meteorology // current meteorology, set by the external feed each step
}

// UpdateHeat advances T for one domain by one time step (component H,
// spec.md §4.H): first-order upwind advection, centred diffusion scaled
// by alpha_heat, surface/internal radiative forcing, fence blocking,
// boundary source couplings, and a divergence correction compensating the
// non-conservative upwind form.
func (d *Domain) UpdateHeat(dt float64) error {
	nx := d.Nx
	hc := d.Heat

	for i := 1; i <= nx; i++ {
		for k := d.KcBot[i]; k <= d.KSrf; k++ {
			vol := d.Vol.Get(i, k)
			if vol <= 0 {
				continue
			}
			tVal := d.T.Get(i, k)
			var rhs, divFlux float64

			if !d.blocksFace(i-1, k) {
				uL := d.U.Get(i-1, k)
				f := advect.UpwindFlux(uL, d.T.Get(i-1, k), tVal, d.Dx[i]) * d.Au.Get(i-1, k)
				rhs += f
				divFlux -= uL * d.Au.Get(i-1, k)
				rhs += hc.AlphaHeat * d.Dhx.Get(i-1, k) * (d.T.Get(i-1, k) - tVal) / d.Dxs[minInt(i-1, d.Nx-1)] * d.Au.Get(i-1, k)
			}
			if !d.blocksFace(i, k) {
				uR := d.U.Get(i, k)
				f := advect.UpwindFlux(uR, tVal, d.T.Get(i+1, k), d.Dx[i]) * d.Au.Get(i, k)
				rhs -= f
				divFlux += uR * d.Au.Get(i, k)
				rhs += hc.AlphaHeat * d.Dhx.Get(i, k) * (d.T.Get(i+1, k) - tVal) / d.Dxs[minInt(i, d.Nx-1)] * d.Au.Get(i, k)
			}
			if k > d.KcBot[i] {
				wB := d.W.Get(i, k-1)
				f := advect.UpwindFlux(wB, d.T.Get(i, k-1), tVal, d.Dz[k]) * d.Aw.Get(i, k-1)
				rhs += f
				divFlux -= wB * d.Aw.Get(i, k-1)
				rhs += hc.AlphaHeat * d.Dhz.Get(i, k-1) * (d.T.Get(i, k-1) - tVal) / d.Dzs[k-1] * d.Aw.Get(i, k-1)
			}
			if k < d.KSrf {
				wT := d.W.Get(i, k)
				f := advect.UpwindFlux(wT, tVal, d.T.Get(i, k+1), d.Dz[k]) * d.Aw.Get(i, k)
				rhs -= f
				divFlux += wT * d.Aw.Get(i, k)
				rhs += hc.AlphaHeat * d.Dhz.Get(i, k) * (d.T.Get(i, k+1) - tVal) / d.Dzs[k] * d.Aw.Get(i, k)
			} else {
				rhs += surfaceHeatFlux(tVal, hc.Met, hc) * d.Aw.Get(i, k)
			}
			if hc.Radiation && k < d.KSrf {
				depth := d.ZSrf - d.zc(k)
				rhs += radiationHeatFlux(depth, hc.Met, hc) * d.Aw.Get(i, k)
			}

			for _, src := range d.Sources {
				if src.I != i || k >= len(src.Weights) || src.Weights[k] == 0 {
					continue
				}
				rhs += (src.TSrc - tVal) * src.Weights[k] * src.Q
			}

			// Divergence correction compensating the non-conservative
			// upwind form (spec.md §4.H).
			rhs += divFlux * tVal

			d.T.Set(tVal+dt*rhs/vol, i, k)
		}
	}

	// Ghost row above the surface mirrors the surface row.
	for i := 0; i <= nx+1; i++ {
		d.T.Set(d.T.Get(i, d.KSrf), i, d.KSrf+1)
	}
	return nil
}
