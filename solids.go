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

	"github.com/ctessum/atmos/advect"
)

// stokesSettlingVelocity computes the still-water settling velocity of a
// spherical particle class from Stokes' law, per spec.md §4.S. Returns a
// ConfigError, a fatal condition, if the particle Reynolds number would
// put the particle outside the Stokes regime (Rep >= 1.5).
func stokesSettlingVelocity(p ParticleClass, waterRho, waterMu float64) (float64, error) {
	g := gravity
	wss := g * p.Diameter * p.Diameter * (p.RhoSS - waterRho) / (18 * waterMu)
	rep := waterRho * math.Abs(wss) * p.Diameter / waterMu
	if rep >= 1.5 {
		return 0, ConfigError{Msg: "particle class " + p.Name + " outside Stokes regime (Rep >= 1.5)"}
	}
	return wss, nil
}

// UpdateSolids advances one suspended-solids class for one domain by one
// time step (component S, spec.md §4.S). It mirrors UpdateHeat's upwind
// advection plus diffusion kernel, with the vertical advective velocity
// shifted by the class's settling velocity and a bed-face settling flux
// accumulated into CSed.
func (d *Domain) UpdateSolids(dt float64, classIdx int) error {
	nx := d.Nx
	p := d.Particles[classIdx]
	c := d.C[classIdx]
	wss := p.Wss

	for i := 1; i <= nx; i++ {
		kb := d.KcBot[i]
		for k := kb; k <= d.KSrf; k++ {
			vol := d.Vol.Get(i, k)
			if vol <= 0 {
				continue
			}
			cVal := c.Get(i, k)
			var rhs float64

			if !d.blocksFace(i-1, k) {
				uL := d.U.Get(i-1, k)
				rhs += advect.UpwindFlux(uL, c.Get(i-1, k), cVal, d.Dx[i]) * d.Au.Get(i-1, k)
				rhs += p.AlphaSS * d.Dcx.Get(i-1, k) * (c.Get(i-1, k) - cVal) / d.Dxs[minInt(i-1, d.Nx-1)] * d.Au.Get(i-1, k)
			}
			if !d.blocksFace(i, k) {
				uR := d.U.Get(i, k)
				rhs -= advect.UpwindFlux(uR, cVal, c.Get(i+1, k), d.Dx[i]) * d.Au.Get(i, k)
				rhs += p.AlphaSS * d.Dcx.Get(i, k) * (c.Get(i+1, k) - cVal) / d.Dxs[minInt(i, d.Nx-1)] * d.Au.Get(i, k)
			}

			if k > kb {
				wB := d.W.Get(i, k-1) - wss
				rhs += advect.UpwindFlux(wB, c.Get(i, k-1), cVal, d.Dz[k]) * d.Aw.Get(i, k-1)
				rhs += p.AlphaSS * d.Dcz.Get(i, k-1) * (c.Get(i, k-1) - cVal) / d.Dzs[k-1] * d.Aw.Get(i, k-1)
			} else {
				// Bed face: settling flux out of the column, accumulated
				// into CSed rather than fed back into a cell below k_bot.
				settleFlux := wss * cVal * d.Aw.Get(i, k-1)
				if settleFlux > 0 {
					rhs -= settleFlux
					d.CSed[classIdx][i] += settleFlux * dt
				}
			}
			if k < d.KSrf {
				wT := d.W.Get(i, k) - wss
				rhs -= advect.UpwindFlux(wT, cVal, c.Get(i, k+1), d.Dz[k]) * d.Aw.Get(i, k)
				rhs += p.AlphaSS * d.Dcz.Get(i, k) * (c.Get(i, k+1) - cVal) / d.Dzs[k] * d.Aw.Get(i, k)
			}

			for _, src := range d.Sources {
				if src.I != i || src.Q <= 0 || k >= len(src.Weights) || src.Weights[k] == 0 {
					continue
				}
				if classIdx < len(src.CSrc) {
					rhs += (src.CSrc[classIdx] - cVal) * src.Weights[k] * src.Q
				}
			}

			c.Set(cVal+dt*rhs/vol, i, k)
		}
	}

	for i := 0; i <= nx+1; i++ {
		c.Set(c.Get(i, d.KSrf), i, d.KSrf+1)
	}
	return nil
}
