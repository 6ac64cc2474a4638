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

// MomentumConfig holds the per-domain options of component M
// (spec.md §4.M, and the global momentum options of §6).
type MomentumConfig struct {
	PressureGrad  bool
	SmoothPGX     bool
	GravitySlope  bool
	ThresholdPGX  float64
	BetaPGX       float64
	InitSlope     float64
	BedSlope      []float64 // per-column bed slope, atan(dz_bed/dx)
}

// UpdateMomentum advances u for one domain by one time step (component
// M, spec.md §4.M): upwind advective and diffusive face fluxes, an
// optional filtered pressure-gradient term, optional gravity from bed
// slope, boundary source couplings, fence zeroing, the column flow-target
// rescale, and the bottom-up continuity reconstruction of w.
func (d *Domain) UpdateMomentum(dt float64) error {
	nx := d.Nx
	mc := d.Momentum

	for i := 1; i < nx; i++ {
		for k := d.KcBot[i]; k <= d.KSrf; k++ {
			u := d.U.Get(i, k)
			vols := d.Vols.Get(i, k)
			if vols <= 0 {
				continue
			}

			// Face fluxes of u by donor-cell upwinding through the
			// x-faces of the u control volume.
			fluxXMinus := advect.UpwindFlux(0.5*(d.U.Get(i-1, k)+u), d.U.Get(i-1, k), u, d.Dxs[i]) * d.Aus.Get(i-1, k)
			fluxXPlus := advect.UpwindFlux(0.5*(u+d.U.Get(i+1, k)), u, d.U.Get(i+1, k), d.Dxs[i]) * d.Aus.Get(i+1, k)
			rhs := fluxXMinus - fluxXPlus

			// ... and through the z-faces.
			if k > d.KcBot[i] {
				fluxZMinus := advect.UpwindFlux(0.5*(d.W.Get(i, k-1)+d.W.Get(i+1, k-1)), d.U.Get(i, k-1), u, d.Dzs[k-1]) * d.Aws.Get(i, k-1)
				rhs += fluxZMinus
			}
			if k < d.KSrf {
				fluxZPlus := advect.UpwindFlux(0.5*(d.W.Get(i, k)+d.W.Get(i+1, k)), u, d.U.Get(i, k+1), d.Dzs[k]) * d.Aws.Get(i, k)
				rhs -= fluxZPlus
			}

			// Face diffusion dm*du/dx*A.
			if i > 1 {
				rhs += d.Dmx.Get(i-1, k) * (d.U.Get(i-1, k) - u) / d.Dxs[i] * d.Aus.Get(i-1, k)
			}
			if i < nx-1 {
				rhs += d.Dmx.Get(i, k) * (d.U.Get(i+1, k) - u) / d.Dxs[i] * d.Aus.Get(i, k)
			}
			if k > d.KcBot[i] {
				rhs += d.Dmz.Get(i, k-1) * (d.U.Get(i, k-1) - u) / d.Dzs[k-1] * d.Aws.Get(i, k-1)
			}
			if k < d.KSrf {
				rhs += d.Dmz.Get(i, k) * (d.U.Get(i, k+1) - u) / d.Dzs[k] * d.Aws.Get(i, k)
			}

			if mc.PressureGrad {
				rhs += d.pressureGradientTerm(i, k, vols)
			}
			if mc.GravitySlope && mc.BedSlope != nil {
				slope := math.Max(mc.BedSlope[i], mc.InitSlope)
				rhs += gravity * math.Sin(math.Atan(slope)) * vols
			}

			for _, src := range d.Sources {
				if src.I != i && src.I != i+1 {
					continue
				}
				q := src.Q
				uSrc := 0.0
				if q < 0 {
					uSrc = u
				}
				rhs += (uSrc - u) * q
			}

			d.U.Set(u+dt*rhs/vols, i, k)
		}
	}

	d.ApplyFences()
	d.rescaleColumnsToTarget()
	d.reconstructW()
	return nil
}

// pressureGradientTerm computes PGX = ((p(i+1,.)-p(i,.))/(rho_w*dxs))*vols,
// averaged across (k,k+1) below the surface row, falling back to a
// centred difference with an exponential time filter when |PGX| exceeds
// the configured threshold (spec.md §4.M).
func (d *Domain) pressureGradientTerm(i, k int, vols float64) float64 {
	mc := d.Momentum
	var raw float64
	if k < d.KSrf {
		pgxLow := (d.P.Get(i+1, k) - d.P.Get(i, k)) / (refRhoW * d.Dxs[i])
		pgxHigh := (d.P.Get(i+1, k+1) - d.P.Get(i, k+1)) / (refRhoW * d.Dxs[i])
		raw = 0.5 * (pgxLow + pgxHigh) * vols
	} else {
		raw = (d.P.Get(i+1, k) - d.P.Get(i, k)) / (refRhoW * d.Dxs[i]) * vols
	}

	if math.Abs(raw) > mc.ThresholdPGX && mc.ThresholdPGX > 0 {
		raw = (d.P.Get(i+1, k) - d.P.Get(i-1, k)) / 2 / (refRhoW * d.Dxs[i]) * vols
	}

	d.PGXraw.Set(raw, i, k)
	filtered := raw
	if mc.SmoothPGX {
		old := d.PGXold.Get(i, k)
		filtered = mc.BetaPGX*old + (1-mc.BetaPGX)*raw
	}
	d.PGXold.Set(d.PGX.Get(i, k), i, k)
	d.PGX.Set(filtered, i, k)
	return filtered
}

// rescaleColumnsToTarget rescales each u column so that
// sum_k(au*u) == q_col[i], the column flow target assigned by the
// coupler (spec.md §4.M, invariant M1).
func (d *Domain) rescaleColumnsToTarget() {
	if d.QCol == nil {
		return
	}
	for i := 1; i < d.Nx; i++ {
		var sum float64
		for k := d.KcBot[i]; k <= d.KSrf; k++ {
			sum += d.Au.Get(i, k) * d.U.Get(i, k)
		}
		if sum == 0 || d.QCol[i] == 0 {
			continue
		}
		scale := d.QCol[i] / sum
		for k := d.KcBot[i]; k <= d.KSrf; k++ {
			d.U.Set(d.U.Get(i, k)*scale, i, k)
		}
	}
}

// reconstructW rebuilds the vertical velocity from continuity, bottom-up
// (spec.md §4.M): w(i,k)*aw(i,k) = w(i,k-1)*aw(i,k-1) + q_sources(i,k) -
// (u(i,k)*au(i,k) - u(i-1,k)*au(i-1,k)), with w(i,kc_bot(i)-1) = 0. The
// ghost row k_srf+1 mirrors k_srf.
func (d *Domain) reconstructW() {
	for i := 1; i <= d.Nx; i++ {
		kb := d.KcBot[i]
		d.W.Set(0, i, kb-1)
		var wawPrev float64
		for k := kb; k <= d.KSrf; k++ {
			qSrc := 0.0
			for _, src := range d.Sources {
				if src.I == i && k < len(src.Weights) {
					qSrc += src.Weights[k] * src.Q
				}
			}
			uL, uR := 0.0, 0.0
			if i-1 >= 0 {
				uL = d.U.Get(i-1, k) * d.Au.Get(i-1, k)
			}
			if i <= d.Nx {
				uR = d.U.Get(i, k) * d.Au.Get(i, k)
			}
			waw := wawPrev + qSrc - (uR - uL)
			aw := d.Aw.Get(i, k)
			if aw != 0 {
				d.W.Set(waw/aw, i, k)
			}
			wawPrev = waw
		}
		d.W.Set(d.W.Get(i, d.KSrf), i, d.KSrf+1)
	}
}
