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

import "math"

// TurbulenceConfig holds the per-domain parameters of component T
// (spec.md §4.T): the Richardson-number closure's molecular and
// background-diffusivity coefficients, and the k-epsilon closure's
// boundary and numerical-scheme options.
type TurbulenceConfig struct {
	Mode string // "richardson" (default) or "ke"

	Dmx0, Dhx0, Dcx0 float64 // background horizontal diffusivity scales, m2/s/86400
	Dmz0, Dhz0, Dcz0 float64 // background vertical diffusivity scales
	LL, MM, NN       float64 // Richardson-number exponent coefficients
	Dmix             float64 // unstable-stratification mixing diffusivity

	ImplicitKE bool // semi-implicit tridiagonal vertical step vs explicit upwind
	FreeSlip   bool // zero d*z at bottom and surface face
	WindDrag   func(windSpeed float64) float64
	BottomCd   float64 // quadratic bottom friction coefficient
}

// UpdateTurbulence recomputes the eddy viscosity/diffusivity fields for
// one domain (component T). D must have been called first in the same
// step (spec.md §5): the Richardson number and k-epsilon buoyancy term
// both read rho.
func (d *Domain) UpdateTurbulence(dt float64) error {
	switch d.Turbulence.Mode {
	case "ke":
		return d.updateTurbulenceKE(dt)
	default:
		return d.updateTurbulenceRichardson()
	}
}

func (d *Domain) updateTurbulenceRichardson() error {
	nx, nz := d.Nx, d.Nz
	tc := d.Turbulence
	const epsGrad = 1e-8

	for i := 1; i <= nx; i++ {
		tref := d.T.Get(i, d.KSrf)
		nu := dynamicViscosity(tref) / refRhoW
		alpha := thermalConductivity(tref) / (refRhoW * 4186)
		dx2 := d.Dx[i] * d.Dx[i]
		dmx := nu + tc.Dmx0/86400*dx2
		dhx := alpha + tc.Dhx0/86400*dx2
		dcx := nu + tc.Dcx0/86400*dx2
		for k := d.KcBot[i]; k <= d.KSrf; k++ {
			d.Dmx.Set(dmx, i, k)
			d.Dhx.Set(dhx, i, k)
			d.Dcx.Set(dcx, i, k)
		}

		for k := d.KcBot[i]; k < d.KSrf; k++ {
			dudz := (d.U.Get(i, k+1) - d.U.Get(i, k)) / d.Dzs[k]
			if math.Abs(dudz) < epsGrad {
				dudz = epsGrad
			}
			drhodz := (d.Rho.Get(i, k+1) - d.Rho.Get(i, k)) / d.Dzs[k]
			ri := clamp(-gravity*drhodz/(d.Rho.Get(i, k)*dudz*dudz), 0, 15)

			dmz := nu + tc.Dmz0*math.Exp(-tc.LL*ri)
			dhz := alpha + tc.Dhz0*math.Exp(-tc.MM*ri)
			dcz := nu + tc.Dcz0*math.Exp(-tc.NN*ri)

			if d.Rho.Get(i, k+1) > d.Rho.Get(i, k) {
				dhz = tc.Dmix
				dcz = tc.Dmix
			}
			d.Dmz.Set(dmz, i, k)
			d.Dhz.Set(dhz, i, k)
			d.Dcz.Set(dcz, i, k)
		}
		// Bottom and surface faces inherit the adjacent value.
		if d.KcBot[i] <= d.KSrf {
			bot := d.KcBot[i]
			d.Dmz.Set(d.Dmz.Get(i, bot), i, bot-1)
			d.Dhz.Set(d.Dhz.Get(i, bot), i, bot-1)
			d.Dcz.Set(d.Dcz.Get(i, bot), i, bot-1)
			d.Dmz.Set(d.Dmz.Get(i, d.KSrf-1), i, d.KSrf)
			d.Dhz.Set(d.Dhz.Get(i, d.KSrf-1), i, d.KSrf)
			d.Dcz.Set(d.Dcz.Get(i, d.KSrf-1), i, d.KSrf)
		}
	}
	return nil
}

func (d *Domain) updateTurbulenceKE(dt float64) error {
	nx := d.Nx
	tc := d.Turbulence

	for i := 1; i <= nx; i++ {
		kBot, kSrf := d.KcBot[i], d.KSrf
		n := kSrf - kBot + 1
		if n < 1 {
			continue
		}

		prod := make([]float64, n)
		buoy := make([]float64, n)
		for k := kBot; k <= kSrf; k++ {
			idx := k - kBot
			var dudz float64
			if k < kSrf {
				dudz = (d.U.Get(i, k+1) - d.U.Get(i, k)) / d.Dzs[k]
			}
			prod[idx] = d.Dmz.Get(i, k) * dudz * dudz
			if k > kBot {
				buoy[idx] = maxf(d.Dmz.Get(i, k)*gravity*(d.Rho.Get(i, k-1)-d.Rho.Get(i, k))/(refRhoW*d.Dz[k]), 0)
			}
		}

		if tc.ImplicitKE {
			d.implicitKEColumn(i, kBot, kSrf, dt, prod, buoy)
		} else {
			d.explicitKEColumn(i, kBot, kSrf, dt, prod, buoy)
		}

		for k := kBot; k <= kSrf; k++ {
			tke := clamp(d.Tke.Get(i, k), 1.25e-7, 10)
			eps := math.Max(d.TdEps.Get(i, k), 1e-9)
			d.Tke.Set(tke, i, k)
			d.TdEps.Set(eps, i, k)
			rawNut := keCmu * tke * tke / eps
			d.Nut.Set(math.Min(rawNut, 0.2), i, k)

			if rawNut > 10 && d.NutExceedLogged.Get(i, k) == 0 {
				if d.Log != nil {
					d.Log.Warnf("nut exceedance at column %d, cell %d: %g (clamped to 0.2)", i, k, rawNut)
				}
				d.NutExceedLogged.Set(1, i, k)
			}
		}

		for k := kBot; k < kSrf; k++ {
			dmz := clamp(0.5*(d.Nut.Get(i, k)+d.Nut.Get(i, k+1)), 1.4e-6, 0.2)
			dhz := math.Max(1.4e-7, 0.14*dmz)
			d.Dmz.Set(dmz, i, k)
			d.Dhz.Set(dhz, i, k)
			d.Dcz.Set(dhz, i, k)
		}
		if tc.FreeSlip {
			d.Dmz.Set(0, i, kBot-1)
			d.Dhz.Set(0, i, kBot-1)
			d.Dcz.Set(0, i, kBot-1)
			d.Dmz.Set(0, i, kSrf)
			d.Dhz.Set(0, i, kSrf)
			d.Dcz.Set(0, i, kSrf)
		}
	}
	return nil
}

// explicitKEColumn advances tke/eps with a first-order explicit upwind
// step (spec.md §4.T).
func (d *Domain) explicitKEColumn(i, kBot, kSrf int, dt float64, prod, buoy []float64) {
	for k := kBot; k <= kSrf; k++ {
		idx := k - kBot
		tke := d.Tke.Get(i, k)
		eps := d.TdEps.Get(i, k)
		dTke := prod[idx] + buoy[idx] - eps
		dEps := eps / math.Max(tke, 1e-9) * (keC1*(prod[idx]+buoy[idx]) - keC2*eps)
		d.Tke.Set(tke+dt*dTke, i, k)
		d.TdEps.Set(eps+dt*dEps, i, k)
	}
}

// implicitKEColumn advances tke with a semi-implicit tridiagonal step for
// the vertical-diffusion term, using sigma_k = 1 (spec.md §4.T). The
// dissipation/production terms are treated explicitly as the source.
// Solved with a direct Thomas sweep: the system is tightly sized (one
// unknown per wet cell in the column) and strictly diagonally dominant by
// construction, so a hand-rolled O(n) solve is preferable to allocating a
// general banded solver for each column, each step (see DESIGN.md).
func (d *Domain) implicitKEColumn(i, kBot, kSrf int, dt float64, prod, buoy []float64) {
	n := kSrf - kBot + 1
	lower := make([]float64, n)
	diag := make([]float64, n)
	upper := make([]float64, n)
	rhs := make([]float64, n)

	for k := kBot; k <= kSrf; k++ {
		idx := k - kBot
		tke := d.Tke.Get(i, k)
		eps := math.Max(d.TdEps.Get(i, k), 1e-9)
		diag[idx] = 1.0
		rhs[idx] = tke + dt*(prod[idx]+buoy[idx]-eps)
		if k > kBot {
			dz := d.Dzs[k-1]
			coef := dt * d.Dmz.Get(i, k-1) / keSigmaK / (dz * dz)
			lower[idx] = -coef
			diag[idx] += coef
		}
		if k < kSrf {
			dz := d.Dzs[k]
			coef := dt * d.Dmz.Get(i, k) / keSigmaK / (dz * dz)
			upper[idx] = -coef
			diag[idx] += coef
		}
	}

	sol := thomasSolve(lower, diag, upper, rhs)
	for k := kBot; k <= kSrf; k++ {
		idx := k - kBot
		d.Tke.Set(sol[idx], i, k)
		eps := d.TdEps.Get(i, k)
		d.TdEps.Set(math.Max(eps+dt*eps/math.Max(sol[idx], 1e-9)*(keC1*(prod[idx]+buoy[idx])-keC2*eps), 1e-9), i, k)
	}
}

// thomasSolve solves a tridiagonal system Ax = d, where lower[k]/diag[k]/
// upper[k] are the sub-, main- and super-diagonal entries of row k
// (lower[0] and upper[n-1] are unused).
func thomasSolve(lower, diag, upper, rhs []float64) []float64 {
	n := len(diag)
	cp := make([]float64, n)
	dp := make([]float64, n)
	cp[0] = upper[0] / diag[0]
	dp[0] = rhs[0] / diag[0]
	for k := 1; k < n; k++ {
		m := diag[k] - lower[k]*cp[k-1]
		if k < n-1 {
			cp[k] = upper[k] / m
		}
		dp[k] = (rhs[k] - lower[k]*dp[k-1]) / m
	}
	x := make([]float64, n)
	x[n-1] = dp[n-1]
	for k := n - 2; k >= 0; k-- {
		x[k] = dp[k] - cp[k]*x[k+1]
	}
	return x
}
