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

import "sync"

// DomainManipulator is a function that operates on the whole simulation,
// one step at a time -- grounded on the teacher's DomainManipulator in
// run.go, generalized from a per-cell unit of work to a per-domain one,
// since a Domain (not a cell) is the unit of concurrent ownership here
// (spec.md §5).
type DomainManipulator func(s *Simulation) error

// CellManipulator is a function that operates on a single domain. It is
// the per-domain analogue of the teacher's CellManipulator in run.go,
// following the same "conditional compilation becomes a parameterized
// kernel" re-architecture note from spec.md §9.
type CellManipulator func(d *Domain, dt float64) error

// Calculations runs the given per-domain operations across every domain
// in the simulation concurrently, one goroutine per domain, grounded on
// run.go's Calculations worker pool (which locks a per-cell mutex; here
// each domain owns its state exclusively, so no lock is required beyond
// the WaitGroup barrier).
func Calculations(ops ...CellManipulator) DomainManipulator {
	return func(s *Simulation) error {
		errs := make([]error, len(s.Doms))
		var wg sync.WaitGroup
		wg.Add(len(s.Doms))
		for di, dom := range s.Doms {
			go func(di int, d *Domain) {
				defer wg.Done()
				for _, op := range ops {
					if err := op(d, s.DtSec); err != nil {
						errs[di] = err
						return
					}
				}
			}(di, dom)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return err
			}
		}
		return nil
	}
}

// Sequential runs the given simulation-wide operations one after another.
// Use it for steps that must observe every domain before any domain's
// state is mutated -- the coupler's surface-height inversion, most
// notably (spec.md §5).
func Sequential(ops ...DomainManipulator) DomainManipulator {
	return func(s *Simulation) error {
		for _, op := range ops {
			if err := op(s); err != nil {
				return err
			}
		}
		return nil
	}
}

// Step advances the simulation by one time step following the schedule
// of spec.md §5:
//
//	parallel(G prep) -> parallel(B) -> barrier -> single-thread C ->
//	parallel(M,H,S,D,T per domain) -> barrier
func Step(s *Simulation) error {
	if err := Calculations(checkCFL)(s); err != nil {
		return err
	}
	if err := Calculations(buildBoundarySources)(s); err != nil {
		return err
	}
	if err := UpdateCoupler(s); err != nil {
		return err
	}
	if err := Calculations(
		(*Domain).stepMomentum,
		(*Domain).stepHeat,
		(*Domain).stepSolids,
		densityManipulator,
		turbulenceManipulator,
	)(s); err != nil {
		return err
	}
	for _, dom := range s.Doms {
		dom.step++
	}
	s.Step++
	s.Time += s.DtSec
	return nil
}

func densityManipulator(d *Domain, dt float64) error    { return d.UpdateDensityPressure() }
func turbulenceManipulator(d *Domain, dt float64) error { return d.UpdateTurbulence(dt) }

func (d *Domain) stepMomentum(dt float64) error { return d.UpdateMomentum(dt) }
func (d *Domain) stepHeat(dt float64) error     { return d.UpdateHeat(dt) }

func (d *Domain) stepSolids(dt float64) error {
	for ci := range d.Particles {
		if err := d.UpdateSolids(dt, ci); err != nil {
			return err
		}
	}
	return nil
}

// checkCFL verifies that the time step dt is stable, per spec.md §5's CFL
// test. It returns CFLError whenever dt exceeds the domain's stable bound,
// whatever the FixedDt setting, and never changes the time step.
func checkCFL(d *Domain, dt float64) error {
	maxDt := d.stableDt()
	if d.step == 0 {
		// first call: nothing mutated yet regardless of outcome
	}
	if dt > maxDt {
		return CFLError{DomainID: d.ID, Step: d.step, ConfigDt: dt, MaxDt: maxDt}
	}
	return nil
}

// stableDt computes min(dx/|u|, dx2/(2*dmx), dz/|w-w_ss|, dz2/(2*dmz))
// over all wet cells of the domain (spec.md §5).
func (d *Domain) stableDt() float64 {
	best := -1.0
	consider := func(v float64) {
		if v <= 0 {
			return
		}
		if best < 0 || v < best {
			best = v
		}
	}
	for i := 1; i < d.Nx; i++ {
		for k := d.KcBot[i]; k <= d.KSrf; k++ {
			u := d.U.Get(i, k)
			if u != 0 {
				consider(d.Dx[i] / absf(u))
			}
			dmx := d.Dmx.Get(i, k)
			if dmx > 0 {
				consider(d.Dx[i] * d.Dx[i] / (2 * dmx))
			}
			w := d.W.Get(i, k)
			wss := 0.0
			if len(d.Particles) > 0 {
				wss = d.Particles[0].Wss
			}
			if w-wss != 0 {
				consider(d.Dz[k] / absf(w-wss))
			}
			dmz := d.Dmz.Get(i, k)
			if dmz > 0 {
				consider(d.Dz[k] * d.Dz[k] / (2 * dmz))
			}
		}
	}
	if best < 0 {
		return 1e9
	}
	return best
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
