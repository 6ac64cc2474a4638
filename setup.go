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
	"os"

	"github.com/sirupsen/logrus"
)

// BuildSimulation assembles a Simulation from a decoded Config: it reads
// each domain's geometry file, allocates and builds its mesh, computes
// its particle classes' settling velocities at a reference temperature,
// wires the shared Momentum/Heat options onto every domain, and builds
// each domain's BoundarySet and fence list from its DomainRecord (spec.md
// §3's domain lifecycle: "domain created from configuration records;
// geometry built once from external geometry reader; variables
// allocated").
func BuildSimulation(cfg *Config, log *logrus.Entry) (*Simulation, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	refWaterRho := waterDensity(20)
	refWaterMu := dynamicViscosity(20)
	particles, err := BuildParticleClasses(cfg.Particles, refWaterRho, refWaterMu)
	if err != nil {
		return nil, err
	}
	heatCfg := cfg.Heat.toConfig()

	sim := &Simulation{
		FixedDt: cfg.FixedDt,
		DtSec:   cfg.DtSec,
		ItMax:   cfg.ItMax,
		Log:     log,
	}

	for _, dr := range cfg.Domains {
		f, err := os.Open(dr.GeometryPath)
		if err != nil {
			return nil, IOError{DomainID: dr.ID, Path: dr.GeometryPath, Err: err}
		}
		geo, err := ReadGeometry(f)
		f.Close()
		if err != nil {
			return nil, err
		}

		d := NewDomain(dr.ID, dr.Name, geo.Nx, geo.Nz, particles)
		if err := d.BuildMesh(geo.X, geo.Z, geo.ZBed, geo.B); err != nil {
			return nil, err
		}
		d.Turbulence = dr.Turbulence
		d.Momentum = cfg.Momentum
		d.Heat = heatCfg
		d.Log = log.WithField("domain", d.Name)

		boundaries, fences, err := BuildBoundarySet(dr)
		if err != nil {
			return nil, err
		}
		if dr.Tributary && len(boundaries.Outlets) > 0 {
			d.Log.Warnf("tributary domain has %d configured outlet(s); overriding n_out to 0 (spec.md §7)", len(boundaries.Outlets))
			boundaries.Outlets = nil
		}
		d.Boundaries = boundaries
		d.Fences = fences

		if err := applyInitialState(d, dr, refWaterRho); err != nil {
			return nil, err
		}

		sim.Doms = append(sim.Doms, d)
	}
	return sim, nil
}

// applyInitialState sets a domain's starting field set, per spec.md §3's
// domain lifecycle ("initial field set (uniform or profile-from-file)").
// With no InitialState path the domain starts at rest, full of still
// water at the reference temperature, with the surface at the mesh's
// top reference elevation. With a path, the named snapshot file (in the
// same ctessum/cdf format written by WriteSnapshot) is read directly
// onto the domain's fields.
func applyInitialState(d *Domain, dr DomainRecord, refWaterRho float64) error {
	if dr.InitialState == "" {
		zTop := d.Z[d.Nz]
		for i := 0; i <= d.Nx+1; i++ {
			for k := 0; k <= d.Nz+1; k++ {
				d.T.Set(20, i, k)
				d.Rho.Set(refWaterRho, i, k)
			}
		}
		d.TotalVol = d.VolHgt[d.Nz]
		return d.UpdateSurfaceLayer(zTop)
	}

	f, err := os.Open(dr.InitialState)
	if err != nil {
		return IOError{DomainID: dr.ID, Path: dr.InitialState, Err: err}
	}
	defer f.Close()
	_, err = ReadSnapshot(d, f)
	return err
}
