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

/*
Package resflow implements a two-dimensional (longitudinal-vertical)
hydro-thermodynamic solver for stratified water bodies: reservoirs, rivers
and dam pools. It advances, over discrete time steps, a coupled set of
fields -- horizontal and vertical velocities, temperature, suspended-solids
concentration, water-surface elevation, pressure and density -- on a
staggered finite-volume mesh that tracks a moving free surface, and
supports multiple geometric domains connected by confluences and
water-pipe links.
*/
package resflow

import (
	"fmt"
	"reflect"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// Domain is the principal entity of a simulation: one reach, reservoir
// pool or dam pool with its own staggered (nx,nz) mesh. Field arrays are
// dense and column-major, backed by sparse.DenseArray, the same dense
// field container the pack uses for gridded met/background data.
//
// Exported scalar fields carry desc/units struct tags, following the
// teacher's Cell convention, so that probe and report code can look a
// named field up by reflection instead of hand-writing a switch per name.
type Domain struct {
	ID   int    `desc:"Domain identifier (1-based)"`
	Name string `desc:"Domain name"`

	Mesh

	// Primary fields: u[0..nx,1..nz], w[1..nx,0..nz], t and c carry a
	// one-cell ghost band on every side.
	U *sparse.DenseArray `desc:"Horizontal velocity" units:"m/s"`
	W *sparse.DenseArray `desc:"Vertical velocity" units:"m/s"`
	T *sparse.DenseArray `desc:"Temperature" units:"degC"`
	C []*sparse.DenseArray `desc:"Suspended-solids concentration per particle class" units:"g/m3"`

	// Derived fields.
	P       *sparse.DenseArray `desc:"Pressure" units:"Pa"`
	Rho     *sparse.DenseArray `desc:"Density" units:"kg/m3"`
	RhoAvg  []float64          `desc:"Column-averaged density at w-faces" units:"kg/m3"`
	Dmx     *sparse.DenseArray `desc:"Horizontal momentum diffusivity" units:"m2/s"`
	Dmz     *sparse.DenseArray `desc:"Vertical momentum diffusivity" units:"m2/s"`
	Dhx     *sparse.DenseArray `desc:"Horizontal heat diffusivity" units:"m2/s"`
	Dhz     *sparse.DenseArray `desc:"Vertical heat diffusivity" units:"m2/s"`
	Dcx     *sparse.DenseArray `desc:"Horizontal solids diffusivity" units:"m2/s"`
	Dcz     *sparse.DenseArray `desc:"Vertical solids diffusivity" units:"m2/s"`
	Tke     *sparse.DenseArray `desc:"Turbulent kinetic energy" units:"m2/s2"`
	TdEps   *sparse.DenseArray `desc:"Turbulent dissipation rate" units:"m2/s3"`
	Nut     *sparse.DenseArray `desc:"Eddy viscosity (k-epsilon)" units:"m2/s"`
	NutExceedLogged *sparse.DenseArray `desc:"Nonzero once a cell's nut exceedance has been logged" units:"1"`
	PGX     *sparse.DenseArray `desc:"Filtered pressure-gradient term" units:"m/s2"`
	PGXraw  *sparse.DenseArray `desc:"Raw pressure-gradient term" units:"m/s2"`
	PGXold  *sparse.DenseArray `desc:"Previous filtered pressure-gradient term" units:"m/s2"`

	// CSed[class][i] is the settled mass accumulated at the bed under
	// column i, one slice per particle class (sized nx+2 like the other
	// per-column tables) -- parallel to U/W/T/C, not a single domain-wide
	// scalar (spec.md §4.S, §6 snapshot field order).
	CSed [][]float64

	QCol []float64 `desc:"Target column discharge assigned by the coupler" units:"m3/s"`

	Boundaries BoundarySet
	Sources    []SourceTerm
	Fences     []*Fence
	Particles  []ParticleClass
	Turbulence TurbulenceConfig
	Momentum   MomentumConfig
	Heat       HeatConfig

	Log *logrus.Entry

	step int
}

// NewDomain allocates a Domain's field arrays for an nx-by-nz mesh. Every
// dense field is sized (nx+2, nz+2) so ghost-band indices (0, nx+1, nz+1)
// used by the boundary/advection code are always addressable without a
// bounds check, the same generous-sizing approach NewMesh uses for the
// face/cell tables.
func NewDomain(id int, name string, nx, nz int, particles []ParticleClass) *Domain {
	d := &Domain{ID: id, Name: name, Mesh: *NewMesh(nx, nz)}
	shape := func() *sparse.DenseArray { return sparse.ZerosDense(nx+2, nz+2) }

	d.U = shape()
	d.W = shape()
	d.T = shape()
	d.P = shape()
	d.Rho = shape()
	d.Dmx, d.Dmz = shape(), shape()
	d.Dhx, d.Dhz = shape(), shape()
	d.Dcx, d.Dcz = shape(), shape()
	d.Tke, d.TdEps, d.Nut = shape(), shape(), shape()
	d.NutExceedLogged = shape()
	d.PGX, d.PGXraw, d.PGXold = shape(), shape(), shape()

	d.RhoAvg = make([]float64, nz+2)
	d.QCol = make([]float64, nx+2)

	d.Particles = particles
	d.C = make([]*sparse.DenseArray, len(particles))
	for i := range particles {
		d.C[i] = shape()
	}
	d.CSed = make([][]float64, len(particles))
	for i := range particles {
		d.CSed[i] = make([]float64, nx+2)
	}

	return d
}

// FieldByName looks up a scalar field of Domain by its exported Go field
// name, the way the teacher's Cell.getValue resolves a probe/report
// variable through reflection over desc/units struct tags. It supports
// only the float64-scalar fields (TotalVol, ZSrf, ...); dense array fields
// must be read directly.
func (d *Domain) FieldByName(name string) (float64, string, error) {
	v := reflect.Indirect(reflect.ValueOf(d))
	f := v.FieldByName(name)
	if !f.IsValid() || f.Kind() != reflect.Float64 {
		return 0, "", fmt.Errorf("resflow: no scalar field %q on domain %d", name, d.ID)
	}
	t, _ := v.Type().FieldByName(name)
	return f.Float(), t.Tag.Get("units"), nil
}

// ParticleClass is the per-class configuration of a suspended-solids
// constituent (§4.S).
type ParticleClass struct {
	Name     string
	Diameter float64 // m
	RhoSS    float64 // kg/m3, particle density
	AlphaSS  float64 // diffusion scale factor
	Wss      float64 // settling velocity, computed at init (Stokes)
}

// Simulation is the root object: an ordered, read-only-after-setup
// sequence of Domains, grounded on InMAPdata in the teacher's
// framework.go/run.go. Cross-domain links (confluence id, water-pipe id)
// are indices into Doms, never owning references, per the coupler's
// re-architecture note in spec.md §9.
type Simulation struct {
	Doms []*Domain

	FixedDt bool
	DtSec   float64
	ItMax   int

	Step int
	Time float64 // seconds since start

	Log *logrus.Entry
}

// DomainByID returns the domain with the given 1-based id, or nil.
func (s *Simulation) DomainByID(id int) *Domain {
	for _, d := range s.Doms {
		if d.ID == id {
			return d
		}
	}
	return nil
}
