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

	"gonum.org/v1/gonum/floats"
)

// BoundarySet holds every boundary descriptor of a domain (spec.md §3):
// the inlet, up to 10 outlets, tributaries, confluences, water pipes,
// point inflows, point outflows, and fences (fences live on Domain
// directly, see fence.go). Descriptors are immutable after init except
// their TimeSeries.
type BoundarySet struct {
	Inlet       *InflowBoundary
	Outlets     []*OutflowBoundary
	Tributaries []*InflowBoundary
	Confluences []*ConfluenceLink
	Pipes       []*PipeLink
	PointIns    []*InflowBoundary
	PointOuts   []*OutflowBoundary
}

// InflowBoundary describes an inlet, tributary or point-inflow source.
type InflowBoundary struct {
	I      int // column index receiving the source
	Mode   string // EDI, RID, RI1
	Fr     float64
	Width  float64 // aperture/width b
	Angle  float64 // injection angle
	ZIn    float64 // EDI: explicit source elevation, 0 if density-selected
	ZInLow float64 // floor elevation for EDI
	Series *TimeSeries
}

// OutflowBoundary describes an outlet or point-outflow sink.
type OutflowBoundary struct {
	I          int
	Mode       string // NDO, EDO, DDD
	Fr         float64
	ZOut       float64
	GateHeight float64 // EDO
	ZKTSW      float64 // DDD: user-forced top elevation, 0 if not forced
	ZKBSW      float64 // DDD: user-forced bottom elevation, 0 if not forced
	Series     *TimeSeries
}

// ConfluenceLink ties two domains that share a free surface. OtherDomain
// is an index into Simulation.Doms, never an owning reference (spec.md
// §9's "no cyclic ownership" note).
type ConfluenceLink struct {
	I           int
	OtherDomain int
	Series      *TimeSeries
}

// PipeLink is a water-pipe connection between two domains. The domain
// with the lower id owns the reading of the schedule; the counterpart
// receives its negation (spec.md §4.B).
type PipeLink struct {
	I           int
	OtherDomain int
	OwnsReading bool
	Series      *TimeSeries
}

// SourceTerm is the outcome of the boundary source builder for one
// boundary descriptor: a column index, a signed total flow, and a
// normalized vertical weight profile whose entries sum to 1 over the wet
// range of the column (weight[k]*Q is the discharge assigned to cell k).
type SourceTerm struct {
	Kind    string
	I       int
	Q       float64 // signed: positive inflow, negative outflow
	Weights []float64
	TSrc    float64
	CSrc    []float64
}

// buildBoundarySources recomputes every domain's boundary SourceTerms for
// the current step (component B, spec.md §4.B). It is a CellManipulator
// so Calculations can run it across domains in parallel (spec.md §5).
func buildBoundarySources(d *Domain, dt float64) error {
	d.Sources = d.Sources[:0]
	t := float64(d.step) * dt

	if d.Boundaries.Inlet != nil {
		term, err := d.inflowSource(d.Boundaries.Inlet, "inlet", t)
		if err != nil {
			return err
		}
		d.Sources = append(d.Sources, term)
	}
	for _, trb := range d.Boundaries.Tributaries {
		term, err := d.inflowSource(trb, "tributary", t)
		if err != nil {
			return err
		}
		d.Sources = append(d.Sources, term)
	}
	for _, pin := range d.Boundaries.PointIns {
		term, err := d.inflowSource(pin, "pointin", t)
		if err != nil {
			return err
		}
		d.Sources = append(d.Sources, term)
	}
	for _, cnf := range d.Boundaries.Confluences {
		term, err := d.confluenceSource(cnf, t)
		if err != nil {
			return err
		}
		d.Sources = append(d.Sources, term)
	}
	for _, pipe := range d.Boundaries.Pipes {
		term, err := d.pipeSource(pipe, t)
		if err != nil {
			return err
		}
		d.Sources = append(d.Sources, term)
	}

	if len(d.Boundaries.Outlets) == 0 {
		if d.step == 0 && d.Log != nil {
			d.Log.Warn("no outlets configured; treating east boundary as open")
		}
		// East boundary open: copy velocity and scalars from i=nx-1 to
		// nx and nx+1 (spec.md §4.B).
		nx := d.Nx
		for k := 0; k <= d.Nz+1; k++ {
			d.T.Set(d.T.Get(nx-1, k), nx, k)
			d.T.Set(d.T.Get(nx-1, k), nx+1, k)
			for ci := range d.C {
				d.C[ci].Set(d.C[ci].Get(nx-1, k), nx, k)
				d.C[ci].Set(d.C[ci].Get(nx-1, k), nx+1, k)
			}
		}
		for k := 1; k <= d.Nz; k++ {
			d.U.Set(d.U.Get(nx-1, k), nx, k)
		}
	} else {
		for _, out := range d.Boundaries.Outlets {
			term, err := d.outflowSource(out, "outlet", t)
			if err != nil {
				return err
			}
			d.Sources = append(d.Sources, term)
		}
	}
	for _, out := range d.Boundaries.PointOuts {
		term, err := d.outflowSource(out, "pointout", t)
		if err != nil {
			return err
		}
		d.Sources = append(d.Sources, term)
	}

	return nil
}

func (d *Domain) inflowSource(b *InflowBoundary, kind string, t float64) (SourceTerm, error) {
	row, err := b.Series.Value(t)
	if err != nil {
		return SourceTerm{}, err
	}
	q, tSrc := row[0], row[1]
	cSrc := append([]float64(nil), row[2:]...)

	switch b.Mode {
	case "RI1":
		return d.ri1Source(b, kind, q, tSrc, cSrc)
	case "RID":
		return d.densitySelectedInflow(b, kind, q, tSrc, cSrc, d.midDepthElevation())
	default: // EDI
		zSrc := b.ZIn
		if zSrc == 0 {
			zSrc, err = d.densityMatchedElevation(tSrc, cSrc)
			if err != nil {
				return SourceTerm{}, err
			}
		}
		if zSrc < b.ZInLow {
			zSrc = b.ZInLow
		}
		return d.densitySelectedInflow(b, kind, q, tSrc, cSrc, zSrc)
	}
}

// midDepthElevation returns the elevation halfway between the bed and
// the free surface, used by RID mode.
func (d *Domain) midDepthElevation() float64 {
	return 0.5 * (d.Z[0] + d.ZSrf)
}

// densityMatchedElevation locates the elevation where rho_avg equals the
// density implied by the source temperature/solids load, by scanning for
// a bracket in rho_avg (spec.md §4.B).
func (d *Domain) densityMatchedElevation(tSrc float64, cSrc []float64) (float64, error) {
	rhoSrc := waterDensity(tSrc)
	for _, c := range cSrc {
		rhoSrc += c / 1000 * (1 - rhoSrc/1200)
	}
	for k := 1; k <= d.Nz; k++ {
		lo, hi := d.RhoAvg[k-1], d.RhoAvg[k]
		if (rhoSrc-lo)*(rhoSrc-hi) <= 0 && lo != hi {
			frac := (rhoSrc - lo) / (hi - lo)
			return d.Z[k-1] + frac*(d.Z[k]-d.Z[k-1]), nil
		}
	}
	return 0, DomainError{DomainID: d.ID, Step: d.step, Msg: "no density bracket found for boundary source"}
}

// densitySelectedInflow builds the Gaussian vertical profile of spec.md
// §4.B around elevation zSrc for a flow Q at column b.I.
func (d *Domain) densitySelectedInflow(b *InflowBoundary, kind string, q, tSrc float64, cSrc []float64, zSrc float64) (SourceTerm, error) {
	w, err := d.gaussianWeights(zSrc, q, b.Fr, b.Width)
	if err != nil {
		return SourceTerm{}, err
	}
	return SourceTerm{Kind: kind, I: b.I, Q: q, Weights: w, TSrc: tSrc, CSrc: cSrc}, nil
}

// ri1Source implements the RI1 single-cell density-selected inflow mode:
// one selected layer kc receives all Q/au, splitting 50/50 with the cell
// below at the surface if the surface cell is thin.
func (d *Domain) ri1Source(b *InflowBoundary, kind string, q, tSrc float64, cSrc []float64) (SourceTerm, error) {
	zSrc, err := d.densityMatchedElevation(tSrc, cSrc)
	if err != nil {
		return SourceTerm{}, err
	}
	kc := interpIndex(d.Z, zSrc) + 1
	if kc < d.KcBot[b.I] {
		kc = d.KcBot[b.I]
	}
	if kc > d.KSrf {
		kc = d.KSrf
	}
	w := make([]float64, d.Nz+1)
	if kc == d.KSrf && d.Dz[d.KSrf] != 0 && d.Dz0.Get(b.I, d.KSrf)/d.Dz0.Get(b.I, d.KSrf) != 0 &&
		d.Dz[d.KSrf]/d.Dz0.Get(b.I, d.KSrf) < 0.7 && kc > d.KcBot[b.I] {
		w[kc] = 0.5
		w[kc-1] = 0.5
	} else {
		w[kc] = 1.0
	}
	return SourceTerm{Kind: kind, I: b.I, Q: q, Weights: w, TSrc: tSrc, CSrc: cSrc}, nil
}

// confluenceSource reads a shared-surface link's schedule: unlike an
// inlet/tributary, a confluence carries no density-selective profile of
// its own (the two domains already share one free surface via
// stepGroupSurface), so it contributes only a signed Q, coupled into
// momentum directly by face index (spec.md §4.C step 3, §9's "confluence"
// contribution to q_col).
func (d *Domain) confluenceSource(c *ConfluenceLink, t float64) (SourceTerm, error) {
	row, err := c.Series.Value(t)
	if err != nil {
		return SourceTerm{}, err
	}
	return SourceTerm{Kind: "confluence", I: c.I, Q: row[0]}, nil
}

// pipeSource reads a water-pipe link's schedule. The domain with the
// lower id owns the reading; its counterpart receives the negation, so
// the pair never double-counts the transferred volume (spec.md §4.B).
func (d *Domain) pipeSource(p *PipeLink, t float64) (SourceTerm, error) {
	row, err := p.Series.Value(t)
	if err != nil {
		return SourceTerm{}, err
	}
	q := row[0]
	if !p.OwnsReading {
		q = -q
	}
	return SourceTerm{Kind: "pipe", I: p.I, Q: q}, nil
}

func (d *Domain) outflowSource(o *OutflowBoundary, kind string, t float64) (SourceTerm, error) {
	row, err := o.Series.Value(t)
	if err != nil {
		return SourceTerm{}, err
	}
	q := -math.Abs(row[0])

	switch o.Mode {
	case "EDO":
		return d.edoSource(o, kind, q)
	case "DDD":
		return d.dddSource(o, kind, q)
	default: // NDO
		w, err := d.gaussianWeights(o.ZOut, q, o.Fr, 0)
		if err != nil {
			return SourceTerm{}, err
		}
		return SourceTerm{Kind: kind, I: o.I, Q: q, Weights: w}, nil
	}
}

// edoSource distributes flow equally over a prescribed gate height
// centred at z_out, respecting the bed and surface bounds.
func (d *Domain) edoSource(o *OutflowBoundary, kind string, q float64) (SourceTerm, error) {
	w := make([]float64, d.Nz+1)
	lo := maxf(o.ZOut-o.GateHeight/2, d.Z[d.KcBot[o.I]-1])
	hi := minf(o.ZOut+o.GateHeight/2, d.ZSrf)
	var total float64
	for k := d.KcBot[o.I]; k <= d.KSrf; k++ {
		if d.zc(k) >= lo && d.zc(k) <= hi {
			w[k] = 1
			total++
		}
	}
	if total == 0 {
		return SourceTerm{}, DomainError{DomainID: d.ID, Step: d.step, Msg: "EDO gate height spans no wet cells"}
	}
	for k := range w {
		w[k] /= total
	}
	return SourceTerm{Kind: kind, I: o.I, Q: q, Weights: w}, nil
}

// dddSource implements the density-dependent two-sided jet outflow mode.
func (d *Domain) dddSource(o *OutflowBoundary, kind string, q float64) (SourceTerm, error) {
	const outflowDensityFactor = 1.0
	outCoef := 1.0
	if d.ZSrf != 0 && o.ZOut/d.ZSrf > 0.9 {
		outCoef = outCoefNearSurface
	}
	hsw := math.Cbrt(outCoef * math.Abs(q) / outflowDensityFactor)

	half := hsw / 2
	kTop := interpIndex(d.Z, o.ZOut+half) + 1
	kBot := interpIndex(d.Z, o.ZOut-half) + 1
	if o.ZKTSW != 0 {
		kTop = interpIndex(d.Z, o.ZKTSW) + 1
	}
	if o.ZKBSW != 0 {
		kBot = interpIndex(d.Z, o.ZKBSW) + 1
	}
	kTop = clampInt(kTop, d.KcBot[o.I], d.KSrf)
	kBot = clampInt(kBot, d.KcBot[o.I], d.KSrf)
	if kBot > kTop {
		kBot, kTop = kTop, kBot
	}

	kc := interpIndex(d.Z, o.ZOut) + 1
	rhoKc := d.RhoAvg[clampInt(kc, 0, d.Nz)]
	var deltaRhoMax float64
	for k := kBot; k <= kTop; k++ {
		dr := math.Abs(d.RhoAvg[k] - rhoKc)
		if dr > deltaRhoMax {
			deltaRhoMax = dr
		}
	}
	if deltaRhoMax == 0 {
		deltaRhoMax = 1e-6
	}

	w := make([]float64, d.Nz+1)
	var total float64
	for k := kBot; k <= kTop; k++ {
		f := 1 - math.Pow((d.RhoAvg[k]-rhoKc)/deltaRhoMax, 2)
		f = clamp(f, 0, 1) * d.Au.Get(o.I, k)
		w[k] = f
		total += f
	}
	if total <= 0 {
		return SourceTerm{}, DomainError{DomainID: d.ID, Step: d.step, Msg: "DDD profile integrates to zero"}
	}
	for k := range w {
		w[k] /= total
	}
	return SourceTerm{Kind: kind, I: o.I, Q: q, Weights: w}, nil
}

// gaussianWeights builds the density-selective Gaussian profile shared by
// every non-point source (spec.md §4.B): it locates the wet-cell bracket
// kc around zSrc, computes the jet thickness delta from the local
// buoyancy frequency and the internal Froude number Fr, then normalizes
// the Gaussian weights so their sum is 1 (so weight[k]*Q is the discharge
// assigned to cell k, and the profile integrates to Q exactly).
func (d *Domain) gaussianWeights(zSrc, q, fr, b float64) ([]float64, error) {
	kc := interpIndex(d.Z, zSrc) + 1
	if kc < 1 {
		kc = 1
	}
	if kc > d.Nz {
		kc = d.Nz
	}
	if kc < 1 || d.Z[kc]-d.Z[kc-1] == 0 {
		return nil, DomainError{DomainID: d.ID, Step: d.step, Msg: "missing density bracket (kc not found)"}
	}

	eps := maxf(-(d.RhoAvg[kc]-d.RhoAvg[kc-1])/(d.Z[kc]-d.Z[kc-1])/refRhoW, 1e-6)
	if fr <= 0 {
		fr = 1
	}
	if b <= 0 {
		b = 1
	}
	delta := clamp(math.Sqrt(math.Abs(q)/(fr*b*math.Sqrt(eps*gravity))), 2*d.Dz[kc], d.Z[d.Nz]-d.Z[0])

	w := make([]float64, d.Nz+1)
	for k := 1; k <= d.Nz; k++ {
		zeta := (d.zc(k) - zSrc) / delta
		if zeta < -0.5 || zeta > 0.5 {
			continue
		}
		w[k] = math.Exp(-0.5 * math.Pow(zeta*gaussianSigmaScale, 2))
	}
	total := floats.Sum(w)
	if total <= 0 {
		w[kc] = 1
		total = 1
	}
	floats.Scale(1/total, w)
	return w, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
