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
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/Knetic/govaluate"
	"github.com/ctessum/unit"
)

// Config is the top-level configuration record of spec.md §6, decoded
// from a TOML file the way the teacher's run.go reads its InMAP config
// (BurntSushi/toml, no reflection-free hand parser).
type Config struct {
	NDom       int      `toml:"ndom"`
	DomainNames []string `toml:"domain_names"`
	Restart    bool     `toml:"restart"`
	RestartID  string   `toml:"restart_snapshot_id"`

	FixedDt bool    `toml:"fixed_dt"`
	DtSec   float64 `toml:"dt_sec"`
	ItMax   int     `toml:"it_max"`

	OutputIntervalSteps int    `toml:"output_interval_steps"`
	OutputDir           string `toml:"output_dir"`

	Momentum MomentumConfig   `toml:"momentum"`
	Heat     HeatRecord       `toml:"heat"`
	Particles []ParticleRecord `toml:"particle"`
	Domains   []DomainRecord   `toml:"domain"`
}

// DomainRecord is the per-domain slice of Config: everything needed to
// build one Domain besides the shared global options (spec.md §6). The
// boundary-descriptor fields mirror BoundarySet one-for-one (inlet, up to
// 10 outlets, tributaries, confluences, water pipes, point inflows, point
// outflows) plus the domain's fences, so BuildBoundarySet can construct
// the whole of component B/X (spec.md §4.B, §4.X) from a decoded TOML
// file rather than from hand-built Go values.
type DomainRecord struct {
	ID           int    `toml:"id"`
	Name         string `toml:"name"`
	GeometryPath string `toml:"geometry_path"`
	InitialState string `toml:"initial_state_path"`

	Turbulence TurbulenceConfig `toml:"turbulence"`

	ProbePositions []int `toml:"probe_positions"`

	// Tributary marks a domain whose natural outlet is superseded by a
	// confluence with its receiving domain: n_out is forced to 0 (any
	// configured Outlets are dropped) and a warning is logged once
	// (spec.md §7's "overridden n_out for tributary domains").
	Tributary bool `toml:"is_tributary_domain"`

	Inlet       *InflowRecord      `toml:"inlet"`
	Outlets     []OutflowRecord    `toml:"outlet"`
	Tributaries []InflowRecord     `toml:"tributary"`
	Confluences []ConfluenceRecord `toml:"confluence"`
	Pipes       []PipeRecord       `toml:"pipe"`
	PointIns    []InflowRecord     `toml:"point_in"`
	PointOuts   []OutflowRecord    `toml:"point_out"`
	Fences      []FenceRecord      `toml:"fence"`
}

// InflowRecord is the TOML-decodable form of an InflowBoundary (inlet,
// tributary or point-inflow): its geometry plus either a CSV schedule
// path or literal constant row, per spec.md §6.
type InflowRecord struct {
	I      int     `toml:"i"`
	Mode   string  `toml:"mode"` // EDI, RID, RI1
	Fr     float64 `toml:"fr"`
	Width  float64 `toml:"width"`
	Angle  float64 `toml:"angle"`
	ZIn    float64 `toml:"z_in"`
	ZInLow float64 `toml:"z_in_low"`

	SeriesPath string    `toml:"series_path"`
	Constant   []float64 `toml:"constant"` // q, t_src, c1..c_nps
}

// OutflowRecord is the TOML-decodable form of an OutflowBoundary (outlet
// or point-outflow).
type OutflowRecord struct {
	I          int     `toml:"i"`
	Mode       string  `toml:"mode"` // NDO, EDO, DDD
	Fr         float64 `toml:"fr"`
	ZOut       float64 `toml:"z_out"`
	GateHeight float64 `toml:"gate_height"`
	ZKTSW      float64 `toml:"z_ktsw"`
	ZKBSW      float64 `toml:"z_kbsw"`

	SeriesPath string    `toml:"series_path"`
	Constant   []float64 `toml:"constant"` // q
}

// ConfluenceRecord is the TOML-decodable form of a ConfluenceLink.
// OtherDomain is the linked domain's 1-based id (spec.md §4.C).
type ConfluenceRecord struct {
	I           int `toml:"i"`
	OtherDomain int `toml:"other_domain"`

	SeriesPath string    `toml:"series_path"`
	Constant   []float64 `toml:"constant"` // q
}

// PipeRecord is the TOML-decodable form of a PipeLink. OwnsReading marks
// the domain with the lower id, which owns reading the schedule; the
// counterpart's record should set OwnsReading false so pipeSource
// negates the reading (spec.md §4.B).
type PipeRecord struct {
	I           int  `toml:"i"`
	OtherDomain int  `toml:"other_domain"`
	OwnsReading bool `toml:"owns_reading"`

	SeriesPath string    `toml:"series_path"`
	Constant   []float64 `toml:"constant"` // q
}

// FenceRecord is the TOML-decodable form of a Fence (spec.md §4.X).
type FenceRecord struct {
	IFnc     int     `toml:"i_fnc"`
	KLow     int     `toml:"k_low"`
	KHigh    int     `toml:"k_high"`
	Floating bool    `toml:"floating"`
	Width    float64 `toml:"width"`
}

// HeatRecord is the TOML-decodable form of HeatConfig: z_wind_m is a
// plain number in meters (unit strings such as "3ft" are not accepted),
// wrapped as a length with ctessum/unit and passed through unchanged.
type HeatRecord struct {
	Radiation bool    `toml:"radiation"`
	Ar        float64 `toml:"ar"`
	Beta      float64 `toml:"beta"`
	Eta       float64 `toml:"eta"`
	ZWindM    float64 `toml:"z_wind_m"`
	AlphaHeat float64 `toml:"alpha_heat"`
}

func (r HeatRecord) toConfig() HeatConfig {
	zWind := unit.New(r.ZWindM, unit.Dimensions{unit.LengthDim: 1}).Value()
	return HeatConfig{
		Radiation: r.Radiation,
		Ar:        r.Ar,
		Beta:      r.Beta,
		Eta:       r.Eta,
		ZWind:     zWind,
		AlphaHeat: r.AlphaHeat,
	}
}

// ParticleRecord is the TOML-decodable form of one suspended-solids class
// (spec.md §6's "particle spec (nps<=20, per-class diameter, rho_ss,
// alpha_ss)"). DiameterM (m) and RhoSS (kg/m3) are plain SI numbers; no
// unit strings are parsed.
type ParticleRecord struct {
	Name     string  `toml:"name"`
	DiameterM float64 `toml:"diameter_m"`
	RhoSS    float64 `toml:"rho_ss"`
	AlphaSS  float64 `toml:"alpha_ss"`
}

const maxParticleClasses = 20

// LoadConfig decodes a TOML configuration file into a Config.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, IOError{Path: path, Err: err}
	}
	defer f.Close()

	var cfg Config
	if _, err := toml.DecodeReader(f, &cfg); err != nil {
		return nil, ConfigError{Msg: "decoding " + path + ": " + err.Error()}
	}
	if len(cfg.Particles) > maxParticleClasses {
		return nil, ConfigError{Msg: "particle spec exceeds the 20-class limit (nps <= 20)"}
	}
	return &cfg, nil
}

// BuildParticleClasses converts the config's particle records into
// ParticleClass values, computing each class's Stokes settling velocity
// against the given reference water density/viscosity (spec.md §4.S).
// Returns ConfigError if any class's settling Reynolds number falls
// outside the Stokes validity bound.
func BuildParticleClasses(records []ParticleRecord, waterRho, waterMu float64) ([]ParticleClass, error) {
	if len(records) > maxParticleClasses {
		return nil, ConfigError{Msg: "particle spec exceeds the 20-class limit (nps <= 20)"}
	}
	classes := make([]ParticleClass, len(records))
	for i, r := range records {
		p := ParticleClass{Name: r.Name, Diameter: r.DiameterM, RhoSS: r.RhoSS, AlphaSS: r.AlphaSS}
		wss, err := stokesSettlingVelocity(p, waterRho, waterMu)
		if err != nil {
			return nil, err
		}
		p.Wss = wss
		classes[i] = p
	}
	return classes, nil
}

// BuildBoundarySet converts a DomainRecord's boundary sub-records into the
// BoundarySet and fence list a Domain needs to exercise component B and X
// (spec.md §4.B, §4.X), the config-layer counterpart of BuildParticleClasses.
// Each sub-record's schedule is read from SeriesPath if given, else built
// as a constant series from Constant (spec.md §6).
func BuildBoundarySet(dr DomainRecord) (BoundarySet, []*Fence, error) {
	var bs BoundarySet

	if dr.Inlet != nil {
		b, err := buildInflow(*dr.Inlet)
		if err != nil {
			return bs, nil, err
		}
		bs.Inlet = b
	}
	for _, r := range dr.Tributaries {
		b, err := buildInflow(r)
		if err != nil {
			return bs, nil, err
		}
		bs.Tributaries = append(bs.Tributaries, b)
	}
	for _, r := range dr.PointIns {
		b, err := buildInflow(r)
		if err != nil {
			return bs, nil, err
		}
		bs.PointIns = append(bs.PointIns, b)
	}
	for _, r := range dr.Outlets {
		o, err := buildOutflow(r)
		if err != nil {
			return bs, nil, err
		}
		bs.Outlets = append(bs.Outlets, o)
	}
	for _, r := range dr.PointOuts {
		o, err := buildOutflow(r)
		if err != nil {
			return bs, nil, err
		}
		bs.PointOuts = append(bs.PointOuts, o)
	}
	for _, r := range dr.Confluences {
		series, err := loadBoundarySeries(r.SeriesPath, r.Constant)
		if err != nil {
			return bs, nil, err
		}
		bs.Confluences = append(bs.Confluences, &ConfluenceLink{I: r.I, OtherDomain: r.OtherDomain, Series: series})
	}
	for _, r := range dr.Pipes {
		series, err := loadBoundarySeries(r.SeriesPath, r.Constant)
		if err != nil {
			return bs, nil, err
		}
		bs.Pipes = append(bs.Pipes, &PipeLink{I: r.I, OtherDomain: r.OtherDomain, OwnsReading: r.OwnsReading, Series: series})
	}

	fences := make([]*Fence, len(dr.Fences))
	for i, r := range dr.Fences {
		fences[i] = &Fence{IFnc: r.IFnc, KLow: r.KLow, KHigh: r.KHigh, Floating: r.Floating, Width: r.Width}
	}
	return bs, fences, nil
}

func buildInflow(r InflowRecord) (*InflowBoundary, error) {
	series, err := loadBoundarySeries(r.SeriesPath, r.Constant)
	if err != nil {
		return nil, err
	}
	return &InflowBoundary{I: r.I, Mode: r.Mode, Fr: r.Fr, Width: r.Width, Angle: r.Angle, ZIn: r.ZIn, ZInLow: r.ZInLow, Series: series}, nil
}

func buildOutflow(r OutflowRecord) (*OutflowBoundary, error) {
	series, err := loadBoundarySeries(r.SeriesPath, r.Constant)
	if err != nil {
		return nil, err
	}
	return &OutflowBoundary{I: r.I, Mode: r.Mode, Fr: r.Fr, ZOut: r.ZOut, GateHeight: r.GateHeight, ZKTSW: r.ZKTSW, ZKBSW: r.ZKBSW, Series: series}, nil
}

// loadBoundarySeries loads a boundary schedule from a CSV file when path
// is set, otherwise builds a constant series from literal values
// (spec.md §6's "files and constants" clause).
func loadBoundarySeries(path string, constant []float64) (*TimeSeries, error) {
	if path != "" {
		return ReadTimeSeries(func() (io.ReadCloser, error) { return os.Open(path) })
	}
	if len(constant) == 0 {
		return nil, ConfigError{Msg: "boundary record needs either series_path or constant"}
	}
	return NewConstantTimeSeries(nil, constant), nil
}

// EvalFormula evaluates a boundary-schedule constant expressed as a
// formula string rather than a pre-computed literal (spec.md §6) --
// e.g. a point-source load given as "12.5*3.6" for a unit conversion --
// grounded on io.go's govaluate.EvaluableExpression use for emissions
// factors.
func EvalFormula(expr string, vars map[string]interface{}) (float64, error) {
	e, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return 0, ConfigError{Msg: "invalid formula " + expr + ": " + err.Error()}
	}
	result, err := e.Evaluate(vars)
	if err != nil {
		return 0, ConfigError{Msg: "evaluating formula " + expr + ": " + err.Error()}
	}
	v, ok := result.(float64)
	if !ok {
		return 0, ConfigError{Msg: "formula " + expr + " did not evaluate to a number"}
	}
	return v, nil
}
