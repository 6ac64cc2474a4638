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

import "testing"

// TestBuildBoundarySetWiresEveryKind checks that every boundary sub-record
// of a DomainRecord reaches the BoundarySet it produces, so component B
// and X (spec.md §4.B, §4.X) are reachable from a config-driven run.
func TestBuildBoundarySetWiresEveryKind(t *testing.T) {
	dr := DomainRecord{
		ID:   1,
		Name: "test",
		Inlet: &InflowRecord{
			I: 1, Mode: "EDI", Fr: 1, Width: 10, ZInLow: 2,
			Constant: []float64{5.0, 15.0},
		},
		Tributaries: []InflowRecord{{I: 2, Mode: "RID", Constant: []float64{1.0, 12.0}}},
		PointIns:    []InflowRecord{{I: 3, Mode: "RI1", Constant: []float64{0.5, 10.0}}},
		Outlets:     []OutflowRecord{{I: 9, Mode: "NDO", ZOut: 5, Constant: []float64{2.0}}},
		PointOuts:   []OutflowRecord{{I: 4, Mode: "NDO", Constant: []float64{0.2}}},
		Confluences: []ConfluenceRecord{{I: 9, OtherDomain: 2, Constant: []float64{1.5}}},
		Pipes:       []PipeRecord{{I: 5, OtherDomain: 3, OwnsReading: true, Constant: []float64{0.3}}},
		Fences:      []FenceRecord{{IFnc: 4, KLow: 1, KHigh: 3, Width: 2}},
	}

	bs, fences, err := BuildBoundarySet(dr)
	if err != nil {
		t.Fatal(err)
	}
	if bs.Inlet == nil || bs.Inlet.Mode != "EDI" {
		t.Fatalf("inlet not wired: %+v", bs.Inlet)
	}
	if len(bs.Tributaries) != 1 || bs.Tributaries[0].Mode != "RID" {
		t.Fatalf("tributary not wired: %+v", bs.Tributaries)
	}
	if len(bs.PointIns) != 1 {
		t.Fatalf("point-in not wired: %+v", bs.PointIns)
	}
	if len(bs.Outlets) != 1 || bs.Outlets[0].ZOut != 5 {
		t.Fatalf("outlet not wired: %+v", bs.Outlets)
	}
	if len(bs.PointOuts) != 1 {
		t.Fatalf("point-out not wired: %+v", bs.PointOuts)
	}
	if len(bs.Confluences) != 1 || bs.Confluences[0].OtherDomain != 2 {
		t.Fatalf("confluence not wired: %+v", bs.Confluences)
	}
	if len(bs.Pipes) != 1 || !bs.Pipes[0].OwnsReading {
		t.Fatalf("pipe not wired: %+v", bs.Pipes)
	}
	if len(fences) != 1 || fences[0].IFnc != 4 {
		t.Fatalf("fence not wired: %+v", fences)
	}

	q, err := bs.Inlet.Series.Value(0)
	if err != nil || q[0] != 5.0 || q[1] != 15.0 {
		t.Fatalf("inlet constant series not readable: %v, err %v", q, err)
	}
}

// TestBuildBoundarySetRequiresSeriesOrConstant checks that a boundary
// record with neither a file path nor literal constants is rejected
// rather than silently producing a nil schedule.
func TestBuildBoundarySetRequiresSeriesOrConstant(t *testing.T) {
	dr := DomainRecord{ID: 1, Name: "test", Inlet: &InflowRecord{I: 1, Mode: "EDI"}}
	if _, _, err := BuildBoundarySet(dr); err == nil {
		t.Fatal("expected an error for a boundary record with no series_path or constant")
	}
}

// TestBuildBoundarySetLeavesTributaryOutlets checks that BuildBoundarySet
// keeps the configured outlets of a domain flagged as a tributary: the
// "overridden n_out for tributary domains" step is not applied here.
func TestBuildBoundarySetLeavesTributaryOutlets(t *testing.T) {
	dr := DomainRecord{
		ID: 1, Name: "test", Tributary: true,
		Outlets: []OutflowRecord{{I: 9, Mode: "NDO", Constant: []float64{1.0}}},
	}
	bs, _, err := BuildBoundarySet(dr)
	if err != nil {
		t.Fatal(err)
	}
	if len(bs.Outlets) != 1 {
		t.Fatalf("BuildBoundarySet should not itself apply the override: got %d outlets", len(bs.Outlets))
	}
	// The override (clearing Outlets, logging once) is applied by
	// BuildSimulation, which owns the domain's logger; see setup.go.
}
