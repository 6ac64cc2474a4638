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
	"encoding/csv"
	"fmt"
	"os"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/tealeg/xlsx"
)

// StepReport is a per-step CSV writer: one row per domain per step,
// grounded on the teacher's tabular CSV output conventions (io.go's
// emissions CSV reader/writer pair, mirrored for output here).
type StepReport struct {
	w   *csv.Writer
	f   *os.File
	hdr bool
}

// NewStepReport opens (creating or truncating) a CSV report file.
func NewStepReport(path string) (*StepReport, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, IOError{Path: path, Err: err}
	}
	return &StepReport{w: csv.NewWriter(f), f: f}, nil
}

// WriteStep appends one row per domain for the current simulation step.
func (r *StepReport) WriteStep(s *Simulation) error {
	if !r.hdr {
		if err := r.w.Write([]string{"step", "time_s", "domain_id", "domain_name", "total_vol", "z_srf", "w_srf"}); err != nil {
			return err
		}
		r.hdr = true
	}
	for _, d := range s.Doms {
		row := []string{
			fmt.Sprintf("%d", s.Step),
			fmt.Sprintf("%g", s.Time),
			fmt.Sprintf("%d", d.ID),
			d.Name,
			fmt.Sprintf("%g", d.TotalVol),
			fmt.Sprintf("%g", d.ZSrf),
			fmt.Sprintf("%g", d.WSrf),
		}
		if err := r.w.Write(row); err != nil {
			return err
		}
	}
	r.w.Flush()
	return r.w.Error()
}

// Close flushes and closes the underlying file.
func (r *StepReport) Close() error {
	r.w.Flush()
	return r.f.Close()
}

// WriteSummaryWorkbook writes an end-of-run Microsoft Excel summary, one
// sheet per domain, with GoStats-computed running statistics (mean, population
// standard deviation, min, max) of temperature and horizontal velocity
// across every wet cell of the domain's final state -- grounded on the
// teacher's otherwise-unexercised xlsx/GoStats dependencies (excel.go's
// xlsx.File usage, eval/*.go's stats.Stats* usage).
func WriteSummaryWorkbook(path string, s *Simulation) error {
	wb := xlsx.NewFile()
	for _, d := range s.Doms {
		sheet, err := wb.AddSheet(d.Name)
		if err != nil {
			return ConfigError{DomainID: d.ID, Msg: "xlsx sheet: " + err.Error()}
		}

		var tVals, uVals []float64
		for i := 1; i <= d.Nx; i++ {
			for k := d.KcBot[i]; k <= d.KSrf; k++ {
				if d.Vol.Get(i, k) <= 0 {
					continue
				}
				tVals = append(tVals, d.T.Get(i, k))
				uVals = append(uVals, d.U.Get(i, k))
			}
		}

		writeStatsRow := func(label string, vals []float64) {
			row := sheet.AddRow()
			row.AddCell().SetString(label)
			if len(vals) == 0 {
				row.AddCell().SetString("n/a")
				return
			}
			row.AddCell().SetFloat(stats.StatsMean(vals))
			row.AddCell().SetFloat(stats.StatsPopulationStandardDeviation(vals))
			row.AddCell().SetFloat(stats.StatsMin(vals))
			row.AddCell().SetFloat(stats.StatsMax(vals))
		}

		hdr := sheet.AddRow()
		hdr.AddCell().SetString("field")
		hdr.AddCell().SetString("mean")
		hdr.AddCell().SetString("stddev")
		hdr.AddCell().SetString("min")
		hdr.AddCell().SetString("max")
		writeStatsRow("T", tVals)
		writeStatsRow("u", uVals)

		row := sheet.AddRow()
		row.AddCell().SetString("total_vol")
		row.AddCell().SetFloat(d.TotalVol)
		row = sheet.AddRow()
		row.AddCell().SetString("z_srf")
		row.AddCell().SetFloat(d.ZSrf)
	}
	if err := wb.Save(path); err != nil {
		return IOError{Path: path, Err: err}
	}
	return nil
}
