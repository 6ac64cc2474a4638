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
	"io"
	"strconv"

	"github.com/cenkalti/backoff"
)

// TimeSeries is the external-collaborator contract of spec.md §3/§6 for a
// boundary schedule: a monotonic time column and row-aligned variable
// columns (for inflow: Q, T, c1..c_nps[, scalar]). The core only consumes
// this contract; parsing the file itself is an external collaborator
// (ReadTimeSeries below), grounded on the teacher's getEmissionsCSV in the
// old inmap.go main, which read a headered CSV the same way.
type TimeSeries struct {
	Names  []string
	Time   []float64
	Vars   [][]float64 // [row][variable]
	cursor int         // preserves linear-time lookup under monotonic queries
}

// ReadTimeSeries parses a header row + rows of "t v1 v2 ... vN" from r.
// Transient open failures (e.g. a networked path) are retried with
// exponential backoff, grounded on the teacher's cenkalti/backoff
// dependency, which is otherwise unexercised in the pack's non-vendor
// code.
func ReadTimeSeries(open func() (io.ReadCloser, error)) (*TimeSeries, error) {
	var rc io.ReadCloser
	err := backoff.Retry(func() error {
		var oerr error
		rc, oerr = open()
		return oerr
	}, backoff.NewExponentialBackOff())
	if err != nil {
		return nil, IOError{Path: "timeseries", Err: err}
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	header, err := r.Read()
	if err != nil {
		return nil, IOError{Path: "timeseries", Err: err}
	}
	ts := &TimeSeries{Names: header[1:]}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, IOError{Path: "timeseries", Err: err}
		}
		t, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, IOError{Path: "timeseries", Err: err}
		}
		vars := make([]float64, len(row)-1)
		for i, s := range row[1:] {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, IOError{Path: "timeseries", Err: err}
			}
			vars[i] = v
		}
		ts.Time = append(ts.Time, t)
		ts.Vars = append(ts.Vars, vars)
	}
	return ts, nil
}

// NewConstantTimeSeries builds a TimeSeries that returns the same row for
// any query time in [0, constantSeriesHorizon], for boundary schedules
// given as literal constants rather than a CSV file (spec.md §6: "boundary
// schedules (files and constants per inflow/outflow/tributary/etc.)").
func NewConstantTimeSeries(names []string, values []float64) *TimeSeries {
	return &TimeSeries{
		Names: names,
		Time:  []float64{0, constantSeriesHorizon},
		Vars:  [][]float64{values, values},
	}
}

// constantSeriesHorizon bounds a constant series' query range; it only
// needs to exceed any realistic run length.
const constantSeriesHorizon = 1e12

// Value returns the linearly-interpolated variable row at time t. The
// cursor advances monotonically, so repeated calls with non-decreasing t
// (the normal simulation-stepping pattern) stay O(1) amortized rather than
// re-scanning from the start every call.
func (ts *TimeSeries) Value(t float64) ([]float64, error) {
	n := len(ts.Time)
	if n == 0 {
		return nil, DomainError{Msg: "empty time series"}
	}
	if t < ts.Time[0] || t > ts.Time[n-1] {
		return nil, DomainError{Msg: "interpolated time out of series range"}
	}
	if ts.cursor >= n-1 {
		ts.cursor = 0
	}
	for ts.cursor > 0 && ts.Time[ts.cursor] > t {
		ts.cursor--
	}
	for ts.cursor < n-2 && ts.Time[ts.cursor+1] < t {
		ts.cursor++
	}
	k := ts.cursor
	frac := 0.0
	if ts.Time[k+1] != ts.Time[k] {
		frac = (t - ts.Time[k]) / (ts.Time[k+1] - ts.Time[k])
	}
	out := make([]float64, len(ts.Vars[k]))
	for i := range out {
		out[i] = ts.Vars[k][i] + frac*(ts.Vars[k+1][i]-ts.Vars[k][i])
	}
	return out, nil
}
