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
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/ctessum/sparse"
)

// GeometryRecord is the external-collaborator contract of spec.md §6 for
// the geometry file: a header nx/nz, node lists x[i]/z_bed[i] and z[k],
// and the width matrix b[i,k]. The core consumes this record through
// Domain.BuildMesh; parsing the text file itself is external to the
// numerical kernel.
type GeometryRecord struct {
	Nx, Nz int
	X      []float64
	ZBed   []float64
	Z      []float64
	B      *sparse.DenseArray
}

// ReadGeometry parses the whitespace-delimited geometry file format of
// spec.md §6: a header line "nx nz", a node list of nx+1 lines "x
// z_bed", a node list of nz+1 lines "z", and nx+1 lines of nz+1 width
// values. Lines are read with bufio.Scanner and split with strings.Fields;
// commas are not treated as separators.
func ReadGeometry(r io.Reader) (*GeometryRecord, error) {
	sc := bufio.NewScanner(r)
	readLine := func() ([]string, bool) {
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			return strings.Fields(line), true
		}
		return nil, false
	}

	hdr, ok := readLine()
	if !ok || len(hdr) < 2 {
		return nil, IOError{Path: "geometry", Err: errGeometryFormat("missing nx nz header")}
	}
	nx, err1 := strconv.Atoi(hdr[0])
	nz, err2 := strconv.Atoi(hdr[1])
	if err1 != nil || err2 != nil {
		return nil, IOError{Path: "geometry", Err: errGeometryFormat("invalid nx/nz")}
	}

	g := &GeometryRecord{Nx: nx, Nz: nz, X: make([]float64, nx+1), ZBed: make([]float64, nx+1)}
	for i := 0; i <= nx; i++ {
		fields, ok := readLine()
		if !ok || len(fields) < 2 {
			return nil, IOError{Path: "geometry", Err: errGeometryFormat("missing x/z_bed node")}
		}
		g.X[i], _ = strconv.ParseFloat(fields[0], 64)
		g.ZBed[i], _ = strconv.ParseFloat(fields[1], 64)
	}

	g.Z = make([]float64, nz+1)
	for k := 0; k <= nz; k++ {
		fields, ok := readLine()
		if !ok || len(fields) < 1 {
			return nil, IOError{Path: "geometry", Err: errGeometryFormat("missing z node")}
		}
		g.Z[k], _ = strconv.ParseFloat(fields[0], 64)
	}

	g.B = sparse.ZerosDense(nx+1, nz+1)
	for i := 0; i <= nx; i++ {
		fields, ok := readLine()
		if !ok || len(fields) < nz+1 {
			return nil, IOError{Path: "geometry", Err: errGeometryFormat("missing width row")}
		}
		for k := 0; k <= nz; k++ {
			v, _ := strconv.ParseFloat(fields[k], 64)
			g.B.Set(v, i, k)
		}
	}
	return g, nil
}

type errGeometryFormat string

func (e errGeometryFormat) Error() string { return "resflow: geometry file: " + string(e) }
