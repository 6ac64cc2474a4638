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
	"fmt"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

const snapshotDataVersion = "resflow-1"

// WriteSnapshot writes the full restart state of one domain to a NetCDF
// file, in the fixed field order of spec.md §6: u, w, rho, p, T, then
// one c_<class> per particle class, one c_sed_<class> per-column field,
// dhz, dmx, dmz. The header
// tuple (time_day, total_vol, z_srf, k_srf, n_fnc, i_fncs, k_fncs) is
// carried as global attributes, grounded on vargrid.go's CTMData.Write.
func WriteSnapshot(d *Domain, w *os.File, timeDay float64) error {
	nx, nz := d.Nx+2, d.Nz+2
	h := cdf.NewHeader([]string{"x", "z"}, []int{nx, nz})
	h.AddAttribute("", "comment", "resflow domain restart snapshot")
	h.AddAttribute("", "data_version", snapshotDataVersion)
	h.AddAttribute("", "domain_id", []int32{int32(d.ID)})
	h.AddAttribute("", "time_day", []float64{timeDay})
	h.AddAttribute("", "total_vol", []float64{d.TotalVol})
	h.AddAttribute("", "z_srf", []float64{d.ZSrf})
	h.AddAttribute("", "k_srf", []int32{int32(d.KSrf)})

	iFncs := make([]int32, len(d.Fences))
	kFncs := make([]int32, len(d.Fences))
	for i, f := range d.Fences {
		iFncs[i] = int32(f.IFnc)
		kFncs[i] = int32(f.KLow)
	}
	h.AddAttribute("", "n_fnc", []int32{int32(len(d.Fences))})
	if len(iFncs) > 0 {
		h.AddAttribute("", "i_fncs", iFncs)
		h.AddAttribute("", "k_fncs", kFncs)
	}

	names := []string{"u", "w", "rho", "p", "T"}
	classNames := make([]string, len(d.Particles))
	for i, p := range d.Particles {
		classNames[i] = "c_" + p.Name
	}
	names = append(names, classNames...)

	for _, name := range names {
		h.AddVariable(name, []string{"x", "z"}, []float32{0})
	}
	// c_sed is a per-column field, parallel to u/w/T/c (spec.md §6's
	// snapshot field order), one gridded "x"-only variable per class.
	csedNames := make([]string, len(d.Particles))
	for i, p := range d.Particles {
		csedNames[i] = "c_sed_" + p.Name
		h.AddVariable(csedNames[i], []string{"x"}, []float32{0})
	}
	for _, name := range []string{"dhz", "dmx", "dmz"} {
		h.AddVariable(name, []string{"x", "z"}, []float32{0})
	}
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return IOError{DomainID: d.ID, Err: err}
	}

	fields := map[string]*sparse.DenseArray{
		"u": d.U, "w": d.W, "rho": d.Rho, "p": d.P, "T": d.T,
		"dhz": d.Dhz, "dmx": d.Dmx, "dmz": d.Dmz,
	}
	for i, p := range d.Particles {
		fields["c_"+p.Name] = d.C[i]
	}

	for name, data := range fields {
		if err := writeSnapshotField(f, name, data); err != nil {
			return IOError{DomainID: d.ID, Path: name, Err: err}
		}
	}
	for i, name := range csedNames {
		if err := writeSnapshotField1D(f, name, d.CSed[i]); err != nil {
			return IOError{DomainID: d.ID, Path: name, Err: err}
		}
	}

	return cdf.UpdateNumRecs(w)
}

// writeSnapshotField1D writes a per-column ("x"-only) field, the same way
// writeSnapshotField writes a gridded ("x","z") field.
func writeSnapshotField1D(f *cdf.File, name string, data []float64) error {
	buf := make([]float32, len(data))
	for i, v := range data {
		buf[i] = float32(v)
	}
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	_, err := w.Write(buf)
	return err
}

func writeSnapshotField(f *cdf.File, name string, data *sparse.DenseArray) error {
	n := 1
	for _, s := range data.Shape {
		n *= s
	}
	if n != len(data.Elements) {
		return fmt.Errorf("resflow: snapshot field %s shape/length mismatch", name)
	}
	buf := make([]float32, len(data.Elements))
	for i, v := range data.Elements {
		// Small values clamp to exact zero on the scalar fields only: the
		// vertical-velocity field keeps its sign and magnitude regardless
		// of size, since a clamped w would silently break continuity
		// (spec.md §9's near-zero clamp repair: the original tested the
		// wrong component here).
		if name != "w" && v > -1e-20 && v < 1e-20 {
			v = 0
		}
		buf[i] = float32(v)
	}
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	_, err := w.Write(buf)
	return err
}

// ReadSnapshot restores a domain's field state from a NetCDF restart
// snapshot written by WriteSnapshot, returning the stored simulation
// time in days.
func ReadSnapshot(d *Domain, rw cdf.ReaderWriterAt) (float64, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return 0, IOError{DomainID: d.ID, Err: err}
	}
	if v, ok := f.Header.GetAttribute("", "data_version").(string); !ok || v != snapshotDataVersion {
		return 0, ConfigError{DomainID: d.ID, Msg: "snapshot data_version mismatch"}
	}

	timeDay := f.Header.GetAttribute("", "time_day").([]float64)[0]
	d.TotalVol = f.Header.GetAttribute("", "total_vol").([]float64)[0]
	zSrf := f.Header.GetAttribute("", "z_srf").([]float64)[0]

	fields := map[string]*sparse.DenseArray{
		"u": d.U, "w": d.W, "rho": d.Rho, "p": d.P, "T": d.T,
		"dhz": d.Dhz, "dmx": d.Dmx, "dmz": d.Dmz,
	}
	for i, p := range d.Particles {
		fields["c_"+p.Name] = d.C[i]
	}
	for name, data := range fields {
		if err := readSnapshotField(f, name, data); err != nil {
			return 0, IOError{DomainID: d.ID, Path: name, Err: err}
		}
	}
	for i, p := range d.Particles {
		name := "c_sed_" + p.Name
		if i >= len(d.CSed) {
			break
		}
		if err := readSnapshotField1D(f, name, d.CSed[i]); err != nil {
			return 0, IOError{DomainID: d.ID, Path: name, Err: err}
		}
	}

	if err := d.UpdateSurfaceLayer(zSrf); err != nil {
		return 0, err
	}
	return timeDay, nil
}

// readSnapshotField1D reads a per-column ("x"-only) field written by
// writeSnapshotField1D.
func readSnapshotField1D(f *cdf.File, name string, data []float64) error {
	r := f.Reader(name, nil, nil)
	buf := make([]float32, len(data))
	if _, err := r.Read(buf); err != nil {
		return err
	}
	for i, v := range buf {
		data[i] = float64(v)
	}
	return nil
}

func readSnapshotField(f *cdf.File, name string, data *sparse.DenseArray) error {
	dims := f.Header.Lengths(name)
	r := f.Reader(name, nil, nil)
	buf := make([]float32, len(data.Elements))
	_, err := r.Read(buf)
	if err != nil {
		return err
	}
	n := 1
	for _, s := range dims {
		n *= s
	}
	if n != len(buf) {
		return fmt.Errorf("resflow: snapshot field %s dims/length mismatch", name)
	}
	for i, v := range buf {
		data.Elements[i] = float64(v)
	}
	return nil
}
