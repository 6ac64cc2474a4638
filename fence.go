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

// Fence is a zero-flux internal barrier (component X, spec.md §4.X): at
// x-index IFnc, over the vertical span [KLow, KHigh], it zeroes u at that
// face and blocks both advective and diffusive scalar fluxes crossing it.
type Fence struct {
	IFnc     int
	KLow     int
	KHigh    int
	Floating bool    // true: KLow tracks ZSrf-Width on every surface update
	Width    float64 // vertical span below the surface, for a floating fence
}

// blocksFace reports whether face (i,k) is blocked by any fence in the
// domain's fence list.
func (d *Domain) blocksFace(i, k int) bool {
	for _, f := range d.Fences {
		if f.IFnc == i && k >= f.KLow && k <= f.KHigh {
			return true
		}
	}
	return false
}

// ApplyFences zeroes u at each fence's face over its k-range.
func (d *Domain) ApplyFences() {
	for _, f := range d.Fences {
		for k := f.KLow; k <= f.KHigh; k++ {
			d.U.Set(0, f.IFnc, k)
		}
	}
}

// UpdateFloatingFences recomputes the vertical span of floating fences
// after the surface moves (spec.md §4.C step 5): KLow tracks z_srf-width,
// fixed fences keep their initial k range.
func (d *Domain) UpdateFloatingFences() {
	for _, f := range d.Fences {
		if !f.Floating {
			continue
		}
		target := d.ZSrf - f.Width
		k := d.KcBot[f.IFnc]
		for ; k <= d.KSrf; k++ {
			if d.zc(k) >= target {
				break
			}
		}
		f.KLow = k
		f.KHigh = d.KSrf
	}
}
