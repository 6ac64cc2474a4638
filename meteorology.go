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

import "math"

// Meteorology is the external-collaborator contract of spec.md §6 for the
// meteorological data feed: the core only reads these fields each step;
// how they are produced (a file feed, a live station, ...) is external to
// the numerical kernel.
type Meteorology struct {
	AirTempC    float64
	WindSpeedMs float64
	RelHumidity float64 // 0..1
	SolarWm2    float64
}

// surfaceHeatFlux combines evaporation/conduction (Rohwer), long-wave
// atmospheric exchange (Swinbank) and net short-wave phi0=(1-ar)*solar
// (spec.md §4.H).
func surfaceHeatFlux(tSrf float64, met Meteorology, hc HeatConfig) float64 {
	const stefanBoltzmann = 5.67e-8
	const rohwerCoef = 0.211 // mm Hg^-1 day^-1, lumped empirical coefficient

	esWater := saturationVaporPressureMmHg(tSrf)
	esAir := saturationVaporPressureMmHg(met.AirTempC) * met.RelHumidity
	windFn := rohwerCoef * (1 + 0.1*met.WindSpeedMs)
	evapCond := -windFn * (esWater - esAir) // evaporative + conductive loss

	tSrfK := tSrf + 273.15
	tAirK := met.AirTempC + 273.15
	atmRad := hc.Eta * stefanBoltzmann * tAirK * tAirK * tAirK * tAirK // Swinbank-style incoming
	backRad := -stefanBoltzmann * tSrfK * tSrfK * tSrfK * tSrfK

	shortWave := (1 - hc.Ar) * met.SolarWm2

	return evapCond + atmRad + backRad + shortWave
}

// radiationHeatFlux returns the internal short-wave absorption at depth
// below the surface, with exponential (Beer's law) extinction.
func radiationHeatFlux(depth float64, met Meteorology, hc HeatConfig) float64 {
	phi0 := (1 - hc.Ar) * met.SolarWm2
	return phi0 * math.Exp(-hc.Beta*depth)
}
