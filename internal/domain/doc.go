// Package domain models tropical cyclone scenarios, tracks, exposure and the
// climate pathways used to tag CCART diagnostics.
//
// # Data Sources
//
// Storm tracks come from the IBTrACS v04 best-track archive
// (https://www.ncei.noaa.gov/products/international-best-track-archive) or
// from the built-in synthetic Bhola fixture. Asset exposure comes from
// LitPop-style gridded asset values, one CSV per country, keyed by ISO3 code.
//
// # Units
//
//	Wind:      knots (max sustained wind, as reported by the provider agency)
//	Pressure:  millibars (hPa); central and environmental (outermost closed isobar)
//	RMW:       kilometres (IBTrACS reports nautical miles; converted on load)
//	Time step: hours between consecutive track points
//	Value:     USD per exposure point
//
// Missing pressure is derived from wind with the parametric rule
//
//	central_pressure = 1000 - 0.5 * max_sustained_wind
//
// which is also applied to warmed tracks so wind and pressure stay consistent.
//
// # Scenario Identity
//
// A scenario is (name, year, basin, countries). Basin codes follow IBTrACS:
// NA, SA, EP, WP, SP, SI, NI. Country codes are ISO 3166-1 alpha-3.
// [Scenario.Slug] gives the directory prefix for every artifact of a run.
//
// # Climate Pathways
//
// Each Shared Socioeconomic Pathway (SSP) maps to a deterministic modifier on
// the storm: maximum sustained wind is boosted and the radius of maximum wind
// (RMW) shrinks, reflecting more intense, more compact storms in a warmer
// climate:
//
//	historical  wind x1.00  RMW x1.00
//	SSP1-2.6    wind x1.03  RMW x0.97
//	SSP2-4.5    wind x1.05  RMW x0.95
//	SSP3-7.0    wind x1.10  RMW x0.90
//	SSP5-8.5    wind x1.15  RMW x0.85
//
// # Artifacts
//
// Every pathway of a run produces up to three GeoJSON files named
// "<kind>_<pathway>.geojson" with kind one of exposure, impact or track.
// A pathway with no impact zone above the threshold exports nothing.
package domain
