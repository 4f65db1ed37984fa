// Package domain models monthly climate and fire-weather series aggregated
// over ecoregions.
//
// # Data Sources
//
// Every series is a monthly spatial mean of a gridded raster over one
// ecoregion polygon (RESOLVE Ecoregions 2017, boreal forest/taiga and tundra
// biomes in the Nearctic and Palearctic realms). Raster files live in object
// storage, one file per month, and are reduced by an external geospatial
// query service. Sources fall into two domains:
//
//	observed  ERA5-Land climate inputs (2001-01..2023-11) and CEMS fire-weather
//	          indices (2001..2023); the reference for bias correction.
//	model     NASA-downscaled CMIP6 projections (ACCESS-CM2, MRI-ESM2-0) under
//	          SSP1-2.6, SSP2-4.5 and SSP3-7.0, 2015..2100, plus the models'
//	          historical fire-weather runs (2001..2014).
//
// # Variables
//
// Climate:
//
//	rh    relative humidity
//	tp    total precipitation (monthly total)
//	rlds  surface thermal radiation downwards
//	rsds  surface solar radiation downwards
//	wsp   10 m wind speed
//	t2m   2 m temperature (mean, max as mx2t, min as mn2t)
//
// Fire weather (Canadian FWI system): BUI, DC, DMC, FFMC, FWI, ISI.
//
// Raw band names differ per source ("B2", "total_precipitation_sum") and are
// renamed through each source's rename table.
//
// # Units
//
// Model precipitation arrives as a rate and is converted to a monthly total:
//
//	tp = rate * days_in_month * 86400 * 0.001
//
// ERA5-Land accumulations are converted the other way for radiation
// (divided by the seconds in the month) while precipitation is multiplied.
// See [Postprocess].
//
// # Missing Values
//
// A band the raster service cannot reduce (no valid pixels, masked footprint)
// comes back null. It is carried as NaN through postprocessing, archives and
// aggregation and is never replaced with zero. Archives write NaN as an empty
// CSV cell.
//
// # Months
//
// All timestamps are month starts in UTC. [Month] encodes them as integers so
// ranges, set differences and sorting stay trivial.
package domain
