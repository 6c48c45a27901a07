// Package domain models dropsonde soundings and the numerical transforms
// that take them from raw time series to altitude-gridded profiles.
//
// # Data Source
//
// Each sounding is one falling instrument's measurements during descent:
// wind components, temperature, pressure, relative humidity, position and
// two independent altitude estimates (barometric "alt" and GPS "gpsalt"),
// all sampled on a common time index at a few hertz. Raw Level-1 files are
// produced by an external instrument-vendor QC step; the upstream collector
// publishes them as flat JSON, one message per sonde.
//
// # Units
//
// Raw files report relative humidity in percent, pressure in hPa and
// temperature in degrees Celsius. [ConvertToSI] normalizes these to
// fraction, Pa and K through a fixed dispatch table; everything downstream
// assumes SI.
//
// # Regridding
//
// A descending sounding is expected to lose altitude monotonically.
// [RepairMonotonicAltitude] NaN-masks samples that break the trend, then
// [BinProfile] averages the surviving samples into fixed altitude bins
// (left-open intervals, first bin closed at the start edge, so an edge
// sample joins the bin below it), records the per-bin sample
// count N, optionally averages pressure in log space, and fills short runs
// of empty bins by gap-limited linear interpolation. [FlagProvenance]
// derives the tri-state method flag m per bin:
//
//	0  no data
//	1  no raw data, interpolated
//	2  average over raw data
//
// Data-quality problems never abort the pipeline here: a sparse or empty
// variable degrades to NaN columns with a logged warning, and configuration
// mistakes (bad grid, unknown variable names) are returned as errors.
package domain
