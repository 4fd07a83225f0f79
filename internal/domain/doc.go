// Package domain models USGS stream-gauge readings and their classification
// against a site's own history.
//
// # Data Source
//
// Readings come from the USGS National Water Information System (NWIS) web
// services at https://waterservices.usgs.gov/. Two series are fetched per site
// on every run:
//
//	Instantaneous values (iv): 15-minute readings over a short lookback window.
//	  The latest reading is the "current" value.
//	Daily values (dv): daily means since the configured start year. These form
//	  the historical distribution the current value is ranked against.
//
// # NWIS Conventions
//
// Site codes:
//
//	8 to 15 digit numeric strings, e.g. "01646500". Leading zeros are
//	significant, so codes are never parsed as numbers.
//
// Parameter codes:
//
//	"00060" = discharge in cubic feet per second (unit code "ft3/s", shown as cfs)
//	"00065" = gage height in feet (unit code "ft")
//
// Missing values:
//
//	NWIS reports gaps with the sentinel -999999 (the series' noDataValue).
//	These are dropped before any statistic is computed.
//
// # Percentile Rank
//
// The rank of a current value v in a historical series of n values is the
// share of values strictly below v, times 100. A value lower than every
// historical reading ranks 0; a value above all of them ranks 100.
//
// # Severity classification
//
// Derived from the percentile rank using four cut points (defaults shown):
//
//	p >= 95  SEVERE HIGH   severe flood conditions
//	p >= 90  HIGH          above normal flow, flood risk
//	p <= 5   SEVERE LOW    severe drought conditions
//	p <= 10  LOW           below normal flow, drought
//	else     NORMAL
//
// A rank sitting exactly on a cut point takes the more extreme label.
package domain
