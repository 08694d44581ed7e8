// Package domain models hourly continuous emission monitoring system (CEMS)
// data reported by US power plants.
//
// # Data Source
//
// EPA publishes one archive per state per month under
// hourly/monthly/<YYYY>/<YYYY><st><MM>.zip, e.g. 2016md01.zip for Maryland,
// January 2016. Each archive holds a single CSV with one row per facility,
// unit and operating hour.
//
// # Column Vintages
//
// Column headers drift between file vintages ("ORISPL_CODE" vs "ORISPL",
// "SO2_MASS (lbs)" vs "SO2 (pounds)", "OP_DATE" vs "Date"). [NormalizeColumns]
// maps every header onto a canonical name with an ordered list of substring
// rules; the first rule that matches wins:
//
//	facility + name          → facility_name
//	orispl                   → orispl_code
//	facility + id            → fac_id
//	so2 + (lbs|pounds) - rate → so2_lbs
//	nox + (lbs|pounds) - rate → nox_lbs
//	co2 + short + tons       → co2_short_tons
//	date                     → date
//	hour                     → hour
//	lat                      → latitude
//	lon                      → longitude
//	state                    → state_name
//
// Anything else is lowercased and trimmed. The original header of every
// renamed column is kept in a rename ledger keyed by canonical name.
//
// # Time Conventions
//
// Dates appear either year first ("2016-01-31") or month first
// ("01-31-2016"); the layout is sniffed from the first row of a file and
// assumed for the rest. Hours are 0–23 in facility local standard time.
// The facility offset table gives the number of hours to add to local time
// to reach UTC. Rows for facilities missing from that table keep their
// local time but carry no UTC time.
//
// # Units
//
// Mass columns are pounds (SO2, NOx) or short tons (CO2). Stack heights and
// diameters in the ORL point inventory are feet. Conversion helpers are
// backed by github.com/ctessum/unit.
//
// # Identifiers
//
// ORISPL codes identify facilities. Unit ids distinguish boilers within a
// facility and are free-form strings; [NoUnit] is reserved to mean "no unit".
package domain
