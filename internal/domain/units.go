package domain

import "github.com/ctessum/unit/badunit"

// MetersPerFoot is the exact international foot.
const MetersPerFoot = 0.3048

// FeetToMeters converts a length in feet to meters.
func FeetToMeters(ft float64) float64 {
	return badunit.Foot(ft).Value()
}

// PoundsToKilograms converts a mass in pounds to kilograms.
func PoundsToKilograms(lbs float64) float64 {
	return badunit.Pound(lbs).Value()
}

// ShortTonsToKilograms converts a mass in short tons to kilograms.
func ShortTonsToKilograms(tons float64) float64 {
	return badunit.Ton(tons).Value()
}

// DegreesFromDMS converts degrees, minutes and seconds to decimal degrees.
func DegreesFromDMS(degrees, minutes, seconds float64) float64 {
	return degrees + minutes/60.0 + seconds/3600.0
}
