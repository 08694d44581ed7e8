package domain

// MissingFacilityCode is the sentinel the ORL inventory uses for "no ORISPL code".
const MissingFacilityCode = -999

// StackRecord is one stack/boiler configuration from the point inventory.
// Height and diameter are feet.
type StackRecord struct {
	ORISPL      int
	StackID     string
	BoilerID    string
	Height      float64
	Diameter    float64
	Temperature float64
	Velocity    float64

	// Optional descriptive columns, empty when the file lacks them.
	Plant   string
	FIPS    string
	PlantID string
	PointID string
}

// MaxStackRecord is a StackRecord reduced to its facility's tallest stack.
// Height detail and diameter are dropped.
type MaxStackRecord struct {
	ORISPL      int
	StackID     string
	BoilerID    string
	Temperature float64
	Velocity    float64
	MaxHeight   float64
}

// StackConfig is the set of attributes distinguishing unit configurations
// within one facility.
type StackConfig struct {
	BoilerID    string
	Height      float64
	Diameter    float64
	Temperature float64
	Velocity    float64
}

// FacilityOffset is one row of the facility location/offset table.
// OffsetHours is added to local time to obtain UTC.
type FacilityOffset struct {
	ORISPL      int
	OffsetHours float64
	Latitude    *float64
	Longitude   *float64
}

// LatLon is a WGS-84 coordinate pair.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
