package neows

import "strconv"

// Feed is the decoded NeoWs feed response.
type Feed struct {
	ElementCount     int         `json:"element_count"`
	NearEarthObjects DateBuckets `json:"near_earth_objects"`
}

// DateBucket holds the objects listed under one calendar date key.
type DateBucket struct {
	Date    string
	Objects []CloseApproachObject
}

// DateBuckets keeps the upstream key order of near_earth_objects.
type DateBuckets []DateBucket

// CloseApproachObject represents one tracked near-earth object.
type CloseApproachObject struct {
	ID                     string          `json:"id"`
	Name                   string          `json:"name"`
	NASAJPLURL             string          `json:"nasa_jpl_url"`
	AbsoluteMagnitudeH     float64         `json:"absolute_magnitude_h"`
	IsPotentiallyHazardous bool            `json:"is_potentially_hazardous_asteroid"`
	IsSentryObject         bool            `json:"is_sentry_object"`
	CloseApproachData      []CloseApproach `json:"close_approach_data"`
}

// CloseApproach is a single approach record. Numeric values arrive as strings.
type CloseApproach struct {
	CloseApproachDate string           `json:"close_approach_date"`
	RelativeVelocity  RelativeVelocity `json:"relative_velocity"`
	MissDistance      MissDistance     `json:"miss_distance"`
	OrbitingBody      string           `json:"orbiting_body"`
}

// RelativeVelocity of an approach in several units.
type RelativeVelocity struct {
	KilometersPerSecond string `json:"kilometers_per_second"`
	KilometersPerHour   string `json:"kilometers_per_hour"`
	MilesPerHour        string `json:"miles_per_hour"`
}

// MissDistance of an approach in several units.
type MissDistance struct {
	Astronomical string `json:"astronomical"`
	Lunar        string `json:"lunar"`
	Kilometers   string `json:"kilometers"`
	Miles        string `json:"miles"`
}

// Snapshot pairs the exact upstream body with its decoded form.
type Snapshot struct {
	Raw  []byte
	Feed *Feed
}

// APOD is the Astronomy Picture of the Day document.
type APOD struct {
	Date           string `json:"date"`
	Title          string `json:"title"`
	Explanation    string `json:"explanation"`
	URL            string `json:"url"`
	HDURL          string `json:"hdurl,omitempty"`
	MediaType      string `json:"media_type"`
	Copyright      string `json:"copyright,omitempty"`
	ServiceVersion string `json:"service_version,omitempty"`
}

// Representative returns the first close-approach record. Every derived view
// reads distance and velocity from this record only.
func (o CloseApproachObject) Representative() (CloseApproach, bool) {
	if len(o.CloseApproachData) == 0 {
		return CloseApproach{}, false
	}
	return o.CloseApproachData[0], true
}

// MissDistanceKM parses the representative miss distance in kilometers.
func (o CloseApproachObject) MissDistanceKM() (float64, bool) {
	rec, ok := o.Representative()
	if !ok {
		return 0, false
	}
	return parseNumeric(rec.MissDistance.Kilometers)
}

// VelocityKMH parses the representative relative velocity in km/h.
func (o CloseApproachObject) VelocityKMH() (float64, bool) {
	rec, ok := o.Representative()
	if !ok {
		return 0, false
	}
	return parseNumeric(rec.RelativeVelocity.KilometersPerHour)
}

// Objects flattens all buckets in payload order.
func (f *Feed) Objects() []CloseApproachObject {
	if f == nil {
		return nil
	}
	n := 0
	for _, b := range f.NearEarthObjects {
		n += len(b.Objects)
	}
	out := make([]CloseApproachObject, 0, n)
	for _, b := range f.NearEarthObjects {
		out = append(out, b.Objects...)
	}
	return out
}

func parseNumeric(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
