package domain

import "time"

// EventSpec is a configured event to watch: the market slug plus where and how the
// underlying quantity is forecast.
type EventSpec struct {
	Slug        string
	Location    string
	Latitude    float64
	Longitude   float64
	Unit        string  // "fahrenheit" | "celsius"
	Timezone    string  // IANA name; the event date is local to it
	Granularity float64 // resolution rounding step, 1 when unset
	EventDate   time.Time
}
