package domain

import "time"

var (
	bholaWinds = []float64{40, 45, 50, 60, 70, 85, 100, 120, 135, 145, 140, 130, 115, 100, 85}
	bholaRMW   = []float64{60, 55, 50, 45, 40, 35, 30, 25, 20, 20, 25, 30, 35, 40, 45}
)

// SyntheticBholaTrack builds the warmed-climate analogue of the 1970 Bhola
// cyclone: fifteen 3-hourly fixes tracking north across the Bay of Bengal
// from 16N 89E to 23N 90.5E.
func SyntheticBholaTrack() Track {
	n := len(bholaWinds)
	start := time.Date(2035, time.October, 1, 0, 0, 0, 0, time.UTC)

	points := make([]TrackPoint, n)
	for i := range points {
		f := float64(i) / float64(n-1)
		points[i] = TrackPoint{
			Time:                  start.Add(time.Duration(3*i) * time.Hour),
			Lat:                   lerp(16.0, 23.0, f),
			Lon:                   lerp(89.0, 90.5, f),
			MaxSustainedWind:      bholaWinds[i],
			CentralPressure:       PressureFromWind(bholaWinds[i]),
			EnvironmentalPressure: DefaultEnvironmentalPressure,
			RadiusMaxWind:         bholaRMW[i],
			TimeStep:              3,
		}
	}

	return Track{
		SID:           "Synthetic_Bhola_2035",
		Name:          "Synthetic Bhola",
		Season:        2035,
		Basin:         "NI",
		Agency:        "CCART-AI",
		Scenario:      "+2°C warming",
		OrigEventFlag: false,
		Category:      5,
		Points:        points,
	}
}
