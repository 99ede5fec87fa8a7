package spaceweather

import (
	"math"
	"time"
)

// SolarWind is the latest plasma and magnetic field reading at L1.
type SolarWind struct {
	TimeTag     string  `json:"time_tag"`
	Speed       float64 `json:"speed"`
	Density     float64 `json:"density"`
	Temperature float64 `json:"temperature"`
	Bt          float64 `json:"bt"`
	Bz          float64 `json:"bz"`
}

// KpReading is one row of the planetary K-index feed.
type KpReading struct {
	TimeTag     string  `json:"time_tag"`
	KpIndex     float64 `json:"kp_index"`
	EstimatedKp float64 `json:"estimated_kp"`
	Kp          string  `json:"kp"`
}

type GeomagneticActivity struct {
	Current    KpReading   `json:"current"`
	StormLevel string      `json:"storm_level"`
	Readings   []KpReading `json:"readings"`
}

// AuroraFrame is one image of the OVATION aurora animation.
type AuroraFrame struct {
	URL     string `json:"url"`
	TimeTag string `json:"time_tag"`
}

type AuroraForecast struct {
	North []AuroraFrame `json:"north"`
	South []AuroraFrame `json:"south"`
}

// Latest returns the most recent frame for each hemisphere.
func (a AuroraForecast) Latest() (north, south AuroraFrame) {
	if n := len(a.North); n > 0 {
		north = a.North[n-1]
	}
	if n := len(a.South); n > 0 {
		south = a.South[n-1]
	}
	return north, south
}

type ThreeDayForecast struct {
	Issued time.Time `json:"issued"`
	Text   string    `json:"text"`
}

type Summary struct {
	SolarWind   SolarWind           `json:"solar_wind"`
	Geomagnetic GeomagneticActivity `json:"geomagnetic"`
	Aurora      AuroraForecast      `json:"aurora"`
	Forecast    ThreeDayForecast    `json:"forecast"`
}

// StormLevel maps a Kp value onto the NOAA geomagnetic storm scale.
func StormLevel(kp float64) string {
	switch k := math.Floor(kp); {
	case k >= 9:
		return "G5"
	case k >= 8:
		return "G4"
	case k >= 7:
		return "G3"
	case k >= 6:
		return "G2"
	case k >= 5:
		return "G1"
	default:
		return "G0"
	}
}
