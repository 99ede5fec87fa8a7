package nasa

import "sort"

// APOD is one Astronomy Picture of the Day record.
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

type Camera struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	RoverID  int    `json:"rover_id"`
	FullName string `json:"full_name"`
}

type Rover struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	LandingDate string `json:"landing_date"`
	LaunchDate  string `json:"launch_date"`
	Status      string `json:"status"`
}

type RoverPhoto struct {
	ID        int    `json:"id"`
	Sol       int    `json:"sol"`
	Camera    Camera `json:"camera"`
	ImgSrc    string `json:"img_src"`
	EarthDate string `json:"earth_date"`
	Rover     Rover  `json:"rover"`
}

type marsPhotosResponse struct {
	Photos []RoverPhoto `json:"photos"`
}

type Diameter struct {
	Min float64 `json:"estimated_diameter_min"`
	Max float64 `json:"estimated_diameter_max"`
}

type CloseApproach struct {
	CloseApproachDate string `json:"close_approach_date"`
	RelativeVelocity  struct {
		KilometersPerSecond string `json:"kilometers_per_second"`
		KilometersPerHour   string `json:"kilometers_per_hour"`
	} `json:"relative_velocity"`
	MissDistance struct {
		Kilometers string `json:"kilometers"`
		Lunar      string `json:"lunar"`
	} `json:"miss_distance"`
	OrbitingBody string `json:"orbiting_body"`
}

type NearEarthObject struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	NASAJPLURL        string  `json:"nasa_jpl_url"`
	AbsoluteMagnitude float64 `json:"absolute_magnitude_h"`
	EstimatedDiameter struct {
		Kilometers Diameter `json:"kilometers"`
	} `json:"estimated_diameter"`
	IsPotentiallyHazardous bool            `json:"is_potentially_hazardous_asteroid"`
	CloseApproachData      []CloseApproach `json:"close_approach_data"`
}

// NEOFeed is the near-earth object feed, objects grouped by approach date.
type NEOFeed struct {
	ElementCount     int                          `json:"element_count"`
	NearEarthObjects map[string][]NearEarthObject `json:"near_earth_objects"`
}

// Hazardous lists the potentially hazardous objects in date order.
func (f NEOFeed) Hazardous() []NearEarthObject {
	dates := make([]string, 0, len(f.NearEarthObjects))
	for d := range f.NearEarthObjects {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var out []NearEarthObject
	for _, d := range dates {
		for _, neo := range f.NearEarthObjects[d] {
			if neo.IsPotentiallyHazardous {
				out = append(out, neo)
			}
		}
	}
	return out
}

type EarthImagery struct {
	Date     string `json:"date"`
	ID       string `json:"id"`
	URL      string `json:"url"`
	Resource struct {
		Dataset string `json:"dataset"`
		Planet  string `json:"planet"`
	} `json:"resource"`
	ServiceVersion string `json:"service_version,omitempty"`
}

type SolarFlare struct {
	FlareID         string `json:"flrID"`
	BeginTime       string `json:"beginTime"`
	PeakTime        string `json:"peakTime"`
	EndTime         string `json:"endTime"`
	ClassType       string `json:"classType"`
	SourceLocation  string `json:"sourceLocation"`
	ActiveRegionNum *int   `json:"activeRegionNum"`
	Link            string `json:"link"`
}

type CMEAnalysis struct {
	Time21_5       string   `json:"time21_5"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	HalfAngle      *float64 `json:"halfAngle"`
	Speed          *float64 `json:"speed"`
	Type           string   `json:"type"`
	IsMostAccurate bool     `json:"isMostAccurate"`
}

type CoronalMassEjection struct {
	ActivityID     string        `json:"activityID"`
	StartTime      string        `json:"startTime"`
	SourceLocation string        `json:"sourceLocation"`
	Note           string        `json:"note"`
	Link           string        `json:"link"`
	Analyses       []CMEAnalysis `json:"cmeAnalyses"`
}

// MostAccurate returns the analysis flagged most accurate, if any.
func (c CoronalMassEjection) MostAccurate() (CMEAnalysis, bool) {
	for _, a := range c.Analyses {
		if a.IsMostAccurate {
			return a, true
		}
	}
	return CMEAnalysis{}, false
}
