package starlink

// statusResponse is the subset of the dish get_status reply the tracker
// consumes: GPS validity and signal quality.
type statusResponse struct {
	DishGetStatus struct {
		DeviceInfo struct {
			ID              string `json:"id"`
			SoftwareVersion string `json:"softwareVersion"`
		} `json:"deviceInfo"`

		GPSStats struct {
			GPSValid        bool `json:"gpsValid"`
			GPSSats         int  `json:"gpsSats"`
			NoSatsAfterTtff int  `json:"noSatsAfterTtff"`
			InhibitGPS      bool `json:"inhibitGps"`
		} `json:"gpsStats"`

		SNR                  float64 `json:"snr"`
		IsSnrAboveNoiseFloor bool    `json:"isSnrAboveNoiseFloor"`
		MobilityClass        string  `json:"mobilityClass"`
	} `json:"dishGetStatus"`
}

// locationResponse is the reply to get_location. SigmaM is the dish's
// horizontal uncertainty estimate in meters.
type locationResponse struct {
	GetLocation struct {
		LLA struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
			Alt float64 `json:"alt"`
		} `json:"lla"`
		SigmaM float64 `json:"sigmaM"`
		Source string  `json:"source"`
	} `json:"getLocation"`
}

// diagnosticsResponse is the subset of get_diagnostics carrying the
// enhanced location block, used when get_location is disabled on the dish.
type diagnosticsResponse struct {
	DishGetDiagnostics struct {
		ID       string `json:"id"`
		Location struct {
			Enabled                bool    `json:"enabled"`
			Latitude               float64 `json:"latitude"`
			Longitude              float64 `json:"longitude"`
			AltitudeMeters         float64 `json:"altitudeMeters"`
			UncertaintyMeters      float64 `json:"uncertaintyMeters"`
			UncertaintyMetersValid bool    `json:"uncertaintyMetersValid"`
			GPSTimeS               float64 `json:"gpsTimeS"`
		} `json:"location"`
	} `json:"dishGetDiagnostics"`
}

// GPSStatus summarizes the dish's view of its GPS receiver.
type GPSStatus struct {
	Valid      bool    `json:"valid"`
	Satellites int     `json:"satellites"`
	Inhibited  bool    `json:"inhibited"`
	SNR        float64 `json:"snr"`
}
