package entity

// GPSLocation is a captured coordinate with its reported accuracy in meters.
type GPSLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// Photo is a reference to an evidentiary photo held by the file storage
// collaborator. Only the reference and capture metadata are kept here.
type Photo struct {
	FileKey    string `json:"file_key"`
	Caption    string `json:"caption,omitempty"`
	CapturedAt string `json:"captured_at,omitempty"`
}

// FieldConditions captures the observed site conditions at time of work.
// The sub-fields are enumerated deliberately: evidence is snapshotted into
// typed records, never stored as a caller-shaped map.
type FieldConditions struct {
	Weather     string `json:"weather,omitempty"`
	SoilType    string `json:"soil_type,omitempty"`
	Access      string `json:"access,omitempty"`
	Hazards     string `json:"hazards,omitempty"`
	Temperature string `json:"temperature,omitempty"`
}

// Evidence is the evidentiary payload attached to a unit entry, or an
// explicit waiver when no evidence could be captured.
type Evidence struct {
	GPS          *GPSLocation    `json:"gps,omitempty"`
	Photos       []Photo         `json:"photos,omitempty"`
	Conditions   FieldConditions `json:"conditions"`
	Waived       bool            `json:"waived"`
	WaiverReason string          `json:"waiver_reason,omitempty"`
}

// PhotoCount returns the number of attached photo references.
func (e *Evidence) PhotoCount() int {
	if e == nil {
		return 0
	}
	return len(e.Photos)
}

// HasGPS reports whether a GPS fix was captured.
func (e *Evidence) HasGPS() bool {
	return e != nil && e.GPS != nil
}

// Satisfied reports whether the payload meets the submission requirement:
// at least one photo, or an explicit waiver with a reason.
func (e *Evidence) Satisfied() bool {
	if e == nil {
		return false
	}
	if e.Waived {
		return e.WaiverReason != ""
	}
	return len(e.Photos) > 0
}

// Performer attributes the work to who performed it.
type Performer struct {
	Tier         string `json:"tier"`
	WorkCategory string `json:"work_category"`
	CrewSize     int    `json:"crew_size"`
}
