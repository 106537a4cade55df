// Package sanitize validates and coerces untrusted input before it reaches
// any state transition. Every operation in the application layer goes
// through here first; a failure is a ValidationError and nothing downstream
// runs.
package sanitize

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/fieldclaims/fieldclaims/internal/domain/entity"
)

var (
	validate     = validator.New()
	controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// DateLayout is the accepted wire format for dates.
const DateLayout = "2006-01-02"

// Struct runs validator tag validation over an inbound DTO.
func Struct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return entity.NewValidationError("", err.Error())
	}
	return nil
}

// String strips control characters from untrusted text and trims space.
func String(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}

// ID checks a single identifier.
func ID(field string, id int64) (int64, error) {
	if id <= 0 {
		return 0, entity.NewValidationError(field, "must be a positive identifier")
	}
	return id, nil
}

// IDList deduplicates an identifier list preserving first-seen order and
// rejects empty lists and non-positive members.
func IDList(field string, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, entity.NewValidationError(field, "must not be empty")
	}

	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, entity.NewValidationError(field, "contains a non-positive identifier")
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

// Enum checks membership of a lowercased value in the allowed set.
func Enum(field, value string, allowed map[string]bool) (string, error) {
	v := strings.ToLower(String(value))
	if !allowed[v] {
		return "", entity.NewValidationError(field, "unknown value "+value)
	}
	return v, nil
}

// Date parses a wire-format date.
func Date(field, value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, String(value))
	if err != nil {
		return time.Time{}, entity.NewValidationError(field, "must be a date in format "+DateLayout)
	}
	return t, nil
}

// PositiveDecimal parses a decimal string that must be strictly positive.
func PositiveDecimal(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(String(value))
	if err != nil {
		return decimal.Zero, entity.NewValidationError(field, "must be a decimal number")
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, entity.NewValidationError(field, "must be positive")
	}
	return d, nil
}

// Rate parses a fractional rate in [0, 1).
func Rate(field, value string) (decimal.Decimal, error) {
	if String(value) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(String(value))
	if err != nil {
		return decimal.Zero, entity.NewValidationError(field, "must be a decimal number")
	}
	if d.IsNegative() || d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, entity.NewValidationError(field, "must be in [0, 1)")
	}
	return d, nil
}

// GPSInput is the untrusted GPS shape.
type GPSInput struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// PhotoInput is the untrusted photo reference shape.
type PhotoInput struct {
	FileKey    string `json:"file_key"`
	Caption    string `json:"caption"`
	CapturedAt string `json:"captured_at"`
}

// ConditionsInput is the untrusted field conditions shape.
type ConditionsInput struct {
	Weather     string `json:"weather"`
	SoilType    string `json:"soil_type"`
	Access      string `json:"access"`
	Hazards     string `json:"hazards"`
	Temperature string `json:"temperature"`
}

// EvidenceInput is the untrusted evidentiary payload shape.
type EvidenceInput struct {
	GPS          *GPSInput       `json:"gps"`
	Photos       []PhotoInput    `json:"photos"`
	Conditions   ConditionsInput `json:"conditions"`
	Waived       bool            `json:"waived"`
	WaiverReason string          `json:"waiver_reason"`
}

// Evidence coerces the untrusted payload into the typed snapshot the entity
// stores. Caller shape is never trusted: only enumerated sub-fields
// survive, and coordinates are range-checked.
func Evidence(in *EvidenceInput) (entity.Evidence, error) {
	var out entity.Evidence
	if in == nil {
		return out, nil
	}

	if in.GPS != nil {
		if in.GPS.Latitude < -90 || in.GPS.Latitude > 90 {
			return out, entity.NewValidationError("evidence.gps.latitude", "must be in [-90, 90]")
		}
		if in.GPS.Longitude < -180 || in.GPS.Longitude > 180 {
			return out, entity.NewValidationError("evidence.gps.longitude", "must be in [-180, 180]")
		}
		if in.GPS.Accuracy < 0 {
			return out, entity.NewValidationError("evidence.gps.accuracy", "must not be negative")
		}
		out.GPS = &entity.GPSLocation{
			Latitude:  in.GPS.Latitude,
			Longitude: in.GPS.Longitude,
			Accuracy:  in.GPS.Accuracy,
		}
	}

	for _, p := range in.Photos {
		key := String(p.FileKey)
		if key == "" {
			return out, entity.NewValidationError("evidence.photos", "photo file_key missing")
		}
		out.Photos = append(out.Photos, entity.Photo{
			FileKey:    key,
			Caption:    String(p.Caption),
			CapturedAt: String(p.CapturedAt),
		})
	}

	out.Conditions = entity.FieldConditions{
		Weather:     String(in.Conditions.Weather),
		SoilType:    String(in.Conditions.SoilType),
		Access:      String(in.Conditions.Access),
		Hazards:     String(in.Conditions.Hazards),
		Temperature: String(in.Conditions.Temperature),
	}

	out.Waived = in.Waived
	out.WaiverReason = String(in.WaiverReason)
	if out.Waived && out.WaiverReason == "" {
		return out, entity.NewValidationError("evidence.waiver_reason", "required when evidence is waived")
	}

	return out, nil
}

// PerformerInput is the untrusted performer attribution shape.
type PerformerInput struct {
	Tier         string `json:"tier"`
	WorkCategory string `json:"work_category"`
	CrewSize     int    `json:"crew_size"`
}

// Performer coerces performer attribution.
func Performer(in PerformerInput) (entity.Performer, error) {
	tier, err := Enum("performer.tier", in.Tier, entity.ValidTiers)
	if err != nil {
		return entity.Performer{}, err
	}
	if in.CrewSize < 1 {
		return entity.Performer{}, entity.NewValidationError("performer.crew_size", "must be at least 1")
	}
	return entity.Performer{
		Tier:         tier,
		WorkCategory: String(in.WorkCategory),
		CrewSize:     in.CrewSize,
	}, nil
}
