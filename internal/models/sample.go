package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

// SampleTypeLabel is the label stored in the sample_type table.
type SampleTypeLabel string

const (
	SampleTypeTime  SampleTypeLabel = "time"
	SampleTypeDepth SampleTypeLabel = "depth"
)

// VignetteSettings are the image rendering settings found in compute_vignette.txt.
type VignetteSettings struct {
	Gamma          float64 `json:"gamma"`
	Invert         bool    `json:"invert"`
	ScaleBarSizeMM float64 `json:"scalebarsize_mm"`
	KeepImage      bool    `json:"keeporiginal"`
	FontColor      string  `json:"fontcolor"`
	FontHeightPx   int     `json:"fontheight_px"`
	FooterHeightPx int     `json:"footerheight_px"`
	Scale          float64 `json:"scale"`
}

// InstrumentSettings is the JSON blob stored with a sample.
type InstrumentSettings struct {
	Vignette *VignetteSettings        `json:"vignette,omitempty"`
	Sections map[string]map[string]any `json:"sections,omitempty"`
}

// Sample is the persisted shape of an imported sample.
//
// Numeric fields may hold NaN when the instrument header did not carry a parsable value;
// repositories store NaN as NULL.
type Sample struct {
	ID                 int64              `json:"sample_id"`
	ProjectID          int64              `json:"project_id"`
	Name               string             `json:"sample_name"`
	RawFileName        string             `json:"raw_file_name"`
	StationID          string             `json:"station_id"`
	Comment            string             `json:"comment"`
	SamplingDate       *time.Time         `json:"sampling_date,omitempty"`
	Latitude           float64            `json:"latitude_start"`
	Longitude          float64            `json:"longitude_start"`
	SampleTypeID       int64              `json:"sample_type_id"`
	FirstImage         float64            `json:"first_image"`
	LastImage          float64            `json:"last_image"`
	BottomDepth        float64            `json:"bottom_depth"`
	IntegrationTime    float64            `json:"integration_time"`
	WindDirection      float64            `json:"wind_direction"`
	WindSpeed          float64            `json:"wind_speed"`
	SeaState           float64            `json:"sea_state"`
	Nebulousness       float64            `json:"nebulousness"`
	Yoyo               string             `json:"yoyo"`
	ProfileID          string             `json:"profile_id"`
	CTDRosetteFilename string             `json:"ctd_rosette_filename"`
	Cruise             string             `json:"cruise"`
	Ship               string             `json:"ship"`
	ArgoID             string             `json:"argo_id"`
	PixelSize          float64            `json:"pixel_size"`
	ImageVolume        float64            `json:"image_volume"`
	Aa                 float64            `json:"aa"`
	Exp                float64            `json:"exp"`
	InstrumentSettings InstrumentSettings `json:"instrument_settings"`
	CreatedAt          time.Time          `json:"sample_creation_date"`
}

// Validate requires a project, a name and a resolved sample type.
func (s *Sample) Validate() error {
	if s.ProjectID <= 0 {
		return fmt.Errorf("%w: sample project is required", shared.ErrValidation)
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: sample name is required", shared.ErrValidation)
	}
	if s.SampleTypeID <= 0 {
		return fmt.Errorf("%w: sample %s has no sample type", shared.ErrValidation, s.Name)
	}
	return nil
}

// SampleDraft is decoded instrument metadata for one sample, before persistence.
//
// Fields fall in three groups: values copied verbatim from a header line or INI section,
// values converted from their instrument encoding (coordinates, sample type, sampling date)
// and values looked up in a second archive (vignette settings).
type SampleDraft struct {
	SampleName         string
	RawFileName        string
	Cruise             string
	Ship               string
	ProfileID          string
	CTDRosetteFilename string
	StationID          string
	Comment            string
	Yoyo               string
	ArgoID             string
	BottomDepth        float64
	FirstImage         float64
	LastImage          float64
	WindDirection      float64
	WindSpeed          float64
	SeaState           float64
	Nebulousness       float64
	IntegrationTime    float64
	PixelSize          float64
	ImageVolume        float64
	Aa                 float64
	Exp                float64

	SampleTypeLetter string
	SampleTypeID     int64
	Latitude         float64
	Longitude        float64
	SamplingDate     *time.Time

	Vignette *VignetteSettings
	Sections map[string]map[string]any
}

// NewSampleDraft returns a draft whose numeric fields start as NaN.
func NewSampleDraft(name string) *SampleDraft {
	nan := math.NaN()
	return &SampleDraft{
		SampleName:      name,
		BottomDepth:     nan,
		FirstImage:      nan,
		LastImage:       nan,
		WindDirection:   nan,
		WindSpeed:       nan,
		SeaState:        nan,
		Nebulousness:    nan,
		IntegrationTime: nan,
		PixelSize:       nan,
		ImageVolume:     nan,
		Aa:              nan,
		Exp:             nan,
		Latitude:        nan,
		Longitude:       nan,
	}
}

// ToSample maps the draft onto the persisted sample shape for projectID.
func (d *SampleDraft) ToSample(projectID int64) *Sample {
	return &Sample{
		ProjectID:          projectID,
		Name:               d.SampleName,
		RawFileName:        d.RawFileName,
		StationID:          d.StationID,
		Comment:            d.Comment,
		SamplingDate:       d.SamplingDate,
		Latitude:           d.Latitude,
		Longitude:          d.Longitude,
		SampleTypeID:       d.SampleTypeID,
		FirstImage:         d.FirstImage,
		LastImage:          d.LastImage,
		BottomDepth:        d.BottomDepth,
		IntegrationTime:    d.IntegrationTime,
		WindDirection:      d.WindDirection,
		WindSpeed:          d.WindSpeed,
		SeaState:           d.SeaState,
		Nebulousness:       d.Nebulousness,
		Yoyo:               d.Yoyo,
		ProfileID:          d.ProfileID,
		CTDRosetteFilename: d.CTDRosetteFilename,
		Cruise:             d.Cruise,
		Ship:               d.Ship,
		ArgoID:             d.ArgoID,
		PixelSize:          d.PixelSize,
		ImageVolume:        d.ImageVolume,
		Aa:                 d.Aa,
		Exp:                d.Exp,
		InstrumentSettings: InstrumentSettings{Vignette: d.Vignette, Sections: d.Sections},
	}
}

// HeaderSample is a header entry cross-checked against the raw data folder.
type HeaderSample struct {
	SampleName    string  `json:"sample_name"`
	RawFileName   string  `json:"raw_file_name"`
	StationID     string  `json:"station_id"`
	FirstImage    Float   `json:"first_image"`
	LastImage     Float   `json:"last_image"`
	Comment       string  `json:"comment"`
	QCLvl1        bool    `json:"qc_lvl1"`
	QCLvl1Comment string  `json:"qc_lvl1_comment"`
}

// Float is a float64 that encodes NaN and infinities as JSON null and decodes null back to NaN.
type Float float64

// MarshalJSON implements [json.Marshaler].
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// UnmarshalJSON implements [json.Unmarshaler].
func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Float(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid number %s: %w", data, err)
	}
	*f = Float(v)
	return nil
}

// String renders the value, or an empty string for NaN.
func (f Float) String() string {
	if math.IsNaN(float64(f)) {
		return ""
	}
	return strconv.FormatFloat(float64(f), 'f', -1, 64)
}
