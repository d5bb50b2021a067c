package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

// InstrumentFamily is the UVP generation a project's instrument belongs to.
// It selects the source folder layout and the metadata decoder path.
type InstrumentFamily string

const (
	FamilyUVP5 InstrumentFamily = "UVP5"
	FamilyUVP6 InstrumentFamily = "UVP6"
)

// ParseInstrumentFamily derives the family from an instrument model name such as UVP5HD or UVP6M.
func ParseInstrumentFamily(model string) (InstrumentFamily, error) {
	upper := strings.ToUpper(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(upper, string(FamilyUVP5)):
		return FamilyUVP5, nil
	case strings.HasPrefix(upper, string(FamilyUVP6)):
		return FamilyUVP6, nil
	default:
		return "", fmt.Errorf("%w: unknown instrument model %q", shared.ErrValidation, model)
	}
}

// Project is a field project whose raw instrument data lives under RootFolderPath.
type Project struct {
	ID              int64     `json:"project_id"`
	Title           string    `json:"project_title"`
	RootFolderPath  string    `json:"root_folder_path"`
	InstrumentModel string    `json:"instrument_model"`
	CreatedAt       time.Time `json:"project_creation_date"`
}

// Validate checks the mandatory project fields.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: project title is required", shared.ErrValidation)
	}
	if strings.TrimSpace(p.RootFolderPath) == "" {
		return fmt.Errorf("%w: project root folder is required", shared.ErrValidation)
	}
	if _, err := ParseInstrumentFamily(p.InstrumentModel); err != nil {
		return err
	}
	return nil
}

// Family returns the instrument family of the project.
func (p *Project) Family() (InstrumentFamily, error) {
	return ParseInstrumentFamily(p.InstrumentModel)
}
