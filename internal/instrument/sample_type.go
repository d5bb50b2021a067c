package instrument

import (
	"context"
	"fmt"
	"strings"

	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

// SampleTypeLookup resolves sample type labels to ids.
type SampleTypeLookup interface {
	IDByLabel(ctx context.Context, label models.SampleTypeLabel) (int64, error)
}

// SampleTypeLabelFor maps the instrument letter to a label: T is time, D is depth.
func SampleTypeLabelFor(letter string) (models.SampleTypeLabel, error) {
	switch strings.ToUpper(strings.TrimSpace(letter)) {
	case "T":
		return models.SampleTypeTime, nil
	case "D":
		return models.SampleTypeDepth, nil
	case "":
		return "", fmt.Errorf("%w: missing sample type", shared.ErrValidation)
	default:
		return "", fmt.Errorf("%w: unknown sample type %q", shared.ErrValidation, letter)
	}
}

// ComputeSampleType resolves the draft's sample type letter into SampleTypeID.
func ComputeSampleType(ctx context.Context, draft *models.SampleDraft, lookup SampleTypeLookup) error {
	label, err := SampleTypeLabelFor(draft.SampleTypeLetter)
	if err != nil {
		return fmt.Errorf("sample %s: %w", draft.SampleName, err)
	}

	id, err := lookup.IDByLabel(ctx, label)
	if err != nil {
		return fmt.Errorf("sample %s: %w", draft.SampleName, err)
	}
	draft.SampleTypeID = id
	return nil
}
