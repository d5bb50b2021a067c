package tasks

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ecotaxa/ecopart-back-sub000/internal/instrument"
	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
	"github.com/ecotaxa/ecopart-back-sub000/internal/storage"
)

// ImportSamples stages the requested samples' raw data and persists their decoded metadata.
//
// Every requested name must be importable; the check happens before the task is created.
func (e *Engine) ImportSamples(ctx context.Context, userID, projectID int64, params models.ImportSamplesParams) (*models.Task, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return e.execute(ctx, launchRequest{
		userID:    userID,
		projectID: projectID,
		required:  PrivilegeManager,
		params:    params,
		precheck: func(ctx context.Context, project *models.Project) error {
			return e.checkImportable(ctx, project, params.SampleNames)
		},
		build: func(task *models.Task, project *models.Project) *plan {
			return e.importPlan(task.ID, project, params.SampleNames)
		},
	})
}

func (e *Engine) checkImportable(ctx context.Context, project *models.Project, names []string) error {
	available, err := e.importable(ctx, project)
	if err != nil {
		return err
	}

	importable := make(map[string]bool, len(available))
	for _, s := range available {
		importable[s.SampleName] = true
	}

	var missing []string
	for _, name := range names {
		if !importable[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: samples not importable: %s", shared.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// stagingSource is the project folder holding a sample's raw data.
func stagingSource(project *models.Project, family models.InstrumentFamily, sample string) string {
	if family == models.FamilyUVP5 {
		return filepath.Join(project.RootFolderPath, "work", sample)
	}
	return filepath.Join(project.RootFolderPath, "raw", sample)
}

func (e *Engine) importPlan(taskID string, project *models.Project, names []string) *plan {
	var (
		family  models.InstrumentFamily
		samples []*models.Sample
	)

	return &plan{steps: []step{
		{
			phase: DetectInstrument,
			pct:   0,
			msg:   "Detecting instrument",
			run: func(ctx context.Context) error {
				var err error
				family, err = project.Family()
				return err
			},
		},
		{
			phase: StageSamples,
			pct:   10,
			msg:   "Copying samples to staging",
			run: func(ctx context.Context) error {
				for i, name := range names {
					dst := e.files.ProjectStagingPath(project.ID, name)
					if _, err := e.files.CopyTree(ctx, stagingSource(project, family, name), dst, storage.CopyOptions{}); err != nil {
						return fmt.Errorf("failed to stage sample %s: %w", name, err)
					}
					pct := 10 + 40*(i+1)/len(names)
					if err := e.ledger.UpdateProgress(ctx, taskID, min(pct, 49), "Staged "+name); err != nil {
						return err
					}
				}
				return nil
			},
			compensate: func(ctx context.Context) {
				for _, name := range names {
					dst := e.files.ProjectStagingPath(project.ID, name)
					if err := e.files.RemoveTree(dst); err != nil {
						e.logger.Error("cannot remove staged sample", "task", taskID, "sample", name, "err", err)
					}
				}
			},
		},
		{
			phase: DecodeSamples,
			pct:   50,
			msg:   "Decoding sample metadata",
			run: func(ctx context.Context) error {
				var err error
				samples, err = e.decodeSamples(ctx, project, family, names)
				return err
			},
		},
		{
			phase: SaveSamples,
			pct:   90,
			msg:   "Saving samples",
			run: func(ctx context.Context) error {
				if err := e.samples.CreateMany(ctx, samples); err != nil {
					return fmt.Errorf("failed to save samples: %w", err)
				}
				return e.ledger.UpdateProgress(ctx, taskID, 99, fmt.Sprintf("Imported %d samples", len(samples)))
			},
		},
	}}
}

func (e *Engine) decodeSamples(ctx context.Context, project *models.Project, family models.InstrumentFamily, names []string) ([]*models.Sample, error) {
	var headers map[string]*instrument.HeaderLine
	if family == models.FamilyUVP5 {
		lines, err := instrument.ReadHeaderFiles(filepath.Join(project.RootFolderPath, "meta"))
		if err != nil {
			return nil, err
		}
		headers = make(map[string]*instrument.HeaderLine, len(lines))
		for _, line := range lines {
			if _, ok := headers[line.ProfileID]; !ok {
				headers[line.ProfileID] = line
			}
		}
	}

	samples := make([]*models.Sample, 0, len(names))
	for _, name := range names {
		var (
			draft *models.SampleDraft
			err   error
		)
		switch family {
		case models.FamilyUVP5:
			line, ok := headers[name]
			if !ok {
				return nil, fmt.Errorf("%w: no header line for sample %s", shared.ErrNotFound, name)
			}
			draft, err = line.Draft(family)
		default:
			draft, err = instrument.DecodeUVP6Sample(e.files.ProjectStagingPath(project.ID, name))
		}
		if err != nil {
			return nil, err
		}

		if err := instrument.ComputeSampleType(ctx, draft, e.sampleTypes); err != nil {
			return nil, err
		}
		samples = append(samples, draft.ToSample(project.ID))
	}
	return samples, nil
}
