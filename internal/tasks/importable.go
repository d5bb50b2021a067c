package tasks

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ecotaxa/ecopart-back-sub000/internal/instrument"
	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
)

// ListImportableSamples lists the header entries of a project that are not imported yet,
// each with its level 1 quality check.
func (e *Engine) ListImportableSamples(ctx context.Context, userID, projectID int64) ([]models.HeaderSample, error) {
	if err := e.authorize(ctx, userID, projectID, PrivilegeGranted); err != nil {
		return nil, err
	}
	project, err := e.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return e.importable(ctx, project)
}

func (e *Engine) importable(ctx context.Context, project *models.Project) ([]models.HeaderSample, error) {
	family, err := project.Family()
	if err != nil {
		return nil, err
	}

	lines, err := instrument.ReadHeaderFiles(filepath.Join(project.RootFolderPath, "meta"))
	if err != nil {
		return nil, err
	}

	names, err := e.samples.ListNames(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(names)+len(lines))
	for _, name := range names {
		seen[name] = true
	}

	samples := make([]models.HeaderSample, 0, len(lines))
	for _, line := range lines {
		candidate := line.Candidate()
		if seen[candidate.SampleName] {
			continue
		}
		seen[candidate.SampleName] = true

		if err := e.checkRawData(project, family, &candidate); err != nil {
			return nil, err
		}
		samples = append(samples, candidate)
	}
	return samples, nil
}

// checkRawData sets the level 1 quality check of a candidate from the raw folder listing.
func (e *Engine) checkRawData(project *models.Project, family models.InstrumentFamily, s *models.HeaderSample) error {
	raw := filepath.Join(project.RootFolderPath, "raw")

	if family == models.FamilyUVP5 {
		folder := filepath.Join(raw, "HDR"+s.RawFileName)
		ok, err := e.files.IsDir(folder)
		if err != nil {
			return err
		}
		if !ok {
			s.QCLvl1Comment = "Raw folder missing: " + folder
			return nil
		}
		s.QCLvl1 = true
		return nil
	}

	folder := filepath.Join(raw, s.SampleName)
	ok, err := e.files.IsDir(folder)
	if err != nil {
		return err
	}
	if !ok {
		s.QCLvl1Comment = "Raw folder missing: " + folder
		return nil
	}

	archive := instrument.ParticleArchivePath(folder)
	ok, err = e.files.Exists(archive)
	if err != nil {
		return err
	}
	if !ok {
		s.QCLvl1Comment = fmt.Sprintf("Particle zip missing: %s", archive)
		return nil
	}
	s.QCLvl1 = true
	return nil
}
