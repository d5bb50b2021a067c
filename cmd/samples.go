package main

import (
	"context"
	"fmt"

	"github.com/ecotaxa/ecopart-back-sub000/internal/formatter"
	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/urfave/cli/v3"
)

// SamplesImportable lists the samples of a project that can still be imported.
func (r *Runner) SamplesImportable(ctx context.Context, cmd *cli.Command) error {
	userID, err := currentUser(cmd)
	if err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	samples, err := r.engine.ListImportableSamples(ctx, userID, int64(cmd.Int("project")))
	if err != nil {
		return err
	}
	r.logger.Debugf("found %d importable samples", len(samples))

	data, err := formatter.RenderSamples(format, samples)
	if err != nil {
		return fmt.Errorf("failed to render samples: %w", err)
	}
	return r.writeBytes(cmd.String("output"), data)
}

// SamplesImport runs the import pipeline for the named samples and follows it to completion.
func (r *Runner) SamplesImport(ctx context.Context, cmd *cli.Command) error {
	userID, err := currentUser(cmd)
	if err != nil {
		return err
	}

	task, err := r.engine.ImportSamples(ctx, userID, int64(cmd.Int("project")), models.ImportSamplesParams{
		SampleNames: cmd.StringSlice("sample"),
	})
	if err != nil {
		return err
	}
	return r.follow(ctx, task)
}
