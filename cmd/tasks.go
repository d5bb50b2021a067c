package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/ecotaxa/ecopart-back-sub000/internal/formatter"
	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/ecotaxa/ecopart-back-sub000/internal/repositories"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
	"github.com/urfave/cli/v3"
)

// taskFilter builds a ledger filter from the list flags.
func taskFilter(cmd *cli.Command) (repositories.TaskFilter, error) {
	filter := repositories.TaskFilter{
		Fields: map[string]string{},
		Limit:  cmd.Int("limit"),
		Offset: cmd.Int("offset"),
		Desc:   cmd.Bool("desc"),
	}

	if t := cmd.String("type"); t != "" {
		taskType, err := models.ParseTaskType(t)
		if err != nil {
			return filter, err
		}
		filter.Fields["type"] = string(taskType)
	}
	if s := cmd.String("status"); s != "" {
		status, err := models.ParseTaskStatus(s)
		if err != nil {
			return filter, err
		}
		filter.Fields["status"] = string(status)
	}
	if p := cmd.Int("project"); p > 0 {
		filter.Fields["project_id"] = strconv.Itoa(p)
	}
	if o := cmd.Int("owner"); o > 0 {
		filter.Fields["owner_id"] = strconv.Itoa(o)
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return filter, fmt.Errorf("%w: limit and offset cannot be negative", shared.ErrInvalidArgument)
	}

	return filter, nil
}

// TasksList prints the tasks matching the filter flags.
func (r *Runner) TasksList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	filter, err := taskFilter(cmd)
	if err != nil {
		return err
	}

	list, err := r.ledger.List(ctx, filter)
	if err != nil {
		return err
	}

	data, err := formatter.RenderTasks(format, list)
	if err != nil {
		return fmt.Errorf("failed to render tasks: %w", err)
	}
	return r.writeBytes(cmd.String("output"), data)
}

// TasksGet prints one task.
func (r *Runner) TasksGet(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: task id", shared.ErrMissingArgument)
	}

	task, err := r.ledger.GetOne(ctx, id)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(task, cmd.Bool("pretty"))
	}
	return r.writeBytes("", formatter.TaskToText(task))
}

// TasksLog prints the task's log file.
func (r *Runner) TasksLog(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: task id", shared.ErrMissingArgument)
	}
	if _, err := r.ledger.GetOne(ctx, id); err != nil {
		return err
	}

	data, err := os.ReadFile(r.ledger.LogFilePath(id))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: no log file for task %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to read task log: %w", err)
	}
	return r.writeBytes("", data)
}
