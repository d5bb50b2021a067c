package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
)

var _ list.Item = taskItem{}

// taskItem wraps [models.Task] to implement [list.Item].
type taskItem struct {
	task *models.Task
}

func (i taskItem) FilterValue() string { return string(i.task.Type) + " " + i.task.ID }
func (i taskItem) Title() string {
	return fmt.Sprintf("#%d %s", i.task.Sequence, i.task.Type)
}
func (i taskItem) Description() string {
	desc := fmt.Sprintf("%s • %d%%", styles.Status(i.task.Status).Render(string(i.task.Status)), i.task.ProgressPct)
	if i.task.ProjectID != nil {
		desc = fmt.Sprintf("%s • project %d", desc, *i.task.ProjectID)
	}
	if i.task.ProgressMsg != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.task.ProgressMsg)
	}
	return desc
}
