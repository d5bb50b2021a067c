package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/ecotaxa/ecopart-back-sub000/internal/repositories"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	TaskListView ViewState = iota
	WatchView
	ResultView
)

// TaskSource reads tasks. [tasks.Ledger] implements it.
type TaskSource interface {
	GetOne(ctx context.Context, taskID string) (*models.Task, error)
	List(ctx context.Context, filter repositories.TaskFilter) ([]*models.Task, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	source   TaskSource
	filter   repositories.TaskFilter
	interval time.Duration
	width    int
	height   int
	taskList list.Model
	loaded   bool
	task     *models.Task
	bar      progress.Model
	err      error
	help     help.Model
	keys     keyMap
}

// NewModel creates a TUI listing the tasks that match filter.
// When taskID is set the TUI opens directly on that task.
func NewModel(ctx context.Context, source TaskSource, filter repositories.TaskFilter, taskID string, interval time.Duration) *Model {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	m := &Model{
		ctx:      ctx,
		view:     TaskListView,
		source:   source,
		filter:   filter,
		interval: interval,
		bar:      progress.New(progress.WithDefaultGradient()),
		help:     help.New(),
		keys:     newKeyMap(),
	}
	if taskID != "" {
		m.view = WatchView
		m.task = &models.Task{ID: taskID}
	}
	return m
}

// ViewState returns the current view.
func (m *Model) ViewState() ViewState {
	return m.view
}

// Init fetches the task list, or polls the watched task.
func (m *Model) Init() tea.Cmd {
	if m.view == WatchView {
		return m.poll(m.task.ID)
	}
	return m.fetchTasks()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(msg.Width-8, 10)
		if m.loaded {
			m.taskList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case TaskListView:
			return m.handleTaskListKeys(msg)
		case WatchView:
			return m.handleWatchKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgTasksFetched:
		data := msg.data.(tasksFetched)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		items := make([]list.Item, len(data.tasks))
		for i, task := range data.tasks {
			items[i] = taskItem{task: task}
		}
		m.taskList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.taskList.Title = "Tasks"
		m.taskList.SetSize(max(m.width-4, 0), max(m.height-8, 0))
		m.loaded = true
		return m, nil

	case MsgTaskPolled:
		data := msg.data.(taskPolled)
		if data.err != nil {
			m.err = data.err
			m.view = ResultView
			return m, nil
		}
		m.task = data.task
		if data.task.Status.Terminal() {
			m.view = ResultView
			return m, nil
		}
		m.view = WatchView
		return m, m.tick(data.task.ID)

	case MsgTick:
		taskID := msg.data.(string)
		if m.view != WatchView || m.task == nil || m.task.ID != taskID {
			return m, nil
		}
		return m, m.poll(taskID)
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view == TaskListView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress r to retry, q to quit", m.err))
	}

	switch m.view {
	case TaskListView:
		return m.renderTaskList()
	case WatchView:
		return m.renderWatch()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleTaskListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchTasks()
	case !m.loaded:
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.taskList.SelectedItem().(taskItem); ok {
			m.task = item.task
			m.view = WatchView
			return m, m.poll(item.task.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.taskList, cmd = m.taskList.Update(msg)
	return m, cmd
}

func (m *Model) handleWatchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = TaskListView
		return m, m.fetchTasks()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = TaskListView
		m.task = nil
		m.err = nil
		return m, m.fetchTasks()
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != TaskListView || !m.loaded {
		return m, nil
	}
	var cmd tea.Cmd
	m.taskList, cmd = m.taskList.Update(msg)
	return m, cmd
}

func (m *Model) fetchTasks() tea.Cmd {
	return func() tea.Msg {
		tasks, err := m.source.List(m.ctx, m.filter)
		return tasksFetchedMsg(tasks, err)
	}
}

func (m *Model) poll(taskID string) tea.Cmd {
	return func() tea.Msg {
		task, err := m.source.GetOne(m.ctx, taskID)
		return taskPolledMsg(task, err)
	}
}

func (m *Model) tick(taskID string) tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return tickMsg(taskID)
	})
}

func (m *Model) renderTaskList() string {
	if !m.loaded {
		return "Loading tasks..."
	}
	helpKeys := []key.Binding{m.keys.enter, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.taskList.View(), helpView)
}

func (m *Model) renderWatch() string {
	task := m.task
	title := styles.title.Render(fmt.Sprintf("Task %s", task.ID))
	if task.Type == "" {
		return fmt.Sprintf("%s\n\nLoading...", title)
	}

	status := styles.Status(task.Status).Render(string(task.Status))
	info := fmt.Sprintf("%s on project %d: %s", task.Type, task.Project(), status)
	if task.Question != "" {
		info += "\n" + styles.warn.Render("Waiting for response: "+task.Question)
	}

	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n\n%s\n%s\n\n%s",
		title, info, m.bar.ViewAs(float64(task.ProgressPct)/100), task.ProgressMsg, helpView)
}

func (m *Model) renderResult() string {
	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Error: %v", m.err)), helpView)
	}

	task := m.task
	if task.Status == models.StatusError {
		title := styles.err.Render(fmt.Sprintf("✗ %s failed", task.Type))
		return fmt.Sprintf("%s\n\n%s\n\nLog: %s\n\n%s", title, task.Error, task.LogFilePath, helpView)
	}

	title := styles.ok.Render(fmt.Sprintf("✓ %s done", task.Type))
	info := fmt.Sprintf("\n%s", task.ProgressMsg)

	var links models.ExportBackupResult
	if task.Type == models.TaskExportBackup {
		if ok, err := task.DecodeResult(&links); ok && err == nil {
			info += fmt.Sprintf("\nDownload: %s", links.SearchExportLink)
			if links.FTPLink != "" {
				info += fmt.Sprintf("\nFTP: %s", links.FTPLink)
			}
		}
	}
	if task.StartedAt != nil && task.EndedAt != nil {
		info += fmt.Sprintf("\nDuration: %s", task.EndedAt.Sub(*task.StartedAt).Round(time.Millisecond))
	}

	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}
