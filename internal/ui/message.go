package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgTasksFetched MsgKind = iota
	MsgTaskPolled
	MsgTick
)

type tasksFetched struct {
	tasks []*models.Task
	err   error
}

type taskPolled struct {
	task *models.Task
	err  error
}

// tasksFetchedMsg is the constructor for [MsgTasksFetched]
func tasksFetchedMsg(tasks []*models.Task, err error) Msg {
	return Msg{kind: MsgTasksFetched, data: tasksFetched{tasks, err}}
}

// taskPolledMsg is the constructor for [MsgTaskPolled]
func taskPolledMsg(task *models.Task, err error) Msg {
	return Msg{kind: MsgTaskPolled, data: taskPolled{task, err}}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg(taskID string) Msg {
	return Msg{kind: MsgTick, data: taskID}
}
