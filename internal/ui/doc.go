// Package ui implements an interactive task watcher using bubbletea's Elm architecture.
//
// The TUI has three views:
//  1. [TaskListView] : Browse recent tasks
//  2. [WatchView] : Follow one task's progress bar and message until it settles
//  3. [ResultView] : Show the outcome (result links or error)
//
// The [Model] polls a [TaskSource] (the task ledger) instead of listening to the engine's progress
// channel, so it can watch tasks started by another process such as the HTTP server.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
