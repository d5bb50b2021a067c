// Package tasks runs long project operations as observable background tasks.
//
// # Ledger
//
// [Ledger] records every task in the task table and mirrors each checkpoint into the task's
// log file. A task moves Pending → Running → Done or Error, with Running ↔ Waiting_for_response
// reserved for pipelines that ask questions. Done and Error are terminal.
//
// # Pipelines
//
// [Engine] exposes one entry point per pipeline:
//
//  1. [Engine.BackupProject] : copies raw, meta, config (and work for UVP5) into the project backup
//  2. [Engine.ExportBackup] : zips the backup, optionally uploads it to the FTP drop
//  3. [Engine.ImportSamples] : stages raw sample data, decodes metadata and saves samples
//
// Each entry point authorizes the caller, records a Pending task and returns it. The run
// phase continues on a goroutine; [Engine.Wait] blocks until every run has settled.
//
// Steps run in order. The first error or panic runs the compensations registered so far,
// newest first, then fails the task.
//
// # Progress Reporting
//
// Besides the ledger, runs publish [ProgressUpdate] values on the optional channel given
// in [Options]. Sends never block: updates are dropped when the channel is full.
//
// # Mutual Exclusion
//
// A backup does not start while an export of the same project is running, and the other way
// round. The check is a query made when the run starts, so two near-simultaneous starts can
// both pass it.
package tasks
