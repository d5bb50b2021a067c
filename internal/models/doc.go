// Package models defines the domain entities of the EcoPart task engine.
//
// The package contains three groups of types:
//
// 1. Task ledger entities
//   - [Task] : a persisted asynchronous unit of work with status, progress, log and outcome
//   - [TaskType] and [TaskStatus] : the vocabulary stored in the task_type and task_status lookup tables
//   - [TaskParams] : the typed parameter union keyed by task type ([BackupParams], [ExportBackupParams],
//     [ImportSamplesParams], [GenericParams])
//
// 2. Collaborator entities backed by the data store
//   - [User] and [Privilege] : accounts and per-project rights used for authorization
//   - [Project] : a field project with its root folder and instrument model
//   - [Sample] : an imported instrument sample
//
// 3. Transient decoder output
//   - [SampleDraft] : decoded but not yet persisted sample metadata
//   - [HeaderSample] : a candidate answer to "what is importable"
//   - [VignetteSettings] : image rendering settings read from a sample's images archive
//
// Persisted entities implement [Model] so repositories can validate them before writing.
package models
