// Package repositories implements SQLite persistence for the task engine and its collaborators.
//
// Key Implementations:
//   - [TaskRepository] : task ledger rows, the task_type/task_status lookup tables and the mutual exclusion query
//   - [ProjectRepository] : field projects
//   - [UserRepository] : accounts, soft deletes and per-project privileges
//   - [SampleRepository] : samples, including the all-or-nothing [SampleRepository.CreateMany]
//   - [SampleTypeRepository] : the time/depth sample type lookup
//
// Task sequence numbers provide stable, human-readable ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
