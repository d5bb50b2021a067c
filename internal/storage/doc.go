// Package storage is the filesystem collaborator of the task engine.
//
// Every path the pipelines touch lives below a configured root and is scoped by project or task id:
//
//	<root>/projects/<project_id>/.backup/         hidden backup of a project's raw tree
//	<root>/projects/<project_id>/l0/<sample>/     staged L0 data of an imported sample
//	<root>/tasks/<task_id>/                       per-task log file and export artifacts
//
// [FileSystem] copies, removes, lists and zips trees. Long operations check the context between files.
package storage
