// package models defines the data model for the EcoPart task engine
package models

// Model defines the base interface for all persistent models of the task engine.
// Implementations include Task, Project, User and Sample.
type Model interface {
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

var (
	_ Model = (*Task)(nil)
	_ Model = (*Project)(nil)
	_ Model = (*User)(nil)
	_ Model = (*Sample)(nil)
)
