// Package storage persists completed run records for operators.
//
// It is strictly optional: with the "none" driver (the default) a RunRecord
// lives exactly as long as its cycle and is discarded once logged. A store
// failure is logged and never feeds back into the scheduler loop.
package storage
