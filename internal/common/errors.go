// Package common defines sentinel errors shared by the repository, service and
// transport layers of the posts service. Callers should match them with errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")

	// Service-level errors.
	ErrorInternal = errors.New("internal error")

	// Bootstrap errors.
	ErrSeedUnreadable = errors.New("seed dataset unreadable")
)
