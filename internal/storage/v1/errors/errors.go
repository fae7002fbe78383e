// Package errors provides typed errors surfaced by the storage layer.
package errors

import (
	"fmt"
)

type (
	StatementPSQLError struct {
		Err error
	}
	AlreadyExistsError struct {
		Err error
		ID  string
	}
	// ForeignKeyError reports a reference to a non-existing parent row.
	ForeignKeyError struct {
		Err error
		ID  string
	}
	ExecutionPSQLError struct {
		Err error
	}
	ScanningPSQLError struct {
		Err error
	}
	ContextTimeoutExceededError struct {
		Err error
	}
	NotFoundError struct {
		Err error
	}
	NotEnoughFundsError struct {
		ID string
	}
)

func (e *StatementPSQLError) Error() string {
	return fmt.Sprintf("%s: could not compile", e.Err.Error())
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s: already exists", e.ID)
}

func (e *ForeignKeyError) Error() string {
	return fmt.Sprintf("%s: refers to a non-existing parent row", e.ID)
}

func (e *ExecutionPSQLError) Error() string {
	return fmt.Sprintf("%s: could not execute", e.Err.Error())
}

func (e *ScanningPSQLError) Error() string {
	return fmt.Sprintf("%s: could not scan", e.Err.Error())
}

func (e *ContextTimeoutExceededError) Error() string {
	return fmt.Sprintf("%s: context timeout exceeded", e.Err.Error())
}

func (e *NotFoundError) Error() string {
	return "requested entry was not found"
}

func (e *NotEnoughFundsError) Error() string {
	return fmt.Sprintf("%s: not enough funds on balance", e.ID)
}
