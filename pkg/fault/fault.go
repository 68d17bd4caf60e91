// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package fault defines the error taxonomy shared by the season lifecycle
// components. Every failure raised by a season operation is wrapped in an
// *Error carrying its Kind so callers and the recovery advisor can tell a
// safe failure from one that left data inconsistent.
package fault

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a season operation failure.
type Kind string

const (
	KindValidation    Kind = "ValidationError"
	KindBackup        Kind = "BackupError"
	KindPreservation  Kind = "PreservationError"
	KindProgressReset Kind = "ProgressResetError"
	KindRestoration   Kind = "RestorationError"
	KindRollback      Kind = "RollbackError"
	KindConcurrency   Kind = "ConcurrencyError"
	KindGeneric       Kind = "GenericError"
)

// ErrOperationInProgress is returned when a season operation is requested
// while another one has not reached a terminal state.
var ErrOperationInProgress = errors.New("season operation already in progress")

// Blocking reports whether a failure of this kind stops the operation.
func (k Kind) Blocking() bool {
	switch k {
	case KindPreservation, KindRestoration:
		return false
	default:
		return true
	}
}

// Critical reports whether the failure requires manual operator action.
func (k Kind) Critical() bool {
	return k == KindRollback
}

// Error is a classified season operation failure.
type Error struct {
	Kind       Kind
	Op         string
	Err        error
	BackupPath string
	At         time.Time
}

// New wraps err with a kind and the name of the operation that raised it.
func New(kind Kind, op string, err error) *Error {
	return &Error{
		Kind: kind,
		Op:   op,
		Err:  err,
		At:   time.Now(),
	}
}

// Newf is New with a formatted cause.
func Newf(kind Kind, op string, format string, args ...interface{}) *Error {
	return New(kind, op, fmt.Errorf(format, args...))
}

// WithBackup records the backup path that can be used for manual recovery.
func (e *Error) WithBackup(path string) *Error {
	e.BackupPath = path
	return e
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg += " during " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.BackupPath != "" {
		msg += " (backup: " + e.BackupPath + ")"
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindGeneric when err was never classified.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindGeneric
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}
