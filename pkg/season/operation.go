// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package season

import (
	"time"

	"github.com/AccelByte/extend-season-pass/pkg/backup"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// OperationType names a coordinator entry point.
type OperationType string

const (
	OperationEnd        OperationType = "end_season"
	OperationStart      OperationType = "start_season"
	OperationTransition OperationType = "transition"
)

// Operation is the in-memory context of one running season operation.
// It is never persisted.
type Operation struct {
	ID        string
	Type      OperationType
	StartedAt time.Time
	Backup    *backup.Record
	Reset     *ResetOptions
	Start     *StartOptions
}

func newOperation(typ OperationType, now time.Time) *Operation {
	return &Operation{
		ID:        uuid.NewString(),
		Type:      typ,
		StartedAt: now,
	}
}

// Logger returns an entry tagged with the operation.
func (o *Operation) Logger() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"operation":   string(o.Type),
		"operationId": o.ID,
	})
}
