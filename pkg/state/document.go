// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package state stores the small singleton documents of the season pass
// (season state, preserved entitlement snapshot, pending restorations) in
// Redis or on disk behind one interface.
package state

import (
	"context"
)

// Document is a single JSON value persisted under a fixed name.
type Document interface {
	// Load decodes the stored value into v. It reports false, with no error,
	// when nothing has been stored yet.
	Load(ctx context.Context, v interface{}) (bool, error)

	// Save replaces the stored value.
	Save(ctx context.Context, v interface{}) error

	// Delete removes the stored value. Deleting a missing value is not an error.
	Delete(ctx context.Context) error

	// Name identifies the document in logs.
	Name() string
}
