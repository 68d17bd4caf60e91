// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package entitlement

import "errors"

var (
	// ErrNoActiveSeason indicates the call was made while no season is running.
	ErrNoActiveSeason = errors.New("no active season")

	// ErrSourceUnavailable indicates the external entitlement or balance
	// system could not answer. It is never equivalent to "not entitled".
	ErrSourceUnavailable = errors.New("entitlement source unavailable")

	// ErrInsufficientFunds indicates the purchase could not be paid for.
	ErrInsufficientFunds = errors.New("insufficient balance")

	// ErrAlreadyEntitled indicates the player already holds premium.
	ErrAlreadyEntitled = errors.New("player already has premium")

	// ErrNotEntitled indicates the player holds no premium to revoke.
	ErrNotEntitled = errors.New("player does not have premium")

	// ErrRevokeNotSupported indicates the active mode cannot revoke selectively.
	ErrRevokeNotSupported = errors.New("revoke not supported in this mode")

	// ErrUnknownMode indicates no provider is registered for a mode.
	ErrUnknownMode = errors.New("unknown premium mode")

	// ErrUnknownPolicy indicates an unrecognised preservation policy name.
	ErrUnknownPolicy = errors.New("unknown preservation policy")
)
