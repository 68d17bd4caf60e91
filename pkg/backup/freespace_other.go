// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

//go:build !unix

package backup

import "errors"

// FreeSpace is not available on this platform; the space check is skipped.
func FreeSpace(path string) (uint64, error) {
	return 0, errors.New("free space check not supported on this platform")
}
