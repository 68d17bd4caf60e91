// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package main

import (
	"github.com/AccelByte/extend-season-pass/internal/cli"
)

func main() {
	cli.Execute()
}
