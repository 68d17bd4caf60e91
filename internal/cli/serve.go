// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/AccelByte/extend-season-pass/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the season pass service with its gRPC health and metrics servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.Infof("starting app server..")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		return a.Run(cmd.Context())
	},
}
