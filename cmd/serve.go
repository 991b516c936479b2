package cmd

import (
	"context"
	"time"

	"mercagasto/cmd/config"
	"mercagasto/internal/utils"
	"mercagasto/pkg/jwt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"
)

var serveSource string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the operator HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		var src config.Source
		if serveSource != "" {
			s, err := config.NewSource(ctx, config.SourceKind(serveSource), "")
			if err != nil {
				return err
			}
			src = s
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		app, err := config.NewApp(config.NewServices(db, src), jwt.NewJWTService(), nil)
		if err != nil {
			return err
		}

		go func() {
			<-ctx.Done()
			shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := app.ShutdownWithContext(shutdown); err != nil {
				log.Errorw("shutdown failed", "error", err)
			}
		}()

		addr := ":" + utils.GetConfig("APP_PORT")
		log.Infow("operator api listening", "addr", addr)
		return app.Listen(addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveSource, "source", "", "Inbox used by POST /processing/retry: dir or s3")
}
