package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tpccharness/internal/server"
	"tpccharness/pkg/ctxutil"
)

type ServeConfig struct {
	ReportPath string `yaml:"report_path,omitempty"`
	Addr       string `yaml:"addr,omitempty"`
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a report directory over HTTP",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindCommand[ServeConfig](cmd, "serve")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := viper.GetString("report-path")
			if err := server.ServeDir(dir); err != nil {
				return err
			}

			router := chi.NewRouter()
			router.Use(middleware.CleanPath)
			router.Use(middleware.Recoverer)
			router.Use(middleware.RequestLogger(
				&middleware.DefaultLogFormatter{
					Logger:  log.StandardLogger(),
					NoColor: true,
				},
			))
			router.Use(middleware.Heartbeat("/ping"))

			server.NewHandler(dir).RegisterRoutes(router)

			srv := &http.Server{
				Addr:    viper.GetString("addr"),
				Handler: router,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := ctxutil.OnDone(ctx, func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					log.WithError(err).Warn("Shutdown failed")
				}
			})
			defer cancel()

			log.WithFields(log.Fields{"addr": srv.Addr, "dir": dir}).Info("Listening")
			err := srv.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				<-ctx.Done()
				err = nil
			}
			log.Info("Goodbye!")
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringP("report-path", "o", ".", "Report directory to serve")
	flags.String("addr", ":8080", "Listen address")

	return cmd
}
