package command

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	adapthttp "ems/internal/adapter/http"
	"ems/internal/app"
	"ems/internal/config"
	"ems/internal/domain"
	"ems/internal/photo"
	"ems/internal/server"
)

const sweepInterval = time.Minute

func serveCommand() *cobra.Command {
	var initAdmin string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the employee management web app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			logger := slog.Default()

			b, err := openBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := b.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			auth := app.NewAuthService(b.users, b.sessions)
			if initAdmin != "" {
				if err := bootstrapAdmin(cmd.Context(), logger, auth, initAdmin); err != nil {
					return err
				}
			}

			handler, err := newHandler(cmd.Context(), cfg, logger, b, auth)
			if err != nil {
				return err
			}

			listener, err := server.Listen(cmd.Context(), cfg.Addr)
			if err != nil {
				return err
			}

			grp, ctx := errgroup.WithContext(cmd.Context())
			if sweeper, ok := b.sessions.(domain.SessionSweeper); ok {
				grp.Go(func() error { return sweepSessions(ctx, logger, sweeper, sweepInterval) })
			}

			logger.InfoContext(ctx, "starting app server...",
				slog.String("address", listener.Addr().String()),
				slog.String("session_backend", cfg.SessionBackend),
			)
			server.Serve(ctx, grp, &http.Server{Handler: handler}, listener, server.ShutdownTimeout) //nolint:gosec // Serve() sets timeouts
			return grp.Wait()
		},
	}
	cmd.Flags().StringVar(&initAdmin, "init-admin", "",
		"create this Admin login if the directory is empty, prompting for its password")
	return cmd
}

func newHandler(ctx context.Context, cfg *config.Config, logger *slog.Logger, b *backend, auth *app.AuthService) (http.Handler, error) {
	photos, err := photo.NewStore(cfg.UploadDir)
	if err != nil {
		return nil, err
	}

	var sso *adapthttp.OIDCConfig
	if cfg.OIDC.Enabled() {
		sso, err = adapthttp.NewOIDCConfig(ctx, cfg.OIDC.Issuer, cfg.OIDC.ClientID, cfg.OIDC.ClientSecret, cfg.OIDC.RedirectURL)
		if err != nil {
			return nil, err
		}
	}

	employees := app.NewEmployeeService(b.employees)
	srv, err := adapthttp.New(adapthttp.Options{
		Logger:       logger,
		Auth:         auth,
		Guard:        app.NewAccessGuard(b.sessions),
		Employees:    employees,
		Charts:       app.NewChartsService(b.employees),
		Reports:      app.NewReportsService(employees),
		Photos:       photos,
		OIDC:         sso,
		SessionTTL:   cfg.SessionTTL,
		CookieSecure: cfg.CookieSecure,
	})
	if err != nil {
		return nil, err
	}
	return srv.Handler(), nil
}

func bootstrapAdmin(ctx context.Context, logger *slog.Logger, auth *app.AuthService, name string) error {
	passwd, err := prompt("password for "+name+": ", true)
	if err != nil {
		return err
	}
	err = auth.CreateInitialUser(ctx, name, string(bytes.TrimSpace(passwd)))
	if errors.Is(err, app.ErrUsersExist) {
		logger.InfoContext(ctx, "directory already has users; skipping initial admin")
		return nil
	}
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "created initial admin", slog.String("name", name))
	return nil
}
