// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"
	"time"

	auditlogfeature "github.com/dalemusser/therapyrooms/internal/app/features/auditlog"
	chatadminfeature "github.com/dalemusser/therapyrooms/internal/app/features/chatadmin"
	enrollmentsfeature "github.com/dalemusser/therapyrooms/internal/app/features/enrollments"
	errorsfeature "github.com/dalemusser/therapyrooms/internal/app/features/errors"
	groupsfeature "github.com/dalemusser/therapyrooms/internal/app/features/groups"
	healthfeature "github.com/dalemusser/therapyrooms/internal/app/features/health"
	logoutfeature "github.com/dalemusser/therapyrooms/internal/app/features/logout"
	settingsfeature "github.com/dalemusser/therapyrooms/internal/app/features/settings"
	userinfofeature "github.com/dalemusser/therapyrooms/internal/app/features/userinfo"
	"github.com/dalemusser/therapyrooms/internal/app/store/audit"
	userstore "github.com/dalemusser/therapyrooms/internal/app/store/users"
	"github.com/dalemusser/therapyrooms/internal/app/system/auditlog"
	"github.com/dalemusser/therapyrooms/internal/app/system/auth"
	"github.com/dalemusser/therapyrooms/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed, so deps.Runtime holds the assembled chat core.
//
// Routes:
//   - /health                     Mongo ping and room counts (public)
//   - /api/userinfo               who the session belongs to (public)
//   - /logout                     clear the session cookie
//   - /groups, /groups/{id}/chat  group CRUD and room administration (admin)
//   - /chat/settings, /chat/sweep, /chat/audit (admin)
//   - /enrollments                enroll, current room, unenroll
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if deps.Runtime == nil || deps.Runtime.Chat == nil {
		return nil, errors.New("chat services not started")
	}
	svc := deps.Runtime.Chat

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fetch fresh user data on each request so role changes and disabled
	// accounts take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase))

	errHandler := errorsfeature.NewHandler()

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if signed in,
	// then records the actor for audit events.
	r.Use(sessionMgr.LoadSessionUser)
	r.Use(auditlog.ActorMiddleware)

	r.NotFound(errHandler.NotFound)
	r.MethodNotAllowed(errHandler.MethodNotAllowed)

	healthHandler := healthfeature.NewHandler(deps.MongoClient, svc.Rooms, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	userinfofeature.MountRoutes(r, userinfofeature.NewHandler())

	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	// Group administration with the room view mounted inside.
	chatAdminHandler := chatadminfeature.NewHandler(svc.Registry, svc.Resolver, svc.Users, svc.Lifecycle, svc.Provider, logger)
	groupsHandler := groupsfeature.NewHandler(svc.Groups, svc.Registry, svc.Rooms, svc.Lifecycle, svc.Links, svc.Bus,
		deps.Runtime.Audit, svc.Config().Location, logger)
	r.Mount("/groups", groupsfeature.Routes(groupsHandler, sessionMgr, chatadminfeature.RoomRoutes(chatAdminHandler)))

	// Site-wide chat administration.
	settingsHandler := settingsfeature.NewHandler(svc.Settings, svc, deps.Runtime.Audit, logger)
	auditHandler := auditlogfeature.NewHandler(audit.New(deps.MongoDatabase), svc.Users, logger)
	r.Route("/chat", func(cr chi.Router) {
		cr.Use(sessionMgr.RequireRole(auth.RoleAdmin))
		cr.Route("/settings", settingsHandler.MountRoutes)
		chatAdminHandler.MountSweep(cr)
		auditHandler.MountRoutes(cr)
	})

	if appCfg.EnrollRateLimit > 0 && deps.Runtime.Limiter == nil {
		deps.Runtime.Limiter = ratelimit.New(appCfg.EnrollRateLimit, time.Minute)
	}
	enrollHandler := enrollmentsfeature.NewHandler(svc.Bus, svc.Enrollment, svc.Registry, svc.Provider, logger)
	r.Mount("/enrollments", enrollmentsfeature.Routes(enrollHandler, sessionMgr, deps.Runtime.Limiter))

	return r, nil
}
