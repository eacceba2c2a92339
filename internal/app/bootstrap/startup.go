// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/therapyrooms/internal/app/chat"
	"github.com/dalemusser/therapyrooms/internal/app/store/audit"
	"github.com/dalemusser/therapyrooms/internal/app/system/auditlog"
	"github.com/dalemusser/therapyrooms/internal/app/system/mailer"
	"github.com/dalemusser/therapyrooms/internal/app/system/notify"
	"github.com/dalemusser/therapyrooms/internal/app/system/timeouts"
	"github.com/dalemusser/therapyrooms/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// NewRuntime assembles the chat core on db: audit logger, notifier and the
// lifecycle configuration with any stored chat settings layered on top.
// cmd/roomsweep uses it too, so it starts no background work.
func NewRuntime(ctx context.Context, appCfg AppConfig, db *mongo.Database, logger *zap.Logger) (*Runtime, error) {
	lc, err := appCfg.Lifecycle()
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Audit: auditlog.New(audit.New(db), logger, auditlog.Config{
			Chat:  appCfg.AuditLogChat,
			Admin: appCfg.AuditLogAdmin,
		}),
	}

	var notifier notify.Notifier = notify.LogNotifier{Log: logger}
	if mc := appCfg.Mail(); mc.Enabled() {
		rt.Mail = notify.NewMailNotifier(mailer.New(mc, logger), logger, appCfg.NotifyTimeout)
		notifier = rt.Mail
	} else {
		logger.Info("SMTP not configured; lifecycle notices are logged only")
	}

	svc, err := chat.New(db, chat.Options{
		ProviderKind: appCfg.ChatProvider,
		EmbedBaseURL: appCfg.ChatEmbedBaseURL,
		Lifecycle:    lc,
		Notifier:     notifier,
		Audit:        rt.Audit,
	}, logger)
	if err != nil {
		return nil, err
	}
	rt.Chat = svc

	sctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), logger, "load chat settings")
	defer cancel()
	stored, err := svc.Settings.Get(sctx)
	if err != nil {
		logger.Warn("stored chat settings unavailable; using configured defaults", zap.Error(err))
		return rt, nil
	}
	svc.ApplySettings(stored)
	return rt, nil
}

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It builds
// the chat core and starts the expiry sweep worker.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	rt, err := NewRuntime(ctx, appCfg, deps.MongoDatabase, logger)
	if err != nil {
		logger.Error("chat services init failed", zap.Error(err))
		return err
	}
	*deps.Runtime = *rt

	if appCfg.SweepInterval > 0 {
		deps.Runtime.Sweeper = workers.NewExpirySweep(rt.Chat.Lifecycle, logger, appCfg.SweepInterval, appCfg.SweepOnStartup)
		deps.Runtime.Sweeper.Start()
	} else {
		logger.Info("in-process expiry sweep disabled; schedule cmd/roomsweep instead")
	}
	return nil
}
