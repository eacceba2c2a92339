// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/therapyrooms/internal/app/chat"
	"github.com/dalemusser/therapyrooms/internal/app/system/auditlog"
	"github.com/dalemusser/therapyrooms/internal/app/system/notify"
	"github.com/dalemusser/therapyrooms/internal/app/system/ratelimit"
	"github.com/dalemusser/therapyrooms/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// WAFFLE hands DBDeps to each hook by value, so the services built in
// Startup live behind the Runtime pointer allocated in ConnectDB.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Runtime *Runtime
}

// Runtime is the assembled chat core plus the background pieces that need
// stopping on shutdown.
type Runtime struct {
	Chat  *chat.Services
	Audit *auditlog.Logger

	// Mail is nil when SMTP is not configured (notices are only logged).
	Mail *notify.MailNotifier
	// Sweeper is nil when sweep_interval is zero.
	Sweeper *workers.ExpirySweep
	// Limiter throttles enrollment requests; nil when disabled.
	Limiter *ratelimit.Limiter
}

// Close stops the sweep worker and waits for queued notices.
func (rt *Runtime) Close() {
	if rt == nil {
		return
	}
	if rt.Sweeper != nil {
		rt.Sweeper.Stop()
		rt.Sweeper = nil
	}
	if rt.Limiter != nil {
		rt.Limiter.Stop()
	}
	if rt.Mail != nil {
		rt.Mail.Wait()
	}
}
