// Package chat assembles the chat core (room registry, membership resolver,
// lifecycle manager, enrollment service) over one Mongo database and wires
// them to the event bus.
package chat

import (
	"github.com/dalemusser/therapyrooms/internal/app/chat/dispatch"
	"github.com/dalemusser/therapyrooms/internal/app/chat/enrollment"
	"github.com/dalemusser/therapyrooms/internal/app/chat/lifecycle"
	"github.com/dalemusser/therapyrooms/internal/app/chat/membership"
	"github.com/dalemusser/therapyrooms/internal/app/chat/registry"
	chatroomstore "github.com/dalemusser/therapyrooms/internal/app/store/chatrooms"
	enrollmentstore "github.com/dalemusser/therapyrooms/internal/app/store/enrollments"
	groupstore "github.com/dalemusser/therapyrooms/internal/app/store/groups"
	roommemberstore "github.com/dalemusser/therapyrooms/internal/app/store/roommembers"
	settingsstore "github.com/dalemusser/therapyrooms/internal/app/store/settings"
	userstore "github.com/dalemusser/therapyrooms/internal/app/store/users"
	"github.com/dalemusser/therapyrooms/internal/app/system/auditlog"
	"github.com/dalemusser/therapyrooms/internal/app/system/chatprovider"
	"github.com/dalemusser/therapyrooms/internal/app/system/events"
	"github.com/dalemusser/therapyrooms/internal/app/system/notify"
	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Options configures New.
type Options struct {
	// ProviderKind is "native" or "none"; see chatprovider.New.
	ProviderKind string
	EmbedBaseURL string

	Lifecycle lifecycle.Config
	Notifier  notify.Notifier
	Audit     *auditlog.Logger
}

// Services is the assembled chat core plus the stores behind it.
type Services struct {
	Groups   *groupstore.Store
	Rooms    *chatroomstore.Store
	Members  *roommemberstore.Store
	Links    *enrollmentstore.Store
	Users    *userstore.Store
	Settings *settingsstore.Store

	Provider   chatprovider.Provider
	Registry   *registry.Registry
	Resolver   *membership.Resolver
	Lifecycle  *lifecycle.Manager
	Enrollment *enrollment.Service
	Bus        *events.Bus

	base lifecycle.Config
	log  *zap.Logger
}

// New builds the services and subscribes them to a fresh bus.
func New(db *mongo.Database, opts Options, logger *zap.Logger) (*Services, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Services{
		Groups:   groupstore.New(db),
		Rooms:    chatroomstore.New(db),
		Members:  roommemberstore.New(db),
		Links:    enrollmentstore.New(db),
		Users:    userstore.New(db),
		Settings: settingsstore.New(db),
		Bus:      events.NewBus(logger),
		base:     opts.Lifecycle,
		log:      logger,
	}

	provider, err := chatprovider.New(opts.ProviderKind, s.Members, opts.EmbedBaseURL)
	if err != nil {
		return nil, err
	}
	s.Provider = provider

	s.Registry = registry.New(s.Groups, s.Rooms, opts.Audit, logger,
		opts.Lifecycle.DefaultExpiryDays, opts.Lifecycle.Location)
	s.Resolver = membership.NewMongo(s.Rooms, s.Members, provider, logger)
	s.Lifecycle = lifecycle.New(lifecycle.Deps{
		Groups:     s.Groups,
		Rooms:      s.Rooms,
		Lookup:     s.Registry,
		Members:    s.Members,
		Links:      s.Links,
		Recipients: s.Users,
		Notifier:   opts.Notifier,
		Audit:      opts.Audit,
		Log:        logger,
	}, opts.Lifecycle)
	s.Enrollment = enrollment.New(s.Registry, s.Resolver, s.Links, opts.Audit, logger)

	dispatch.Register(s.Bus, s.Enrollment, s.Registry, s.Lifecycle, logger)
	return s, nil
}

// Config returns the running lifecycle configuration.
func (s *Services) Config() lifecycle.Config {
	return s.Lifecycle.Config()
}

// ApplySettings lays stored chat settings over the configuration New was
// given. A zero field falls back to that configuration.
func (s *Services) ApplySettings(st models.ChatSettings) lifecycle.Config {
	cfg := s.base
	if st.ExpiryAction != "" {
		cfg.ExpiryAction = st.ExpiryAction
	}
	if st.DefaultExpiryDays > 0 {
		cfg.DefaultExpiryDays = st.DefaultExpiryDays
	}
	if st.NotifyEmail != "" {
		cfg.NotifyEmail = st.NotifyEmail
	}
	s.Lifecycle.SetConfig(cfg)
	s.Registry.SetDefaultExpiryDays(cfg.DefaultExpiryDays)

	applied := s.Lifecycle.Config()
	s.log.Info("chat settings applied",
		zap.String("expiry_action", applied.ExpiryAction),
		zap.Int("default_expiry_days", applied.DefaultExpiryDays))
	return applied
}
