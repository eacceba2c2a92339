// internal/app/bootstrap/hooks.go
package bootstrap

import (
	"github.com/dalemusser/waffle/app"
)

// Hooks wires the chat room service into WAFFLE's lifecycle. The chat core
// is built in ConnectDB/Startup and torn down in Shutdown.
var Hooks = app.Hooks[AppConfig, DBDeps]{
	Name:           "therapyrooms",
	LoadConfig:     LoadConfig,
	ValidateConfig: ValidateConfig,
	ConnectDB:      ConnectDB,
	EnsureSchema:   EnsureSchema,
	Startup:        Startup,
	BuildHandler:   BuildHandler,
	Shutdown:       Shutdown,
}
