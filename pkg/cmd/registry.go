package cmd

import (
	"log/slog"

	"github.com/weftwork/weft/pkg/actions/aiagent"
	"github.com/weftwork/weft/pkg/actions/email"
	"github.com/weftwork/weft/pkg/actions/telegram"
	"github.com/weftwork/weft/pkg/credentials"
	"github.com/weftwork/weft/pkg/registry"
)

// NewRegistry builds a registry with every native action factory registered.
// The kind set is closed, so registration happens here rather than through a
// plugin loader.
func NewRegistry(logger *slog.Logger, resolver *credentials.Resolver) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.RegisterAction(aiagent.NewFactory(resolver))
	reg.RegisterAction(telegram.NewFactory(resolver))
	reg.RegisterAction(email.NewFactory(resolver))

	return reg
}
