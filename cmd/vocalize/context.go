package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"vocalize/internal/app"
	"vocalize/internal/config"
	"vocalize/internal/kvstore"
	"vocalize/internal/logging"
	"vocalize/internal/navigation"
)

type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// withApp opens the wired services for one command and closes them after fn.
func (c *commandContext) withApp(cmd *cobra.Command, fn func(*app.App) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	out := cmd.ErrOrStderr()
	nav := navigation.Func(func(_ context.Context, route navigation.Route) {
		fmt.Fprintln(out, routeMessage(route))
	})

	a, err := app.Open(cmd.Context(), cfg, app.WithLogger(logger), app.WithNavigator(nav))
	if err != nil {
		if errors.Is(err, kvstore.ErrLocked) {
			return fmt.Errorf("state store %s is in use by another vocalize process", cfg.Storage.StatePath)
		}
		return err
	}
	defer a.Close()
	return fn(a)
}

func routeMessage(route navigation.Route) string {
	switch route {
	case navigation.RouteLogin:
		return "Session ended; run `vocalize login` to sign in again."
	case navigation.RouteAwaitingAccess:
		return "Your account is waiting for access approval."
	case navigation.RouteMain:
		return "Access granted."
	default:
		return string(route)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
