// Package app assembles the services a vocalize process needs from its
// configuration: the state store, credential vault, API clients, cache and
// every resource service, all sharing one refresh coordinator.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"vocalize/internal/api"
	"vocalize/internal/audios"
	"vocalize/internal/cache"
	"vocalize/internal/config"
	"vocalize/internal/connectivity"
	"vocalize/internal/kvstore"
	"vocalize/internal/logging"
	"vocalize/internal/navigation"
	"vocalize/internal/notifications"
	"vocalize/internal/participants"
	"vocalize/internal/recordings"
	"vocalize/internal/session"
	"vocalize/internal/vault"
	"vocalize/internal/vocalizations"
)

// Option customises Open.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	navigator  navigation.Navigator
	notifier   notifications.Service
	httpClient *http.Client
	checker    connectivity.Checker
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithNavigator(nav navigation.Navigator) Option {
	return func(o *options) { o.navigator = nav }
}

// WithNotifier replaces the notifier built from configuration.
func WithNotifier(svc notifications.Service) Option {
	return func(o *options) { o.notifier = svc }
}

// WithHTTPClient sets the client used for API calls and the connectivity check.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithChecker replaces the HTTP connectivity check.
func WithChecker(checker connectivity.Checker) Option {
	return func(o *options) { o.checker = checker }
}

// App holds the wired services. Close releases the state store.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     *kvstore.SQLiteStore
	Vault     *vault.Vault
	Notifier  notifications.Service
	Navigator navigation.Navigator
	Checker   connectivity.Checker
	Cache     *cache.Cache

	API    *api.Client
	Public *api.Client

	Session       *session.Manager
	Vocalizations *vocalizations.Service
	Participants  *participants.Service
	Audios        *audios.Service
	Recordings    *recordings.Queue
	Uploader      *recordings.Uploader
}

// Open builds an App from cfg. The state store is locked for the lifetime of
// the App; a second process gets kvstore.ErrLocked.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is nil")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := o.notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	nav := o.navigator
	if nav == nil {
		nav = navigation.NewLogNavigator(logger)
	}
	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.APITimeout()}
	}
	checker := o.checker
	if checker == nil {
		checker = connectivity.NewHTTPChecker(cfg.API.CheckURL, httpClient, cfg.APITimeout(), logger)
	}

	store, err := kvstore.Open(ctx, cfg.Storage.StatePath)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	v := vault.New(store)
	apiCfg := api.Config{BaseURL: cfg.API.BaseURL, APIKey: cfg.API.APIKey, Timeout: cfg.APITimeout()}
	clientOpts := []api.Option{
		api.WithHTTPClient(httpClient),
		api.WithLogger(logger),
		api.WithNavigator(nav),
		api.WithNotifier(notifier),
	}
	authClient, err := api.New(apiCfg, v, clientOpts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	publicClient, err := api.NewPublic(apiCfg, clientOpts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	c := cache.New(store, cache.WithWindow(cfg.CacheTTL()), cache.WithLogger(logger))
	audioSvc := audios.New(authClient, logger)
	queue := recordings.NewQueue(store, recordings.NewFileBlobStore(cfg.Storage.RecordingsDir), notifier,
		recordings.WithLogger(logger))

	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Vault:     v,
		Notifier:  notifier,
		Navigator: nav,
		Checker:   checker,
		Cache:     c,
		API:       authClient,
		Public:    publicClient,
		Session: session.New(authClient, publicClient, v,
			session.WithCache(c),
			session.WithNavigator(nav),
			session.WithNotifier(notifier),
			session.WithLogger(logger),
		),
		Vocalizations: vocalizations.New(authClient, c, checker, logger),
		Participants:  participants.New(authClient, c, checker, logger),
		Audios:        audioSvc,
		Recordings:    queue,
		Uploader:      recordings.NewUploader(queue, audioSvc, notifier, recordings.WithUploadLogger(logger)),
	}, nil
}

// Close releases the state store.
func (a *App) Close() error {
	if a == nil || a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
