// Package rutsfx wires a ruts web application with go.uber.org/fx.
package rutsfx

import (
	"context"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/toyz/ruts/pkg/ruts"
	"github.com/toyz/ruts/pkg/ruts/adapters"
	"github.com/toyz/ruts/pkg/ruts/dbaccess"
)

const (
	actionGroup = `group:"ruts.actions"`
	optionGroup = `group:"ruts.dispatcher_options"`
	middleGroup = `group:"ruts.middlewares"`
)

// Module provides the module config, dispatcher, adapter and server, and
// runs the server with the fx lifecycle. A ruts.WebConfig must be supplied,
// e.g. by ConfigFromEnv.
var Module = fx.Module("ruts",
	fx.Provide(
		newLogger,
		newModuleConfig,
		newMetrics,
		newDatabase,
		newDispatcher,
		newAdapter,
		newServer,
	),
	fx.Invoke(registerLifecycle),
)

// ConfigFromEnv provides ruts.WebConfig from the environment and .env.
var ConfigFromEnv = fx.Provide(func() (ruts.WebConfig, error) {
	return ruts.LoadWebConfig()
})

// Action provides constructor and offers its *T result as a singleton action.
func Action[T any](constructor any) fx.Option {
	return fx.Options(
		fx.Provide(constructor),
		fx.Provide(fx.Annotate(
			func(action *T) *ruts.ComponentDef { return ruts.ComponentOf(action) },
			fx.ResultTags(actionGroup),
		)),
	)
}

// Prototype offers an action created fresh for every request.
func Prototype[T any](factory func() *T) fx.Option {
	return fx.Provide(fx.Annotate(
		func() *ruts.ComponentDef { return ruts.PrototypeOf(factory) },
		fx.ResultTags(actionGroup),
	))
}

// DispatcherOption adds a ruts.DispatcherOption to the dispatcher.
func DispatcherOption(opt ruts.DispatcherOption) fx.Option {
	return fx.Provide(fx.Annotate(
		func() ruts.DispatcherOption { return opt },
		fx.ResultTags(optionGroup),
	))
}

// Middleware adds middleware in front of the dispatcher.
func Middleware(mw ruts.MiddlewareFunc) fx.Option {
	return fx.Provide(fx.Annotate(
		func() ruts.MiddlewareFunc { return mw },
		fx.ResultTags(middleGroup),
	))
}

func newLogger(cfg ruts.WebConfig) zerolog.Logger {
	return ruts.NewLogger(cfg.LogConfig())
}

type moduleConfigParams struct {
	fx.In

	Actions   []*ruts.ComponentDef `group:"ruts.actions"`
	WebConfig ruts.WebConfig
	Logger    zerolog.Logger
}

// newModuleConfig customizes every action; the first convention violation
// aborts the application start.
func newModuleConfig(p moduleConfigParams) (*ruts.ModuleConfig, error) {
	naming := ruts.DefaultNamingConvention()
	if p.WebConfig.WebPackage != "" {
		naming.WebPackage = p.WebConfig.WebPackage
	}
	config := ruts.NewModuleConfig()
	customizer := ruts.NewRomanticActionCustomizer(config,
		ruts.WithNamingConvention(naming),
		ruts.WithCustomizerLogger(p.Logger),
	)
	for _, def := range p.Actions {
		if err := customizer.Customize(def); err != nil {
			return nil, err
		}
	}
	p.Logger.Info().Int("actions", len(config.ActionMappings())).Msg("Actions customized")
	return config, nil
}

func newMetrics() (*ruts.Metrics, *prometheus.Registry, error) {
	registry := prometheus.NewRegistry()
	metrics, err := ruts.NewMetrics(registry, registry)
	if err != nil {
		return nil, nil, err
	}
	return metrics, registry, nil
}

// newDatabase opens the SQLite database of RUTS_DATABASE_DSN with the SQL
// counting and access column plugins. No DSN means no database.
func newDatabase(lc fx.Lifecycle, cfg ruts.WebConfig) (*gorm.DB, error) {
	if cfg.DatabaseDSN == "" {
		return nil, nil
	}
	db, err := gorm.Open(sqlite.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	for _, plugin := range []gorm.Plugin{dbaccess.SQLCountPlugin{}, dbaccess.AccessColumnPlugin{}} {
		if err := db.Use(plugin); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", plugin.Name(), err)
		}
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return db, nil
}

type dispatcherParams struct {
	fx.In

	Config    *ruts.ModuleConfig
	WebConfig ruts.WebConfig
	Logger    zerolog.Logger
	Metrics   *ruts.Metrics
	DB        *gorm.DB                `optional:"true"`
	Options   []ruts.DispatcherOption `group:"ruts.dispatcher_options"`
}

func newDispatcher(p dispatcherParams) *ruts.RequestDispatcher {
	opts := []ruts.DispatcherOption{
		ruts.WithDispatcherLogger(p.Logger),
		ruts.WithMetrics(p.Metrics),
		ruts.WithSQLCountLimit(p.WebConfig.SQLCountLimit),
	}
	if p.DB != nil {
		opts = append(opts, ruts.WithTransactionRunner(dbaccess.NewGormTransactionRunner(p.DB)))
	}
	opts = append(opts, p.Options...)
	return ruts.NewRequestDispatcher(p.Config, opts...)
}

func newAdapter(cfg ruts.WebConfig) (ruts.WebServerInterface, error) {
	switch strings.ToLower(cfg.Adapter) {
	case "echo", "":
		return adapters.NewDefaultEchoAdapter(), nil
	case "gin":
		return adapters.NewDefaultGinAdapter(), nil
	case "fiber":
		return adapters.NewDefaultFiberAdapter(), nil
	default:
		return nil, fmt.Errorf("unknown adapter %q: must be echo, gin or fiber", cfg.Adapter)
	}
}

type serverParams struct {
	fx.In

	Adapter     ruts.WebServerInterface
	Dispatcher  *ruts.RequestDispatcher
	WebConfig   ruts.WebConfig
	Logger      zerolog.Logger
	Middlewares []ruts.MiddlewareFunc `group:"ruts.middlewares"`
}

// newServer installs the middlewares before the dispatcher is mounted, as
// gin and fiber only apply middleware to routes registered after it.
func newServer(p serverParams) *ruts.Server {
	for _, mw := range p.Middlewares {
		p.Adapter.Use(mw)
	}
	return ruts.NewServer(p.Adapter, p.Dispatcher, p.WebConfig, p.Logger)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Server     *ruts.Server
	Logger     zerolog.Logger
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := p.Server.Start(); err != nil {
					p.Logger.Error().Err(err).Msg("Server stopped with error")
					_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return p.Server.Stop(ctx)
		},
	})
}
