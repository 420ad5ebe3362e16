// Package bot assembles the planning assistant: domain repositories, the
// dialog engine with its flows, the message catalog, and the Telegram
// routing on top of the shared core.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/planbot/core/bootstrap"
	"github.com/m3rciful/planbot/core/cmd"
	coretelegram "github.com/m3rciful/planbot/core/telegram"
	"github.com/m3rciful/planbot/core/telegram/router"
	"github.com/m3rciful/planbot/internal/dialog"
	"github.com/m3rciful/planbot/internal/domain"
	"github.com/m3rciful/planbot/internal/domain/postgres"
	"github.com/m3rciful/planbot/internal/flows"
	"github.com/m3rciful/planbot/internal/i18n"

	coreconfig "github.com/m3rciful/planbot/core/config"
)

// App is the fully wired application.
type App struct {
	cfg      *Config
	db       *sqlx.DB
	engine   *dialog.Engine
	registry *coretelegram.Registry
	catalog  *i18n.Catalog
	render   *renderer

	members    domain.MemberStore
	templates  domain.TemplateStore
	locations  domain.LocationStore
	events     domain.EventStore
	songs      domain.SongStore
	roles      domain.RoleStore
	attendance domain.AttendanceStore

	redisClient *redis.Client
}

// Bootstrap runs migrations and seeding, then wires the application. It is
// the cmd.Options.Bootstrap entry point.
func Bootstrap(ctx context.Context, carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("bot: unexpected config type %T", carrier)
	}

	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
		Seeders: []bootstrap.Seeder{
			bootstrap.SeederFunc(postgres.SeedReferenceData),
		},
	})
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, res.DB)
}

// New wires an App over an initialized database.
func New(ctx context.Context, cfg *Config, db *sqlx.DB) (*App, error) {
	catalog, err := i18n.Load(cfg.Core.Dialog.DefaultLang)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		db:       db,
		registry: coretelegram.NewRegistry(),
		catalog:  catalog,
		render:   newRenderer(catalog),

		members:    postgres.NewMemberRepo(db),
		events:     postgres.NewEventRepo(db),
		songs:      postgres.NewSongRepo(db),
		roles:      postgres.NewRoleRepo(db),
		attendance: postgres.NewAttendanceRepo(db),
	}
	ref := postgres.NewReferenceRepo(db)
	a.templates = ref
	a.locations = ref

	store, err := a.buildSessionStore(ctx)
	if err != nil {
		return nil, err
	}
	a.engine = dialog.New(store, dialog.Options{})

	titler := func(key string) string {
		return catalog.T(catalog.DefaultLang(), key)
	}
	graphs := []*dialog.Graph{
		flows.NewEventWizard(a.templates, a.locations, a.songs, a.events, a.roles, titler).Graph(),
		flows.NewSongEdit(a.songs).Graph(),
		flows.NewChordEntry(a.songs).Graph(),
		flows.NewRoleRename(a.roles).Graph(),
	}
	for _, g := range graphs {
		if err := a.engine.Register(g); err != nil {
			return nil, err
		}
	}

	a.registerCommands()
	return a, nil
}

func (a *App) buildSessionStore(ctx context.Context) (dialog.Store, error) {
	ttl := time.Duration(a.cfg.Core.Dialog.SessionTTLMinutes) * time.Minute

	if a.cfg.Core.Dialog.Store == coreconfig.StoreRedis {
		client := redis.NewClient(&redis.Options{
			Addr: a.cfg.Core.Dialog.RedisAddr,
			DB:   a.cfg.Core.Dialog.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("bot: redis ping: %w", err)
		}
		a.redisClient = client
		return dialog.NewRedisStore(client, ttl), nil
	}
	return dialog.NewMemoryStore(ttl), nil
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	adapter := newDialogAdapter(a.engine, a.render)

	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID: a.cfg.Core.Telegram.AdminID,
	})
	routes = append(routes, router.TextRoutes(adapter, a.registry, router.TextOptions{})...)
	routes = append(routes, router.CallbackRoute(adapter, a.registry, router.CallbackOptions{}))

	sweep := time.Duration(a.cfg.Core.Dialog.SweepIntervalSeconds) * time.Second

	return coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    a.registry,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, _ coretelegram.Runtime) error {
			if sweep > 0 {
				go a.engine.RunSweeper(ctx, sweep)
			}
			return nil
		},
		OnStop: func(context.Context, coretelegram.Runtime) error {
			return a.Close()
		},
	}, nil
}

// Close releases the app's resources.
func (a *App) Close() error {
	var first error
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			first = err
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
