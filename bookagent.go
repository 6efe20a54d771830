// Package bookagent provides a high-level façade over the conversational
// ordering core: the catalog and order store, the hybrid retrieval engine,
// the dialogue state machine and the completion-backed orchestration
// pipeline. Most applications interact with this package by:
//  1. Creating an App via New() from a config.Config (typically config.FromEnv())
//  2. Feeding customer messages to App.Agent.Handle
//  3. Driving admin decisions through App.Orders and catalog changes through
//     App.Catalog
//
// All defaults are safe for local development: SQLite storage, an in-memory
// vector index and in-process dialogue state. Production deployments supply
// Postgres, a persisted index path and a Redis address for shared state.
package bookagent

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/tdvu/bookstore-agent/agent"
	"github.com/tdvu/bookstore-agent/catalog"
	"github.com/tdvu/bookstore-agent/completion"
	"github.com/tdvu/bookstore-agent/config"
	"github.com/tdvu/bookstore-agent/dialog"
	"github.com/tdvu/bookstore-agent/logging"
	"github.com/tdvu/bookstore-agent/notify"
	"github.com/tdvu/bookstore-agent/order"
	"github.com/tdvu/bookstore-agent/retrieval"
	"github.com/tdvu/bookstore-agent/store"
	"github.com/tdvu/bookstore-agent/vectorindex"
)

// Options override individual collaborators during assembly. Every nil field
// is wired from the config.
type Options struct {
	// Logger receives structured logs from every component.
	Logger logging.Logger

	// Index replaces the chromem-backed vector index, e.g. for tests.
	Index vectorindex.Index

	// States replaces the dialogue state store chosen from the config.
	States dialog.StateStore

	// Completer replaces the completion backend chosen from the config.
	Completer completion.Completer
}

// App is the assembled ordering agent and its collaborators.
type App struct {
	Config     config.Config
	Store      *store.Store
	Index      vectorindex.Index
	Engine     *retrieval.Engine
	Catalog    *catalog.Service
	Orders     *order.Manager
	Dispatcher *notify.Dispatcher
	Agent      *agent.Agent
	Logger     logging.Logger
}

// New assembles the full stack from cfg.
func New(ctx context.Context, cfg config.Config, optFns ...func(o *Options)) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewSlogLogger(logging.LogLevelInfo, "text", os.Stderr)
	}

	st, err := store.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}

	index := opts.Index
	if index == nil {
		index, err = vectorindex.NewChromem(func(o *vectorindex.ChromemOptions) {
			o.Path = cfg.VectorPath
			o.Collection = cfg.VectorCollection
		})
		if err != nil {
			return nil, fmt.Errorf("bookagent: open vector index: %w", err)
		}
	}

	engine := retrieval.NewEngine(st, index, func(o *retrieval.Options) {
		o.Weights = retrieval.Weights{
			Lexical:  cfg.WeightLexical,
			Vector:   cfg.WeightVector,
			Title:    cfg.TitleBoost,
			Category: cfg.CategoryBoost,
		}
		o.Logger = logger
	})

	dispatcher := notify.NewDispatcher(func(o *notify.DispatcherOptions) {
		o.Logger = logger
	})

	orders := order.NewManager(st, func(o *order.ManagerOptions) {
		o.Hub = dispatcher
		o.Logger = logger
	})

	cat := catalog.NewService(st, func(o *catalog.Options) {
		o.Index = index
		o.Logger = logger
	})

	completer := opts.Completer
	if completer == nil {
		completer, err = completion.New(ctx, cfg.CompletionBackend, func(o *completion.Options) {
			o.Model = cfg.CompletionModel
			o.BaseURL = cfg.CompletionBaseURL
			o.APIKey = cfg.CompletionAPIKey
			o.Logger = logger
		})
		if err != nil {
			return nil, fmt.Errorf("bookagent: completion backend: %w", err)
		}
	}
	client := completion.NewClient(completer, func(o *completion.ClientOptions) {
		o.Retries = cfg.CompletionRetries
		o.Logger = logger
	})

	states := opts.States
	if states == nil {
		if cfg.RedisAddr != "" {
			states = dialog.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
		} else {
			states = dialog.NewInMemoryStore()
		}
	}

	ag := agent.New(st, engine, orders, client, func(o *agent.Options) {
		o.States = states
		o.HistoryWindow = cfg.HistoryWindow
		o.MaxPlanActions = cfg.MaxPlanActions
		o.ConfirmTokens = cfg.ConfirmTokens
		o.Logger = logger
	})

	return &App{
		Config:     cfg,
		Store:      st,
		Index:      index,
		Engine:     engine,
		Catalog:    cat,
		Orders:     orders,
		Dispatcher: dispatcher,
		Agent:      ag,
		Logger:     logger,
	}, nil
}

// Close drains and stops the notification dispatcher.
func (a *App) Close() {
	a.Dispatcher.Close()
}
