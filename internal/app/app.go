// Package app is the composition root: it builds the engine from config and
// owns the lifecycle of its services.
package app

import (
	"context"
	"sync"

	"rebootplan/internal/calendar"
	"rebootplan/internal/catalog"
	"rebootplan/internal/config"
	"rebootplan/internal/eventbus"
	"rebootplan/internal/facade"
	"rebootplan/internal/notifier"
	"rebootplan/internal/storage"
	"rebootplan/internal/store"
	"rebootplan/internal/sweeper"
	logx "rebootplan/pkg/logx"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	bus      eventbus.Bus
	cat      *catalog.Catalog
	persist  storage.Store
	store    *store.Store
	view     *calendar.View
	sweeper  *sweeper.Service
	notifier *notifier.Service
	api      *facade.API

	watchCancel context.CancelFunc
	watchWG     sync.WaitGroup
	cfgCh       chan *config.Config
}

// New loads the config and wires every component. Nothing runs yet; call
// Start. Storage trouble is a degraded start, not a constructor failure.
func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(cfg.LogxConfig())
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	a := &App{
		cfgMgr: mgr,
		logSvc: logSvc,
		log:    log,
	}

	a.bus = eventbus.New()
	a.cat = catalog.New(cfg.CatalogServers())
	log.Info("server catalog ready", logx.Int("servers", a.cat.Len()))

	persist, err := storage.Open(cfg.StorageConfig(), log.With(logx.String("comp", "storage")))
	if err != nil {
		log.Warn("storage unavailable, running memory-only", logx.Err(err))
		persist = nil
	}
	a.persist = persist

	a.store = store.New(a.cat, persist, log.With(logx.String("comp", "store")),
		store.WithBus(a.bus))
	a.view = calendar.NewView(a.store, a.bus)
	a.sweeper = sweeper.New(cfg.SweeperConfig(), a.store, log.With(logx.String("comp", "sweeper")))
	a.notifier = notifier.New(cfg.NotifierConfig(), a.bus, log.With(logx.String("comp", "notifier")))
	a.api = facade.New(cfg.FacadeConfig(), a.cat, a.store)

	return a, nil
}

func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgMgr.Get()

	// Degraded start on load failure: the store logs and comes up empty.
	_ = a.store.Load(ctx)

	if cfg.DemoSeed && a.store.Count() == 0 {
		a.seedDemo(ctx)
	}

	if err := a.sweeper.Start(ctx); err != nil {
		return err
	}
	if err := a.notifier.Start(ctx); err != nil {
		return err
	}

	// Config hot reload: only logging applies live; the rest of the wiring
	// is fixed at construction.
	wctx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	a.cfgCh = a.cfgMgr.Subscribe(4)
	a.watchWG.Add(2)
	go func() {
		defer a.watchWG.Done()
		_ = a.cfgMgr.Watch(wctx)
	}()
	go func() {
		defer a.watchWG.Done()
		for {
			select {
			case <-wctx.Done():
				return
			case next, ok := <-a.cfgCh:
				if !ok {
					return
				}
				a.logSvc.Apply(next.LogxConfig())
				a.log.Debug("logging config applied")
			}
		}
	}()

	a.log.Info("engine started",
		logx.Int("tasks", a.store.Count()), logx.Bool("persistent", a.persist != nil))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.watchCancel != nil {
		a.watchCancel()
		a.cfgMgr.Unsubscribe(a.cfgCh)
		a.watchWG.Wait()
		a.watchCancel = nil
	}

	a.sweeper.Stop(ctx)
	a.notifier.Stop(ctx)
	a.view.Close()

	// One last sweep+save so the snapshot on disk matches memory.
	a.store.Sweep(ctx)
	a.store.Flush(ctx)

	if a.persist != nil {
		_ = a.persist.Close()
	}
	a.log.Info("engine stopped")
	return a.logSvc.Close()
}

// API is the surface handed to the presentation layer.
func (a *App) API() *facade.API { return a.api }

func (a *App) Store() *store.Store { return a.store }

func (a *App) Catalog() *catalog.Catalog { return a.cat }

func (a *App) Calendar() *calendar.View { return a.view }

func (a *App) Logger() logx.Logger { return a.log }
