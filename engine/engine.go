// Package engine wires the cell together: registries, allocator, workers,
// scheduler, ingest pipeline, persistence and publishing all meet here,
// connected through an in-process event bus.
package engine

import (
	"log"
	"time"

	"cellcore/config"
	"cellcore/feed"
	"cellcore/inventory"
	"cellcore/messaging"
	"cellcore/pipeline"
	"cellcore/plant"
	"cellcore/sched"
	"cellcore/statestore"
	"cellcore/store"
)

type LogFunc func(format string, args ...any)

type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	Feed       feed.Adapter
	MsgClient  *messaging.Client
	Redis      *statestore.RedisStore // nil runs without the cache mirror
	LogFunc    LogFunc
	Debug      bool
}

type Engine struct {
	cfg        *config.Config
	configPath string
	db         *store.DB
	feed       feed.Adapter
	msgClient  *messaging.Client

	warehouses *inventory.Registry
	lines      *plant.Registry
	alloc      *inventory.Allocator
	scheduler  *sched.Scheduler
	workers    []*plant.Worker
	dispatcher *pipeline.Dispatcher
	state      *statestore.Manager

	Events   *EventBus
	logFn    LogFunc
	stopChan chan struct{}

	feedConnected bool
	msgConnected  bool
}

func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	e := &Engine{
		cfg:        c.AppConfig,
		configPath: c.ConfigPath,
		db:         c.DB,
		feed:       c.Feed,
		msgClient:  c.MsgClient,
		Events:     NewEventBus(),
		logFn:      logFn,
		stopChan:   make(chan struct{}),
	}
	e.warehouses = inventory.NewRegistryFromConfig(c.AppConfig.Plant.Warehouses)
	e.lines = plant.NewRegistryFromConfig(c.AppConfig.Plant.Conveyors)
	e.state = statestore.NewManager(e.lines, e.warehouses, c.Redis)
	return e
}

func (e *Engine) Start() {
	e.alloc = inventory.NewAllocator(e.warehouses, &inventoryEmitter{bus: e.Events})
	e.scheduler = sched.New(e.lines, &schedEmitter{bus: e.Events})

	pe := &plantEmitter{bus: e.Events}
	wcfg := plant.WorkerConfig{
		RefillAmount:    e.cfg.Plant.RefillAmount,
		TimeScale:       e.cfg.Plant.TimeScale,
		MaintenanceOdds: e.cfg.Plant.MaintenanceOdds,
		MaintenanceHold: e.cfg.Plant.MaintenanceHold(),
	}
	for _, line := range e.lines.List() {
		e.workers = append(e.workers, plant.NewWorker(line, e.alloc, pe, wcfg))
	}

	e.dispatcher = pipeline.NewDispatcher(e.cfg.Feed.QueueSize, e.cfg.Feed.PollTimeout(), e, e.db)

	e.wireEventHandlers()
	e.loadOpenOrders()
	e.state.SyncAll()

	if e.feed.IsConnected() {
		e.subscribeFeed()
		e.feedConnected = true
	}

	e.dispatcher.Start()
	for _, w := range e.workers {
		w.Start()
	}

	e.checkConnectionStatus()
	go e.connectionHealthLoop()
	go e.schedulerLoop()
	go e.inventoryMonitorLoop()
	go e.qualityMonitorLoop()

	e.logFn("engine: started (%d lines, %d warehouses)", len(e.workers), len(e.warehouses.List()))
}

func (e *Engine) Stop() {
	close(e.stopChan)
	for _, w := range e.workers {
		w.Stop()
	}
	if e.dispatcher != nil {
		e.dispatcher.Stop()
	}
	e.logFn("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB                   { return e.db }
func (e *Engine) AppConfig() *config.Config       { return e.cfg }
func (e *Engine) ConfigPath() string              { return e.configPath }
func (e *Engine) Warehouses() *inventory.Registry { return e.warehouses }
func (e *Engine) Lines() *plant.Registry          { return e.lines }
func (e *Engine) Scheduler() *sched.Scheduler     { return e.scheduler }
func (e *Engine) State() *statestore.Manager      { return e.state }
func (e *Engine) Pipeline() *pipeline.Dispatcher  { return e.dispatcher }
func (e *Engine) MsgClient() *messaging.Client    { return e.msgClient }
func (e *Engine) FeedConnected() bool             { return e.feed.IsConnected() }

// subscribeFeed points the adapter's callbacks at the pipeline and the
// command handler. Re-run after every reconnect.
func (e *Engine) subscribeFeed() {
	err := e.feed.Subscribe(e.dispatcher.Push, e.HandleCommand)
	if err != nil {
		e.logFn("engine: feed subscribe: %v", err)
	}
}

func (e *Engine) loadOpenOrders() {
	orders, err := e.db.LoadOpenOrders()
	if err != nil {
		e.logFn("engine: load open orders: %v", err)
		return
	}
	for _, o := range orders {
		e.scheduler.Load(o)
	}
	if len(orders) > 0 {
		e.logFn("engine: restored %d open orders", len(orders))
	}
}

func (e *Engine) checkConnectionStatus() {
	// Feed
	if e.feed.IsConnected() {
		if !e.feedConnected {
			e.feedConnected = true
			e.Events.Emit(Event{Type: EventFeedConnected, Payload: ConnectionEvent{Detail: "plant feed connected"}})
		}
	} else {
		if e.feedConnected {
			e.feedConnected = false
			e.Events.Emit(Event{Type: EventFeedDisconnected, Payload: ConnectionEvent{Detail: "plant feed disconnected"}})
		}
	}

	// Messaging
	if e.msgClient.IsConnected() {
		if !e.msgConnected {
			e.msgConnected = true
			e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: "messaging connected"}})
		}
	} else {
		if e.msgConnected {
			e.msgConnected = false
			e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: "messaging disconnected"}})
		}
	}
}

func (e *Engine) reconnectFeed() {
	if err := e.feed.Connect(); err != nil {
		e.logFn("engine: feed reconnect: %v", err)
		return
	}
	e.subscribeFeed()
	e.feedConnected = true
	e.Events.Emit(Event{Type: EventFeedConnected, Payload: ConnectionEvent{Detail: "plant feed reconnected"}})
}

// connectionHealthLoop owns all connection state. The reconnect ticker runs
// on its own interval so a flapping broker is retried independently of the
// health publishing cadence.
func (e *Engine) connectionHealthLoop() {
	health := time.NewTicker(e.cfg.Monitor.HealthInterval())
	defer health.Stop()
	reconnect := time.NewTicker(e.cfg.Feed.ReconnectInterval())
	defer reconnect.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-health.C:
			e.checkConnectionStatus()
			e.publishHealth()
		case <-reconnect.C:
			if !e.feed.IsConnected() {
				e.checkConnectionStatus()
				e.reconnectFeed()
			}
		}
	}
}

// schedulerLoop runs the assignment and completion sweep every tick.
func (e *Engine) schedulerLoop() {
	ticker := time.NewTicker(e.cfg.Sched.TickInterval())
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			if n := e.scheduler.AutoAssign(); n > 0 {
				e.logFn("engine: auto-assigned %d orders", n)
			}
			e.scheduler.CheckCompletion()
		}
	}
}

// HealthSummary is the periodic health payload published to messaging,
// Redis and the HTTP surface.
type HealthSummary struct {
	PlantID   string         `json:"plant_id"`
	Feed      bool           `json:"feed_connected"`
	Messaging bool           `json:"messaging_connected"`
	Lines     int            `json:"lines"`
	Pipeline  pipeline.Stats `json:"pipeline"`
	Timestamp string         `json:"timestamp"`
}

func (e *Engine) Health() HealthSummary {
	return HealthSummary{
		PlantID:   e.cfg.PlantID,
		Feed:      e.feed.IsConnected(),
		Messaging: e.msgClient.IsConnected(),
		Lines:     len(e.workers),
		Pipeline:  e.dispatcher.Stats(),
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func (e *Engine) publishHealth() {
	h := e.Health()
	e.state.PublishHealth(h)
	e.msgClient.Publish(e.msgClient.Topic("status", "health"), h)
}
