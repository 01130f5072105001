// Package app assembles the subscription layer from config and runs it.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"motifcore/src/accounts"
	"motifcore/src/config"
	"motifcore/src/connection"
	"motifcore/src/database"
	"motifcore/src/datamodels"
	"motifcore/src/feeds"
	"motifcore/src/incubator"
	"motifcore/src/manager"
	"motifcore/src/markets"
	"motifcore/src/metrics"
	"motifcore/src/node"
	"motifcore/src/publisher"
	"motifcore/src/server"
	"motifcore/src/utils/errors"
)

const (
	pumpQueueSize    = 1024
	journalQueueSize = 256
	shutdownTimeout  = 5 * time.Second
)

// RegisterFactories installs every node kind on registry.
func RegisterFactories(registry node.Registry) {
	connection.Register(registry)
	feeds.Register(registry)
	markets.Register(registry)
	accounts.Register(registry)
}

type App struct {
	config   *datamodels.MotifConfig
	logger   *slog.Logger
	requests []datamodels.Request

	pump     *publisher.Pump
	manager  *manager.Manager
	client   *publisher.Client
	registry *prometheus.Registry
	writer   *metrics.MultiMetricsWriter
	server   *server.Server
	inspect  *server.Inspector

	db      database.MotifDatabase
	journal *database.Journal

	// Owned by the pump goroutine.
	held       []node.Node
	incubators []*incubator.Incubator[node.Node]
}

// BuildFromConfig wires the manager, publisher client, journal, metrics and
// HTTP server. Nothing runs until Run.
func BuildFromConfig(cfg *datamodels.MotifConfig, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	requests, err := cfg.Requests()
	if err != nil {
		return nil, err
	}

	a := &App{
		config:   cfg,
		logger:   logger,
		requests: requests,
		pump:     publisher.NewPump(pumpQueueSize),
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(collectors.NewGoCollector())

	var recorder node.StatusRecorder
	if cfg.JournalConfig.Enabled {
		a.db, err = database.NewFromConfig(cfg)
		if err != nil {
			return nil, errors.Wrap(err, "opening journal database")
		}
		a.journal = database.NewJournal(a.db, logger, journalQueueSize)
		recorder = a.journal
	}

	a.manager = manager.New(logger, nil, recorder)
	RegisterFactories(a.manager)
	a.client = publisher.NewClient(cfg.PublisherConfig, a.manager, a.pump, logger)
	a.manager.SetWire(a.client)

	a.writer, err = metrics.BuildMetricsWriter(&cfg.MetricsWriter, a.registry)
	if err != nil {
		a.closeDatabase()
		return nil, errors.Wrap(err, "building metrics writer")
	}
	if cfg.MetricsWriter.DbWriter {
		a.writer.AddWriter(metrics.NewDBMetricsWriter(a.db))
	}

	a.inspect = server.NewInspector(a.pump, a.manager)
	a.server = server.NewServer(cfg.ServerConfig, config.NewDefaultWSConfig(), logger).
		WithInspector(a.inspect).
		WithGatherer(a.registry)
	if ws, ok := a.writer.WebsocketWriter(); ok {
		a.server.WithMetricsWriter(ws)
	}
	if a.db != nil {
		var notifications server.NotificationSource
		if nm := a.db.Notifications(); nm != nil {
			notifications = nm
		}
		a.server.WithJournal(a.db, notifications)
	}
	return a, nil
}

// Inspector reads the running node graph.
func (a *App) Inspector() *server.Inspector { return a.inspect }

// Run serves until ctx is cancelled or the HTTP server fails, then closes
// every node and flushes the journal.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pumpCtx, stopPump := context.WithCancel(context.Background())
	defer stopPump()
	go a.pump.Run(pumpCtx)

	journalCtx, stopJournal := context.WithCancel(context.Background())
	defer stopJournal()
	if a.journal != nil {
		go a.journal.Run(journalCtx)
	}

	if err := a.pump.Call(ctx, a.openSubscriptions); err != nil {
		return err
	}

	clientDone := make(chan struct{})
	go func() {
		defer close(clientDone)
		if err := a.client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("Publisher client stopped", "error", err)
		}
	}()

	serverErr := make(chan error, 1)
	go func() { serverErr <- a.server.Start(ctx) }()
	go a.reportMetrics(ctx)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErr:
		if runErr != nil {
			a.logger.Error("Server stopped", "error", runErr)
		}
		cancel()
	}
	<-clientDone

	a.shutdown()
	stopPump()
	<-a.pump.Done()
	if a.journal != nil {
		stopJournal()
		<-a.journal.Done()
		if dropped := a.journal.Dropped(); dropped > 0 {
			a.logger.Warn("Journal entries dropped", "count", dropped)
		}
	}
	if err := a.writer.Close(); err != nil {
		a.logger.Warn("Closing metrics writers failed", "error", err)
	}
	a.closeDatabase()
	return runErr
}

// openSubscriptions runs on the pump. Each configured request is held from
// the moment it is usable until shutdown.
func (a *App) openSubscriptions() {
	for _, request := range a.requests {
		inc := incubator.New[node.Node](a.manager, a.logger)
		n, cell := inc.Incubate(request)
		if cell == nil {
			a.hold(n)
			continue
		}
		a.incubators = append(a.incubators, inc)
		cell.Then(func(result incubator.Result[node.Node]) {
			if !result.Cancelled {
				a.hold(result.Value)
			}
		})
	}
}

func (a *App) hold(n node.Node) {
	a.logger.Info("Subscription ready", "request", n.Request().Key(), "correctness", n.Correctness().String())
	a.held = append(a.held, n)
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := a.pump.Call(ctx, func() {
		for _, inc := range a.incubators {
			inc.Cancel()
		}
		for _, n := range a.held {
			a.manager.Unsubscribe(n)
		}
		a.incubators, a.held = nil, nil
		a.manager.Close()
	})
	if err != nil {
		a.logger.Error("Closing nodes failed", "error", err)
	}
}

func (a *App) reportMetrics(ctx context.Context) {
	interval := a.config.MetricsWriter.Interval
	if interval <= 0 || a.writer.Len() == 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var snapshot []datamodels.Metric
			now := time.Now()
			if err := a.pump.Call(ctx, func() { snapshot = metrics.Snapshot(now, a.manager) }); err != nil {
				return
			}
			if err := a.writer.WriteAll(ctx, snapshot); err != nil {
				a.logger.Debug("Metrics snapshot partly written", "error", err)
			}
		}
	}
}

func (a *App) closeDatabase() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("Closing journal database failed", "error", err)
	}
}
