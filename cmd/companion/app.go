package main

import (
	"context"
	"errors"
	"log"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/agency/cta"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/agency/lametro"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/agency/mta"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/agency/proxy"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/agency/wmata"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/cities"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/config"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/emergency"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/queue"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/report"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/resilience"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/server"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/telemetry"
)

// app bundles the wired service components shared by the subcommands.
type app struct {
	cfg       *config.Config
	collector *telemetry.Collector
	tel       telemetry.Telemetry

	catalog    *cities.Catalog
	queue      *queue.Queue
	proxy      *proxy.Client
	repo       report.Repository
	probe      queue.ProbeFunc
	deliver    queue.DeliverFunc
	limiter    *resilience.RateLimiter
	reports    *report.Service
	dispatcher *emergency.Dispatcher
	sources    map[string]server.ArrivalSource

	closers []func()
}

// offlineRepo stands in when no datastore is configured or reachable.
// Every write fails with the original cause, which routes submissions
// into the offline queue.
type offlineRepo struct{ err error }

func (r offlineRepo) InsertIncident(context.Context, report.IncidentReport) error { return r.err }
func (r offlineRepo) Ping(context.Context) error                                  { return r.err }

// buildApp wires the full component graph from configuration.
func buildApp(ctx context.Context) (*app, error) {
	cfg := config.Load()

	collector := telemetry.NewCollector()
	var tel telemetry.Telemetry = collector
	closers := []func(){}

	if cfg.NATSURL != "" {
		pub, err := telemetry.NewNATSPublisher(cfg.NATSURL, collector)
		if err != nil {
			log.Printf("App: NATS unavailable, telemetry stays local: %v", err)
		} else {
			tel = telemetry.Fanout{collector, pub}
			closers = append(closers, pub.Close)
		}
	}

	catalog, err := cities.Load()
	if err != nil {
		return nil, err
	}

	store, err := queue.Open(cfg.QueuePath)
	if err != nil {
		return nil, err
	}
	closers = append(closers, func() { store.Close() })
	q := queue.New(store, tel)

	proxyClient := proxy.New(cfg.FunctionsBaseURL, cfg.ServiceKey, tel)

	var repo report.Repository
	var probe queue.ProbeFunc
	if cfg.DatabaseURL == "" {
		cause := errors.New("datastore not configured")
		repo = offlineRepo{err: cause}
		probe = offlineRepo{err: cause}.Ping
		log.Println("App: DATABASE_URL not set, all reports will queue locally")
	} else if pg, pgErr := report.NewPostgresRepository(ctx, cfg.DatabaseURL); pgErr != nil {
		repo = offlineRepo{err: pgErr}
		probe = offlineRepo{err: pgErr}.Ping
		log.Printf("App: datastore unreachable, starting in offline mode: %v", pgErr)
	} else {
		repo = pg
		probe = pg.Ping
		closers = append(closers, pg.Close)
	}

	retry := resilience.Config{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		Timeout:     cfg.RequestTimeout,
	}
	limiter := resilience.NewRateLimiter()
	reports := report.NewService(repo, limiter, q, tel, retry, cfg.ReportLimit, cfg.ReportWindow)

	channels := []emergency.Channel{
		&emergency.DatastoreChannel{Repo: repo},
		&emergency.FunctionChannel{Proxy: proxyClient},
		&emergency.LogChannel{},
	}
	dispatcher := emergency.NewDispatcher(emergency.NoLocator{}, catalog, channels, q, tel, retry, cfg.LocationTimeout)

	laCity, _ := catalog.Get("la")
	sources := map[string]server.ArrivalSource{
		"chicago": cta.New(proxyClient),
		"nyc":     mta.New(proxyClient),
		"dc":      wmata.New(proxyClient),
		"la":      &server.ProximitySource{City: laCity, Fetcher: lametro.New(proxyClient)},
	}
	// Schedule reads get the same retry envelope as writes.
	for city, src := range sources {
		sources[city] = server.NewResilientSource(city, src, tel, retry)
	}

	return &app{
		cfg:        cfg,
		collector:  collector,
		tel:        tel,
		catalog:    catalog,
		queue:      q,
		proxy:      proxyClient,
		repo:       repo,
		probe:      probe,
		deliver:    report.ReplayDeliver(repo),
		limiter:    limiter,
		reports:    reports,
		dispatcher: dispatcher,
		sources:    sources,
		closers:    closers,
	}, nil
}

// Close releases held resources in reverse acquisition order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
