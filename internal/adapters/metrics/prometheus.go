// Package metrics exposes trading loop counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"listingBot/internal/ports"
)

const namespace = "listingbot"

// Prometheus implements ports.Metrics on a private registry.
type Prometheus struct {
	registry *prometheus.Registry

	listingsDetected prometheus.Counter
	entryDecisions   *prometheus.CounterVec
	positionsOpened  *prometheus.CounterVec
	positionsClosed  *prometheus.CounterVec
	closedPnL        prometheus.Histogram
	venueErrors      *prometheus.CounterVec
	activePositions  prometheus.Gauge
	strandedPos      prometheus.Gauge
	simulationRuns   prometheus.Counter
}

var _ ports.Metrics = (*Prometheus)(nil)

// NewPrometheus creates the collectors and registers them with a fresh registry.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		listingsDetected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_detected_total",
			Help:      "New tradable symbols seen by the scanner",
		}),
		entryDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entry_decisions_total",
			Help:      "Entry gate outcomes by first failing check",
		}, []string{"outcome"}),
		positionsOpened: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "positions_opened_total",
			Help:      "Bracketed positions opened",
		}, []string{"symbol"}),
		positionsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "positions_closed_total",
			Help:      "Positions closed by terminal reason",
		}, []string{"reason"}),
		closedPnL: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "closed_pnl_percent",
			Help:      "Profit or loss percent of closed positions",
			Buckets:   []float64{-50, -25, -15, -10, -5, 0, 5, 10, 20, 30, 50, 100},
		}),
		venueErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "venue_errors_total",
			Help:      "Failed exchange calls by operation",
		}, []string{"operation"}),
		activePositions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_positions",
			Help:      "Currently open positions",
		}),
		strandedPos: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stranded_positions",
			Help:      "Open positions whose exit legs all ended unfilled",
		}),
		simulationRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulation_runs_total",
			Help:      "Completed historical simulation runs",
		}),
	}
}

func (p *Prometheus) ListingDetected(string) { p.listingsDetected.Inc() }

func (p *Prometheus) EntryDecision(outcome string) { p.entryDecisions.WithLabelValues(outcome).Inc() }

func (p *Prometheus) PositionOpened(symbol string) { p.positionsOpened.WithLabelValues(symbol).Inc() }

func (p *Prometheus) PositionClosed(reason string, pnl float64) {
	p.positionsClosed.WithLabelValues(reason).Inc()
	p.closedPnL.Observe(pnl)
}

func (p *Prometheus) VenueError(operation string) { p.venueErrors.WithLabelValues(operation).Inc() }

func (p *Prometheus) ActivePositions(n int) { p.activePositions.Set(float64(n)) }

func (p *Prometheus) StrandedPositions(n int) { p.strandedPos.Set(float64(n)) }

func (p *Prometheus) SimulationRun() { p.simulationRuns.Inc() }

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (p *Prometheus) Serve(ctx context.Context, addr string, logger ports.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "Metrics endpoint listening", map[string]interface{}{"addr": addr})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Nop discards every observation.
type Nop struct{}

var _ ports.Metrics = Nop{}

func (Nop) ListingDetected(string)         {}
func (Nop) EntryDecision(string)           {}
func (Nop) PositionOpened(string)          {}
func (Nop) PositionClosed(string, float64) {}
func (Nop) VenueError(string)              {}
func (Nop) ActivePositions(int)            {}
func (Nop) StrandedPositions(int)          {}
func (Nop) SimulationRun()                 {}
