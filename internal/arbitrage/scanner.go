package arbitrage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/kalshidash/internal/domain"
	"github.com/alanyoungcy/kalshidash/internal/metrics"
)

// EventArbDetected is the notification event type sent for newly mispriced
// events.
const EventArbDetected = "arb_detected"

// watchLockKey serializes watch rounds across replicas.
const watchLockKey = "arb_watch"

// Notifier delivers operator alerts. *notify.Notifier satisfies it.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// EventSource supplies the current event universe.
type EventSource interface {
	Events() []domain.Event
}

// Scanner applies Detect across an event universe and reports events that
// newly cross the mispricing threshold.
type Scanner struct {
	notifier Notifier
	bus      domain.SignalBus
	locks    domain.LockManager
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	flagged map[string]bool
}

// ScannerConfig configures a Scanner. Everything but Logger is optional.
// With Locks set, Run checks only on the replica that wins each round.
type ScannerConfig struct {
	Notifier Notifier
	Bus      domain.SignalBus
	Locks    domain.LockManager
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// NewScanner creates a Scanner.
func NewScanner(cfg ScannerConfig) *Scanner {
	return &Scanner{
		notifier: cfg.Notifier,
		bus:      cfg.Bus,
		locks:    cfg.Locks,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.With(slog.String("component", "arb_scanner")),
		flagged:  make(map[string]bool),
	}
}

// Scan runs Detect on every event and returns the results sorted by absolute
// overround, largest first. Events with too few priced markets are skipped.
func Scan(events []domain.Event, mispricedOnly bool) []Result {
	out := make([]Result, 0, len(events))
	for _, e := range events {
		r := Detect(e)
		if r == nil {
			continue
		}
		if mispricedOnly && !r.IsMispriced {
			continue
		}
		out = append(out, *r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Overround) > math.Abs(out[j].Overround)
	})
	return out
}

// Check scans events and alerts on every event that is mispriced now but was
// not on the previous check. Events that recover are forgotten so a later
// relapse alerts again. It returns the full sorted result set.
func (s *Scanner) Check(ctx context.Context, events []domain.Event) []Result {
	results := Scan(events, false)

	s.mu.Lock()
	current := make(map[string]bool, len(results))
	var fresh []Result
	for _, r := range results {
		if !r.IsMispriced {
			continue
		}
		current[r.EventTicker] = true
		if !s.flagged[r.EventTicker] {
			fresh = append(fresh, r)
		}
	}
	s.flagged = current
	s.mu.Unlock()
	s.metrics.SetMispriced(len(current))

	for _, r := range fresh {
		s.report(ctx, r)
	}
	return results
}

func (s *Scanner) report(ctx context.Context, r Result) {
	s.logger.InfoContext(ctx, "mispriced event detected",
		slog.String("event_ticker", r.EventTicker),
		slog.Float64("overround", r.Overround),
		slog.Int("priced_markets", r.PricedMarkets),
	)

	if s.notifier != nil {
		title := fmt.Sprintf("Mispriced event %s", r.EventTicker)
		msg := fmt.Sprintf("%s\nimplied total %.1f%% (overround %+.1f) across %d markets",
			r.Title, r.TotalImpliedPct, r.Overround, r.PricedMarkets)
		if err := s.notifier.Notify(ctx, EventArbDetected, title, msg); err != nil {
			s.logger.WarnContext(ctx, "arb notify failed",
				slog.String("event_ticker", r.EventTicker),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.bus != nil {
		payload, err := json.Marshal(r)
		if err != nil {
			return
		}
		if err := s.bus.Publish(ctx, domain.ChannelArb, payload); err != nil {
			s.logger.WarnContext(ctx, "arb publish failed",
				slog.String("event_ticker", r.EventTicker),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Run checks src every interval until ctx is cancelled. An empty universe is
// skipped, as is a round whose lock another replica holds.
func (s *Scanner) Run(ctx context.Context, src EventSource, interval time.Duration) error {
	s.logger.Info("arb scanner started", slog.Duration("interval", interval))
	defer s.logger.Info("arb scanner stopped")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if events := src.Events(); len(events) > 0 && s.claimRound(ctx, interval) {
			results := s.Check(ctx, events)
			s.logger.Debug("arb check complete", slog.Int("events", len(results)))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// claimRound takes the watch lock for slightly less than one interval and
// lets it expire. Lock errors other than contention fail open.
func (s *Scanner) claimRound(ctx context.Context, interval time.Duration) bool {
	if s.locks == nil {
		return true
	}
	_, err := s.locks.Acquire(ctx, watchLockKey, interval*9/10)
	switch {
	case err == nil:
		return true
	case errors.Is(err, domain.ErrLockHeld):
		if s.logger.Enabled(ctx, slog.LevelDebug) {
			holder, herr := s.locks.Holder(ctx, watchLockKey)
			if herr != nil {
				holder = "unknown"
			}
			s.logger.Debug("arb round claimed by another replica",
				slog.String("holder", holder),
			)
		}
		return false
	default:
		s.logger.Warn("arb lock unavailable, checking anyway",
			slog.String("error", err.Error()),
		)
		return true
	}
}
