package location

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the pause between position fetches after the first one.
const DefaultInterval = 20 * time.Second

// Fix is one position reading.
type Fix struct {
	Latitude  float64
	Longitude float64
	// Accuracy is the horizontal accuracy in meters.
	Accuracy  float64
	Timestamp time.Time
}

// Source yields the device's current position.
type Source interface {
	CurrentPosition(ctx context.Context) (Fix, error)
}

// Static always reports the same coordinates, stamped with the fetch time.
type Static struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

func (s Static) CurrentPosition(context.Context) (Fix, error) {
	return Fix{
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Accuracy:  s.Accuracy,
		Timestamp: time.Now(),
	}, nil
}

// Poller fetches from a Source immediately and then on a fixed interval,
// keeping the latest successful fix. Failed fetches are logged and leave the
// previous fix in place.
type Poller struct {
	source   Source
	interval time.Duration
	logger   *slog.Logger

	mu  sync.RWMutex
	fix Fix
	ok  bool
}

func NewPoller(source Source, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{source: source, interval: interval, logger: logger}
}

// Run polls until ctx is done. It always returns nil so it can share an
// errgroup with other long-running loops.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("location polling started", "interval", p.interval.String())
	p.Refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("location polling stopped")
			return nil
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Refresh fetches one position now. Run calls it on every tick.
func (p *Poller) Refresh(ctx context.Context) {
	fix, err := p.source.CurrentPosition(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("failed to get location", "error", err)
		}
		return
	}

	p.mu.Lock()
	p.fix, p.ok = fix, true
	p.mu.Unlock()

	p.logger.Debug("location updated",
		"latitude", fix.Latitude,
		"longitude", fix.Longitude,
		"accuracy_m", fix.Accuracy,
	)
}

// Latest returns the most recent fix, and false when none has arrived yet.
func (p *Poller) Latest() (Fix, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fix, p.ok
}
