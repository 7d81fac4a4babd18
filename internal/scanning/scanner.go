package scanning

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/kvisle/hostscan/internal/config"
	"github.com/kvisle/hostscan/internal/errors"
	"github.com/kvisle/hostscan/internal/feeders"
	"github.com/kvisle/hostscan/internal/logging"
	"github.com/kvisle/hostscan/internal/metrics"
	"github.com/kvisle/hostscan/internal/portspec"
)

// maxResultPrealloc caps the aggregate's initial capacity; huge v6 feeders
// report saturated totals that must not drive an allocation.
const maxResultPrealloc = 1 << 16

// Scanner orchestrates one scan pass: it drains a feeder, bounds the
// number of concurrently active per-host pipelines, runs each host's probe
// chain, and delivers results incrementally.
type Scanner struct {
	fetchers []Fetcher
	cfg      *config.ScannerConfig
	log      *logging.Logger
}

// NewScanner creates a scanner over a frozen probe selection. The port
// specification is validated here so an invalid spec surfaces before any
// pipeline starts.
func NewScanner(selected []Fetcher, cfg *config.ScannerConfig) (*Scanner, error) {
	if cfg == nil {
		return nil, errors.NewConstructionError(errors.CodeConfiguration, "scanner configuration is required")
	}
	if cfg.MaxThreads < 1 {
		return nil, errors.NewConstructionError(errors.CodeValidation, "max_threads must be at least 1")
	}
	if _, err := portspec.Parse(cfg.PortString); err != nil {
		return nil, err
	}

	return &Scanner{
		fetchers: selected,
		cfg:      cfg,
		log:      logging.Default().WithComponent("scanner"),
	}, nil
}

// Stream drains the feeder and sends each host's result as soon as that
// host's pipeline completes. The returned channel is closed after every
// spawned pipeline has finished.
//
// Acquiring a concurrency permit is the sole backpressure point: when all
// permits are taken the dispatch loop suspends instead of queuing pending
// hosts. Cancellation is coarse: a canceled context stops dispatch, but
// in-flight pipelines run to completion; callers that need a hard stop can
// discard stale generations at the aggregation boundary.
func (s *Scanner) Stream(ctx context.Context, feeder feeders.Feeder) <-chan *ScanningResult {
	out := make(chan *ScanningResult)
	generation := uuid.New()

	s.log.Info("Starting scan pass",
		"generation", generation,
		"max_threads", s.cfg.MaxThreads,
		"approx_total", feeder.ApproxTotal())

	go func() {
		defer close(out)

		sem := semaphore.NewWeighted(int64(s.cfg.MaxThreads))
		var wg sync.WaitGroup

		for {
			addr, ok := feeder.Next()
			if !ok {
				break
			}

			if err := sem.Acquire(ctx, 1); err != nil {
				// Canceled while waiting for a permit: stop dispatching
				// further hosts, let in-flight pipelines finish.
				s.log.Warn("Scan dispatch canceled", "generation", generation)
				break
			}

			wg.Add(1)
			go func(addr netip.Addr) {
				defer wg.Done()
				defer sem.Release(1)

				metrics.GetGlobalMetrics().PipelineStarted()
				defer metrics.GetGlobalMetrics().PipelineFinished()

				result := s.runPipeline(ctx, addr, generation)
				if result == nil {
					return
				}
				select {
				case out <- result:
				case <-ctx.Done():
				}
			}(addr)
		}

		s.log.Debug("Feeder exhausted, draining pipelines", "generation", generation)
		wg.Wait()
		s.log.Info("Scan pass completed", "generation", generation)
	}()

	return out
}

// Run drains the feeder and returns the aggregate once every pipeline has
// completed.
func (s *Scanner) Run(ctx context.Context, feeder feeders.Feeder) ([]*ScanningResult, error) {
	start := time.Now()
	status := "success"
	defer func() {
		metrics.GetGlobalMetrics().IncrementScansTotal(status)
		metrics.GetGlobalMetrics().RecordScanDuration(status, time.Since(start))
	}()

	// The feeder total is a saturating progress estimate, not a size the
	// aggregate can trust; clamp it before sizing the slice.
	capacity := feeder.ApproxTotal()
	if capacity > maxResultPrealloc {
		capacity = maxResultPrealloc
	}
	results := make([]*ScanningResult, 0, capacity)
	for result := range s.Stream(ctx, feeder) {
		results = append(results, result)
	}

	if ctx.Err() != nil {
		status = "canceled"
		return results, errors.WrapScanError(errors.CodeCanceled, "scan pass canceled", ctx.Err())
	}
	return results, nil
}

// runPipeline executes one host's probe chain over a fresh subject. An
// unexpected fault is recovered and excludes the host from the aggregate
// without affecting other pipelines.
func (s *Scanner) runPipeline(ctx context.Context, addr netip.Addr, generation uuid.UUID) (result *ScanningResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Host pipeline fault",
				"host", addr.String(),
				"generation", generation,
				"panic", r)
			metrics.GetGlobalMetrics().IncrementPipelineFaults()
			result = nil
		}
	}()

	subject := NewSubject(addr, s.cfg)
	result = NewScanningResult(addr, generation)

	for _, fetcher := range s.fetchers {
		probeStart := time.Now()
		value, err := fetcher.Scan(ctx, subject)
		metrics.GetGlobalMetrics().RecordProbeDuration(fetcher.ID(), time.Since(probeStart))

		if err != nil {
			// Probe failures are absorbed: record the sentinel and keep
			// the rest of the chain running.
			logging.DebugProbe("Probe failed", fetcher.ID(), addr.String(), "error", err)
			metrics.GetGlobalMetrics().IncrementProbesTotal(fetcher.ID(), "error")
			result.Values[fetcher.ID()] = SentinelNotAvailable
		} else {
			metrics.GetGlobalMetrics().IncrementProbesTotal(fetcher.ID(), "ok")
			result.Values[fetcher.ID()] = value
		}

		if subject.Aborted() && !s.cfg.ScanDeadHosts {
			break
		}
	}

	result.Classification = subject.Classification()
	result.MAC = subject.MAC()
	metrics.GetGlobalMetrics().IncrementHostsScanned(result.Classification.String())

	s.log.Debug("Host scanned",
		"host", addr.String(),
		"classification", result.Classification.String())
	return result
}
