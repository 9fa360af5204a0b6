package check

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dealscout/dealscout/internal/pipeline"
	"github.com/dealscout/dealscout/internal/resolve"
)

// Sentinel errors for request validation and lookup.
var (
	ErrNoNames     = errors.New("no game names supplied")
	ErrUnknownMode = errors.New("unknown check mode")
	ErrMissingUser = errors.New("wishlist user required")
	ErrRunNotFound = errors.New("run not found")
)

// Deps bundles the collaborators a Service drives.
type Deps struct {
	Resolver resolve.Resolver
	Prices   PriceFetcher
	Wishlist WishlistFetcher
	Registry *Registry
	Pacer    *pipeline.Pacer

	// ChunkSize caps ids per pricing request.
	ChunkSize int
	// HasCards marks that the resolver strategy supplies trading-card
	// data, so deals exports carry the column.
	HasCards bool
}

// Service orchestrates check runs: it validates submissions, creates
// records, and drives each run through its pipeline in the background.
type Service struct {
	deps Deps

	// base bounds the background drain goroutines. It is the application
	// lifetime context, not any single request's.
	base context.Context

	tracer       trace.Tracer
	runsCreated  metric.Int64Counter
	chunksIssued metric.Int64Counter
}

// NewService creates the orchestrator. base must outlive every run.
// Telemetry goes through the global OpenTelemetry providers, so without a
// configured SDK the instruments are no-ops.
func NewService(base context.Context, deps Deps) *Service {
	meter := otel.Meter("dealscout.check")
	runsCreated, _ := meter.Int64Counter("dealscout.checks.created",
		metric.WithDescription("Check runs accepted for processing"))
	chunksIssued, _ := meter.Int64Counter("dealscout.pricing.chunks",
		metric.WithDescription("Bulk pricing requests issued upstream"))

	return &Service{
		base:         base,
		deps:         deps,
		tracer:       otel.Tracer("dealscout.check"),
		runsCreated:  runsCreated,
		chunksIssued: chunksIssued,
	}
}

// CreateRequest is the input for starting a check.
type CreateRequest struct {
	Mode  Mode
	Names []string
	// User is the storefront account whose wishlist is checked.
	// Required in wishlist mode.
	User string
	// Country overrides the pricing region for this run. Optional.
	Country string
}

// Create validates the submission, registers a run with one pending
// record per non-blank title, and starts processing in the background.
// Nothing is processed when validation fails.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Run, error) {
	names := cleanNames(req.Names)
	if len(names) == 0 {
		return nil, ErrNoNames
	}

	switch req.Mode {
	case ModeDeals:
	case ModeWishlist:
		if strings.TrimSpace(req.User) == "" {
			return nil, ErrMissingUser
		}
	default:
		return nil, ErrUnknownMode
	}

	runner := pipeline.NewRunner(s.deps.ChunkSize, s.deps.Pacer)
	hasCards := s.deps.HasCards && req.Mode == ModeDeals
	run := newRun(uuid.New().String(), req.Mode, names, hasCards, runner)
	s.deps.Registry.Add(run)
	s.runsCreated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", string(req.Mode)),
	))

	go s.execute(run, names, strings.TrimSpace(req.User), strings.TrimSpace(req.Country))

	return run, nil
}

// Get returns a snapshot of the run with the given id.
func (s *Service) Get(id string) (Snapshot, error) {
	run, ok := s.deps.Registry.Get(id)
	if !ok {
		return Snapshot{}, ErrRunNotFound
	}
	return run.Snapshot(), nil
}

// Cancel requests cancellation of a run. Idempotent; cancelling a
// finished run is a no-op.
func (s *Service) Cancel(id string) error {
	run, ok := s.deps.Registry.Get(id)
	if !ok {
		return ErrRunNotFound
	}
	run.Cancel()
	return nil
}

func (s *Service) execute(run *Run, names []string, user, country string) {
	ctx := s.base
	lg := zctx.From(ctx).With(
		zap.String("run_id", run.ID),
		zap.String("mode", string(run.Mode)),
	)

	switch run.Mode {
	case ModeDeals:
		s.executeDeals(ctx, lg, run, names, country)
	case ModeWishlist:
		s.executeWishlist(ctx, lg, run, names, user)
	}
}

func (s *Service) executeDeals(ctx context.Context, lg *zap.Logger, run *Run, names []string, country string) {
	matches, err := s.deps.Resolver.Resolve(ctx, names)
	if err != nil {
		lg.Error("Resolve titles", zap.Error(err))
		run.fail("title resolution failed")
		return
	}

	ids := run.applyResolution(matches)
	chunks := pipeline.Chunks(ids, s.deps.ChunkSize)
	run.setTotalChunks(len(chunks))
	lg.Info("Run resolved",
		zap.Int("titles", len(names)),
		zap.Int("enqueued", len(ids)),
		zap.Int("chunks", len(chunks)),
	)

	err = run.runner.Run(ctx, ids, func(ctx context.Context, chunk []int64) {
		chunkCtx, span := s.tracer.Start(ctx, "pricing.chunk",
			trace.WithAttributes(attribute.Int("ids", len(chunk))))
		prices, ferr := s.deps.Prices.Prices(chunkCtx, chunk, country)
		s.chunksIssued.Add(ctx, 1)

		if ferr != nil {
			// A failed chunk settles as error and the drain moves on.
			// No retries; the pacing delay still applies.
			span.RecordError(ferr)
			lg.Warn("Price chunk failed", zap.Int("ids", len(chunk)), zap.Error(ferr))
			run.markError(chunk)
		} else {
			run.applyPrices(chunk, prices)
		}
		span.End()
		run.bumpProgress(s.deps.Pacer.NextAt())
	})

	switch {
	case errors.Is(err, pipeline.ErrCancelled):
		run.setCancelled()
		lg.Info("Run cancelled")
	case err != nil:
		run.fail("processing interrupted")
		lg.Warn("Run interrupted", zap.Error(err))
	default:
		run.finish()
		lg.Info("Run complete")
	}
}

func (s *Service) executeWishlist(ctx context.Context, lg *zap.Logger, run *Run, names []string, user string) {
	var (
		matches []resolve.Match
		items   map[int64]WishlistItem
	)

	// Title resolution and the live wishlist fetch are independent.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.deps.Resolver.Resolve(gctx, names)
		if err != nil {
			return errors.Wrap(err, "resolve titles")
		}
		matches = m
		return nil
	})
	g.Go(func() error {
		it, err := s.deps.Wishlist.Wishlist(gctx, user)
		if err != nil {
			return errors.Wrap(err, "fetch wishlist")
		}
		items = it
		return nil
	})

	if err := g.Wait(); err != nil {
		lg.Error("Wishlist lookup failed", zap.String("user", user), zap.Error(err))
		run.fail("wishlist lookup failed")
		return
	}

	if run.Cancelled() {
		run.setCancelled()
		lg.Info("Run cancelled")
		return
	}

	run.applyWishlist(matches, items)
	run.finish()
	lg.Info("Run complete", zap.Int("titles", len(names)), zap.Int("wishlist_size", len(items)))
}

// cleanNames trims titles and drops blank lines while preserving order
// and duplicates.
func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
