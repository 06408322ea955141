package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "givebridge/backend/internal/platform/errors"
	"givebridge/backend/internal/platform/dedup"
	"givebridge/backend/internal/telemetry"
	telemetrydomain "givebridge/backend/internal/telemetry/domain"
	"givebridge/backend/internal/user/domain"
	"givebridge/backend/internal/user/repository"
)

// Outcome is what processing an event did to the directory.
type Outcome string

const (
	OutcomeCreated     Outcome = "created"
	OutcomeUpdated     Outcome = "updated"
	OutcomeDeactivated Outcome = "deactivated"
	OutcomeNoop        Outcome = "noop"
)

// Result reports the outcome of one event. Record is the directory state after
// processing, or nil when no record exists.
type Result struct {
	Outcome Outcome
	Reason  string
	Record  *domain.IdentityRecord
}

// maxUpdateAttempts bounds the re-read and retry loop on version conflicts.
const maxUpdateAttempts = 5

// Processor applies lifecycle events to the directory. Events for one external id are
// applied one at a time in this process; the directory's version check covers other processes.
type Processor struct {
	dir      repository.Repository
	locks    *keyedMutex
	emitter  telemetry.EventEmitter
	logger   *zap.Logger
	dedup    dedup.Store
	dedupTTL time.Duration
	nowF     func() time.Time
	newID    func() string
}

// Option configures a Processor.
type Option func(*Processor)

// WithEmitter sends a DirectoryEvent for every state change.
func WithEmitter(e telemetry.EventEmitter) Option {
	return func(p *Processor) { p.emitter = e }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithDedup skips deliveries whose id was already seen within ttl.
func WithDedup(store dedup.Store, ttl time.Duration) Option {
	return func(p *Processor) {
		p.dedup = store
		p.dedupTTL = ttl
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.nowF = now }
}

// NewProcessor returns a Processor writing to dir.
func NewProcessor(dir repository.Repository, opts ...Option) *Processor {
	p := &Processor{
		dir:    dir,
		locks:  newKeyedMutex(),
		logger: zap.NewNop(),
		nowF:   func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessDelivery processes ev unless deliveryID was already handled. A failed
// delivery releases its id so the provider's retry is processed.
func (p *Processor) ProcessDelivery(ctx context.Context, deliveryID string, ev Event) (Result, error) {
	if p.dedup == nil || deliveryID == "" {
		return p.Process(ctx, ev)
	}
	fresh, err := p.dedup.Reserve(ctx, deliveryID, p.dedupTTL)
	if err != nil {
		p.logger.Warn("events: dedup reserve failed, processing anyway", zap.String("delivery_id", deliveryID), zap.Error(err))
		return p.Process(ctx, ev)
	}
	if !fresh {
		return Result{Outcome: OutcomeNoop, Reason: "duplicate delivery"}, nil
	}
	res, err := p.Process(ctx, ev)
	if err != nil {
		if relErr := p.dedup.Release(ctx, deliveryID); relErr != nil {
			p.logger.Warn("events: dedup release failed", zap.String("delivery_id", deliveryID), zap.Error(relErr))
		}
	}
	return res, err
}

// Process applies ev. Replaying an event yields the same directory state as applying it once.
func (p *Processor) Process(ctx context.Context, ev Event) (Result, error) {
	var (
		res Result
		err error
	)
	switch e := ev.(type) {
	case Created:
		res, err = p.created(ctx, e)
	case Updated:
		res, err = p.updated(ctx, e)
	case Deleted:
		res, err = p.deleted(ctx, e)
	case Unrecognized:
		res = Result{Outcome: OutcomeNoop, Reason: "unrecognized event type " + e.Type}
	default:
		res = Result{Outcome: OutcomeNoop, Reason: "unsupported event"}
	}
	if err != nil {
		p.logger.Warn("events: processing failed",
			zap.String("external_id", externalID(ev)),
			zap.String("code", string(apperrors.CodeOf(err))),
			zap.Error(err),
		)
		return Result{}, err
	}
	p.logger.Info("events: processed",
		zap.String("external_id", externalID(ev)),
		zap.String("outcome", string(res.Outcome)),
		zap.String("reason", res.Reason),
	)
	return res, nil
}

func externalID(ev Event) string {
	if ev == nil {
		return ""
	}
	return ev.ExternalID()
}

func (p *Processor) created(ctx context.Context, e Created) (Result, error) {
	unlock := p.locks.Lock(e.ExternalID())
	defer unlock()

	existing, err := p.dir.GetByExternalID(ctx, e.ExternalID())
	if err != nil {
		return Result{}, err
	}
	if existing != nil {
		return Result{Outcome: OutcomeNoop, Reason: "record already exists", Record: existing}, nil
	}

	now := p.nowF()
	rec := &domain.IdentityRecord{
		ID:            p.newID(),
		ExternalID:    e.ExternalID(),
		Email:         e.Email,
		Name:          domain.Name{First: e.FirstName, Last: e.LastName},
		Role:          domain.DefaultRole,
		EmailVerified: e.EmailVerified,
		Active:        true,
		CreatedAt:     orNow(e.CreatedAt, now),
		UpdatedAt:     orNow(e.UpdatedAt, now),

		ProviderUpdatedAt: e.UpdatedAt,
	}
	if err := p.dir.Create(ctx, rec); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateExternalID) {
			// Explicit provisioning won the race.
			current, getErr := p.dir.GetByExternalID(ctx, e.ExternalID())
			if getErr != nil {
				return Result{}, getErr
			}
			return Result{Outcome: OutcomeNoop, Reason: "record provisioned concurrently", Record: current}, nil
		}
		return Result{}, err
	}
	p.emit(telemetrydomain.EventCreated, rec, "")
	return Result{Outcome: OutcomeCreated, Record: rec}, nil
}

func (p *Processor) updated(ctx context.Context, e Updated) (Result, error) {
	unlock := p.locks.Lock(e.ExternalID())
	defer unlock()

	patch := domain.Patch{
		FirstName:     &e.FirstName,
		LastName:      &e.LastName,
		EmailVerified: &e.EmailVerified,
	}
	if e.Email != "" {
		patch.Email = &e.Email
	}
	if !e.UpdatedAt.IsZero() {
		patch.ProviderUpdatedAt = &e.UpdatedAt
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		cur, err := p.dir.GetByExternalID(ctx, e.ExternalID())
		if err != nil {
			return Result{}, err
		}
		if cur == nil {
			return Result{Outcome: OutcomeNoop, Reason: "no record yet; update dropped"}, nil
		}
		if cur.StaleFor(e.UpdatedAt) {
			return Result{Outcome: OutcomeNoop, Reason: "stale update", Record: cur}, nil
		}
		next, err := p.dir.Update(ctx, cur.ID, cur.Version, patch)
		if errors.Is(err, apperrors.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return Result{}, err
		}
		if next.Version == cur.Version {
			return Result{Outcome: OutcomeNoop, Reason: "no changes", Record: next}, nil
		}
		p.emit(telemetrydomain.EventUpdated, next, "")
		return Result{Outcome: OutcomeUpdated, Record: next}, nil
	}
	return Result{}, apperrors.ErrVersionConflict
}

func (p *Processor) deleted(ctx context.Context, e Deleted) (Result, error) {
	unlock := p.locks.Lock(e.ExternalID())
	defer unlock()

	cur, err := p.dir.GetByExternalID(ctx, e.ExternalID())
	if err != nil {
		return Result{}, err
	}
	if cur == nil {
		return Result{Outcome: OutcomeNoop, Reason: "no record to deactivate"}, nil
	}
	if !cur.Active {
		return Result{Outcome: OutcomeNoop, Reason: "already deactivated", Record: cur}, nil
	}
	rec, err := p.dir.Deactivate(ctx, cur.ID)
	if err != nil {
		return Result{}, err
	}
	p.emit(telemetrydomain.EventDeactivated, rec, "deleted by identity provider")
	return Result{Outcome: OutcomeDeactivated, Record: rec}, nil
}

func (p *Processor) emit(t telemetrydomain.EventType, rec *domain.IdentityRecord, reason string) {
	if p.emitter == nil || rec == nil {
		return
	}
	telemetry.EmitAsync(p.emitter, p.logger, &telemetrydomain.DirectoryEvent{
		Type:       t,
		Source:     telemetrydomain.SourceWebhook,
		UserID:     rec.ID,
		ExternalID: rec.ExternalID,
		Role:       string(rec.Role),
		Reason:     reason,
		Version:    rec.Version,
		OccurredAt: p.nowF(),
	})
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}
