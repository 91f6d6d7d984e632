package game

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/clicker/go/clients/clicker_client"
	"github.com/mcdev12/clicker/go/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	// Bot production credited in one go never covers more than this
	MaxProductionElapsed = time.Hour

	// Largest unit amount a single click may submit
	MaxClickUnits = 1000
)

// SubjectRepository defines what the app layer needs from the repository
type SubjectRepository interface {
	GetSubject(ctx context.Context, id string) (*models.Subject, error)
	SaveSubject(ctx context.Context, subject *models.Subject) error
	ListSubjects(ctx context.Context) ([]models.Subject, error)
}

// App holds the authoritative game rules: pricing, production and the
// read-modify-write of every operation.
type App struct {
	repo  SubjectRepository
	dedup DedupCache
	clock clockwork.Clock

	// serializes read-modify-write per process
	mu sync.Mutex
}

// NewApp creates a new game App
func NewApp(repo SubjectRepository, dedup DedupCache, clock clockwork.Clock) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{
		repo:  repo,
		dedup: dedup,
		clock: clock,
	}
}

func (a *App) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	return a.repo.ListSubjects(ctx)
}

func (a *App) GetStats(ctx context.Context, subjectID string) (*clicker_client.StatsResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	subject, err := a.load(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if err := a.repo.SaveSubject(ctx, subject); err != nil {
		return nil, fmt.Errorf("failed to save subject: %w", err)
	}

	stats := subject.Stats()
	return &clicker_client.StatsResult{
		Envelope:                clicker_client.Succeeded(),
		Balance:                 subject.Balance,
		BotCount:                stats.BotCount,
		BotLevel:                stats.BotLevel,
		MultiplierLevel:         stats.MultiplierLevel,
		ProductionRatePerSecond: stats.ProductionRatePerSecond,
		ClickMultiplier:         stats.ClickMultiplier,
		BotCost:                 stats.BotCost,
		BotUpgradeCost:          stats.BotUpgradeCost,
		MultiplierCost:          stats.MultiplierCost,
	}, nil
}

// Click credits unitAmount times the click multiplier. A repeated requestID
// inside the dedup window gets the first result back instead.
func (a *App) Click(ctx context.Context, subjectID string, unitAmount int, requestID string) (*clicker_client.ClickResult, error) {
	if subjectID == "" {
		return nil, ErrNoSubject
	}
	if unitAmount > MaxClickUnits {
		return nil, ErrTooManyUnits
	}
	if unitAmount <= 0 {
		return nil, ErrInvalidUnits
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var key string
	if requestID != "" {
		key = DedupKey(subjectID, unitAmount, requestID)
		cached, ok, err := a.dedup.Lookup(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("subject_id", subjectID).Msg("dedup lookup failed")
		} else if ok {
			log.Debug().Str("subject_id", subjectID).Str("request_id", requestID).Msg("duplicate click, returning cached result")
			return cached, nil
		}
	}

	subject, err := a.load(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	added := int64(float64(unitAmount) * subject.ClickMultiplier())
	subject.Balance += added
	if err := a.repo.SaveSubject(ctx, subject); err != nil {
		return nil, fmt.Errorf("failed to save subject: %w", err)
	}

	res := &clicker_client.ClickResult{
		Envelope:   clicker_client.Succeeded(),
		NewBalance: subject.Balance,
		UnitsAdded: added,
	}
	if key != "" {
		if err := a.dedup.Store(ctx, key, res); err != nil {
			log.Warn().Err(err).Str("subject_id", subjectID).Msg("dedup store failed")
		}
	}
	return res, nil
}

func (a *App) BuyBot(ctx context.Context, subjectID string) (*clicker_client.BuyBotResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	subject, err := a.load(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if err := a.charge(ctx, subject, subject.BotCost(), func() { subject.BotCount++ }); err != nil {
		return nil, err
	}

	log.Info().Str("subject_id", subjectID).Int("bot_count", subject.BotCount).Msg("bot bought")
	return &clicker_client.BuyBotResult{
		Envelope:                clicker_client.Succeeded(),
		NewBalance:              subject.Balance,
		BotCount:                subject.BotCount,
		NextBotCost:             subject.BotCost(),
		ProductionRatePerSecond: subject.ProductionRatePerSecond(),
	}, nil
}

func (a *App) UpgradeMultiplier(ctx context.Context, subjectID string) (*clicker_client.UpgradeMultiplierResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	subject, err := a.load(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if err := a.charge(ctx, subject, subject.MultiplierCost(), func() { subject.MultiplierLevel++ }); err != nil {
		return nil, err
	}

	log.Info().Str("subject_id", subjectID).Int("multiplier_level", subject.MultiplierLevel).Msg("multiplier upgraded")
	return &clicker_client.UpgradeMultiplierResult{
		Envelope:           clicker_client.Succeeded(),
		NewBalance:         subject.Balance,
		ClickMultiplier:    subject.ClickMultiplier(),
		MultiplierLevel:    subject.MultiplierLevel,
		NextMultiplierCost: subject.MultiplierCost(),
	}, nil
}

func (a *App) UpgradeBots(ctx context.Context, subjectID string) (*clicker_client.UpgradeBotsResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	subject, err := a.load(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if err := a.charge(ctx, subject, subject.BotUpgradeCost(), func() { subject.BotLevel++ }); err != nil {
		return nil, err
	}

	log.Info().Str("subject_id", subjectID).Int("bot_level", subject.BotLevel).Msg("bots upgraded")
	return &clicker_client.UpgradeBotsResult{
		Envelope:                clicker_client.Succeeded(),
		NewBalance:              subject.Balance,
		BotLevel:                subject.BotLevel,
		ProductionRatePerSecond: subject.ProductionRatePerSecond(),
		NextBotUpgradeCost:      subject.BotUpgradeCost(),
	}, nil
}

// load fetches a subject and credits the bot production owed since its last
// update.
func (a *App) load(ctx context.Context, subjectID string) (*models.Subject, error) {
	if subjectID == "" {
		return nil, ErrNoSubject
	}
	subject, err := a.repo.GetSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	applyProduction(subject, a.clock.Now())
	return subject, nil
}

// charge deducts cost and applies upgrade, or fails without touching anything.
// Production credited by load is saved either way.
func (a *App) charge(ctx context.Context, subject *models.Subject, cost int64, upgrade func()) error {
	if subject.Balance < cost {
		if err := a.repo.SaveSubject(ctx, subject); err != nil {
			return fmt.Errorf("failed to save subject: %w", err)
		}
		return &InsufficientBalanceError{Have: subject.Balance, Need: cost}
	}

	subject.Balance -= cost
	upgrade()
	if err := a.repo.SaveSubject(ctx, subject); err != nil {
		return fmt.Errorf("failed to save subject: %w", err)
	}
	return nil
}

// applyProduction credits whole units produced since LastProductionAt. The
// timestamp only moves forward by the time those units took, so fractions are
// kept for the next call. Gaps longer than MaxProductionElapsed are capped.
func applyProduction(subject *models.Subject, now time.Time) {
	if subject.LastProductionAt.IsZero() || !now.After(subject.LastProductionAt) {
		subject.LastProductionAt = now
		return
	}

	rate := subject.ProductionRatePerSecond()
	if rate <= 0 {
		subject.LastProductionAt = now
		return
	}

	elapsed := now.Sub(subject.LastProductionAt)
	if elapsed > MaxProductionElapsed {
		subject.Balance += int64(math.Floor(rate * MaxProductionElapsed.Seconds()))
		subject.LastProductionAt = now
		return
	}

	units := math.Floor(rate * elapsed.Seconds())
	if units <= 0 {
		return
	}
	subject.Balance += int64(units)
	subject.LastProductionAt = subject.LastProductionAt.Add(time.Duration(units / rate * float64(time.Second)))
}
