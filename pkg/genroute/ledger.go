package genroute

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Ledger is the sole owner of user credit balances. Everything else reads
// the balance through it and never mutates it directly.
type Ledger struct {
	storage Storage
	logger  Logger
	metrics Metrics
}

// NewLedger creates a ledger over the given storage.
func NewLedger(storage Storage, logger Logger, metrics Metrics) *Ledger {
	if logger == nil {
		logger = &NoopLogger{}
	}
	if metrics == nil {
		metrics = &NoopMetrics{}
	}
	return &Ledger{storage: storage, logger: logger, metrics: metrics}
}

// CanAfford reports whether the user can pay cost. Admins are always
// affordable. Fails closed: an unknown user or a storage error both
// report false.
func (l *Ledger) CanAfford(ctx context.Context, userID string, cost int) bool {
	u, err := l.storage.GetUser(ctx, userID)
	if err != nil {
		l.logger.Debug("affordability check failed closed",
			Field{"userId", userID},
			Field{"error", err},
		)
		return false
	}
	if u.IsAdmin {
		return true
	}
	return u.Credits >= cost
}

// Consume charges the user for one successful provider invocation and
// appends the usage log entry carrying the resulting balance. The debit
// is atomic at the storage layer so a concurrent request for the same
// user cannot double-spend the same credits. Admins are never charged;
// their log entry records cost 0.
//
// Returns the remaining balance. Unknown users surface ErrUserNotFound
// rather than silently no-opping.
func (l *Ledger) Consume(ctx context.Context, userID string, p Provider, mode Mode) (int, error) {
	u, err := l.storage.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	cost := p.Cost
	remaining := u.Credits
	if u.IsAdmin {
		cost = 0
	} else if cost > 0 {
		remaining, err = l.storage.DebitCredits(ctx, userID, cost)
		if err != nil {
			return 0, err
		}
	}

	entry := &LogEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Provider:    p.ID,
		Mode:        mode,
		Cost:        cost,
		CreditsLeft: remaining,
		Timestamp:   time.Now().UTC(),
	}
	if err := l.storage.AppendLog(ctx, entry); err != nil {
		// The charge stood; a lost audit line is a warning, not a failure.
		l.logger.Warn("usage log append failed",
			Field{"userId", userID},
			Field{"provider", p.ID},
			Field{"error", err},
		)
	}

	l.metrics.RecordDebit(p.ID, cost)
	l.logger.Info("credits consumed",
		Field{"userId", userID},
		Field{"provider", p.ID},
		Field{"mode", mode},
		Field{"cost", cost},
		Field{"creditsLeft", remaining},
	)
	return remaining, nil
}

// SetBalance is the administrative override used by the admin surface.
// It bypasses cost logic entirely.
func (l *Ledger) SetBalance(ctx context.Context, userID string, value int) error {
	if value < 0 {
		return ErrNegativeCredits
	}
	if err := l.storage.SetCredits(ctx, userID, value); err != nil {
		return err
	}
	l.logger.Info("balance set by admin override",
		Field{"userId", userID},
		Field{"credits", value},
	)
	return nil
}

// Balance returns the user's current balance.
func (l *Ledger) Balance(ctx context.Context, userID string) (int, error) {
	u, err := l.storage.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.Credits, nil
}
