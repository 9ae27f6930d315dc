package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/12008yz/chibox-reveal/internal/models"
	"github.com/12008yz/chibox-reveal/internal/reveal"
)

// PlatformAPI is the external collaborator owning catalog, balance and open
// results. The orchestrator never computes outcomes itself; it animates what
// the platform decided.
type PlatformAPI interface {
	FetchCaseItems(ctx context.Context, caseID string) ([]models.CaseItem, error)
	FetchCaseStatus(ctx context.Context, caseID string) (*models.CaseStatus, error)
	PurchaseCase(ctx context.Context, caseID, paymentMethod string) (*models.PurchaseResult, error)
	OpenCase(ctx context.Context, ref models.OpenRef) (*models.CaseItem, error)
}

// RevealStore is the slice of the redis layer the orchestrator needs.
type RevealStore interface {
	GetCachedCaseItems(caseID string) ([]models.CaseItem, error)
	CacheCaseItems(caseID string, items []models.CaseItem) error
	InvalidateCaseItems(caseID string) error
	GetDailyDrops(userID int64) (map[string]bool, error)
	RecordDailyDrop(userID int64, itemID string) error
	SaveRevealRecord(record *models.RevealRecord) error
}

// Orchestrator coordinates purchase/open calls with the reveal scheduler and
// guards against concurrent or duplicate invocations per user preview. The
// guard is a request token rather than a bare flag: only the holder of the
// matching token may clear it, so a stale late response cannot release a
// guard acquired by a newer request.
type Orchestrator struct {
	platform    PlatformAPI
	store       RevealStore
	publisher   RevealPublisher
	notifier    StaleNotifier
	timing      reveal.Timing
	clock       reveal.Clock
	dailyCaseID string
	log         *zap.Logger

	mu       sync.Mutex
	previews map[int64]*preview
}

// preview is one user's open case preview, the unit the processing guard and
// reveal session are scoped to.
type preview struct {
	caseID  string
	pool    *reveal.Pool
	token   string
	session *reveal.Session
}

func NewOrchestrator(
	platform PlatformAPI,
	store RevealStore,
	publisher RevealPublisher,
	notifier StaleNotifier,
	timing reveal.Timing,
	clock reveal.Clock,
	dailyCaseID string,
	log *zap.Logger,
) *Orchestrator {
	if clock == nil {
		clock = reveal.SystemClock()
	}
	if dailyCaseID == "" {
		dailyCaseID = models.DefaultDailyCaseID
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		platform:    platform,
		store:       store,
		publisher:   publisher,
		notifier:    notifier,
		timing:      timing,
		clock:       clock,
		dailyCaseID: dailyCaseID,
		log:         log,
		previews:    make(map[int64]*preview),
	}
}

// IsDailyCase is the single point deciding whether a case gets exclusion
// filtering and the strike-through sequence.
func (o *Orchestrator) IsDailyCase(caseID string) bool {
	return caseID == o.dailyCaseID
}

// PreviewView is what the case modal renders before any reveal starts.
type PreviewView struct {
	CaseID string            `json:"case_id"`
	Daily  bool              `json:"daily"`
	Items  []reveal.ItemView `json:"items"`
}

// RevealOutcome reports what a purchase/open trigger resulted in. Ignored
// means the processing guard swallowed a duplicate trigger.
type RevealOutcome struct {
	Ignored     bool   `json:"ignored,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
	Started     bool   `json:"started,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
}

// LoadPreview fetches and annotates the case contents, builds the animation
// pool and replaces any previous preview for this user. An empty case is an
// error; the caller renders the empty state and no session can start.
func (o *Orchestrator) LoadPreview(ctx context.Context, userID int64, caseID string) (*PreviewView, error) {
	daily := o.IsDailyCase(caseID)

	items, err := o.loadItems(ctx, userID, caseID, daily)
	if err != nil {
		return nil, err
	}

	pool, err := reveal.BuildPool(items, daily)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	if prev := o.previews[userID]; prev != nil && prev.session != nil {
		prev.session.Invalidate()
	}
	o.previews[userID] = &preview{caseID: caseID, pool: pool}
	o.mu.Unlock()

	idle := reveal.State{Phase: reveal.PhaseIdle, DisplayIndex: -1}
	return &PreviewView{
		CaseID: caseID,
		Daily:  daily,
		Items:  reveal.RenderItems(pool, idle),
	}, nil
}

// ClosePreview tears down the user's preview: any in-flight scheduled
// callbacks are invalidated and the guard is reset.
func (o *Orchestrator) ClosePreview(userID int64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	p := o.previews[userID]
	if p == nil {
		return
	}
	if p.session != nil {
		p.session.Invalidate()
	}
	delete(o.previews, userID)
}

// CaseStatus proxies the platform's availability answer for a case.
func (o *Orchestrator) CaseStatus(ctx context.Context, caseID string) (*models.CaseStatus, error) {
	return o.platform.FetchCaseStatus(ctx, caseID)
}

// PurchaseAndReveal buys the case and, when the purchase opens immediately,
// runs the reveal. A purchase that must redirect to an external payment page
// releases the guard and starts no session.
func (o *Orchestrator) PurchaseAndReveal(ctx context.Context, userID int64, caseID, paymentMethod string) (*RevealOutcome, error) {
	token, ok := o.begin(userID, caseID)
	if !ok {
		return &RevealOutcome{Ignored: true}, nil
	}

	result, err := o.platform.PurchaseCase(ctx, caseID, paymentMethod)
	if err != nil {
		return nil, o.fail(userID, token, caseID, err)
	}

	if result.PaymentURL != "" {
		o.release(userID, token)
		return &RevealOutcome{RedirectURL: result.PaymentURL}, nil
	}

	if result.InventoryCaseID == "" {
		o.release(userID, token)
		return nil, &models.PlatformError{Code: "bad_response", Message: "purchase returned neither a payment url nor a case"}
	}

	winning, err := o.platform.OpenCase(ctx, models.OpenRef{InventoryItemID: result.InventoryCaseID})
	if err != nil {
		return nil, o.fail(userID, token, caseID, err)
	}

	return o.startReveal(ctx, userID, caseID, token, winning)
}

// OpenOwnedCase opens an already-owned or free case instance and runs the
// reveal on the returned item.
func (o *Orchestrator) OpenOwnedCase(ctx context.Context, userID int64, caseID string, ref models.OpenRef) (*RevealOutcome, error) {
	if ref.IsZero() {
		return nil, &models.PlatformError{Code: "bad_request", Message: "nothing to open"}
	}

	if caseID == "" {
		// Inventory-only opens happen inside the already-loaded preview.
		o.mu.Lock()
		if p := o.previews[userID]; p != nil {
			caseID = p.caseID
		}
		o.mu.Unlock()
	}

	token, ok := o.begin(userID, caseID)
	if !ok {
		return &RevealOutcome{Ignored: true}, nil
	}

	winning, err := o.platform.OpenCase(ctx, ref)
	if err != nil {
		return nil, o.fail(userID, token, caseID, err)
	}

	return o.startReveal(ctx, userID, caseID, token, winning)
}

// ActiveReveal returns the current session snapshot, if a reveal is running.
func (o *Orchestrator) ActiveReveal(userID int64) (*reveal.State, []reveal.ItemView, bool) {
	o.mu.Lock()
	p := o.previews[userID]
	var session *reveal.Session
	var pool *reveal.Pool
	if p != nil {
		session = p.session
		pool = p.pool
	}
	o.mu.Unlock()

	if session == nil || pool == nil {
		return nil, nil, false
	}
	st := session.State()
	return &st, reveal.RenderItems(pool, st), true
}

// begin acquires the processing guard for the user's preview of caseID. A
// second trigger while the guard is held is a silent no-op. Triggering for a
// different case replaces the preview entirely, abandoning the old session.
func (o *Orchestrator) begin(userID int64, caseID string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	p := o.previews[userID]
	if p != nil && p.caseID != caseID {
		if p.session != nil {
			p.session.Invalidate()
		}
		p = nil
	}
	if p == nil {
		p = &preview{caseID: caseID}
		o.previews[userID] = p
	}

	if p.token != "" {
		return "", false
	}
	p.token = uuid.NewString()
	return p.token, true
}

// release clears the guard iff the caller still holds it.
func (o *Orchestrator) release(userID int64, token string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	p := o.previews[userID]
	if p != nil && p.token == token {
		p.token = ""
		p.session = nil
	}
}

// fail releases the guard and applies the error's side policy. An
// already-claimed cooldown error closes the preview and flags the host's
// cached data as stale, since the case is no longer obtainable.
func (o *Orchestrator) fail(userID int64, token, caseID string, err error) error {
	o.release(userID, token)

	var claimed *models.AlreadyClaimedError
	if errors.As(err, &claimed) {
		if claimed.CaseID == "" {
			claimed.CaseID = caseID
		}
		o.ClosePreview(userID)
		if serr := o.store.InvalidateCaseItems(caseID); serr != nil {
			o.log.Warn("failed to invalidate case items", zap.String("case_id", caseID), zap.Error(serr))
		}
		if o.notifier != nil {
			o.notifier.NotifyDataStale(userID, caseID)
		}
		return claimed
	}

	var funds *models.InsufficientFundsError
	if errors.As(err, &funds) {
		// Loaded preview state stays intact; the user may top up and retry.
		return funds
	}

	o.log.Warn("case transaction failed",
		zap.Int64("user_id", userID),
		zap.String("case_id", caseID),
		zap.Error(err))
	return err
}

// startReveal hands the platform-decided winning item to a new scheduler
// session. The guard stays held until the session's completion callback.
func (o *Orchestrator) startReveal(ctx context.Context, userID int64, caseID, token string, winning *models.CaseItem) (*RevealOutcome, error) {
	daily := o.IsDailyCase(caseID)

	o.mu.Lock()
	p := o.previews[userID]
	if p == nil || p.token != token {
		// The preview moved on while the open call was in flight; the
		// outcome belongs to an abandoned request.
		o.mu.Unlock()
		return &RevealOutcome{Ignored: true}, nil
	}
	pool := p.pool
	o.mu.Unlock()

	if pool == nil {
		items, err := o.loadItems(ctx, userID, caseID, daily)
		if err == nil {
			pool, err = reveal.BuildPool(items, daily)
		}
		if err != nil {
			o.release(userID, token)
			return nil, err
		}
	}

	degraded := false
	session := reveal.NewSession(pool, daily, o.timing, o.clock,
		func(ev reveal.Event) {
			if ev.Kind == reveal.EventDegraded {
				degraded = true
				o.log.Warn("winning item missing from loaded pool, instant reveal",
					zap.String("case_id", caseID),
					zap.String("item_id", winning.ID))
			}
			if ev.Kind == reveal.EventStopped {
				record := &models.RevealRecord{
					SessionID: ev.SessionID,
					UserID:    userID,
					CaseID:    caseID,
					ItemID:    winning.ID,
					ItemName:  winning.Name,
					Rarity:    winning.Rarity,
					Daily:     daily,
					Degraded:  degraded,
					CreatedAt: time.Now().Unix(),
				}
				if err := o.store.SaveRevealRecord(record); err != nil {
					o.log.Warn("failed to save reveal record", zap.Error(err))
				}
			}
			if o.publisher != nil {
				o.publisher.PublishRevealEvent(userID, ev)
			}
		},
		func() { o.release(userID, token) },
	)

	o.mu.Lock()
	p = o.previews[userID]
	if p == nil || p.token != token {
		o.mu.Unlock()
		session.Invalidate()
		return &RevealOutcome{Ignored: true}, nil
	}
	p.session = session
	if p.pool == nil {
		p.pool = pool
	}
	o.mu.Unlock()

	if daily {
		if err := o.store.RecordDailyDrop(userID, winning.ID); err != nil {
			o.log.Warn("failed to record daily drop", zap.Error(err))
		}
	}

	if err := session.Start(*winning); err != nil {
		o.release(userID, token)
		return nil, err
	}

	return &RevealOutcome{Started: true, SessionID: session.ID()}, nil
}

// loadItems reads the annotated item set, preferring the preview cache, and
// overlays today's recorded daily drops onto the exclusion flags.
func (o *Orchestrator) loadItems(ctx context.Context, userID int64, caseID string, daily bool) ([]models.CaseItem, error) {
	items, err := o.store.GetCachedCaseItems(caseID)
	if err != nil {
		o.log.Warn("case item cache read failed", zap.Error(err))
	}
	if items == nil {
		items, err = o.platform.FetchCaseItems(ctx, caseID)
		if err != nil {
			return nil, err
		}
		if cerr := o.store.CacheCaseItems(caseID, items); cerr != nil {
			o.log.Warn("case item cache write failed", zap.Error(cerr))
		}
	}

	if daily {
		drops, derr := o.store.GetDailyDrops(userID)
		if derr != nil {
			o.log.Warn("daily drop read failed", zap.Error(derr))
		}
		for i := range items {
			if drops[items[i].ID] {
				items[i].IsExcluded = true
				items[i].IsAlreadyDropped = true
			}
		}
	}

	return items, nil
}
