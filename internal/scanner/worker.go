package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"cardkeep/internal/catalog"
	"cardkeep/internal/collection"
	"cardkeep/internal/identify"
	"cardkeep/internal/logging"
	"cardkeep/internal/notifications"
)

var (
	// ErrQueueFull rejects an enqueue against a bounded queue at
	// capacity.
	ErrQueueFull = errors.New("scan queue full")
	// ErrUnknownRequest rejects a resolution for a handle the worker
	// does not know.
	ErrUnknownRequest = errors.New("unknown scan request")
	// ErrNotAwaitingChoice rejects a resolution for a request that is
	// not in the ambiguous state.
	ErrNotAwaitingChoice = errors.New("request is not awaiting a choice")
	// ErrWorkerStopped rejects an enqueue after Stop.
	ErrWorkerStopped = errors.New("worker stopped")
)

// ItemStatus is the lifecycle state of one queued scan.
type ItemStatus string

const (
	ItemQueued     ItemStatus = "queued"
	ItemProcessing ItemStatus = "processing"
	ItemMatched    ItemStatus = "matched"
	ItemAmbiguous  ItemStatus = "ambiguous"
	ItemFailed     ItemStatus = "failed"
	ItemResolved   ItemStatus = "resolved"
	ItemDismissed  ItemStatus = "dismissed"
)

// ScanDefaults are the stock attributes applied to a matched scan.
// Observed values win over defaults where the tracks produced one.
type ScanDefaults struct {
	Condition collection.Condition
	Language  string
	Storage   string
	Quantity  int
}

// ScanRequest is one image submitted for identification.
type ScanRequest struct {
	Image    []byte
	Defaults ScanDefaults
}

// Item tracks one request through the queue. Snapshot copies are
// returned to callers; the worker owns the live instance.
type Item struct {
	ID          string
	Status      ItemStatus
	Outcome     *Outcome
	SubmittedAt time.Time
	StartedAt   time.Time
	FinishedAt  time.Time

	request ScanRequest
}

// CatalogAccess is the worker's write-side catalog surface: a
// reachability probe and printing persistence for accepted virtual
// candidates.
type CatalogAccess interface {
	Ping(ctx context.Context) error
	AddPrinting(ctx context.Context, cardID int64, printing catalog.Printing) error
}

// Stager receives matched results. *staging.Session satisfies it.
type Stager interface {
	Stage(changes ...collection.Change) error
}

// Worker owns the scan queue. Requests process one at a time in
// submission order on a background goroutine; lifecycle events flow
// through the hub. A fault in one item fails that item only.
type Worker struct {
	mu       sync.Mutex
	queue    []*Item
	items    map[string]*Item
	capacity int
	stopped  bool

	pipeline *Pipeline
	catalog  CatalogAccess
	stager   Stager
	hub      *Hub
	notifier notifications.Service
	logger   *slog.Logger

	signal chan struct{}
	stop   chan struct{}
	done   chan struct{}
}

// WorkerOptions wires the worker's collaborators.
type WorkerOptions struct {
	Pipeline *Pipeline
	Catalog  CatalogAccess
	Stager   Stager
	Hub      *Hub
	Notifier notifications.Service
	Logger   *slog.Logger
	// QueueCapacity bounds the queue; zero means unbounded.
	QueueCapacity int
}

// NewWorker assembles a stopped worker; call Start to begin draining.
func NewWorker(opts WorkerOptions) *Worker {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	hub := opts.Hub
	if hub == nil {
		hub = NewHub(0)
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewNop()
	}
	return &Worker{
		items:    make(map[string]*Item),
		capacity: opts.QueueCapacity,
		pipeline: opts.Pipeline,
		catalog:  opts.Catalog,
		stager:   opts.Stager,
		hub:      hub,
		notifier: notifier,
		logger:   logger.With(logging.String(logging.FieldComponent, "scanner")),
		signal:   make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Events exposes the lifecycle hub for subscribers.
func (w *Worker) Events() *Hub { return w.hub }

// Enqueue adds a request and returns its handle immediately; the
// result arrives later through the event stream.
func (w *Worker) Enqueue(req ScanRequest) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return "", ErrWorkerStopped
	}
	if w.capacity > 0 && len(w.queue) >= w.capacity {
		return "", fmt.Errorf("%w: capacity %d", ErrQueueFull, w.capacity)
	}

	item := &Item{
		ID:          uuid.NewString(),
		Status:      ItemQueued,
		SubmittedAt: time.Now().UTC(),
		request:     req,
	}
	w.queue = append(w.queue, item)
	w.items[item.ID] = item

	select {
	case w.signal <- struct{}{}:
	default:
	}
	return item.ID, nil
}

// Start launches the drain loop on its own goroutine.
func (w *Worker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop halts the worker after the in-flight item finishes. Queued
// items stay queued; cancellation is cooperative at item granularity.
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.stopped = true
	w.mu.Unlock()

	close(w.stop)
	<-w.done
}

// Items returns a snapshot of every known request, oldest first.
func (w *Worker) Items() []Item {
	w.mu.Lock()
	defer w.mu.Unlock()
	snapshot := make([]Item, 0, len(w.items))
	for _, item := range w.items {
		snapshot = append(snapshot, *item)
	}
	sortItems(snapshot)
	return snapshot
}

// Item returns a snapshot of one request by handle.
func (w *Worker) Item(handle string) (Item, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	item, ok := w.items[handle]
	if !ok {
		return Item{}, false
	}
	return *item, true
}

// Resolve merges a caller-chosen candidate for an ambiguous scan into
// staging. A nil choice dismisses the item without touching staging.
func (w *Worker) Resolve(ctx context.Context, handle string, choice *identify.Candidate) error {
	w.mu.Lock()
	item, ok := w.items[handle]
	if !ok {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownRequest, handle)
	}
	if item.Status != ItemAmbiguous {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrNotAwaitingChoice, handle, item.Status)
	}
	outcome := item.Outcome
	defaults := item.request.Defaults
	w.mu.Unlock()

	if choice == nil {
		w.setStatus(handle, ItemDismissed)
		w.logger.Info("ambiguous scan dismissed", logging.String(logging.FieldRequestID, handle))
		return nil
	}

	var obs identify.Observations
	if outcome != nil {
		obs = outcome.Observations
	}
	if err := w.applyCandidate(ctx, handle, *choice, obs, defaults); err != nil {
		return err
	}
	w.setStatus(handle, ItemResolved)
	return nil
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	for {
		item := w.next()
		if item == nil {
			select {
			case <-ctx.Done():
				return
			case <-w.stop:
				return
			case <-w.signal:
				continue
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		default:
		}

		w.process(ctx, item)
	}
}

func (w *Worker) next() *Item {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return nil
	}
	item := w.queue[0]
	w.queue = w.queue[1:]
	return item
}

// process runs one item end to end. A panic inside the pipeline or
// the staging merge fails the item; the worker keeps draining.
func (w *Worker) process(ctx context.Context, item *Item) {
	logger := w.logger.With(logging.String(logging.FieldRequestID, item.ID))

	w.mu.Lock()
	item.Status = ItemProcessing
	item.StartedAt = time.Now().UTC()
	w.mu.Unlock()

	w.hub.Publish(Event{RequestID: item.ID, Type: EventScanStarted})

	outcome := w.runItem(ctx, item, logger)

	w.mu.Lock()
	item.Outcome = &outcome
	item.FinishedAt = time.Now().UTC()
	switch outcome.Status {
	case StatusMatched:
		item.Status = ItemMatched
	case StatusAmbiguous:
		item.Status = ItemAmbiguous
	default:
		item.Status = ItemFailed
	}
	w.mu.Unlock()

	w.hub.Publish(Event{RequestID: item.ID, Type: EventScanFinished, Outcome: &outcome})
	w.notify(ctx, item.ID, outcome)
}

func (w *Worker) runItem(ctx context.Context, item *Item, logger *slog.Logger) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("scan faulted", logging.Any("panic", r))
			outcome = Outcome{
				Status:       StatusFailed,
				Failure:      FailureInternalError,
				FailureCause: fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	if err := w.catalog.Ping(ctx); err != nil {
		logger.Error("catalog unreachable", logging.Error(err))
		return Outcome{
			Status:       StatusFailed,
			Failure:      FailureDependencyUnavailable,
			FailureCause: err.Error(),
		}
	}

	step := func(stage string, artifacts map[string]any) {
		w.hub.Publish(Event{RequestID: item.ID, Type: EventStepComplete, Stage: stage, Artifacts: artifacts})
	}
	outcome = w.pipeline.Run(ctx, Capture{RequestID: item.ID, Image: item.request.Image}, step)

	if outcome.Status == StatusMatched && outcome.Best != nil {
		if err := w.applyCandidate(ctx, item.ID, *outcome.Best, outcome.Observations, item.request.Defaults); err != nil {
			logger.Error("staging merge failed", logging.Error(err))
			return Outcome{
				Status:       StatusFailed,
				Failure:      FailureInternalError,
				FailureCause: err.Error(),
				Observations: outcome.Observations,
			}
		}
	}
	return outcome
}

// applyCandidate persists a virtual printing if needed and stages the
// stock change built from the candidate, the observations, and the
// request defaults.
func (w *Worker) applyCandidate(ctx context.Context, requestID string, candidate identify.Candidate, obs identify.Observations, defaults ScanDefaults) error {
	if candidate.Virtual {
		if err := w.catalog.AddPrinting(ctx, candidate.Card.ID, candidate.Printing); err != nil {
			return fmt.Errorf("persist virtual printing: %w", err)
		}
		w.logger.Info("catalogued virtual printing",
			logging.String(logging.FieldRequestID, requestID),
			logging.Int64("card_id", candidate.Card.ID),
			logging.String("set_code", candidate.Printing.SetCode))
	}

	rarity := candidate.Printing.Rarity
	if rarity == "" {
		rarity = obs.Rarity
	}
	language := obs.Language
	if language == "" {
		language = defaults.Language
	}
	quantity := defaults.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	change := collection.Change{
		CardID:   candidate.Card.ID,
		CardName: candidate.Card.Name,
		Attributes: collection.Attributes{
			SetCode:      candidate.Printing.SetCode,
			Rarity:       rarity,
			ArtworkID:    candidate.Printing.ArtworkID,
			Condition:    defaults.Condition,
			Language:     language,
			FirstEdition: obs.FirstEdition,
			Storage:      defaults.Storage,
		},
		Quantity: quantity,
		Mode:     collection.ModeAdd,
	}
	return w.stager.Stage(change)
}

func (w *Worker) setStatus(handle string, status ItemStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if item, ok := w.items[handle]; ok {
		item.Status = status
		item.FinishedAt = time.Now().UTC()
	}
}

func (w *Worker) notify(ctx context.Context, requestID string, outcome Outcome) {
	var err error
	switch outcome.Status {
	case StatusMatched:
		if outcome.Best != nil {
			err = w.notifier.NotifyScanMatched(ctx, outcome.Best.Card.Name, outcome.Best.Printing.SetCode, outcome.Best.Score)
		}
	case StatusAmbiguous:
		err = w.notifier.NotifyScanAmbiguous(ctx, requestID, len(outcome.Choices))
	case StatusFailed:
		err = w.notifier.NotifyScanFailed(ctx, requestID, string(outcome.Failure))
	}
	if err != nil {
		w.logger.Warn("notification failed", logging.Error(err))
	}
}

func sortItems(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].SubmittedAt.Before(items[j].SubmittedAt)
	})
}
