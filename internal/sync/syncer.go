package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/portal-notify/internal/journal"
	"github.com/nhle/portal-notify/internal/logging"
	"github.com/nhle/portal-notify/internal/model"
	"github.com/nhle/portal-notify/internal/source"
	"github.com/nhle/portal-notify/internal/source/portal"
	"github.com/nhle/portal-notify/internal/store"
)

// SyncState represents the current state of a domain sync.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncRunning:
		return "running"
	case SyncError:
		return "error"
	default:
		return "idle"
	}
}

// User-visible failure texts, one per domain.
const (
	ConnectionFailureText = "Failed to load notifications"
	MessageFailureText    = "Failed to load message notifications"
)

// FailureText returns the user-visible failure text for d.
func FailureText(d model.Domain) string {
	if d == model.DomainMessage {
		return MessageFailureText
	}
	return ConnectionFailureText
}

// SyncStatus holds the sync state for a single domain.
type SyncStatus struct {
	Domain model.Domain
	State  SyncState

	// Loading is true while a user-initiated sync is in flight.
	Loading bool

	LastSync time.Time

	// ErrorMessage is the text shown after a user-initiated failure. It
	// survives silent failures and clears on the next success.
	ErrorMessage string
	Err          error

	// AuthExpired is set by any sync that was rejected with 401.
	AuthExpired bool
}

// DomainError is returned by user-initiated syncs that fail.
type DomainError struct {
	Domain  model.Domain
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// Fetcher reads full snapshots of both domains.
type Fetcher interface {
	FetchConnections(ctx context.Context, limit int) (*portal.ConnectionSnapshot, error)
	FetchMessages(ctx context.Context, viewer model.Role) (*portal.MessageSnapshot, error)
}

// Recorder receives one entry per sync run.
type Recorder interface {
	RecordSync(ctx context.Context, run journal.SyncRun) error
}

// snapshot is a fetched domain ready to be applied.
type snapshot struct {
	records []model.Notification
	unread  int
}

// domainSeq tracks request ordering for one domain.
type domainSeq struct {
	started uint64
	applied uint64
	loading int
}

// Syncer overwrites store domains with REST snapshots. Silent syncs
// swallow failures; user-initiated syncs surface them. A failed sync
// never touches the store.
type Syncer struct {
	store    *store.Store
	fetcher  Fetcher
	recorder Recorder
	logger   *zap.Logger
	limit    int

	mu       gosync.Mutex
	session  model.Session
	statuses map[model.Domain]*SyncStatus
	seqs     map[model.Domain]*domainSeq
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithRecorder journals every run.
func WithRecorder(r Recorder) Option {
	return func(s *Syncer) { s.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Syncer) { s.logger = logging.OrNop(l) }
}

// WithLimit sets how many connection notifications are requested.
func WithLimit(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.limit = n
		}
	}
}

// NewSyncer creates a Syncer writing into st.
func NewSyncer(st *store.Store, f Fetcher, opts ...Option) *Syncer {
	s := &Syncer{
		store:    st,
		fetcher:  f,
		logger:   zap.NewNop(),
		limit:    store.Capacity,
		statuses: make(map[model.Domain]*SyncStatus),
		seqs:     make(map[model.Domain]*domainSeq),
	}
	for _, d := range model.Domains {
		s.statuses[d] = &SyncStatus{Domain: d, State: SyncIdle}
		s.seqs[d] = &domainSeq{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetSession switches the user the syncer fetches for. In-flight
// responses started under the previous session are discarded.
func (s *Syncer) SetSession(sess model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = sess
	for _, d := range model.Domains {
		seq := s.seqs[d]
		seq.applied = seq.started
		s.statuses[d] = &SyncStatus{Domain: d, State: SyncIdle}
	}
}

// Session returns the current session.
func (s *Syncer) Session() model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// SyncConnections replaces the connection domain with the server's
// newest notifications and adopts its unread count.
func (s *Syncer) SyncConnections(ctx context.Context, silent bool) error {
	return s.run(ctx, model.DomainConnection, !silent, func(ctx context.Context) (snapshot, error) {
		snap, err := s.fetcher.FetchConnections(ctx, s.limit)
		if err != nil {
			return snapshot{}, err
		}
		return snapshot{records: snap.Records, unread: snap.UnreadCount}, nil
	})
}

// SyncMessages replaces the message domain with one record per partner
// with unread messages. Sessions whose role does not receive message
// notifications get an empty domain.
func (s *Syncer) SyncMessages(ctx context.Context, silent bool) error {
	return s.run(ctx, model.DomainMessage, !silent, func(ctx context.Context) (snapshot, error) {
		snap, err := s.fetcher.FetchMessages(ctx, s.Session().Role)
		if err != nil {
			return snapshot{}, err
		}
		return snapshot{records: snap.Records, unread: snap.UnreadTotal}, nil
	})
}

// SyncAll syncs both domains concurrently and joins their errors.
func (s *Syncer) SyncAll(ctx context.Context, silent bool) error {
	var (
		wg             gosync.WaitGroup
		connErr, msgErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		connErr = s.SyncConnections(ctx, silent)
	}()
	go func() {
		defer wg.Done()
		msgErr = s.SyncMessages(ctx, silent)
	}()
	wg.Wait()
	return errors.Join(connErr, msgErr)
}

// Status returns a copy of the status for d.
func (s *Syncer) Status(d model.Domain) SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.statuses[d]
}

// Statuses returns both domain statuses in display order.
func (s *Syncer) Statuses() []SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SyncStatus, 0, len(model.Domains))
	for _, d := range model.Domains {
		out = append(out, *s.statuses[d])
	}
	return out
}

// run is the single sync primitive behind both domains.
func (s *Syncer) run(
	ctx context.Context,
	d model.Domain,
	reportErrors bool,
	fetch func(context.Context) (snapshot, error),
) error {
	startedAt := time.Now()

	if !s.Session().QualifiesFor(d) {
		s.store.ClearDomain(d)
		s.record(ctx, journal.SyncRun{
			Domain: d, Silent: !reportErrors, Outcome: journal.OutcomeSkipped,
			StartedAt: startedAt, FinishedAt: time.Now(),
		})
		return nil
	}

	seq := s.begin(d, reportErrors)
	snap, err := fetch(ctx)
	run := journal.SyncRun{
		Domain: d, Silent: !reportErrors,
		StartedAt: startedAt, FinishedAt: time.Now(),
	}

	if err != nil {
		s.fail(d, seq, reportErrors, err)
		run.Outcome = journal.OutcomeFailed
		run.Error = err.Error()
		s.record(ctx, run)

		if !reportErrors {
			s.logger.Debug("silent sync failed",
				zap.String("domain", string(d)),
				zap.Error(err),
			)
			return nil
		}
		s.logger.Warn("sync failed",
			zap.String("domain", string(d)),
			zap.Error(err),
		)
		return &DomainError{Domain: d, Message: FailureText(d), Err: err}
	}

	run.RecordCount = len(snap.records)
	run.UnreadCount = snap.unread
	if !s.commit(d, seq, reportErrors, snap) {
		s.logger.Debug("dropped superseded sync response",
			zap.String("domain", string(d)),
			zap.Uint64("seq", seq),
		)
		run.Outcome = journal.OutcomeSuperseded
		s.record(ctx, run)
		return nil
	}

	run.Outcome = journal.OutcomeOK
	s.record(ctx, run)
	return nil
}

// begin assigns the next sequence number for d and marks it running.
func (s *Syncer) begin(d model.Domain, reportErrors bool) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seqs[d]
	seq.started++
	if reportErrors {
		seq.loading++
	}

	st := s.statuses[d]
	st.State = SyncRunning
	st.Loading = seq.loading > 0
	return seq.started
}

// finish releases the loading slot taken by begin. Callers hold mu.
func (s *Syncer) finish(d model.Domain, reportErrors bool) *SyncStatus {
	seq := s.seqs[d]
	if reportErrors && seq.loading > 0 {
		seq.loading--
	}
	st := s.statuses[d]
	st.Loading = seq.loading > 0
	return st
}

// commit applies snap unless a newer run already did. It reports
// whether the snapshot was applied.
func (s *Syncer) commit(d model.Domain, n uint64, reportErrors bool, snap snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seqs[d]
	st := s.finish(d, reportErrors)
	if n <= seq.applied {
		return false
	}
	seq.applied = n

	s.store.ApplySnapshot(d, snap.records, snap.unread)

	st.State = SyncIdle
	st.LastSync = time.Now()
	st.ErrorMessage = ""
	st.Err = nil
	st.AuthExpired = false
	return true
}

// fail updates the status after a failed run. Silent failures leave
// any visible error as it was.
func (s *Syncer) fail(d model.Domain, n uint64, reportErrors bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seqs[d]
	st := s.finish(d, reportErrors)
	if n <= seq.applied {
		return
	}

	if source.IsAuthError(err) {
		st.AuthExpired = true
	}
	if reportErrors {
		st.State = SyncError
		st.ErrorMessage = FailureText(d)
		st.Err = err
		return
	}
	if st.ErrorMessage != "" {
		st.State = SyncError
	} else {
		st.State = SyncIdle
	}
}

func (s *Syncer) record(ctx context.Context, run journal.SyncRun) {
	if s.recorder == nil {
		return
	}
	// The caller's context may already be done when a sync fails.
	if err := s.recorder.RecordSync(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Warn("journal sync run", zap.Error(err))
	}
}
