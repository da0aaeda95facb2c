package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/99minutos/ledger-system/internal/core/domain"
	"github.com/99minutos/ledger-system/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub ledger store
// ---------------------------------------------------------------------------

type ledgerState struct {
	profiles  map[string]domain.Profile
	contracts map[string]domain.Contract
	jobs      map[string]domain.Job
}

func (s ledgerState) clone() ledgerState {
	c := ledgerState{
		profiles:  make(map[string]domain.Profile, len(s.profiles)),
		contracts: make(map[string]domain.Contract, len(s.contracts)),
		jobs:      make(map[string]domain.Job, len(s.jobs)),
	}
	for k, v := range s.profiles {
		c.profiles[k] = v
	}
	for k, v := range s.contracts {
		c.contracts[k] = v
	}
	for k, v := range s.jobs {
		c.jobs[k] = v
	}
	return c
}

// stubLedgerStore serialises transactions with a mutex and applies a
// transaction's writes only when it commits.
type stubLedgerStore struct {
	mu    sync.Mutex
	state ledgerState

	txCount   int
	failOn    string // "debit", "credit", "mark" or "commit"
	sumErr    error
	lastSumBy ports.ContractFilter

	// paidAtPrecision truncates stored paid_at stamps like a real store's column.
	paidAtPrecision time.Duration
	commitErr       error
}

func newStubLedgerStore() *stubLedgerStore {
	return &stubLedgerStore{state: ledgerState{
		profiles:  make(map[string]domain.Profile),
		contracts: make(map[string]domain.Contract),
		jobs:      make(map[string]domain.Job),
	}}
}

var errInjected = errors.New("injected store failure")

func (s *stubLedgerStore) addProfile(id string, role domain.Role, balance string) {
	s.state.profiles[id] = domain.Profile{ID: id, Role: role, Balance: decimal.RequireFromString(balance)}
}

func (s *stubLedgerStore) addContract(id, clientID, contractorID string, status domain.ContractStatus) {
	s.state.contracts[id] = domain.Contract{ID: id, ClientID: clientID, ContractorID: contractorID, Status: status}
}

func (s *stubLedgerStore) addJob(id, contractID, price string, paid bool) {
	s.state.jobs[id] = domain.Job{ID: id, ContractID: contractID, Price: decimal.RequireFromString(price), Paid: paid}
}

func (s *stubLedgerStore) balance(id string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.profiles[id].Balance
}

func (s *stubLedgerStore) job(id string) domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.jobs[id]
}

func (s *stubLedgerStore) profile(id string) *domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.state.profiles[id]
	return &p
}

func (s *stubLedgerStore) read(fn func(st ledgerState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

func (s *stubLedgerStore) GetProfile(_ context.Context, id string) (p *domain.Profile, err error) {
	err = s.read(func(st ledgerState) error { p, err = stateProfile(st, id); return err })
	return p, err
}

func (s *stubLedgerStore) GetJob(_ context.Context, id string) (d *domain.JobDetail, err error) {
	err = s.read(func(st ledgerState) error { d, err = stateJob(st, id); return err })
	return d, err
}

func (s *stubLedgerStore) GetContract(_ context.Context, id string) (c *domain.Contract, err error) {
	err = s.read(func(st ledgerState) error {
		v, ok := st.contracts[id]
		if !ok {
			return domain.ErrContractNotFound
		}
		c = &v
		return nil
	})
	return c, err
}

func (s *stubLedgerStore) ListContracts(_ context.Context, f ports.ContractFilter) (out []*domain.Contract, err error) {
	err = s.read(func(st ledgerState) error {
		for _, c := range st.contracts {
			if matches(c, f) {
				clone := c
				out = append(out, &clone)
			}
		}
		return nil
	})
	return out, err
}

func (s *stubLedgerStore) ListUnpaidJobs(_ context.Context, f ports.ContractFilter) (out []*domain.Job, err error) {
	err = s.read(func(st ledgerState) error { out = stateUnpaid(st, f); return nil })
	return out, err
}

func (s *stubLedgerStore) SumUnpaidJobPrices(_ context.Context, f ports.ContractFilter) (sum decimal.Decimal, err error) {
	err = s.read(func(st ledgerState) error { sum, err = s.stateSum(st, f); return err })
	return sum, err
}

func (s *stubLedgerStore) Ping(context.Context) error { return nil }

func (s *stubLedgerStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCount++

	tx := &stubTx{store: s, state: s.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.failOn == "commit" {
		return errInjected
	}
	if s.commitErr != nil {
		return s.commitErr
	}
	s.state = tx.state
	return nil
}

type stubTx struct {
	store *stubLedgerStore
	state ledgerState
}

func (t *stubTx) GetProfile(_ context.Context, id string) (*domain.Profile, error) {
	return stateProfile(t.state, id)
}

func (t *stubTx) GetJob(_ context.Context, id string) (*domain.JobDetail, error) {
	return stateJob(t.state, id)
}

func (t *stubTx) GetContract(_ context.Context, id string) (*domain.Contract, error) {
	c, ok := t.state.contracts[id]
	if !ok {
		return nil, domain.ErrContractNotFound
	}
	return &c, nil
}

func (t *stubTx) ListContracts(_ context.Context, f ports.ContractFilter) ([]*domain.Contract, error) {
	var out []*domain.Contract
	for _, c := range t.state.contracts {
		if matches(c, f) {
			clone := c
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (t *stubTx) ListUnpaidJobs(_ context.Context, f ports.ContractFilter) ([]*domain.Job, error) {
	return stateUnpaid(t.state, f), nil
}

func (t *stubTx) SumUnpaidJobPrices(_ context.Context, f ports.ContractFilter) (decimal.Decimal, error) {
	return t.store.stateSum(t.state, f)
}

func (t *stubTx) DebitBalance(_ context.Context, id string, amount, floor decimal.Decimal) error {
	if t.store.failOn == "debit" {
		return errInjected
	}
	p, ok := t.state.profiles[id]
	if !ok {
		return domain.ErrProfileNotFound
	}
	if p.Balance.Sub(amount).LessThan(floor) {
		return domain.ErrBalanceConflict
	}
	p.Balance = p.Balance.Sub(amount)
	t.state.profiles[id] = p
	return nil
}

func (t *stubTx) CreditBalance(_ context.Context, id string, amount decimal.Decimal) error {
	if t.store.failOn == "credit" {
		return errInjected
	}
	p, ok := t.state.profiles[id]
	if !ok {
		return domain.ErrProfileNotFound
	}
	p.Balance = p.Balance.Add(amount)
	t.state.profiles[id] = p
	return nil
}

func (t *stubTx) MarkJobPaid(_ context.Context, id string, at time.Time) error {
	if t.store.failOn == "mark" {
		return errInjected
	}
	j, ok := t.state.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	if p := t.store.paidAtPrecision; p > 0 {
		at = at.Truncate(p)
	}
	if err := j.MarkPaid(at); err != nil {
		return err
	}
	t.state.jobs[id] = j
	return nil
}

func stateProfile(st ledgerState, id string) (*domain.Profile, error) {
	p, ok := st.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return &p, nil
}

func stateJob(st ledgerState, id string) (*domain.JobDetail, error) {
	j, ok := st.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	c := st.contracts[j.ContractID]
	return &domain.JobDetail{
		Job:        j,
		Contract:   c,
		Client:     st.profiles[c.ClientID],
		Contractor: st.profiles[c.ContractorID],
	}, nil
}

func stateUnpaid(st ledgerState, f ports.ContractFilter) []*domain.Job {
	var out []*domain.Job
	for _, j := range st.jobs {
		if j.Paid || !matches(st.contracts[j.ContractID], f) {
			continue
		}
		clone := j
		out = append(out, &clone)
	}
	return out
}

func (s *stubLedgerStore) stateSum(st ledgerState, f ports.ContractFilter) (decimal.Decimal, error) {
	s.lastSumBy = f
	if s.sumErr != nil {
		return decimal.Zero, s.sumErr
	}
	sum := decimal.Zero
	for _, j := range stateUnpaid(st, f) {
		sum = sum.Add(j.Price)
	}
	return sum, nil
}

func matches(c domain.Contract, f ports.ContractFilter) bool {
	if f.ClientID != "" && c.ClientID != f.ClientID {
		return false
	}
	if f.ContractorID != "" && c.ContractorID != f.ContractorID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, st := range f.Statuses {
		if c.Status == st {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Stub replay cache and locker
// ---------------------------------------------------------------------------

type stubReplayCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	loadErr error
}

func newStubReplayCache() *stubReplayCache {
	return &stubReplayCache{entries: make(map[string][]byte)}
}

func (c *stubReplayCache) Load(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadErr != nil {
		return nil, false, c.loadErr
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *stubReplayCache) Save(_ context.Context, key string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = payload
	return nil
}

type stubLocker struct {
	mu       sync.Mutex
	keys     []string
	acquireE error
}

func (l *stubLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	l.keys = append(l.keys, key)
	err := l.acquireE
	l.mu.Unlock()
	if err != nil {
		return err
	}
	return fn(ctx)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

var fixedNow = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

func newBalanceSvc(store *stubLedgerStore, opts ...BalanceOption) *BalanceService {
	exec := NewTransferExecutor(store, time.Second, discardLogger)
	opts = append([]BalanceOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewBalanceService(store, exec, NewExposureCalculator(ExposureAllContracts), discardLogger, opts...)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
