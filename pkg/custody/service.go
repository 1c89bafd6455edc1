// Package custody holds donations addressed to RSA public keys and releases
// each key's pool to whoever proves control of the private key.
//
// A Service owns every table: the key registry, per-donor donation rows,
// per-key pools, claim nonces and last-claim timestamps. Operations on the
// same key are serialised; operations on different keys run in parallel.
package custody

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/coventry/RSADonations/pkg/events"
	"github.com/coventry/RSADonations/pkg/logger"
	"github.com/coventry/RSADonations/pkg/storage"
)

// Bank moves value out of custody. It is only called after the service has
// committed its own bookkeeping, and must not call back into the service
// for the same key.
type Bank interface {
	Transfer(ctx context.Context, to common.Address, amount *big.Int) error
}

// Service is the custody state machine
type Service struct {
	st      *state
	bank    Bank
	emitter events.Emitter
	log     *logger.Logger
	metrics *Metrics
	nowFn   func() int64
	locks   keyLocks
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the unix-seconds time source. Nil restores the wall clock.
func WithClock(now func() int64) Option {
	return func(s *Service) {
		if now == nil {
			now = func() int64 { return time.Now().Unix() }
		}
		s.nowFn = now
	}
}

// WithBank sets the payout backend. Nil keeps the default in-memory bank.
func WithBank(bank Bank) Option {
	return func(s *Service) {
		if bank != nil {
			s.bank = bank
		}
	}
}

// WithEmitter sets the event sink. Nil discards events.
func WithEmitter(emitter events.Emitter) Option {
	return func(s *Service) {
		if emitter == nil {
			emitter = events.NoopEmitter{}
		}
		s.emitter = emitter
	}
}

// WithLogger sets the logger. Nil silences logging.
func WithLogger(log *logger.Logger) Option {
	return func(s *Service) {
		if log == nil {
			log = logger.Nop()
		}
		s.log = log.With().Str("component", "custody").Logger()
	}
}

// WithMetrics attaches prometheus collectors
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a service over db
func NewService(db storage.Database, opts ...Option) (*Service, error) {
	if db == nil {
		return nil, errNilDatabase
	}

	s := &Service{
		st:      &state{db: db},
		bank:    NewMemoryBank(),
		emitter: events.NoopEmitter{},
		log:     logger.Nop(),
		nowFn:   func() int64 { return time.Now().Unix() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics != nil {
		open, err := s.st.openPools()
		if err != nil {
			return nil, fmt.Errorf("custody: count open pools: %w", err)
		}
		s.metrics.seedOpenPools(open)
	}
	return s, nil
}

// Bank returns the payout backend in use
func (s *Service) Bank() Bank {
	return s.bank
}

func (s *Service) now() int64 {
	return s.nowFn()
}

func (s *Service) emit(ev events.Event) {
	s.emitter.Emit(ev)
}

// keyLocks hands out one mutex per key hash, dropping entries nobody holds.
type keyLocks struct {
	mu    sync.Mutex
	locks map[common.Hash]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyLocks) lock(keyHash common.Hash) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[common.Hash]*keyLock)
	}
	entry, ok := k.locks[keyHash]
	if !ok {
		entry = &keyLock{}
		k.locks[keyHash] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, keyHash)
		}
		k.mu.Unlock()
	}
}

// MemoryBank is a Bank that credits in-memory balances. It backs the
// default service and the example program.
type MemoryBank struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
}

// NewMemoryBank returns a bank with no balances
func NewMemoryBank() *MemoryBank {
	return &MemoryBank{balances: make(map[common.Address]*big.Int)}
}

// Transfer credits amount to the recipient
func (b *MemoryBank) Transfer(ctx context.Context, to common.Address, amount *big.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	current, ok := b.balances[to]
	if !ok {
		current = new(big.Int)
		b.balances[to] = current
	}
	current.Add(current, amount)
	return nil
}

// Balance returns everything paid to addr so far
func (b *MemoryBank) Balance(addr common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneBigInt(b.balances[addr])
}
