package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strategy-lab/internal/dto"
	"strategy-lab/internal/model"
	"strategy-lab/internal/repository"
	"strategy-lab/pkg/utils"
	"sync"
	"time"
)

type fakeStrategyRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]model.Strategy
	err    error
}

func newFakeStrategyRepo() *fakeStrategyRepo {
	return &fakeStrategyRepo{rows: map[uint]model.Strategy{}}
}

func (r *fakeStrategyRepo) Create(_ context.Context, s *model.Strategy, _ ...utils.DBOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.nextID++
	s.ID = r.nextID
	s.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.ID) * time.Minute)
	r.rows[s.ID] = *s
	return nil
}

func (r *fakeStrategyRepo) FindByID(_ context.Context, id uint, _ ...utils.DBOption) (*model.Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	s, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *fakeStrategyRepo) List(_ context.Context, _ ...utils.DBOption) ([]model.Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Strategy, 0, len(r.rows))
	for _, s := range r.rows {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, r.err
}

func (r *fakeStrategyRepo) Count(_ context.Context, _ ...utils.DBOption) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), r.err
}

func (r *fakeStrategyRepo) Delete(_ context.Context, id uint, _ ...utils.DBOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

type fakeBacktestRepo struct {
	mu          sync.Mutex
	nextID      uint
	rows        map[uint]model.Backtest
	staleCutoff time.Time
	staleReason string
	staleCount  int64
}

func newFakeBacktestRepo() *fakeBacktestRepo {
	return &fakeBacktestRepo{rows: map[uint]model.Backtest{}}
}

func (r *fakeBacktestRepo) Create(_ context.Context, b *model.Backtest, _ ...utils.DBOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	b.ID = r.nextID
	b.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(b.ID) * time.Minute)
	r.rows[b.ID] = *b
	return nil
}

func (r *fakeBacktestRepo) FindByID(_ context.Context, id uint, _ ...utils.DBOption) (*model.Backtest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (r *fakeBacktestRepo) Get(_ context.Context, param model.GetBacktestsParam, _ ...utils.DBOption) ([]model.Backtest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Backtest
	for _, b := range r.rows {
		if param.StrategyID != nil && b.StrategyID != *param.StrategyID {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// settle rejects a done context the way gorm does.
func (r *fakeBacktestRepo) settle(ctx context.Context, id uint, fn func(b *model.Backtest)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.rows[id]
	if !ok || b.Status != model.BacktestStatusRunning {
		return repository.ErrNotFound
	}
	fn(&b)
	r.rows[id] = b
	return nil
}

func (r *fakeBacktestRepo) Complete(ctx context.Context, id uint, result repository.BacktestResult, _ ...utils.DBOption) error {
	return r.settle(ctx, id, func(b *model.Backtest) {
		b.Status = model.BacktestStatusComplete
		b.Metrics = result.Metrics
		b.EquityCurve = result.EquityCurve
		b.Trades = result.Trades
		b.Liquidation = result.Liquidation
		b.CompletedAt = &result.CompletedAt
	})
}

func (r *fakeBacktestRepo) Fail(ctx context.Context, id uint, reason string, _ ...utils.DBOption) error {
	return r.settle(ctx, id, func(b *model.Backtest) {
		b.Status = model.BacktestStatusError
		b.Error = &reason
	})
}

func (r *fakeBacktestRepo) FailStale(_ context.Context, startedBefore time.Time, reason string, _ ...utils.DBOption) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staleCutoff = startedBefore
	r.staleReason = reason
	return r.staleCount, nil
}

func (r *fakeBacktestRepo) DeleteByStrategyID(_ context.Context, strategyID uint, _ ...utils.DBOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, b := range r.rows {
		if b.StrategyID == strategyID {
			delete(r.rows, id)
		}
	}
	return nil
}

func (r *fakeBacktestRepo) snapshot(id uint) model.Backtest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id]
}

type fakeUnitOfWork struct {
	runs int
}

func (u *fakeUnitOfWork) Run(_ context.Context, fn func(opts ...utils.DBOption) error) error {
	u.runs++
	return fn()
}

type fakeTranslator struct {
	name  string
	doc   string
	err   error
	calls int
}

func (f *fakeTranslator) Name() string { return f.name }

func (f *fakeTranslator) TranslateStrategy(_ context.Context, _ string) (json.RawMessage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.doc), nil
}

type fakeProvider struct {
	mu      sync.Mutex
	name    string
	data    *dto.MarketData
	err     error
	calls   int
	enabled bool
	block   bool
}

func (p *fakeProvider) Name() string  { return p.name }
func (p *fakeProvider) Enabled() bool { return p.enabled }

// Get blocks until ctx is done when block is set.
func (p *fakeProvider) Get(ctx context.Context, _ dto.GetMarketDataParam) (*dto.MarketData, error) {
	p.mu.Lock()
	p.calls++
	block := p.block
	p.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return p.data, nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeCandleRepo struct {
	providers []repository.MarketDataProvider
}

func (c fakeCandleRepo) Providers(string) []repository.MarketDataProvider {
	return c.providers
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return nil
}

func (n *fakeNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

var errUpstream = errors.New("upstream down")

func dailySeries(closes []float64) []dto.OHLCV {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]dto.OHLCV, len(closes))
	for i, c := range closes {
		out[i] = dto.OHLCV{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return out
}
