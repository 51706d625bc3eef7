package service

import (
	"context"
	"sync"
	"time"

	"markettrack-api/internal/model"
	"markettrack-api/internal/repository"
	"markettrack-api/internal/source"
)

// fakeStore is an in-memory repository.Store for service tests. Change
// slices are kept in append order, which the tests keep chronological.
type fakeStore struct {
	mu sync.Mutex

	products       map[string]*model.Product
	productChanges map[string][]model.ProductChange
	markets        []*model.Market
	members        map[int64][]string
	marketChanges  map[int64][]model.MarketChange
	clusters       map[int64]*model.MarketCluster
	clusterMarkets map[int64][]int64
	watches        map[int64][]string
	runs           []model.UpdateRun

	nextMarketID  int64
	nextClusterID int64
	nextChangeID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:       make(map[string]*model.Product),
		productChanges: make(map[string][]model.ProductChange),
		members:        make(map[int64][]string),
		marketChanges:  make(map[int64][]model.MarketChange),
		clusters:       make(map[int64]*model.MarketCluster),
		clusterMarkets: make(map[int64][]int64),
		watches:        make(map[int64][]string),
	}
}

var _ repository.Store = (*fakeStore)(nil)

func (f *fakeStore) EnsureProduct(ctx context.Context, asin string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureProductLocked(asin)
	return nil
}

func (f *fakeStore) ensureProductLocked(asin string) *model.Product {
	p, ok := f.products[asin]
	if !ok {
		p = &model.Product{ASIN: asin, CreatedAt: time.Now().UTC()}
		f.products[asin] = p
	}
	return p
}

func (f *fakeStore) GetProduct(ctx context.Context, asin string) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[asin]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ListProductASINs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.products))
	for asin := range f.products {
		out = append(out, asin)
	}
	return out, nil
}

func (f *fakeStore) TouchLastScraped(ctx context.Context, asin string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.ensureProductLocked(asin)
	p.LastScrapedAt = &at
	return nil
}

func (f *fakeStore) AppendProductChange(ctx context.Context, change *model.ProductChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextChangeID++
	change.ID = f.nextChangeID
	f.productChanges[change.ASIN] = append(f.productChanges[change.ASIN], *change)
	return nil
}

func (f *fakeStore) LatestProductChange(ctx context.Context, asin string) (*model.ProductChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	changes := f.productChanges[asin]
	if len(changes) == 0 {
		return nil, repository.ErrNotFound
	}
	cp := changes[len(changes)-1]
	return &cp, nil
}

func (f *fakeStore) LatestProductChangeBefore(ctx context.Context, asin string, before time.Time) (*model.ProductChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	changes := f.productChanges[asin]
	for i := len(changes) - 1; i >= 0; i-- {
		if changes[i].CapturedAt.Before(before) {
			cp := changes[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) ListProductChanges(ctx context.Context, asin string) ([]model.ProductChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ProductChange, len(f.productChanges[asin]))
	copy(out, f.productChanges[asin])
	return out, nil
}

func (f *fakeStore) ListProductChangeSummaries(ctx context.Context) ([]repository.SummaryRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.SummaryRow
	for _, changes := range f.productChanges {
		for _, c := range changes {
			out = append(out, repository.SummaryRow{ID: c.ID, Summary: c.ChangeSummary})
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateProductChangeSummary(ctx context.Context, id int64, summary string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for asin, changes := range f.productChanges {
		for i := range changes {
			if changes[i].ID == id {
				f.productChanges[asin][i].ChangeSummary = summary
				return nil
			}
		}
	}
	return repository.ErrNotFound
}

func (f *fakeStore) CreateMarket(ctx context.Context, keyword string) (*model.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.markets {
		if m.Keyword == keyword {
			return nil, repository.ErrDuplicate
		}
	}
	f.nextMarketID++
	m := &model.Market{ID: f.nextMarketID, Keyword: keyword, CreatedAt: time.Now().UTC()}
	f.markets = append(f.markets, m)
	cp := *m
	return &cp, nil
}

func (f *fakeStore) GetMarket(ctx context.Context, id int64) (*model.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.markets {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) GetMarketByKeyword(ctx context.Context, keyword string) (*model.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.markets {
		if m.Keyword == keyword {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) ListMarkets(ctx context.Context) ([]model.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Market, 0, len(f.markets))
	for _, m := range f.markets {
		out = append(out, *m)
	}
	return out, nil
}

func (f *fakeStore) ListMemberASINs(ctx context.Context, marketID int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.members[marketID]))
	copy(out, f.members[marketID])
	return out, nil
}

func (f *fakeStore) CountScrapedMembers(ctx context.Context, marketID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, asin := range f.members[marketID] {
		if p, ok := f.products[asin]; ok && p.LastScrapedAt != nil {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) LatestMarketChange(ctx context.Context, marketID int64) (*model.MarketChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	changes := f.marketChanges[marketID]
	if len(changes) == 0 {
		return nil, repository.ErrNotFound
	}
	cp := changes[len(changes)-1]
	return &cp, nil
}

func (f *fakeStore) ListMarketChanges(ctx context.Context, marketID int64) ([]model.MarketChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.MarketChange, len(f.marketChanges[marketID]))
	copy(out, f.marketChanges[marketID])
	return out, nil
}

func (f *fakeStore) ApplyMarketUpdate(ctx context.Context, marketID int64, change *model.MarketChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextChangeID++
	change.ID = f.nextChangeID
	f.marketChanges[marketID] = append(f.marketChanges[marketID], *change)

	for _, asin := range change.AddedASINs {
		f.ensureProductLocked(asin)
		f.members[marketID] = append(f.members[marketID], asin)
	}
	if len(change.RemovedASINs) > 0 {
		removed := make(map[string]struct{}, len(change.RemovedASINs))
		for _, asin := range change.RemovedASINs {
			removed[asin] = struct{}{}
		}
		kept := f.members[marketID][:0]
		for _, asin := range f.members[marketID] {
			if _, ok := removed[asin]; !ok {
				kept = append(kept, asin)
			}
		}
		f.members[marketID] = kept
	}
	return nil
}

func (f *fakeStore) ListMarketChangeSummaries(ctx context.Context) ([]repository.SummaryRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.SummaryRow
	for _, changes := range f.marketChanges {
		for _, c := range changes {
			out = append(out, repository.SummaryRow{ID: c.ID, Summary: c.ChangeSummary})
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateMarketChangeSummary(ctx context.Context, id int64, summary string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for marketID, changes := range f.marketChanges {
		for i := range changes {
			if changes[i].ID == id {
				f.marketChanges[marketID][i].ChangeSummary = summary
				return nil
			}
		}
	}
	return repository.ErrNotFound
}

func (f *fakeStore) CreateCluster(ctx context.Context, userID int64, name string) (*model.MarketCluster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextClusterID++
	c := &model.MarketCluster{ID: f.nextClusterID, UserID: userID, Name: name, CreatedAt: time.Now().UTC()}
	f.clusters[c.ID] = c
	cp := *c
	return &cp, nil
}

func (f *fakeStore) GetCluster(ctx context.Context, id int64) (*model.MarketCluster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clusters[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) ListClustersByUser(ctx context.Context, userID int64) ([]model.MarketCluster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.MarketCluster
	for _, c := range f.clusters {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAllClusters(ctx context.Context) ([]model.MarketCluster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.MarketCluster
	for _, c := range f.clusters {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeStore) AttachMarket(ctx context.Context, clusterID, marketID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.clusterMarkets[clusterID] {
		if id == marketID {
			return repository.ErrDuplicate
		}
	}
	f.clusterMarkets[clusterID] = append(f.clusterMarkets[clusterID], marketID)
	return nil
}

func (f *fakeStore) ListClusterMarketIDs(ctx context.Context, clusterID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.clusterMarkets[clusterID]))
	copy(out, f.clusterMarkets[clusterID])
	return out, nil
}

func (f *fakeStore) ListClusterASINs(ctx context.Context, clusterID int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, marketID := range f.clusterMarkets[clusterID] {
		for _, asin := range f.members[marketID] {
			if _, ok := seen[asin]; ok {
				continue
			}
			seen[asin] = struct{}{}
			out = append(out, asin)
		}
	}
	return out, nil
}

func (f *fakeStore) SetClusterRevenue(ctx context.Context, clusterID int64, total float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clusters[clusterID]
	if !ok {
		return repository.ErrNotFound
	}
	c.TotalRevenue = total
	return nil
}

func (f *fakeStore) AddWatch(ctx context.Context, userID int64, asin string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.watches[userID] {
		if a == asin {
			return repository.ErrDuplicate
		}
	}
	f.watches[userID] = append(f.watches[userID], asin)
	return nil
}

func (f *fakeStore) RemoveWatch(ctx context.Context, userID int64, asin string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, a := range f.watches[userID] {
		if a == asin {
			f.watches[userID] = append(f.watches[userID][:i], f.watches[userID][i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeStore) ListWatchedASINs(ctx context.Context, userID int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.watches[userID]))
	copy(out, f.watches[userID])
	return out, nil
}

func (f *fakeStore) InsertRun(ctx context.Context, run *model.UpdateRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run.ID = int64(len(f.runs) + 1)
	f.runs = append(f.runs, *run)
	return nil
}

func (f *fakeStore) ListRuns(ctx context.Context, limit, offset int) ([]model.UpdateRun, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := int64(len(f.runs))
	var out []model.UpdateRun
	for i := len(f.runs) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.runs[i])
	}
	return out, total, nil
}

func (f *fakeStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return map[string]interface{}{
		"products": len(f.products),
		"markets":  len(f.markets),
	}, nil
}

func (f *fakeStore) Close() error { return nil }

// fakeSource serves canned snapshots; unknown keys are unavailable.
type fakeSource struct {
	marketSnaps  map[string]*model.MarketSnapshot
	productSnaps map[string]*model.ProductSnapshot
}

var _ source.Source = (*fakeSource)(nil)

func newFakeSource() *fakeSource {
	return &fakeSource{
		marketSnaps:  make(map[string]*model.MarketSnapshot),
		productSnaps: make(map[string]*model.ProductSnapshot),
	}
}

func (f *fakeSource) MarketSnapshot(ctx context.Context, keyword string) (*model.MarketSnapshot, error) {
	snap, ok := f.marketSnaps[keyword]
	if !ok {
		return nil, source.ErrUnavailable
	}
	return snap, nil
}

func (f *fakeSource) ProductSnapshot(ctx context.Context, asin string) (*model.ProductSnapshot, error) {
	snap, ok := f.productSnaps[asin]
	if !ok {
		return nil, source.ErrUnavailable
	}
	return snap, nil
}

func ptrFloat(v float64) *float64 { return &v }
func ptrInt(v int64) *int64       { return &v }
