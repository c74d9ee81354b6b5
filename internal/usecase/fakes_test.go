package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/pkg/e"
)

type fakeTx struct {
	calls int
}

func (f *fakeTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakeTokens struct{}

func (fakeTokens) IssueToken(userID int64) (string, time.Time, error) {
	return fmt.Sprintf("token-%d", userID), time.Unix(0, 0), nil
}

func (fakeTokens) ParseToken(raw string) (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(raw, "token-%d", &id); err != nil {
		return 0, e.ErrUnauthorized
	}
	return id, nil
}

func (fakeTokens) HashPassword(password string) (string, error) { return "hash:" + password, nil }

func (fakeTokens) ComparePassword(hash, password string) error {
	if hash != "hash:"+password {
		return e.ErrInvalidCredentials
	}
	return nil
}

type fakeUserRepo struct {
	users  map[int64]*domain.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*domain.User{}}
}

func (f *fakeUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	f.nextID++
	cp := *u
	cp.ID = f.nextID
	f.users[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, e.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, e.ErrUserNotFound
}

func (f *fakeUserRepo) Update(_ context.Context, u *domain.User) (*domain.User, error) {
	cp := *u
	f.users[u.ID] = &cp
	return &cp, nil
}

type fakeCategoryRepo struct {
	names map[int64]string
}

func (f *fakeCategoryRepo) List(context.Context) ([]domain.Category, error) {
	out := make([]domain.Category, 0, len(f.names))
	for id, name := range f.names {
		out = append(out, domain.Category{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeCategoryRepo) CreateIfNotExists(_ context.Context, name string) (bool, error) {
	for _, n := range f.names {
		if n == name {
			return false, nil
		}
	}
	f.names[int64(len(f.names)+1)] = name
	return true, nil
}

func (f *fakeCategoryRepo) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := f.names[id]
	return ok, nil
}

type fakeProductRepo struct {
	products  map[int64]*domain.Product
	nextID    int64
	createErr error
	infoCalls [][]int64
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: map[int64]*domain.Product{}}
}

func (f *fakeProductRepo) Create(_ context.Context, p *domain.Product) (*domain.Product, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	cp := *p
	cp.ID = f.nextID
	f.products[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeProductRepo) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, e.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProductRepo) Update(_ context.Context, p *domain.Product) (*domain.Product, error) {
	if _, ok := f.products[p.ID]; !ok {
		return nil, e.ErrProductNotFound
	}
	cp := *p
	f.products[p.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeProductRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.products[id]; !ok {
		return e.ErrProductNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeProductRepo) List(_ context.Context, filter domain.ProductFilter) (*domain.ProductPage, error) {
	return &domain.ProductPage{Page: filter.Page, PerPage: filter.PerPage}, nil
}

func (f *fakeProductRepo) GetProductsInfo(_ context.Context, ids []int64) ([]ProductInfo, error) {
	f.infoCalls = append(f.infoCalls, ids)
	var out []ProductInfo
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, NewProductInfo(p))
		}
	}
	return out, nil
}

func (f *fakeProductRepo) AttachImages(_ context.Context, productID int64, keys []string) error {
	p, ok := f.products[productID]
	if !ok {
		return e.ErrProductNotFound
	}
	p.ImageKeys = append(p.ImageKeys, keys...)
	return nil
}

type fakeOutbox struct {
	events []*OutboxEvent
}

func (f *fakeOutbox) Create(_ context.Context, ev *OutboxEvent) (*OutboxEvent, error) {
	ev.ID = int64(len(f.events) + 1)
	f.events = append(f.events, ev)
	return ev, nil
}

func (f *fakeOutbox) GetAndMarkAsProcessing(context.Context, int) ([]*OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkAsProcessed(context.Context, int64) error { return nil }

type fakeCache struct {
	mu      sync.Mutex
	items   map[int64]ProductInfo
	getErr  error
	deleted []int64
	setDone chan struct{}
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[int64]ProductInfo{}, setDone: make(chan struct{}, 8)}
}

func (f *fakeCache) GetProducts(_ context.Context, ids []int64) (map[int64]ProductInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := map[int64]ProductInfo{}
	for _, id := range ids {
		if p, ok := f.items[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeCache) SetProducts(_ context.Context, products []ProductInfo) error {
	f.mu.Lock()
	for _, p := range products {
		f.items[p.ID] = p
	}
	f.mu.Unlock()
	f.setDone <- struct{}{}
	return nil
}

func (f *fakeCache) DeleteProducts(_ context.Context, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ids...)
	for _, id := range ids {
		delete(f.items, id)
	}
	return nil
}

type fakeImages struct {
	keys    []string
	cleaned []string
}

func (f *fakeImages) UploadImages(_ context.Context, req *UploadImagesReq) (*UploadImagesRes, error) {
	keys := make([]string, 0, len(req.Images))
	for i := range req.Images {
		keys = append(keys, fmt.Sprintf("%s/%d.png", req.Prefix, i))
	}
	f.keys = append(f.keys, keys...)
	return NewUploadImagesRes(keys), nil
}

func (f *fakeImages) CleanupImages(keys []string) {
	f.cleaned = append(f.cleaned, keys...)
}

type fakeKeywords struct {
	recorded []domain.SearchKeyword
}

func (f *fakeKeywords) Create(_ context.Context, kw *domain.SearchKeyword) error {
	f.recorded = append(f.recorded, *kw)
	return nil
}

type fakeCartRepo struct {
	items    map[int64]*domain.CartItem
	products *fakeProductRepo
	nextID   int64
}

func newFakeCartRepo(products *fakeProductRepo) *fakeCartRepo {
	return &fakeCartRepo{items: map[int64]*domain.CartItem{}, products: products}
}

func (f *fakeCartRepo) List(_ context.Context, userID int64) ([]domain.CartItem, error) {
	var out []domain.CartItem
	for id := int64(1); id <= f.nextID; id++ {
		it, ok := f.items[id]
		if !ok || it.UserID != userID {
			continue
		}
		cp := *it
		if p, ok := f.products.products[it.ProductID]; ok {
			pc := *p
			cp.Product = &pc
		}
		out = append(out, cp)
	}
	return out, nil
}

func (f *fakeCartRepo) AddOrIncrement(_ context.Context, item *domain.CartItem) (*domain.CartItem, error) {
	for _, it := range f.items {
		if it.UserID == item.UserID && it.ProductID == item.ProductID {
			if it.Quantity+item.Quantity > domain.MaxCartQuantity {
				return nil, e.ErrInvalidQuantity
			}
			it.Quantity += item.Quantity
			cp := *it
			return &cp, nil
		}
	}
	f.nextID++
	cp := *item
	cp.ID = f.nextID
	f.items[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeCartRepo) GetByID(_ context.Context, id int64) (*domain.CartItem, error) {
	it, ok := f.items[id]
	if !ok {
		return nil, e.ErrCartItemNotFound
	}
	cp := *it
	return &cp, nil
}

func (f *fakeCartRepo) Delete(_ context.Context, id int64) error {
	delete(f.items, id)
	return nil
}

func (f *fakeCartRepo) Clear(_ context.Context, userID int64) error {
	for id, it := range f.items {
		if it.UserID == userID {
			delete(f.items, id)
		}
	}
	return nil
}

type fakeOrderRepo struct {
	orders []domain.Order
}

func (f *fakeOrderRepo) Create(_ context.Context, o *domain.Order) (*domain.Order, error) {
	cp := *o
	cp.ID = int64(len(f.orders) + 1)
	for i := range cp.Items {
		cp.Items[i].OrderID = cp.ID
	}
	f.orders = append(f.orders, cp)
	return &cp, nil
}

func (f *fakeOrderRepo) ListByUser(_ context.Context, userID int64) ([]domain.Order, error) {
	var out []domain.Order
	for i := len(f.orders) - 1; i >= 0; i-- {
		if f.orders[i].UserID == userID {
			out = append(out, f.orders[i])
		}
	}
	return out, nil
}

type fakeSearcher struct {
	ids    []int64
	err    error
	loaded bool
	gotK   int
}

func (f *fakeSearcher) FindSimilar(_ context.Context, _ []byte, topK int) ([]int64, error) {
	f.gotK = topK
	return f.ids, f.err
}

func (f *fakeSearcher) Loaded() bool { return f.loaded }

type stubProductUC struct {
	ProductUC
	res *GetProductsRes
	err error
}

func (s *stubProductUC) GetProductsInfo(context.Context, *GetProductsReq) (*GetProductsRes, error) {
	return s.res, s.err
}

var errBoom = errors.New("boom")
