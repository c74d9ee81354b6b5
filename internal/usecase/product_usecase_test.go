package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type productFixture struct {
	uc       *ProductUseCase
	products *fakeProductRepo
	outbox   *fakeOutbox
	cache    *fakeCache
	images   *fakeImages
	keywords *fakeKeywords
	tx       *fakeTx
}

func newProductFixture() *productFixture {
	f := &productFixture{
		products: newFakeProductRepo(),
		outbox:   &fakeOutbox{},
		cache:    newFakeCache(),
		images:   &fakeImages{},
		keywords: &fakeKeywords{},
		tx:       &fakeTx{},
	}
	categories := &fakeCategoryRepo{names: map[int64]string{1: "Electronics", 2: "Books"}}
	f.uc = NewProductUC(f.products, categories, f.keywords, f.outbox, f.cache, f.images, f.tx, logger.NewNopLogger())
	return f
}

func TestProductUseCase_CreateProduct(t *testing.T) {
	f := newProductFixture()

	product, err := f.uc.CreateProduct(context.Background(), &CreateProductReq{
		OwnerID:    7,
		CategoryID: 1,
		Title:      "  Camera ",
		Price:      12550,
		Images:     []ProductImage{*NewProductImage([]byte{1}, "image/png", 1, "a.png")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Camera", product.Title)
	assert.Equal(t, domain.DefaultImageURL, product.ImageURL)
	assert.Equal(t, []string{"products/7/0.png"}, product.ImageKeys)
	assert.Equal(t, 1, f.tx.calls)

	require.Len(t, f.outbox.events, 1)
	ev := f.outbox.events[0]
	assert.Equal(t, ProductCreated, ev.EventType)
	assert.Equal(t, product.ID, ev.AggregateID)
	assert.Equal(t, Pending, ev.Status)
	assert.JSONEq(t, `{"product_id":1,"owner_id":7,"category_id":1,"title":"Camera","price_cents":12550}`, string(ev.Payload))
}

func TestProductUseCase_CreateProductValidation(t *testing.T) {
	tests := []struct {
		name string
		req  CreateProductReq
		want error
	}{
		{"empty title", CreateProductReq{CategoryID: 1, Title: " ", Price: 100}, e.ErrProductNameRequired},
		{"zero price", CreateProductReq{CategoryID: 1, Title: "x"}, e.ErrPriceMustBePositive},
		{"unknown category", CreateProductReq{CategoryID: 9, Title: "x", Price: 100}, e.ErrCategoryNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProductFixture()
			_, err := f.uc.CreateProduct(context.Background(), &tt.req)
			require.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.outbox.events)
		})
	}
}

func TestProductUseCase_CreateProductCleansUpImagesOnFailure(t *testing.T) {
	f := newProductFixture()
	f.products.createErr = errBoom

	_, err := f.uc.CreateProduct(context.Background(), &CreateProductReq{
		OwnerID:    3,
		CategoryID: 2,
		Title:      "Book",
		Price:      500,
		Images:     []ProductImage{{Data: []byte{1}}, {Data: []byte{2}}},
	})
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, f.images.keys, f.images.cleaned)
	assert.Len(t, f.images.cleaned, 2)
}

func TestProductUseCase_UpdateAndDeleteRequireOwner(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	product, err := f.uc.CreateProduct(ctx, &CreateProductReq{OwnerID: 1, CategoryID: 1, Title: "Phone", Price: 1000})
	require.NoError(t, err)

	price := int64(900)
	_, err = f.uc.UpdateProduct(ctx, &UpdateProductReq{ProductID: product.ID, UserID: 2, Price: &price})
	require.ErrorIs(t, err, e.ErrForbidden)

	require.ErrorIs(t, f.uc.DeleteProduct(ctx, product.ID, 2), e.ErrForbidden)

	updated, err := f.uc.UpdateProduct(ctx, &UpdateProductReq{ProductID: product.ID, UserID: 1, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, int64(900), updated.Price)
	assert.Equal(t, []int64{product.ID}, f.cache.deleted)

	zero := int64(0)
	_, err = f.uc.UpdateProduct(ctx, &UpdateProductReq{ProductID: product.ID, UserID: 1, Price: &zero})
	require.ErrorIs(t, err, e.ErrPriceMustBePositive)

	require.NoError(t, f.uc.DeleteProduct(ctx, product.ID, 1))
	_, err = f.uc.GetProduct(ctx, product.ID)
	require.ErrorIs(t, err, e.ErrProductNotFound)

	types := make([]OutboxEventType, 0, len(f.outbox.events))
	for _, ev := range f.outbox.events {
		types = append(types, ev.EventType)
	}
	assert.Equal(t, []OutboxEventType{ProductCreated, ProductUpdated, ProductDeleted}, types)
}

func TestProductUseCase_ListProducts(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	userID := int64(5)

	_, err := f.uc.ListProducts(ctx, domain.ProductFilter{Page: 0, PerPage: 20}, nil)
	require.ErrorIs(t, err, e.ErrInvalidPagination)
	_, err = f.uc.ListProducts(ctx, domain.ProductFilter{Page: 1, PerPage: 101}, nil)
	require.ErrorIs(t, err, e.ErrInvalidPagination)

	page, err := f.uc.ListProducts(ctx, domain.ProductFilter{Page: 2, PerPage: 10, Keyword: " lamp "}, &userID)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	require.Len(t, f.keywords.recorded, 1)
	assert.Equal(t, "lamp", f.keywords.recorded[0].Keyword)
	assert.Equal(t, &userID, f.keywords.recorded[0].UserID)

	_, err = f.uc.ListProducts(ctx, domain.ProductFilter{Page: 1, PerPage: 10}, nil)
	require.NoError(t, err)
	assert.Len(t, f.keywords.recorded, 1)
}

func TestProductUseCase_GetProductsInfoMergesCacheAndDB(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	for _, title := range []string{"a", "b"} {
		_, err := f.uc.CreateProduct(ctx, &CreateProductReq{OwnerID: 1, CategoryID: 1, Title: title, Price: 100})
		require.NoError(t, err)
	}
	f.cache.items[2] = ProductInfo{ID: 2, Title: "cached b"}

	res, err := f.uc.GetProductsInfo(ctx, NewGetProductsReq([]int64{2, 1, 99}))
	require.NoError(t, err)

	require.Len(t, res.Products, 2)
	assert.Equal(t, "cached b", res.Products[0].Title)
	assert.Equal(t, "a", res.Products[1].Title)
	assert.Equal(t, []int64{99}, res.NotFoundProducts)
	assert.Equal(t, [][]int64{{1, 99}}, f.products.infoCalls)

	select {
	case <-f.cache.setDone:
	case <-time.After(time.Second):
		t.Fatal("products were not cached in background")
	}

	_, err = f.uc.GetProductsInfo(ctx, NewGetProductsReq(nil))
	require.ErrorIs(t, err, e.ErrNoProducts)
}

func TestProductUseCase_GetProductsInfoSkipsWarmupForCanceledRequest(t *testing.T) {
	f := newProductFixture()
	_, err := f.uc.CreateProduct(context.Background(), &CreateProductReq{OwnerID: 1, CategoryID: 1, Title: "a", Price: 100})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.uc.GetProductsInfo(ctx, NewGetProductsReq([]int64{1}))
	require.NoError(t, err)
	require.Len(t, res.Products, 1)

	select {
	case <-f.cache.setDone:
		t.Fatal("canceled request must not warm the cache")
	case <-time.After(100 * time.Millisecond):
	}

	f.cache.mu.Lock()
	defer f.cache.mu.Unlock()
	assert.Empty(t, f.cache.items)
}

func TestProductUseCase_GetProductsInfoFallsBackWhenCacheDown(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	_, err := f.uc.CreateProduct(ctx, &CreateProductReq{OwnerID: 1, CategoryID: 1, Title: "a", Price: 100})
	require.NoError(t, err)
	f.cache.getErr = errBoom

	res, err := f.uc.GetProductsInfo(ctx, NewGetProductsReq([]int64{1}))
	require.NoError(t, err)
	require.Len(t, res.Products, 1)
	assert.Equal(t, "a", res.Products[0].Title)
}
