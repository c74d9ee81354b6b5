package usecase

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
)

const (
	maxPerPage     = 100
	cacheWarmupTTL = 500 * time.Millisecond
)

// ProductUseCase реализует бизнес-логику каталога товаров.
type ProductUseCase struct {
	productRepo  ProductRepository
	categoryRepo CategoryRepository
	keywordRepo  SearchKeywordRepository
	outboxRepo   OutboxRepository
	cacheRepo    CacheRepository
	imagesInfra  ImagesInfra
	tx           Transactor
	logger       logger.Logger
}

func NewProductUC(
	productRepo ProductRepository,
	categoryRepo CategoryRepository,
	keywordRepo SearchKeywordRepository,
	outboxRepo OutboxRepository,
	cacheRepo CacheRepository,
	imagesInfra ImagesInfra,
	tx Transactor,
	logger logger.Logger,
) *ProductUseCase {
	return &ProductUseCase{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		keywordRepo:  keywordRepo,
		outboxRepo:   outboxRepo,
		cacheRepo:    cacheRepo,
		imagesInfra:  imagesInfra,
		tx:           tx,
		logger:       logger,
	}
}

// CreateProduct сохраняет товар, загружает его изображения в MinIO и пишет событие product.created.
func (p *ProductUseCase) CreateProduct(ctx context.Context, req *CreateProductReq) (*domain.Product, error) {
	const op = "ProductUseCase.CreateProduct"

	var err error
	if err = validateProduct(strings.TrimSpace(req.Title), req.Price); err != nil {
		return nil, e.Wrap(op, err)
	}
	if err = p.ensureCategory(ctx, req.CategoryID); err != nil {
		return nil, e.Wrap(op, err)
	}

	var imagesRes *UploadImagesRes
	if len(req.Images) > 0 {
		imagesRes, err = p.imagesInfra.UploadImages(ctx, NewUploadImagesReq(productPrefix(req.OwnerID), req.Images))
		if err != nil {
			return nil, e.Wrap(op, err)
		}
	}

	// Если транзакция не прошла, загруженные изображения становятся сиротами
	defer func() {
		if err != nil && imagesRes != nil {
			p.logger.Warnf("Cleaning up orphaned images after transaction failure. title: %s, error: %v", req.Title, err)
			p.imagesInfra.CleanupImages(imagesRes.ImagesKeys)
		}
	}()

	product := domain.NewProduct(
		req.OwnerID,
		req.CategoryID,
		strings.TrimSpace(req.Title),
		strings.TrimSpace(req.Description),
		req.Price,
		req.ImageURL,
	)

	var created *domain.Product
	err = p.tx.Do(ctx, func(ctx context.Context) error {
		var txErr error
		created, txErr = p.productRepo.Create(ctx, product)
		if txErr != nil {
			return txErr
		}

		if imagesRes != nil {
			if txErr = p.productRepo.AttachImages(ctx, created.ID, imagesRes.ImagesKeys); txErr != nil {
				return txErr
			}
			created.ImageKeys = imagesRes.ImagesKeys
		}

		return writeOutbox(ctx, p.outboxRepo, ProductCreated, created.ID, newProductEvent(created))
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return created, nil
}

func (p *ProductUseCase) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	const op = "ProductUseCase.GetProduct"

	product, err := p.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	return product, nil
}

// UpdateProduct применяет частичное обновление. Изменять товар может только владелец.
func (p *ProductUseCase) UpdateProduct(ctx context.Context, req *UpdateProductReq) (*domain.Product, error) {
	const op = "ProductUseCase.UpdateProduct"

	product, err := p.ownedProduct(ctx, req.ProductID, req.UserID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if req.Title != nil {
		product.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.ImageURL != nil && *req.ImageURL != "" {
		product.ImageURL = *req.ImageURL
	}
	if req.CategoryID != nil && *req.CategoryID != product.CategoryID {
		if err := p.ensureCategory(ctx, *req.CategoryID); err != nil {
			return nil, e.Wrap(op, err)
		}
		product.CategoryID = *req.CategoryID
	}

	if err := validateProduct(product.Title, product.Price); err != nil {
		return nil, e.Wrap(op, err)
	}

	var updated *domain.Product
	err = p.tx.Do(ctx, func(ctx context.Context) error {
		var txErr error
		updated, txErr = p.productRepo.Update(ctx, product)
		if txErr != nil {
			return txErr
		}
		return writeOutbox(ctx, p.outboxRepo, ProductUpdated, updated.ID, newProductEvent(updated))
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	p.invalidate(ctx, updated.ID)
	return updated, nil
}

func (p *ProductUseCase) DeleteProduct(ctx context.Context, productID, userID int64) error {
	const op = "ProductUseCase.DeleteProduct"

	product, err := p.ownedProduct(ctx, productID, userID)
	if err != nil {
		return e.Wrap(op, err)
	}

	err = p.tx.Do(ctx, func(ctx context.Context) error {
		if txErr := p.productRepo.Delete(ctx, productID); txErr != nil {
			return txErr
		}
		return writeOutbox(ctx, p.outboxRepo, ProductDeleted, productID, productEvent{ProductID: productID, OwnerID: userID})
	})
	if err != nil {
		return e.Wrap(op, err)
	}

	p.invalidate(ctx, productID)
	if len(product.ImageKeys) > 0 {
		p.imagesInfra.CleanupImages(product.ImageKeys)
	}

	return nil
}

// ListProducts возвращает страницу каталога. Непустое ключевое слово сохраняется в search_keywords.
func (p *ProductUseCase) ListProducts(ctx context.Context, filter domain.ProductFilter, userID *int64) (*domain.ProductPage, error) {
	const op = "ProductUseCase.ListProducts"

	if filter.Page < 1 || filter.PerPage < 1 || filter.PerPage > maxPerPage {
		return nil, e.Wrap(op, e.ErrInvalidPagination)
	}

	filter.Keyword = strings.TrimSpace(filter.Keyword)
	filter.CategoryName = strings.TrimSpace(filter.CategoryName)
	// Категорию можно передать и как ID, и как часть названия
	if filter.CategoryID == nil && filter.CategoryName != "" {
		if id, err := strconv.ParseInt(filter.CategoryName, 10, 64); err == nil {
			filter.CategoryID = &id
			filter.CategoryName = ""
		}
	}

	if filter.Keyword != "" {
		kw := &domain.SearchKeyword{UserID: userID, Keyword: filter.Keyword}
		if err := p.keywordRepo.Create(ctx, kw); err != nil {
			p.logger.Warnf("Failed to record search keyword: %v", e.Wrap(op, err))
		}
	}

	page, err := p.productRepo.List(ctx, filter)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	return page, nil
}

// GetProductsInfo возвращает информацию о продуктах по их идентификаторам.
// Сначала смотрим в Redis, недостающее добираем из БД и кэшируем в фоне.
func (p *ProductUseCase) GetProductsInfo(ctx context.Context, req *GetProductsReq) (*GetProductsRes, error) {
	const op = "ProductUseCase.GetProductsInfo"

	if len(req.IDs) == 0 {
		return nil, e.Wrap(op, e.ErrNoProducts)
	}

	cacheProductsMap, err := p.cacheRepo.GetProducts(ctx, req.IDs)
	var nonCacheable []int64
	if err != nil {
		p.logger.Warnf("Product cache unavailable: %v", e.Wrap(op, err))
		cacheProductsMap = nil
		nonCacheable = append(nonCacheable, req.IDs...)
	} else {
		for _, id := range req.IDs {
			if _, ok := cacheProductsMap[id]; !ok {
				nonCacheable = append(nonCacheable, id)
			}
		}
	}

	var productsInfoFromDB []ProductInfo
	if len(nonCacheable) > 0 {
		productsInfoFromDB, err = p.productRepo.GetProductsInfo(ctx, nonCacheable)
		if err != nil {
			return nil, e.Wrap(op, err)
		}

		// Прогрев не запускаем для отменённого запроса. Запоздалый прогрев может
		// вернуть в кэш карточку, которую уже удалил invalidate: запись живёт до TTL кэша.
		if len(productsInfoFromDB) > 0 && ctx.Err() == nil {
			toCache := productsInfoFromDB
			go func() {
				bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWarmupTTL)
				defer cancel()

				if err := p.cacheRepo.SetProducts(bgCtx, toCache); err != nil {
					p.logger.Warnf("Failed to cache products in background: %v", e.Wrap(op, err))
				}
			}()
		}
	}

	dbProductsMap := make(map[int64]ProductInfo, len(productsInfoFromDB))
	for _, info := range productsInfoFromDB {
		dbProductsMap[info.ID] = info
	}

	result := make([]ProductInfo, 0, len(req.IDs))
	notFoundProducts := make([]int64, 0)
	for _, id := range req.IDs {
		if pr, ok := cacheProductsMap[id]; ok {
			result = append(result, pr)
		} else if pr, ok := dbProductsMap[id]; ok {
			result = append(result, pr)
		} else {
			notFoundProducts = append(notFoundProducts, id)
		}
	}

	return NewGetProductsRes(result, notFoundProducts), nil
}

func (p *ProductUseCase) ownedProduct(ctx context.Context, productID, userID int64) (*domain.Product, error) {
	product, err := p.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.OwnerID != userID {
		return nil, e.ErrForbidden
	}
	return product, nil
}

func (p *ProductUseCase) ensureCategory(ctx context.Context, categoryID int64) error {
	ok, err := p.categoryRepo.Exists(ctx, categoryID)
	if err != nil {
		return err
	}
	if !ok {
		return e.ErrCategoryNotFound
	}
	return nil
}

// invalidate удаляет из кэша устаревшую карточку товара. Ошибка кэша не ломает запрос.
func (p *ProductUseCase) invalidate(ctx context.Context, id int64) {
	if err := p.cacheRepo.DeleteProducts(ctx, []int64{id}); err != nil {
		p.logger.Warnf("Failed to delete products from cache: %v", err)
	}
}

func validateProduct(title string, price int64) error {
	if title == "" {
		return e.ErrProductNameRequired
	}
	if price <= 0 {
		return e.ErrPriceMustBePositive
	}
	return nil
}

func productPrefix(ownerID int64) string {
	return "products/" + strconv.FormatInt(ownerID, 10)
}

func newProductEvent(p *domain.Product) productEvent {
	return productEvent{
		ProductID:  p.ID,
		OwnerID:    p.OwnerID,
		CategoryID: p.CategoryID,
		Title:      p.Title,
		Price:      p.Price,
	}
}

