package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/internal/usecase"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
	"github.com/jimlawless/whereami"
)

const defaultPerPage = 20

type ProductHandler struct {
	productUsecase usecase.ProductUC
	logger         logger.Logger
}

func NewProductHandler(productUsecase usecase.ProductUC, logger logger.Logger) *ProductHandler {
	return &ProductHandler{productUsecase: productUsecase, logger: logger}
}

// list
//
//	@Summary	Каталог товаров
//	@Tags		products
//	@Produce	json
//	@Param		category	query		string	false	"ID категории или часть названия"
//	@Param		keyword		query		string	false	"Поиск по названию"
//	@Param		page		query		int		false	"Страница, с 1"
//	@Param		per_page	query		int		false	"Размер страницы, 1..100"
//	@Success	200			{object}	productPageResponse
//	@Failure	400			{object}	ErrorResponse
//	@Router		/products [get]
func (p *ProductHandler) list(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		WriteError(w, err)
		return
	}
	perPage, err := queryInt(r, "per_page", defaultPerPage)
	if err != nil {
		WriteError(w, err)
		return
	}

	q := r.URL.Query()
	filter := domain.ProductFilter{
		CategoryName: q.Get("category"),
		Keyword:      q.Get("keyword"),
		Page:         page,
		PerPage:      perPage,
	}

	var userID *int64
	if id, ok := userIDFromCtx(r.Context()); ok {
		userID = &id
	}

	res, err := p.productUsecase.ListProducts(r.Context(), filter, userID)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toProductPageResponse(res))
}

// get
//
//	@Summary	Карточка товара
//	@Tags		products
//	@Produce	json
//	@Param		id	path		int	true	"ID товара"
//	@Success	200	{object}	productResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/products/{id} [get]
func (p *ProductHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	product, err := p.productUsecase.GetProduct(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toProductResponse(product))
}

// create
//
//	@Summary		Регистрация нового товара
//	@Description	Принимает JSON или multipart/form-data с изображениями (поле images)
//	@Tags			products
//	@Accept			json,mpfd
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		productRequest	false	"Товар (JSON)"
//	@Param			images	formData	file			false	"Изображения товара"
//	@Success		201		{object}	productResponse
//	@Failure		400		{object}	ErrorResponse	"Ошибка валидации"
//	@Failure		401		{object}	ErrorResponse
//	@Router			/products [post]
func (p *ProductHandler) create(w http.ResponseWriter, r *http.Request) {
	const (
		maxTotalRequestSize = 150 << 20
		maxMemory           = 32 << 20
	)

	userID, ok := userIDFromCtx(r.Context())
	if !ok {
		WriteError(w, e.ErrUnauthorized)
		return
	}

	var (
		req *usecase.CreateProductReq
		err error
	)
	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxTotalRequestSize)
		if err = ensureMultipartForm(r, maxMemory); err != nil {
			p.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), r.Header.Get("Content-Type"))
			WriteError(w, err)
			return
		}
		req, err = parseProductForm(r)
	} else {
		req, err = parseProductJSON(w, r)
	}
	if err != nil {
		p.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}
	req.OwnerID = userID

	product, err := p.productUsecase.CreateProduct(r.Context(), req)
	if err != nil {
		p.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusCreated, toProductResponse(product))
}

// update
//
//	@Summary	Изменение товара владельцем
//	@Tags		products
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		int				true	"ID товара"
//	@Param		body	body		productRequest	true	"Изменяемые поля"
//	@Success	200		{object}	productResponse
//	@Failure	403		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/products/{id} [put]
func (p *ProductHandler) update(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromCtx(r.Context())
	if !ok {
		WriteError(w, e.ErrUnauthorized)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	var body productRequest
	if err := decodeJSON(w, r, &body); err != nil {
		WriteError(w, err)
		return
	}

	req := &usecase.UpdateProductReq{
		ProductID:   id,
		UserID:      userID,
		Title:       body.Title,
		Description: body.Description,
		CategoryID:  body.CategoryID,
		ImageURL:    body.ImageURL,
	}
	if body.Price != nil {
		cents, err := decimalToCents(*body.Price)
		if err != nil {
			WriteError(w, err)
			return
		}
		req.Price = &cents
	}

	product, err := p.productUsecase.UpdateProduct(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toProductResponse(product))
}

// remove
//
//	@Summary	Удаление товара владельцем
//	@Tags		products
//	@Security	BearerAuth
//	@Param		id	path	int	true	"ID товара"
//	@Success	204
//	@Failure	403	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/products/{id} [delete]
func (p *ProductHandler) remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromCtx(r.Context())
	if !ok {
		WriteError(w, e.ErrUnauthorized)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := p.productUsecase.DeleteProduct(r.Context(), id, userID); err != nil {
		WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseProductJSON(w http.ResponseWriter, r *http.Request) (*usecase.CreateProductReq, error) {
	var body productRequest
	if err := decodeJSON(w, r, &body); err != nil {
		return nil, err
	}

	if body.Title == nil || body.CategoryID == nil || body.Price == nil {
		return nil, e.Wrap(whereami.WhereAmI(), e.ErrMissingFields)
	}

	cents, err := decimalToCents(*body.Price)
	if err != nil {
		return nil, err
	}

	req := &usecase.CreateProductReq{
		CategoryID: *body.CategoryID,
		Title:      *body.Title,
		Price:      cents,
	}
	if body.Description != nil {
		req.Description = *body.Description
	}
	if body.ImageURL != nil {
		req.ImageURL = *body.ImageURL
	}
	return req, nil
}

func parseProductForm(r *http.Request) (*usecase.CreateProductReq, error) {
	title := strings.TrimSpace(r.FormValue("title"))
	categoryStr := strings.TrimSpace(r.FormValue("category_id"))
	priceStr := r.FormValue("price")

	if title == "" || categoryStr == "" || priceStr == "" {
		return nil, e.Wrap("title, category_id and price are required", e.ErrMissingFields)
	}

	categoryID, err := strconv.ParseInt(categoryStr, 10, 64)
	if err != nil {
		return nil, e.Wrap("category_id", e.ErrStatusBadRequest)
	}

	priceCents, err := parsePriceToCents(priceStr)
	if err != nil {
		return nil, err
	}

	req := &usecase.CreateProductReq{
		CategoryID:  categoryID,
		Title:       title,
		Description: r.FormValue("description"),
		Price:       priceCents,
		ImageURL:    r.FormValue("image_url"),
	}

	images, err := parseImages(r.MultipartForm.File["images"])
	if err != nil && !errors.Is(err, e.ErrNoImages) {
		return nil, err
	}
	req.Images = images

	return req, nil
}
