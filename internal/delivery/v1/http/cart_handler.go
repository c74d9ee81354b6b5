package http

import (
	"net/http"

	"github.com/DRSN-tech/ecofinds/internal/usecase"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
)

// CartHandler обслуживает корзину и оформление заказов.
type CartHandler struct {
	cartUsecase  usecase.CartUC
	orderUsecase usecase.OrderUC
	logger       logger.Logger
}

func NewCartHandler(cartUsecase usecase.CartUC, orderUsecase usecase.OrderUC, logger logger.Logger) *CartHandler {
	return &CartHandler{cartUsecase: cartUsecase, orderUsecase: orderUsecase, logger: logger}
}

// listCart
//
//	@Summary	Содержимое корзины
//	@Tags		cart
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	cartItemResponse
//	@Router		/cart [get]
func (h *CartHandler) listCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromCtx(r.Context())
	if !ok {
		WriteError(w, e.ErrUnauthorized)
		return
	}

	items, err := h.cartUsecase.List(r.Context(), userID)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toCartResponse(items))
}

// addToCart
//
//	@Summary		Добавление товара в корзину
//	@Description	Повторное добавление увеличивает количество
//	@Tags			cart
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		addToCartRequest	true	"Товар и количество (по умолчанию 1)"
//	@Success		201		{object}	cartItemResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/cart [post]
func (h *CartHandler) addToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromCtx(r.Context())
	if !ok {
		WriteError(w, e.ErrUnauthorized)
		return
	}

	var req addToCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	item, err := h.cartUsecase.Add(r.Context(), &usecase.AddToCartReq{
		UserID:    userID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusCreated, toCartItemResponse(item))
}

// removeFromCart
//
//	@Summary	Удаление строки корзины
//	@Tags		cart
//	@Security	BearerAuth
//	@Param		id	path	int	true	"ID строки корзины"
//	@Success	204
//	@Failure	403	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/cart/{id} [delete]
func (h *CartHandler) removeFromCart(w http.ResponseWriter, r *http.Request) {
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

	if err := h.cartUsecase.Remove(r.Context(), id, userID); err != nil {
		WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// checkout
//
//	@Summary	Оформление заказа из корзины
//	@Tags		orders
//	@Produce	json
//	@Security	BearerAuth
//	@Success	201	{object}	orderResponse
//	@Failure	400	{object}	ErrorResponse	"Корзина пуста"
//	@Router		/orders [post]
func (h *CartHandler) checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromCtx(r.Context())
	if !ok {
		WriteError(w, e.ErrUnauthorized)
		return
	}

	order, err := h.orderUsecase.Checkout(r.Context(), userID)
	if err != nil {
		h.logger.Warnf("checkout for user %d failed: %v", userID, err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusCreated, toOrderResponse(order))
}

// listOrders
//
//	@Summary	История заказов
//	@Tags		orders
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	orderResponse
//	@Router		/orders [get]
func (h *CartHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromCtx(r.Context())
	if !ok {
		WriteError(w, e.ErrUnauthorized)
		return
	}

	orders, err := h.orderUsecase.List(r.Context(), userID)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toOrdersResponse(orders))
}
