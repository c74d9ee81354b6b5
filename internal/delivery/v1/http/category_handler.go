package http

import (
	"net/http"

	"github.com/DRSN-tech/ecofinds/internal/usecase"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
)

type CategoryHandler struct {
	categoryUsecase usecase.CategoryUC
	logger          logger.Logger
}

func NewCategoryHandler(categoryUsecase usecase.CategoryUC, logger logger.Logger) *CategoryHandler {
	return &CategoryHandler{categoryUsecase: categoryUsecase, logger: logger}
}

// list
//
//	@Summary	Список категорий
//	@Tags		categories
//	@Produce	json
//	@Success	200	{array}	categoryResponse
//	@Router		/categories [get]
func (h *CategoryHandler) list(w http.ResponseWriter, r *http.Request) {
	cats, err := h.categoryUsecase.List(r.Context())
	if err != nil {
		h.logger.Errorf(err, "list categories")
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toCategoriesResponse(cats))
}

// seed
//
//	@Summary		Заполнение категорий
//	@Description	Создаёт отсутствующие категории. Пустое тело создаёт набор по умолчанию.
//	@Tags			categories
//	@Accept			json
//	@Produce		json
//	@Param			body	body		seedCategoriesRequest	false	"Названия категорий"
//	@Success		200		{object}	seedCategoriesResponse
//	@Router			/categories/seed [post]
func (h *CategoryHandler) seed(w http.ResponseWriter, r *http.Request) {
	var req seedCategoriesRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			WriteError(w, err)
			return
		}
	}

	created, err := h.categoryUsecase.Seed(r.Context(), req.Names)
	if err != nil {
		h.logger.Errorf(err, "seed categories")
		WriteError(w, err)
		return
	}
	if created == nil {
		created = []string{}
	}

	WriteSuccess(w, http.StatusOK, seedCategoriesResponse{Created: created})
}
