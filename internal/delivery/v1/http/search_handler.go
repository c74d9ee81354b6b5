package http

import (
	"net/http"

	"github.com/DRSN-tech/ecofinds/internal/usecase"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
)

type SearchHandler struct {
	searchUsecase usecase.SearchUC
	logger        logger.Logger
}

func NewSearchHandler(searchUsecase usecase.SearchUC, logger logger.Logger) *SearchHandler {
	return &SearchHandler{searchUsecase: searchUsecase, logger: logger}
}

// findSimilar
//
//	@Summary		Поиск похожих товаров по изображению
//	@Description	Возвращает ID товаров в порядке близости и карточки найденных товаров
//	@Tags			search
//	@Accept			mpfd
//	@Produce		json
//	@Param			image	formData	file	true	"Изображение-запрос"
//	@Param			top_k	formData	int		false	"Сколько товаров вернуть, 1..50"
//	@Success		200		{object}	similarResponse
//	@Failure		400		{object}	ErrorResponse	"Изображение не декодируется"
//	@Failure		422		{object}	ErrorResponse	"Ошибка модели"
//	@Failure		429		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse	"Индекс не загружен"
//	@Router			/search/similar [post]
func (h *SearchHandler) findSimilar(w http.ResponseWriter, r *http.Request) {
	const (
		maxRequestSize = maxFileSize + 1<<20
		maxMemory      = 16 << 20
	)

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
	if err := ensureMultipartForm(r, maxMemory); err != nil {
		WriteError(w, err)
		return
	}

	topK, err := formInt(r, "top_k")
	if err != nil {
		WriteError(w, err)
		return
	}

	image, err := formImage(r, "image")
	if err != nil {
		WriteError(w, err)
		return
	}

	res, err := h.searchUsecase.FindSimilar(r.Context(), &usecase.FindSimilarReq{Image: image, TopK: topK})
	if err != nil {
		code, _ := ToHTTPResponse(err)
		if code >= http.StatusInternalServerError {
			h.logger.Errorf(err, "similar search failed")
		} else {
			h.logger.Debugf("similar search rejected: %v", err)
		}
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, similarResponse{
		SimilarProductIDs: res.ProductIDs,
		Products:          toProductInfoResponses(res.Products),
	})
}
