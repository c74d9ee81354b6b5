package http

import (
	"net/http"

	"github.com/DRSN-tech/ecofinds/internal/usecase"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type AssistantHandler struct {
	assistantUsecase usecase.AssistantUC
	logger           logger.Logger
}

func NewAssistantHandler(assistantUsecase usecase.AssistantUC, logger logger.Logger) *AssistantHandler {
	return &AssistantHandler{assistantUsecase: assistantUsecase, logger: logger}
}

// condition
//
//	@Summary	Оценка состояния товара по фото
//	@Tags		assistant
//	@Accept		mpfd
//	@Produce	json
//	@Param		image	formData	file	true	"Фото товара"
//	@Success	200		{object}	conditionResponse
//	@Failure	400		{object}	ErrorResponse
//	@Router		/assistant/condition [post]
func (h *AssistantHandler) condition(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFileSize+1<<20)
	if err := ensureMultipartForm(r, 16<<20); err != nil {
		WriteError(w, err)
		return
	}

	image, err := formImage(r, "image")
	if err != nil {
		WriteError(w, err)
		return
	}

	res, err := h.assistantUsecase.GradeCondition(r.Context(), image)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, conditionResponse{
		Condition:         res.Condition,
		AuthenticityScore: res.AuthenticityScore,
	})
}

// price
//
//	@Summary	Рекомендуемая цена
//	@Tags		assistant
//	@Produce	json
//	@Param		category	query		string	true	"Категория"
//	@Param		condition	query		string	true	"Состояние: Excellent, Good, Needs Repair"
//	@Success	200			{object}	priceResponse
//	@Failure	400			{object}	ErrorResponse
//	@Router		/assistant/price [get]
func (h *AssistantHandler) price(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	condition := r.URL.Query().Get("condition")

	suggested, err := h.assistantUsecase.SuggestPrice(r.Context(), category, condition)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, priceResponse{
		Category:       category,
		Condition:      condition,
		SuggestedPrice: decimal.NewFromFloat(suggested).StringFixed(2),
	})
}

// eco
//
//	@Summary	Экологический след категории
//	@Tags		assistant
//	@Produce	json
//	@Param		category	path		string	true	"Категория"
//	@Success	200			{object}	ecoResponse
//	@Failure	404			{object}	ErrorResponse
//	@Router		/assistant/eco/{category} [get]
func (h *AssistantHandler) eco(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")

	impact, err := h.assistantUsecase.EcoImpact(r.Context(), category)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, ecoResponse{
		Category:    category,
		CO2Kg:       impact.CO2Kg,
		WaterLiters: impact.WaterLiters,
		WasteKg:     impact.WasteKg,
	})
}

// recommendations
//
//	@Summary	Рекомендации для текущего пользователя
//	@Tags		assistant
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	recommendationsResponse
//	@Failure	404	{object}	ErrorResponse	"Нет взаимодействий"
//	@Router		/assistant/recommendations [get]
func (h *AssistantHandler) recommendations(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromCtx(r.Context())
	if !ok {
		WriteError(w, e.ErrUnauthorized)
		return
	}

	res, err := h.assistantUsecase.Recommendations(r.Context(), userID)
	if err != nil {
		WriteError(w, err)
		return
	}

	ids := res.ProductIDs
	if ids == nil {
		ids = []int64{}
	}
	WriteSuccess(w, http.StatusOK, recommendationsResponse{UserID: res.UserID, Recommendations: ids})
}
