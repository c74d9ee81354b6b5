package usecase

import (
	"context"
	"strings"

	"github.com/DRSN-tech/ecofinds/pkg/e"
)

// AssistantUseCase: подсказки продавцу и покупателю: состояние, цена, экослед, рекомендации.
type AssistantUseCase struct {
	grader          ConditionGrader
	pricer          PriceSuggester
	eco             EcoCatalog
	recommender     Recommender
	interactionRepo InteractionRepository
}

func NewAssistantUC(
	grader ConditionGrader,
	pricer PriceSuggester,
	eco EcoCatalog,
	recommender Recommender,
	interactionRepo InteractionRepository,
) *AssistantUseCase {
	return &AssistantUseCase{
		grader:          grader,
		pricer:          pricer,
		eco:             eco,
		recommender:     recommender,
		interactionRepo: interactionRepo,
	}
}

func (a *AssistantUseCase) GradeCondition(_ context.Context, raw []byte) (*ConditionRes, error) {
	const op = "AssistantUseCase.GradeCondition"

	if len(raw) == 0 {
		return nil, e.Wrap(op, e.ErrNoImages)
	}

	res, err := a.grader.Grade(raw)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	return res, nil
}

func (a *AssistantUseCase) SuggestPrice(_ context.Context, category, condition string) (float64, error) {
	const op = "AssistantUseCase.SuggestPrice"

	category = strings.TrimSpace(category)
	condition = strings.TrimSpace(condition)
	if category == "" || condition == "" {
		return 0, e.Wrap(op, e.ErrMissingFields)
	}

	return a.pricer.Suggest(category, condition), nil
}

func (a *AssistantUseCase) EcoImpact(_ context.Context, category string) (*EcoImpact, error) {
	const op = "AssistantUseCase.EcoImpact"

	impact, ok := a.eco.Lookup(category)
	if !ok {
		return nil, e.Wrap(op, e.ErrNoEcoData)
	}
	return impact, nil
}

func (a *AssistantUseCase) Recommendations(ctx context.Context, userID int64) (*RecommendationsRes, error) {
	const op = "AssistantUseCase.Recommendations"

	interactions, err := a.interactionRepo.ListAll(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	ids, err := a.recommender.Recommend(interactions, userID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return &RecommendationsRes{UserID: userID, ProductIDs: ids}, nil
}
