package domain

// Оценки взаимодействия пользователя с товаром для рекомендаций.
const (
	InteractionCart     = 2
	InteractionPurchase = 5
)

// Interaction: суммарная оценка пары «пользователь, товар».
type Interaction struct {
	UserID    int64
	ProductID int64
	Score     float64
}
