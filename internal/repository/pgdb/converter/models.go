package converter

import (
	"time"

	"github.com/google/uuid"
)

// UserModel представляет запись таблицы users в PostgreSQL.
type UserModel struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// CategoryModel представляет запись таблицы categories в PostgreSQL.
type CategoryModel struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// ProductModel представляет запись таблицы products в PostgreSQL (с названием категории из JOIN).
type ProductModel struct {
	ID           int64     `db:"id"`
	OwnerID      int64     `db:"owner_id"`
	CategoryID   int64     `db:"category_id"`
	CategoryName string    `db:"category_name"`
	Title        string    `db:"title"`
	Description  string    `db:"description"`
	Price        int64     `db:"price"`
	ImageURL     string    `db:"image_url"`
	ImageKeys    []string  `db:"image_keys"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type CartItemModel struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	ProductID int64     `db:"product_id"`
	Quantity  int       `db:"quantity"`
	AddedAt   time.Time `db:"added_at"`
}

type OrderModel struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	OrderDate   time.Time `db:"order_date"`
	TotalAmount int64     `db:"total_amount"`
}

type OrderItemModel struct {
	ID        int64 `db:"id"`
	OrderID   int64 `db:"order_id"`
	ProductID int64 `db:"product_id"`
	Quantity  int   `db:"quantity"`
	Price     int64 `db:"price"`
}

// OutboxEventModel представляет запись таблицы outbox_events в PostgreSQL.
type OutboxEventModel struct {
	ID          int64      `db:"id"`
	EventID     string     `db:"event_id"`
	EventType   string     `db:"event_type"`
	AggregateID int64      `db:"aggregate_id"`
	Payload     []byte     `db:"payload"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	ProcessedAt *time.Time `db:"processed_at"`
}

// IndexBuildModel представляет запись таблицы index_builds в PostgreSQL.
type IndexBuildModel struct {
	ID           int64     `db:"id"`
	BuildID      uuid.UUID `db:"build_id"`
	RowCount     int       `db:"row_count"`
	Dimension    int       `db:"dimension"`
	ModelVersion string    `db:"model_version"`
	Location     string    `db:"location"`
	CreatedAt    time.Time `db:"created_at"`
}
