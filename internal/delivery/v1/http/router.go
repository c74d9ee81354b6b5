package http

import (
	"net/http"

	_ "github.com/DRSN-tech/ecofinds/docs" // Импорт сгенерированных файлов
	"github.com/DRSN-tech/ecofinds/internal/usecase"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// Usecases: всё, что нужно HTTP-слою.
type Usecases struct {
	Auth      usecase.AuthUC
	User      usecase.UserUC
	Category  usecase.CategoryUC
	Product   usecase.ProductUC
	Cart      usecase.CartUC
	Order     usecase.OrderUC
	Search    usecase.SearchUC
	Assistant usecase.AssistantUC
}

// SearchLimit: ограничение частоты запросов к поиску по изображению.
type SearchLimit struct {
	RPS   float64
	Burst int
}

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(uc Usecases, limit SearchLimit) {
	r.router.Use(middleware.RequestID)
	r.router.Use(middleware.RealIP)
	r.router.Use(RequestLogger(r.logger))
	r.router.Use(middleware.Recoverer)

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteSuccess(w, http.StatusOK, healthResponse{Status: "ok", SimilarityReady: uc.Search.Ready()})
	})

	requireAuth := RequireAuth(uc.Auth)

	r.router.Route("/api/v1", func(v1 chi.Router) {
		userHandler := NewUserHandler(uc.Auth, uc.User, r.logger)
		registerUserRoutes(v1, userHandler, requireAuth)

		categoryHandler := NewCategoryHandler(uc.Category, r.logger)
		registerCategoryRoutes(v1, categoryHandler)

		prHandler := NewProductHandler(uc.Product, r.logger)
		registerProductRoutes(v1, prHandler, requireAuth, OptionalAuth(uc.Auth))

		cartHandler := NewCartHandler(uc.Cart, uc.Order, r.logger)
		registerCartRoutes(v1, cartHandler, requireAuth)

		searchHandler := NewSearchHandler(uc.Search, r.logger)
		v1.With(RateLimit(limit.RPS, limit.Burst)).Post("/search/similar", searchHandler.findSimilar)

		assistantHandler := NewAssistantHandler(uc.Assistant, r.logger)
		registerAssistantRoutes(v1, assistantHandler, requireAuth)
	})
}

type middlewareFn = func(http.Handler) http.Handler

func registerUserRoutes(router chi.Router, h *UserHandler, requireAuth middlewareFn) {
	router.Route("/auth", func(ar chi.Router) {
		ar.Post("/register", h.register)
		ar.Post("/login", h.login)
	})

	router.Route("/users", func(ur chi.Router) {
		ur.Use(requireAuth)
		ur.Get("/me", h.me)
		ur.Put("/me", h.updateMe)
	})
}

func registerCategoryRoutes(router chi.Router, h *CategoryHandler) {
	router.Route("/categories", func(cr chi.Router) {
		cr.Get("/", h.list)
		cr.Post("/seed", h.seed)
	})
}

func registerProductRoutes(router chi.Router, h *ProductHandler, requireAuth, optionalAuth middlewareFn) {
	router.Route("/products", func(pr chi.Router) {
		pr.With(optionalAuth).Get("/", h.list)
		pr.Get("/{id}", h.get)

		pr.Group(func(authed chi.Router) {
			authed.Use(requireAuth)
			authed.Post("/", h.create)
			authed.Put("/{id}", h.update)
			authed.Delete("/{id}", h.remove)
		})
	})
}

func registerCartRoutes(router chi.Router, h *CartHandler, requireAuth middlewareFn) {
	router.Group(func(authed chi.Router) {
		authed.Use(requireAuth)

		authed.Get("/cart", h.listCart)
		authed.Post("/cart", h.addToCart)
		authed.Delete("/cart/{id}", h.removeFromCart)

		authed.Post("/orders", h.checkout)
		authed.Get("/orders", h.listOrders)
	})
}

func registerAssistantRoutes(router chi.Router, h *AssistantHandler, requireAuth middlewareFn) {
	router.Route("/assistant", func(ar chi.Router) {
		ar.Post("/condition", h.condition)
		ar.Get("/price", h.price)
		ar.Get("/eco/{category}", h.eco)
		ar.With(requireAuth).Get("/recommendations", h.recommendations)
	})
}
