package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/shopfront-backend/api/controllers"
	"github.com/angelmondragon/shopfront-backend/api/middleware"
	"github.com/angelmondragon/shopfront-backend/internal/auth"
	"github.com/angelmondragon/shopfront-backend/internal/cart"
	"github.com/angelmondragon/shopfront-backend/internal/catalog"
	"github.com/angelmondragon/shopfront-backend/internal/coupons"
	"github.com/angelmondragon/shopfront-backend/internal/orders"
	"github.com/angelmondragon/shopfront-backend/internal/profiles"
	"github.com/angelmondragon/shopfront-backend/internal/reviews"
	"github.com/angelmondragon/shopfront-backend/internal/wishlist"
	"github.com/angelmondragon/shopfront-backend/pkg/auth/session"
	"github.com/angelmondragon/shopfront-backend/pkg/config"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
	"github.com/angelmondragon/shopfront-backend/pkg/logger"
	"github.com/angelmondragon/shopfront-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/shopfront-backend/pkg/redis"
)

// SessionManager is the refresh-token surface the auth routes need.
type SessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Store is the Redis surface shared by idempotency and auth rate limiting.
type Store interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Dependencies bundles everything the HTTP surface is wired to. Nil services
// answer with 500 instead of panicking.
type Dependencies struct {
	DB       controllers.Pinger
	Redis    controllers.Pinger
	Store    Store
	Sessions SessionManager

	Metrics  *metrics.HTTPMetrics
	Gatherer prometheus.Gatherer

	Auth     auth.Service
	Catalog  catalog.Service
	Cart     cart.Service
	Orders   orders.Service
	Reviews  reviews.Service
	Profiles profiles.Service
	Wishlist wishlist.Service
	Coupons  coupons.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
		middleware.Metrics(deps.Metrics),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	couponPolicy := middleware.NewAuthRateLimitPolicy(
		"coupon-validate",
		cfg.AuthRateLimit.CouponValidateWindow,
		cfg.AuthRateLimit.CouponValidateIPLimit,
		0,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	idempotency := middleware.Idempotency(middleware.DefaultIdempotencyRules(cfg.Idempotency), deps.Store, logg)
	authenticate := middleware.Auth(cfg.JWT, deps.Sessions, logg)
	catalogWriter := middleware.RequireRole(cfg.Policy.CatalogWriteRole, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, deps.Store, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, deps.Store, logg), idempotency).Post("/register", controllers.AuthRegister(deps.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Sessions, cfg.JWT, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.Sessions, cfg.JWT, logg))
		})

		// public catalog reads
		r.Group(func(r chi.Router) {
			r.Get("/categories", controllers.ListCategories(deps.Catalog, logg))
			r.Get("/categories/{categoryId}", controllers.GetCategory(deps.Catalog, logg))
			r.Get("/products", controllers.ListProducts(deps.Catalog, logg))
			r.Get("/products/{productId}", controllers.GetProduct(deps.Catalog, logg))
			r.Get("/reviews", controllers.ListReviews(deps.Reviews, logg))
			r.Get("/reviews/{reviewId}", controllers.GetReview(deps.Reviews, logg))
			r.Get("/coupons", controllers.ListCoupons(deps.Coupons, logg))
			r.Get("/coupons/{couponId}", controllers.GetCoupon(deps.Coupons, logg))
			r.With(middleware.AuthRateLimit(couponPolicy, deps.Store, logg)).Post("/coupons/validate", controllers.ValidateCoupon(deps.Coupons, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(idempotency)

			r.Group(func(r chi.Router) {
				r.Use(catalogWriter)
				r.Post("/categories", controllers.CreateCategory(deps.Catalog, logg))
				r.Put("/categories/{categoryId}", controllers.ReplaceCategory(deps.Catalog, logg))
				r.Patch("/categories/{categoryId}", controllers.PatchCategory(deps.Catalog, logg))
				r.Delete("/categories/{categoryId}", controllers.DeleteCategory(deps.Catalog, logg))

				r.Post("/products", controllers.CreateProduct(deps.Catalog, logg))
				r.Put("/products/{productId}", controllers.ReplaceProduct(deps.Catalog, logg))
				r.Patch("/products/{productId}", controllers.PatchProduct(deps.Catalog, logg))
				r.Delete("/products/{productId}", controllers.DeleteProduct(deps.Catalog, logg))

				r.Post("/coupons", controllers.CreateCoupon(deps.Coupons, logg))
				r.Put("/coupons/{couponId}", controllers.UpdateCoupon(deps.Coupons, true, logg))
				r.Patch("/coupons/{couponId}", controllers.UpdateCoupon(deps.Coupons, false, logg))
				r.Delete("/coupons/{couponId}", controllers.DeleteCoupon(deps.Coupons, logg))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.ListCarts(deps.Cart, logg))
				r.Post("/", controllers.EnsureCart(deps.Cart, logg))
				r.Get("/{cartId}", controllers.GetCart(deps.Cart, logg))
				r.Delete("/{cartId}", controllers.DeleteCart(deps.Cart, logg))
			})
			r.Route("/cart-items", func(r chi.Router) {
				r.Get("/", controllers.ListCartItems(deps.Cart, logg))
				r.Post("/", controllers.AddCartItem(deps.Cart, logg))
				r.Get("/{itemId}", controllers.GetCartItem(deps.Cart, logg))
				r.Put("/{itemId}", controllers.UpdateCartItem(deps.Cart, logg))
				r.Patch("/{itemId}", controllers.UpdateCartItem(deps.Cart, logg))
				r.Delete("/{itemId}", controllers.DeleteCartItem(deps.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.ListOrders(deps.Orders, logg))
				r.Post("/", controllers.Checkout(deps.Orders, logg))
				r.Get("/{orderId}", controllers.GetOrder(deps.Orders, logg))
				r.Patch("/{orderId}", controllers.UpdateOrderStatus(deps.Orders, logg))
				r.Delete("/{orderId}", controllers.CancelOrder(deps.Orders, logg))
			})

			r.Post("/reviews", controllers.CreateReview(deps.Reviews, logg))
			r.Put("/reviews/{reviewId}", controllers.UpdateReview(deps.Reviews, true, logg))
			r.Patch("/reviews/{reviewId}", controllers.UpdateReview(deps.Reviews, false, logg))
			r.Delete("/reviews/{reviewId}", controllers.DeleteReview(deps.Reviews, logg))

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", controllers.ListProfiles(deps.Profiles, logg))
				r.Post("/", controllers.CreateProfile(deps.Profiles, logg))
				r.Get("/{profileId}", controllers.GetProfile(deps.Profiles, logg))
				r.Put("/{profileId}", controllers.UpdateProfile(deps.Profiles, true, logg))
				r.Patch("/{profileId}", controllers.UpdateProfile(deps.Profiles, false, logg))
				r.Delete("/{profileId}", controllers.DeleteProfile(deps.Profiles, logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.ListWishlists(deps.Wishlist, logg))
				r.Post("/products", controllers.AddWishlistProduct(deps.Wishlist, logg))
				r.Delete("/products/{productId}", controllers.RemoveWishlistProduct(deps.Wishlist, logg))
				r.Get("/{wishlistId}", controllers.GetWishlist(deps.Wishlist, logg))
				r.Put("/{wishlistId}", controllers.ReplaceWishlist(deps.Wishlist, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		if !cfg.App.IsProd() {
			r.With(middleware.AuthRateLimit(registerPolicy, deps.Store, logg)).
				Post("/auth/register", controllers.AdminAuthRegister(deps.Auth, cfg, logg))
		}

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RequireRole(enums.RoleAdmin.String(), logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminListOrders(deps.Orders, logg))
				r.Get("/{orderId}", controllers.AdminGetOrder(deps.Orders, logg))
				r.Patch("/{orderId}", controllers.AdminUpdateOrderStatus(deps.Orders, logg))
			})
			r.Get("/products/export", controllers.AdminExportProducts(deps.Catalog, logg))
			r.Post("/products/import", controllers.AdminImportProducts(deps.Catalog, logg))
		})
	})

	return r
}
