package router

import (
	"net/http"

	"eato/internal/config"
	"eato/internal/handler"
	"eato/internal/middleware"
	"eato/internal/model"

	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers served by the API.
type Handlers struct {
	Auth    *handler.AuthHandler
	User    *handler.UserHandler
	Product *handler.ProductHandler
	Order   *handler.OrderHandler
	OTP     *handler.OTPHandler
}

type chain func(http.Handler) http.Handler

func passthrough(next http.Handler) http.Handler { return next }

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, tokens middleware.TokenVerifier, limits config.RateLimitConfig, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	general, moderate, strict := chain(passthrough), chain(passthrough), chain(passthrough)
	if limits.Enabled {
		general = middleware.NewRateLimiter("general", limits.GeneralMax, limits.Window, logger).Middleware
		moderate = middleware.NewRateLimiter("moderate", limits.ModerateMax, limits.Window, logger).Middleware
		strict = middleware.NewRateLimiter("auth", limits.AuthMax, limits.Window, logger).Middleware
	}

	authn := middleware.Authenticate(tokens, logger)
	adminOnly := middleware.RequireRole(logger, model.RoleAdmin)

	public := func(limit chain, fn http.HandlerFunc) http.Handler {
		return limit(fn)
	}
	signedIn := func(limit chain, fn http.HandlerFunc) http.Handler {
		return limit(authn(fn))
	}
	admin := func(limit chain, fn http.HandlerFunc) http.Handler {
		return limit(authn(adminOnly(fn)))
	}

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Accounts
	mux.Handle("POST /api/auth/signup", public(strict, h.Auth.Signup))
	mux.Handle("POST /api/auth/signin", public(strict, h.Auth.Signin))
	mux.Handle("PUT /api/auth/update", signedIn(moderate, h.Auth.Update))
	mux.Handle("DELETE /api/auth/delete", signedIn(strict, h.Auth.Delete))

	// Email verification
	mux.Handle("POST /api/otp/generate", public(strict, h.OTP.Generate))
	mux.Handle("POST /api/otp/verify", public(strict, h.OTP.Verify))

	// Users, order views and the cart
	mux.Handle("GET /api/users", admin(general, h.User.List))
	mux.Handle("GET /api/users/my-orders", signedIn(general, h.User.MyOrders))
	mux.Handle("GET /api/users/cart", signedIn(general, h.User.Cart))
	mux.Handle("PUT /api/users/add-to-cart", signedIn(moderate, h.User.AddToCart))
	mux.Handle("GET /api/users/order", admin(general, h.Order.Lookup))
	mux.Handle("GET /api/users/{id}", admin(general, h.User.GetByID))
	mux.Handle("GET /api/users/{id}/order-history", admin(general, h.User.OrderHistory))

	// Products
	mux.Handle("GET /api/products", public(general, h.Product.GetAll))
	mux.Handle("GET /api/products/{id}", public(general, h.Product.GetByID))
	mux.Handle("POST /api/products", admin(moderate, h.Product.Create))
	mux.Handle("PUT /api/products/{id}", admin(moderate, h.Product.Update))
	mux.Handle("DELETE /api/products/{id}", admin(moderate, h.Product.Delete))
	mux.Handle("POST /api/products/image-upload-url", admin(moderate, h.Product.ImageUploadURL))

	// Orders
	mux.Handle("POST /api/orders/place-order", signedIn(moderate, h.Order.Place))
	mux.Handle("PUT /api/orders/update-order-status", admin(moderate, h.Order.UpdateStatus))
	mux.Handle("GET /api/orders/{orderId}", signedIn(general, h.Order.GetByID))

	// Apply middleware in order: RequestID -> Recovery -> Logging -> CORS
	var handler http.Handler = mux
	handler = middleware.CORS(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}
