package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/issouf7507-dev/codeqr-sub000/internal/cart"
	"github.com/issouf7507-dev/codeqr-sub000/internal/catalog"
	"github.com/issouf7507-dev/codeqr-sub000/internal/inventory"
	"github.com/issouf7507-dev/codeqr-sub000/internal/metrics"
	"github.com/issouf7507-dev/codeqr-sub000/internal/middleware"
	"github.com/issouf7507-dev/codeqr-sub000/internal/order"
	"github.com/issouf7507-dev/codeqr-sub000/internal/pagination"
	"github.com/issouf7507-dev/codeqr-sub000/internal/qrcode"
	"github.com/issouf7507-dev/codeqr-sub000/internal/user"
)

type CartService interface {
	Get(ctx context.Context, key string) cart.State
	AddItemUpTo(ctx context.Context, key string, item cart.Item, quantity, limit int) (cart.State, cart.SaveResult, error)
	RemoveItem(ctx context.Context, key, id string) (cart.State, cart.SaveResult)
	UpdateQuantity(ctx context.Context, key, id string, quantity int) (cart.State, cart.SaveResult)
	Clear(ctx context.Context, key string) (cart.State, cart.SaveResult)
	Checkout(ctx context.Context, key string, fn func(cart.State) error) error
}

type StockService interface {
	Check(ctx context.Context, items []inventory.PackageLine) (inventory.StockCheck, error)
	Get(ctx context.Context, productID string) (inventory.StockItem, error)
	List(ctx context.Context) ([]inventory.StockItem, error)
	SetAvailable(ctx context.Context, productID string, available int) error
}

type OrderService interface {
	Checkout(ctx context.Context, req order.CreateRequest, opts order.CheckoutOptions) (order.Result, error)
	Replay(ctx context.Context, idempotencyKey string) (order.Result, bool, error)
	Get(ctx context.Context, orderID string) (order.Order, error)
	ListByUser(ctx context.Context, userID string) ([]order.Order, error)
	List(ctx context.Context, f order.Filter, p pagination.Page) (pagination.Result[order.Order], error)
	All(ctx context.Context, f order.Filter) ([]order.Order, error)
	UpdateStatus(ctx context.Context, orderID string, to order.Status, paymentRef, correlationID string) (order.Order, error)
	Delete(ctx context.Context, orderID string) error
}

type QRCodeService interface {
	Lookup(ctx context.Context, code string) (qrcode.PublicView, error)
	Activate(ctx context.Context, code string, req qrcode.ActivateRequest, correlationID string) (qrcode.ActivateResult, error)
	UpdateRedirect(ctx context.Context, code, userID, redirectURL string) (qrcode.QRCode, error)
	Resolve(ctx context.Context, code string) (string, error)
	Generate(ctx context.Context, count int, orderID string) ([]qrcode.QRCode, error)
	Get(ctx context.Context, id string) (qrcode.QRCode, error)
	List(ctx context.Context, f qrcode.Filter, p pagination.Page) (pagination.Result[qrcode.QRCode], error)
	All(ctx context.Context, f qrcode.Filter) ([]qrcode.QRCode, error)
	Update(ctx context.Context, id string, in qrcode.UpdateInput) (qrcode.QRCode, error)
	Delete(ctx context.Context, id string) error
}

type UserService interface {
	Exists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, in user.CreateInput) (user.User, error)
	Get(ctx context.Context, id string) (user.User, error)
	List(ctx context.Context, f user.Filter, p pagination.Page) (pagination.Result[user.User], error)
	All(ctx context.Context, f user.Filter) ([]user.User, error)
	Update(ctx context.Context, id string, in user.UpdateInput) (user.User, error)
	Delete(ctx context.Context, id string) error
}

// HealthProbe is a dependency checked by /health/ready.
type HealthProbe struct {
	Name  string
	Check func(ctx context.Context) error
}

type Deps struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	CORSAllowOrigins []string
	AdminToken       string
	RequestTimeout   time.Duration

	Catalog *catalog.Catalog
	Carts   CartService
	Stock   StockService
	Orders  OrderService
	QRCodes QRCodeService
	Users   UserService

	Probes []HealthProbe
}

type Handler struct {
	logger  *zap.Logger
	timeout time.Duration

	catalog *catalog.Catalog
	carts   CartService
	stock   StockService
	orders  OrderService
	qrcodes QRCodeService
	users   UserService
	probes  []HealthProbe
}

func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 5 * time.Second
	}
	h := &Handler{
		logger:  d.Logger.Named("http"),
		timeout: d.RequestTimeout,
		catalog: d.Catalog,
		carts:   d.Carts,
		stock:   d.Stock,
		orders:  d.Orders,
		qrcodes: d.QRCodes,
		users:   d.Users,
		probes:  d.Probes,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Logging(h.logger, d.Metrics))
	r.Use(middleware.Recover(h.logger))
	r.Use(middleware.CORS(d.CORSAllowOrigins))

	r.Get("/health", h.Health)
	r.Get("/health/ready", h.Ready)
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	r.Get("/q/{code}", h.RedirectQRCode)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.OptionalUserID)

		r.Get("/products", h.ListProducts)
		r.Get("/products/{productId}", h.GetProduct)

		r.Route("/cart/{cartKey}", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddCartItem)
			r.Patch("/items/{itemId}", h.UpdateCartItem)
			r.Delete("/items/{itemId}", h.RemoveCartItem)
			r.Post("/checkout", h.CheckoutCart)
		})

		r.Post("/stock/check", h.CheckStock)

		r.Post("/orders", h.CreateOrder)
		r.Get("/orders/{orderId}", h.GetOrder)
		r.With(middleware.RequireUserID).Get("/users/{userId}/orders", h.ListUserOrders)

		r.Get("/users/exists", h.UserExists)

		r.Get("/qrcodes/{code}", h.LookupQRCode)
		r.Post("/qrcodes/{code}/activate", h.ActivateQRCode)
		r.With(middleware.RequireUserID).Put("/qrcodes/{code}/redirect", h.UpdateQRCodeRedirect)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminToken(d.AdminToken))
			h.adminRoutes(r)
		})
	})

	return r
}
