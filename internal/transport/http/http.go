package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"

	"github.com/mercatolabs/fulfillment/internal/dal/interfaces/iorderrepo"
	"github.com/mercatolabs/fulfillment/internal/service/models/coupon"
	"github.com/mercatolabs/fulfillment/internal/service/models/money"
	"github.com/mercatolabs/fulfillment/internal/service/models/order"
	"github.com/mercatolabs/fulfillment/internal/service/services/ordersvc"
	applycoupon "github.com/mercatolabs/fulfillment/internal/transport/http/apply_coupon"
	couponshandler "github.com/mercatolabs/fulfillment/internal/transport/http/coupons"
	createorder "github.com/mercatolabs/fulfillment/internal/transport/http/create_order"
	listorders "github.com/mercatolabs/fulfillment/internal/transport/http/list_orders"
	orderactions "github.com/mercatolabs/fulfillment/internal/transport/http/order_actions"
	"github.com/mercatolabs/fulfillment/pkg/http/middleware/trace"
	"github.com/mercatolabs/fulfillment/pkg/logger"
)

// orderService is the order side of the API.
type orderService interface {
	CreateOrder(ctx context.Context, params ordersvc.CreateOrderParams) (*order.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*order.Order, error)
	ListOrders(ctx context.Context, filter *iorderrepo.QueryOrdersModel) ([]*order.Order, error)
	MarkAsPaid(ctx context.Context, orderID int64, by order.Executor) (*order.Order, error)
	MarkAsCOD(ctx context.Context, orderID int64, by order.Executor) (*order.Order, error)
	ConfirmPackage(ctx context.Context, orderID, packageID int64, by order.Executor) (*order.Order, error)
	RejectPackage(ctx context.Context, orderID, packageID int64, reason string, by order.Executor) (*order.Order, error)
	AssignShipping(ctx context.Context, orderID, packageID, shippingID int64, by order.Executor) (*order.Order, error)
	ShipPackage(ctx context.Context, orderID, packageID int64, by order.Executor) (*order.Order, error)
	MarkPackageAsDelivered(ctx context.Context, orderID, packageID int64, by order.Executor) (*order.Order, error)
	CompleteOrder(ctx context.Context, orderID int64, by order.Executor) (*order.Order, error)
	CancelOrder(ctx context.Context, orderID int64, reason string, by order.Executor) (*order.Order, error)
	ExpireOrder(ctx context.Context, orderID int64) (*order.Order, error)
	ApplyCoupon(ctx context.Context, orderID, packageID int64, couponCode string, by order.Executor) (*order.Order, error)
}

// couponService is the coupon side of the API.
type couponService interface {
	CreateCoupon(ctx context.Context, params coupon.NewCouponParams) (*coupon.Coupon, error)
	GetCoupon(ctx context.Context, id int64) (*coupon.Coupon, error)
	ApproveCoupon(ctx context.Context, id int64) (*coupon.Coupon, error)
	RejectCoupon(ctx context.Context, id int64) (*coupon.Coupon, error)
	DeactivateCoupon(ctx context.Context, id int64) (*coupon.Coupon, error)
	ValidateCoupon(ctx context.Context, code string, userID int64, orderTotal money.Money, productIDs []int64, storeID *int64) ([]string, error)
}

type HTTPTransport struct {
	server  *http.Server
	router  *chi.Mux
	orders  orderService
	coupons couponService
}

func NewHTTPTransport(orders orderService, coupons couponService) *HTTPTransport {
	router := newRouter()
	server := newServer(router)
	return &HTTPTransport{
		server:  server,
		router:  router,
		orders:  orders,
		coupons: coupons,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.createOrder)
			r.Get("/", h.listOrders)

			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", h.getOrder)
				r.Post("/pay", h.markAsPaid)
				r.Post("/cod", h.markAsCOD)
				r.Post("/complete", h.completeOrder)
				r.Post("/cancel", h.cancelOrder)
				r.Post("/expire", h.expireOrder)
				r.Post("/coupon", h.applyCoupon)

				r.Route("/packages/{packageID}", func(r chi.Router) {
					r.Post("/confirm", h.confirmPackage)
					r.Post("/reject", h.rejectPackage)
					r.Post("/shipping", h.assignShipping)
					r.Post("/ship", h.shipPackage)
					r.Post("/deliver", h.deliverPackage)
				})
			})
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Post("/", h.createCoupon)
			r.Post("/validate", h.validateCoupon)

			r.Route("/{couponID}", func(r chi.Router) {
				r.Get("/", h.getCoupon)
				r.Post("/approve", h.approveCoupon)
				r.Post("/reject", h.rejectCoupon)
				r.Post("/deactivate", h.deactivateCoupon)
			})
		})
	})
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	createorder.CreateOrder(w, r, h.orders)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.orders)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	listorders.GetOrder(w, r, h.orders)
}

func (h *HTTPTransport) markAsPaid(w http.ResponseWriter, r *http.Request) {
	orderactions.MarkAsPaid(w, r, h.orders)
}

func (h *HTTPTransport) markAsCOD(w http.ResponseWriter, r *http.Request) {
	orderactions.MarkAsCOD(w, r, h.orders)
}

func (h *HTTPTransport) completeOrder(w http.ResponseWriter, r *http.Request) {
	orderactions.CompleteOrder(w, r, h.orders)
}

func (h *HTTPTransport) cancelOrder(w http.ResponseWriter, r *http.Request) {
	orderactions.CancelOrder(w, r, h.orders)
}

func (h *HTTPTransport) expireOrder(w http.ResponseWriter, r *http.Request) {
	orderactions.ExpireOrder(w, r, h.orders)
}

func (h *HTTPTransport) applyCoupon(w http.ResponseWriter, r *http.Request) {
	applycoupon.ApplyCoupon(w, r, h.orders)
}

func (h *HTTPTransport) confirmPackage(w http.ResponseWriter, r *http.Request) {
	orderactions.ConfirmPackage(w, r, h.orders)
}

func (h *HTTPTransport) rejectPackage(w http.ResponseWriter, r *http.Request) {
	orderactions.RejectPackage(w, r, h.orders)
}

func (h *HTTPTransport) assignShipping(w http.ResponseWriter, r *http.Request) {
	orderactions.AssignShipping(w, r, h.orders)
}

func (h *HTTPTransport) shipPackage(w http.ResponseWriter, r *http.Request) {
	orderactions.ShipPackage(w, r, h.orders)
}

func (h *HTTPTransport) deliverPackage(w http.ResponseWriter, r *http.Request) {
	orderactions.MarkPackageAsDelivered(w, r, h.orders)
}

func (h *HTTPTransport) createCoupon(w http.ResponseWriter, r *http.Request) {
	couponshandler.CreateCoupon(w, r, h.coupons)
}

func (h *HTTPTransport) getCoupon(w http.ResponseWriter, r *http.Request) {
	couponshandler.GetCoupon(w, r, h.coupons)
}

func (h *HTTPTransport) approveCoupon(w http.ResponseWriter, r *http.Request) {
	couponshandler.ApproveCoupon(w, r, h.coupons)
}

func (h *HTTPTransport) rejectCoupon(w http.ResponseWriter, r *http.Request) {
	couponshandler.RejectCoupon(w, r, h.coupons)
}

func (h *HTTPTransport) deactivateCoupon(w http.ResponseWriter, r *http.Request) {
	couponshandler.DeactivateCoupon(w, r, h.coupons)
}

func (h *HTTPTransport) validateCoupon(w http.ResponseWriter, r *http.Request) {
	couponshandler.ValidateCoupon(w, r, h.coupons)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
