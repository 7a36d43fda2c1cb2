package httpapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/issouf7507-dev/codeqr-sub000/internal/cart"
	"github.com/issouf7507-dev/codeqr-sub000/internal/catalog"
	"github.com/issouf7507-dev/codeqr-sub000/internal/inventory"
	"github.com/issouf7507-dev/codeqr-sub000/internal/order"
	"github.com/issouf7507-dev/codeqr-sub000/internal/pagination"
	"github.com/issouf7507-dev/codeqr-sub000/internal/qrcode"
	"github.com/issouf7507-dev/codeqr-sub000/internal/user"
)

type fakeOrders struct {
	OrderService
	checkoutFunc     func(req order.CreateRequest, opts order.CheckoutOptions) (order.Result, error)
	getFunc          func(id string) (order.Order, error)
	listFunc         func(f order.Filter, p pagination.Page) (pagination.Result[order.Order], error)
	allFunc          func(f order.Filter) ([]order.Order, error)
	updateStatusFunc func(id string, to order.Status, ref string) (order.Order, error)
	replayFunc       func(key string) (order.Result, bool, error)
	listByUserFunc   func(userID string) ([]order.Order, error)
}

func (f *fakeOrders) Replay(ctx context.Context, key string) (order.Result, bool, error) {
	if f.replayFunc == nil {
		return order.Result{}, false, nil
	}
	return f.replayFunc(key)
}

func (f *fakeOrders) Checkout(ctx context.Context, req order.CreateRequest, opts order.CheckoutOptions) (order.Result, error) {
	return f.checkoutFunc(req, opts)
}

func (f *fakeOrders) Get(ctx context.Context, id string) (order.Order, error) {
	return f.getFunc(id)
}

func (f *fakeOrders) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	if f.listByUserFunc == nil {
		return nil, nil
	}
	return f.listByUserFunc(userID)
}

func (f *fakeOrders) List(ctx context.Context, flt order.Filter, p pagination.Page) (pagination.Result[order.Order], error) {
	return f.listFunc(flt, p)
}

func (f *fakeOrders) All(ctx context.Context, flt order.Filter) ([]order.Order, error) {
	return f.allFunc(flt)
}

func (f *fakeOrders) UpdateStatus(ctx context.Context, id string, to order.Status, ref, cid string) (order.Order, error) {
	return f.updateStatusFunc(id, to, ref)
}

type fakeStock struct {
	StockService
	checkFunc func(items []inventory.PackageLine) (inventory.StockCheck, error)
	set       map[string]int
}

func (f *fakeStock) Check(ctx context.Context, items []inventory.PackageLine) (inventory.StockCheck, error) {
	return f.checkFunc(items)
}

func (f *fakeStock) SetAvailable(ctx context.Context, productID string, n int) error {
	if f.set == nil {
		f.set = map[string]int{}
	}
	f.set[productID] = n
	return nil
}

func (f *fakeStock) Get(ctx context.Context, productID string) (inventory.StockItem, error) {
	n, ok := f.set[productID]
	if !ok {
		return inventory.StockItem{}, inventory.ErrNotFound
	}
	return inventory.StockItem{ProductID: productID, Available: n}, nil
}

type fakeQRCodes struct {
	QRCodeService
	lookupFunc   func(code string) (qrcode.PublicView, error)
	activateFunc func(code string, req qrcode.ActivateRequest) (qrcode.ActivateResult, error)
	redirectFunc func(code, userID, url string) (qrcode.QRCode, error)
	resolveFunc  func(code string) (string, error)
}

func (f *fakeQRCodes) Lookup(ctx context.Context, code string) (qrcode.PublicView, error) {
	return f.lookupFunc(code)
}

func (f *fakeQRCodes) Activate(ctx context.Context, code string, req qrcode.ActivateRequest, cid string) (qrcode.ActivateResult, error) {
	return f.activateFunc(code, req)
}

func (f *fakeQRCodes) UpdateRedirect(ctx context.Context, code, userID, url string) (qrcode.QRCode, error) {
	return f.redirectFunc(code, userID, url)
}

func (f *fakeQRCodes) Resolve(ctx context.Context, code string) (string, error) {
	return f.resolveFunc(code)
}

type fakeUsers struct {
	UserService
	existsFunc func(email string) (bool, error)
	allFunc    func(f user.Filter) ([]user.User, error)
}

func (f *fakeUsers) Exists(ctx context.Context, email string) (bool, error) {
	return f.existsFunc(email)
}

func (f *fakeUsers) All(ctx context.Context, flt user.Filter) ([]user.User, error) {
	return f.allFunc(flt)
}

type testServer struct {
	orders  *fakeOrders
	stock   *fakeStock
	qrcodes *fakeQRCodes
	users   *fakeUsers
	carts   *cart.Carts
	deps    Deps
}

const adminToken = "admin-secret"

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cat, err := catalog.Load("")
	require.NoError(t, err)

	s := &testServer{
		orders:  &fakeOrders{},
		stock:   &fakeStock{},
		qrcodes: &fakeQRCodes{},
		users:   &fakeUsers{},
		carts:   cart.NewCarts(cart.NewPersistence(cart.NewMemoryStore(), zap.NewNop(), nil)),
	}
	s.deps = Deps{
		Logger:           zap.NewNop(),
		CORSAllowOrigins: []string{"*"},
		AdminToken:       adminToken,
		Catalog:          cat,
		Carts:            s.carts,
		Stock:            s.stock,
		Orders:           s.orders,
		QRCodes:          s.qrcodes,
		Users:            s.users,
	}
	return s
}
