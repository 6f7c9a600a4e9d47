package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_api/internal/db"
	"github.com/Skotchmaster/shop_api/internal/middleware/auth"
	"github.com/Skotchmaster/shop_api/internal/models"
	"github.com/Skotchmaster/shop_api/internal/repo"
	"github.com/Skotchmaster/shop_api/internal/search"
	"github.com/Skotchmaster/shop_api/internal/service"
)

type testEnv struct {
	t     *testing.T
	e     *echo.Echo
	db    *gorm.DB
	ready error
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb := db.OpenTest(t)
	r := repo.NewGormRepo(gdb)

	authSvc := &service.AuthService{
		Users:    r,
		Sessions: r,
		Secret:   []byte("test-session-secret"),
		TTL:      time.Hour,
	}
	for _, u := range []string{"alice", "bob"} {
		_, err := authSvc.SeedUser(context.Background(), u, u+"-pw")
		require.NoError(t, err)
	}

	env := &testEnv{t: t, e: echo.New(), db: gdb}
	Register(env.e, &Deps{
		AuthHandler:    &AuthHTTP{Svc: authSvc},
		ProductHandler: &ProductHTTP{Svc: &service.CatalogService{Products: r, Index: search.NewDBIndex(r)}},
		CartHandler:    &CartHTTP{Svc: &service.CartService{Cart: r}},
		Auth:           auth.NewSessionAuth(authSvc, false),
		Ready:          func(context.Context) error { return env.ready },
	})
	return env
}

func (env *testEnv) do(method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	env.t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) login(username string) *http.Cookie {
	env.t.Helper()

	rec := env.do(http.MethodPost, "/login", fmt.Sprintf(`{"username":%q,"password":%q}`, username, username+"-pw"), nil)
	require.Equal(env.t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			return c
		}
	}
	env.t.Fatalf("no session cookie in login response")
	return nil
}

func assertMessage(t *testing.T, rec *httptest.ResponseRecorder, code int, msg string) {
	t.Helper()
	require.Equal(t, code, rec.Code, rec.Body.String())
	assert.JSONEq(t, fmt.Sprintf(`{"message":%q}`, msg), rec.Body.String())
}

func (env *testEnv) addProduct(cookie *http.Cookie, body string) {
	env.t.Helper()
	rec := env.do(http.MethodPost, "/api/products/add", body, cookie)
	require.Equal(env.t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRoot(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "API up", rec.Body.String())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health/live", "", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health/ready", "", nil).Code)

	env.ready = errors.New("db down")
	assert.Equal(t, http.StatusServiceUnavailable, env.do(http.MethodGet, "/health/ready", "", nil).Code)
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)

	assertMessage(t, env.do(http.MethodGet, "/nope", "", nil), http.StatusNotFound, "Not Found")
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
		code int
		msg  string
	}{
		{name: "valid", body: `{"username":"alice","password":"alice-pw"}`, code: http.StatusOK, msg: "Logged in successfully"},
		{name: "wrong password", body: `{"username":"alice","password":"nope"}`, code: http.StatusUnauthorized, msg: "Unauthorized. Invalid credentials"},
		{name: "unknown user", body: `{"username":"carol","password":"x"}`, code: http.StatusUnauthorized, msg: "Unauthorized. Invalid credentials"},
		{name: "missing fields", body: `{}`, code: http.StatusUnauthorized, msg: "Unauthorized. Invalid credentials"},
		{name: "malformed body", body: `{"username":`, code: http.StatusUnauthorized, msg: "Unauthorized. Invalid credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/login", tt.body, nil)
			assertMessage(t, rec, tt.code, tt.msg)

			hasCookie := false
			for _, c := range rec.Result().Cookies() {
				if c.Name == auth.SessionCookie && c.Value != "" {
					hasCookie = true
					assert.True(t, c.HttpOnly)
				}
			}
			assert.Equal(t, tt.code == http.StatusOK, hasCookie)
		})
	}
}

func TestProtectedRoutesRequireLogin(t *testing.T) {
	env := newTestEnv(t)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/logout"},
		{http.MethodPost, "/api/products/add"},
		{http.MethodDelete, "/api/products/delete/1"},
		{http.MethodPut, "/api/products/update/1"},
		{http.MethodPost, "/api/cart/add/1"},
		{http.MethodDelete, "/api/cart/remove/1"},
		{http.MethodGet, "/api/cart"},
		{http.MethodPost, "/api/cart/checkout"},
	}

	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			assertMessage(t, env.do(r.method, r.path, "", nil), http.StatusUnauthorized, "Unauthorized")

			forged := &http.Cookie{Name: auth.SessionCookie, Value: "forged"}
			assertMessage(t, env.do(r.method, r.path, "", forged), http.StatusUnauthorized, "Unauthorized")
		})
	}
}

func TestLogout_RevokesSession(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login("alice")

	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/cart", "", cookie).Code)

	rec := env.do(http.MethodPost, "/logout", "", cookie)
	assertMessage(t, rec, http.StatusOK, "Logout successfully")

	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, auth.SessionCookie, cleared[0].Name)
	assert.Empty(t, cleared[0].Value)

	assertMessage(t, env.do(http.MethodGet, "/api/cart", "", cookie), http.StatusUnauthorized, "Unauthorized")
	assertMessage(t, env.do(http.MethodPost, "/logout", "", cookie), http.StatusUnauthorized, "Unauthorized")
}

func TestExpiredSessionIsRejected(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login("alice")

	require.NoError(t, env.db.Model(&models.Session{}).Where("1 = 1").
		Update("expires_at", time.Now().Add(-time.Minute).Unix()).Error)

	assertMessage(t, env.do(http.MethodGet, "/api/cart", "", cookie), http.StatusUnauthorized, "Unauthorized")
}

func TestProductLifecycle(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login("alice")

	assertMessage(t, env.do(http.MethodPost, "/api/products/add", `{"name":"Widget"}`, cookie),
		http.StatusBadRequest, "Invalid product data")
	assertMessage(t, env.do(http.MethodPost, "/api/products/add", `{"price":1}`, cookie),
		http.StatusBadRequest, "Invalid product data")
	assertMessage(t, env.do(http.MethodPost, "/api/products/add", `[1,2]`, cookie),
		http.StatusBadRequest, "Invalid product data")

	rec := env.do(http.MethodPost, "/api/products/add", `{"name":"Widget","price":9.99}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Product added successfully","id":1}`, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/products/1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"name":"Widget","price":9.99,"description":""}`, rec.Body.String())

	assertMessage(t, env.do(http.MethodPut, "/api/products/update/1", `{"price":12.5}`, cookie),
		http.StatusOK, "Product updated successfully")

	rec = env.do(http.MethodGet, "/api/products/1", "", nil)
	assert.JSONEq(t, `{"id":1,"name":"Widget","price":12.5,"description":""}`, rec.Body.String())

	assertMessage(t, env.do(http.MethodPut, "/api/products/update/1", `{"name":`, cookie),
		http.StatusBadRequest, "Invalid product data")
	assertMessage(t, env.do(http.MethodPut, "/api/products/update/42", `{"name":`, cookie),
		http.StatusNotFound, "Product not found")
	assertMessage(t, env.do(http.MethodPut, "/api/products/update/42", `{"name":"x"}`, cookie),
		http.StatusNotFound, "Product not found")

	long := strings.Repeat("x", service.MaxNameLength+1)
	assertMessage(t, env.do(http.MethodPut, "/api/products/update/1", `{"name":"`+long+`"}`, cookie),
		http.StatusBadRequest, "Invalid product data")
	assertMessage(t, env.do(http.MethodPut, "/api/products/update/42", `{"name":"`+long+`"}`, cookie),
		http.StatusNotFound, "Product not found")

	assertMessage(t, env.do(http.MethodDelete, "/api/products/delete/1", "", cookie),
		http.StatusOK, "Product deleted successfully")
	assertMessage(t, env.do(http.MethodDelete, "/api/products/delete/1", "", cookie),
		http.StatusNotFound, "Product not found")
	assertMessage(t, env.do(http.MethodGet, "/api/products/1", "", nil),
		http.StatusNotFound, "Product not found")
	assertMessage(t, env.do(http.MethodGet, "/api/products/abc", "", nil),
		http.StatusNotFound, "Product not found")
}

func TestListProducts(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	cookie := env.login("alice")
	env.addProduct(cookie, `{"name":"Widget","price":9.99,"description":"blue"}`)
	env.addProduct(cookie, `{"name":"Gadget","price":1}`)

	rec = env.do(http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":1,"name":"Widget","price":9.99},{"id":2,"name":"Gadget","price":1}]`, rec.Body.String())
}

func TestSearchProducts(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login("alice")
	env.addProduct(cookie, `{"name":"Blue Mug","price":3,"description":"ceramic"}`)
	env.addProduct(cookie, `{"name":"Gadget","price":1}`)

	assertMessage(t, env.do(http.MethodGet, "/api/products/search", "", nil), http.StatusBadRequest, "Missing search query")

	rec := env.do(http.MethodGet, "/api/products/search?q=CERAMIC", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":1,"name":"Blue Mug","price":3}]`, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/products/search?q=nothing", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCartFlow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login("alice")
	bob := env.login("bob")
	env.addProduct(alice, `{"name":"Widget","price":9.99}`)
	env.addProduct(alice, `{"name":"Gadget","price":1}`)

	rec := env.do(http.MethodGet, "/api/cart", "", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	for range 2 {
		assertMessage(t, env.do(http.MethodPost, "/api/cart/add/1", "", alice), http.StatusOK, "Item added to the cart successfully")
	}
	assertMessage(t, env.do(http.MethodPost, "/api/cart/add/2", "", bob), http.StatusOK, "Item added to the cart successfully")

	assertMessage(t, env.do(http.MethodPost, "/api/cart/add/99", "", alice), http.StatusBadRequest, "Failed to add item to the cart")
	assertMessage(t, env.do(http.MethodPost, "/api/cart/add/abc", "", alice), http.StatusBadRequest, "Failed to add item to the cart")

	rec = env.do(http.MethodGet, "/api/cart", "", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"id":1,"user_id":1,"product_id":1,"product_name":"Widget","product_price":9.99},
		{"id":2,"user_id":1,"product_id":1,"product_name":"Widget","product_price":9.99}
	]`, rec.Body.String())

	assertMessage(t, env.do(http.MethodDelete, "/api/cart/remove/1", "", alice), http.StatusOK, "Item removed from the cart successfully")
	assertMessage(t, env.do(http.MethodDelete, "/api/cart/remove/2", "", alice), http.StatusBadRequest, "Failed to remove item from the cart")
	assertMessage(t, env.do(http.MethodDelete, "/api/cart/remove/abc", "", alice), http.StatusBadRequest, "Failed to remove item from the cart")

	rec = env.do(http.MethodGet, "/api/cart", "", alice)
	assert.JSONEq(t, `[{"id":2,"user_id":1,"product_id":1,"product_name":"Widget","product_price":9.99}]`, rec.Body.String())

	assertMessage(t, env.do(http.MethodPost, "/api/cart/checkout", "", alice), http.StatusOK, "Checkout successful. Cart has been cleared.")
	assertMessage(t, env.do(http.MethodPost, "/api/cart/checkout", "", alice), http.StatusOK, "Checkout successful. Cart has been cleared.")

	rec = env.do(http.MethodGet, "/api/cart", "", alice)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/cart", "", bob)
	assert.JSONEq(t, `[{"id":3,"user_id":2,"product_id":2,"product_name":"Gadget","product_price":1}]`, rec.Body.String())
}

func TestDeleteProduct_DropsItFromCarts(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login("alice")
	env.addProduct(cookie, `{"name":"Widget","price":9.99}`)
	env.addProduct(cookie, `{"name":"Gadget","price":1}`)

	env.do(http.MethodPost, "/api/cart/add/1", "", cookie)
	env.do(http.MethodPost, "/api/cart/add/2", "", cookie)

	assertMessage(t, env.do(http.MethodDelete, "/api/products/delete/1", "", cookie), http.StatusOK, "Product deleted successfully")

	rec := env.do(http.MethodGet, "/api/cart", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":2,"user_id":1,"product_id":2,"product_name":"Gadget","product_price":1}]`, rec.Body.String())
}

func TestUnauthenticatedCallsChangeNothing(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login("alice")
	env.addProduct(alice, `{"name":"Widget","price":9.99,"description":"blue"}`)
	assertMessage(t, env.do(http.MethodPost, "/api/cart/add/1", "", alice), http.StatusOK, "Item added to the cart successfully")

	products := env.do(http.MethodGet, "/api/products", "", nil).Body.String()
	details := env.do(http.MethodGet, "/api/products/1", "", nil).Body.String()
	cart := env.do(http.MethodGet, "/api/cart", "", alice).Body.String()

	forged := &http.Cookie{Name: auth.SessionCookie, Value: "forged"}
	calls := []struct{ method, path, body string }{
		{http.MethodPost, "/api/products/add", `{"name":"Gadget","price":1}`},
		{http.MethodPut, "/api/products/update/1", `{"name":"Renamed","price":1}`},
		{http.MethodDelete, "/api/products/delete/1", ""},
		{http.MethodPost, "/api/cart/add/1", ""},
		{http.MethodDelete, "/api/cart/remove/1", ""},
		{http.MethodPost, "/api/cart/checkout", ""},
		{http.MethodPost, "/logout", ""},
	}
	for _, c := range calls {
		for _, cookie := range []*http.Cookie{nil, forged} {
			assertMessage(t, env.do(c.method, c.path, c.body, cookie), http.StatusUnauthorized, "Unauthorized")
		}
	}

	assert.JSONEq(t, products, env.do(http.MethodGet, "/api/products", "", nil).Body.String())
	assert.JSONEq(t, details, env.do(http.MethodGet, "/api/products/1", "", nil).Body.String())
	assert.JSONEq(t, cart, env.do(http.MethodGet, "/api/cart", "", alice).Body.String())

	var productRows, cartRows int64
	require.NoError(t, env.db.Model(&models.Product{}).Count(&productRows).Error)
	require.NoError(t, env.db.Model(&models.CartItem{}).Count(&cartRows).Error)
	assert.EqualValues(t, 1, productRows)
	assert.EqualValues(t, 1, cartRows)
}

func TestListProducts_RepeatableWithoutWrites(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login("alice")
	env.addProduct(cookie, `{"name":"Widget","price":9.99}`)
	env.addProduct(cookie, `{"name":"Gadget","price":1,"description":"red"}`)

	first := env.do(http.MethodGet, "/api/products", "", nil)
	second := env.do(http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestAddProduct_InvalidDataPersistsNothing(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login("alice")

	for _, body := range []string{`{"name":"Widget"}`, `{"price":1}`, `{"name":"` + strings.Repeat("x", service.MaxNameLength+1) + `","price":1}`} {
		assertMessage(t, env.do(http.MethodPost, "/api/products/add", body, cookie), http.StatusBadRequest, "Invalid product data")
	}

	rec := env.do(http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
