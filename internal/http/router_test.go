package http_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/storefront-admin/internal/admin"
	"github.com/iyhunko/storefront-admin/internal/cache"
	"github.com/iyhunko/storefront-admin/internal/catalog"
	apihttp "github.com/iyhunko/storefront-admin/internal/http"
	"github.com/iyhunko/storefront-admin/internal/http/controller"
	"github.com/iyhunko/storefront-admin/internal/http/middleware"
	"github.com/iyhunko/storefront-admin/internal/model"
	"github.com/iyhunko/storefront-admin/internal/session"
	"github.com/iyhunko/storefront-admin/internal/storeapi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory remote store speaking the REST API.
type fakeStore struct {
	mu         sync.Mutex
	nextID     int64
	products   []model.Product
	categories []model.Category
	creates    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:     3,
		categories: []model.Category{{ID: 1, Name: "Garden", Slug: "garden"}, {ID: 2, Name: "Kitchen", Slug: "kitchen"}},
		products: []model.Product{
			{ID: 1, Name: "Bucket", Price: decimal.NewFromInt(30), Quantity: 4, Category: model.CategoryRef{ID: 1}, Available: true},
			{ID: 2, Name: "Pan", Price: decimal.NewFromInt(20), Quantity: 0, Category: model.CategoryRef{ID: 2}, Available: false},
		},
	}
}

func (s *fakeStore) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer acc" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": "Authentication credentials were not provided."}`))
		return false
	}
	return true
}

func (s *fakeStore) handler() http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("POST /api/v1/accounts/login/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.Credentials{Access: "acc", Refresh: "ref"})
	})
	mux.HandleFunc("GET /api/v1/store/category/all/", func(w http.ResponseWriter, r *http.Request) {
		if s.authorized(w, r) {
			writeJSON(w, http.StatusOK, s.categories)
		}
	})
	mux.HandleFunc("GET /api/v1/store/products/all/", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(w, r) {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"product": s.products})
	})
	mux.HandleFunc("GET /api/v1/store/category-products/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		groups := make([]model.CategoryWithProducts, 0, len(s.categories))
		for _, c := range s.categories {
			g := model.CategoryWithProducts{Category: c}
			for _, p := range s.products {
				if p.Category.ID == c.ID {
					g.Products = append(g.Products, p)
				}
			}
			groups = append(groups, g)
		}
		writeJSON(w, http.StatusOK, groups)
	})
	mux.HandleFunc("POST /api/v1/store/products/create/", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(w, r) {
			return
		}
		p, err := productFromForm(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"detail": err.Error()})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.creates++
		p.ID = s.nextID
		s.nextID++
		s.products = append(s.products, p)
		writeJSON(w, http.StatusCreated, p)
	})
	mux.HandleFunc("PUT /api/v1/store/products/update/{id}/", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(w, r) {
			return
		}
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		p, err := productFromForm(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"detail": err.Error()})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.products {
			if s.products[i].ID == id {
				p.ID = id
				s.products[i] = p
				writeJSON(w, http.StatusOK, p)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
	})
	mux.HandleFunc("DELETE /api/v1/store/products/delete/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(w, r) {
			return
		}
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.products {
			if s.products[i].ID == id {
				s.products = append(s.products[:i], s.products[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
	})
	return mux
}

func productFromForm(r *http.Request) (model.Product, error) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		return model.Product{}, err
	}
	price, err := decimal.NewFromString(r.FormValue("price"))
	if err != nil {
		return model.Product{}, err
	}
	qty, err := strconv.Atoi(r.FormValue("quantity"))
	if err != nil {
		return model.Product{}, err
	}
	category, err := strconv.ParseInt(r.FormValue("category"), 10, 64)
	if err != nil {
		return model.Product{}, err
	}
	updated, err := time.Parse(time.RFC3339Nano, r.FormValue("last_updated"))
	if err != nil {
		return model.Product{}, err
	}
	p := model.Product{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Price:       price,
		Quantity:    qty,
		Category:    model.CategoryRef{ID: category},
		Available:   r.FormValue("available") == "true",
		LastUpdated: updated,
	}
	if _, header, err := r.FormFile("image"); err == nil {
		p.Image = "/media/" + header.Filename
	}
	return p, nil
}

type console struct {
	store  *fakeStore
	router *gin.Engine
}

func newConsole(t *testing.T) console {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newFakeStore()
	srv := httptest.NewServer(store.handler())
	t.Cleanup(srv.Close)

	client := storeapi.NewClient(srv.URL, time.Second)
	sess := session.New(client)
	adminCtr := admin.NewController(client, sess, cache.New())
	t.Cleanup(adminCtr.Close)

	router := apihttp.InitRouter(gin.New(), middleware.New(sess), apihttp.Controllers{
		General:  controller.New(sess, adminCtr, catalog.New(client)),
		Products: controller.NewProductController(adminCtr),
		Forms:    controller.NewFormController(adminCtr),
	})
	return console{store: store, router: router}
}

func (c console) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func (c console) login(t *testing.T) {
	t.Helper()
	w := c.do(t, http.MethodPost, "/login", map[string]string{"username": "admin"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func ids(products []controller.ProductResponse) []int64 {
	out := make([]int64, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestPing(t *testing.T) {
	c := newConsole(t)

	w := c.do(t, http.MethodGet, "/ping", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")
}

func TestAdminRoutesRequireSignIn(t *testing.T) {
	c := newConsole(t)

	for _, path := range []string{"/admin/view", "/admin/products"} {
		w := c.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestLogin(t *testing.T) {
	t.Run("loads categories and products", func(t *testing.T) {
		c := newConsole(t)

		w := c.do(t, http.MethodPost, "/login", map[string]string{"username": "admin"})

		require.Equal(t, http.StatusOK, w.Code)
		state := decode[admin.State](t, w)
		assert.True(t, state.SignedIn)
		assert.Equal(t, "admin", state.Username)
		assert.Len(t, state.Categories, 2)
		assert.Equal(t, admin.ListView, state.View)

		list := decode[controller.ListProductsResponse](t, c.do(t, http.MethodGet, "/admin/products", nil))
		assert.Equal(t, []int64{1, 2}, ids(list.Products))
	})

	t.Run("short username is rejected locally", func(t *testing.T) {
		c := newConsole(t)

		w := c.do(t, http.MethodPost, "/login", map[string]string{"username": " a "})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[controller.ErrorResponse](t, w)
		assert.Equal(t, "Name must be at least 2 characters long", resp.Message)
	})

	t.Run("logout clears the console", func(t *testing.T) {
		c := newConsole(t)
		c.login(t)

		w := c.do(t, http.MethodPost, "/logout", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, http.StatusUnauthorized, c.do(t, http.MethodGet, "/admin/products", nil).Code)
	})
}

func TestListProducts(t *testing.T) {
	c := newConsole(t)
	c.login(t)

	w := c.do(t, http.MethodGet, "/admin/products?sort=price&dir=desc", nil)

	require.Equal(t, http.StatusOK, w.Code)
	list := decode[controller.ListProductsResponse](t, w)
	assert.Equal(t, []int64{1, 2}, ids(list.Products))
	assert.Equal(t, "price", list.Filter.Sort)
	assert.Equal(t, "30.00", list.Products[0].Price)

	// the state sticks; toggling the same field flips the direction
	w = c.do(t, http.MethodPost, "/admin/products/sort/price", nil)
	list = decode[controller.ListProductsResponse](t, w)
	assert.Equal(t, "asc", list.Filter.Direction)
	assert.Equal(t, []int64{2, 1}, ids(list.Products))

	w = c.do(t, http.MethodGet, "/admin/products?category=kitchen", nil)
	list = decode[controller.ListProductsResponse](t, w)
	assert.Equal(t, []int64{2}, ids(list.Products))

	w = c.do(t, http.MethodGet, "/admin/products?sort=colour", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateProductFlow(t *testing.T) {
	// given
	c := newConsole(t)
	c.login(t)
	require.Equal(t, http.StatusOK, c.do(t, http.MethodPost, "/admin/forms/add", nil).Code)

	// when submitting without a name
	w := c.do(t, http.MethodPost, "/admin/forms/submit", nil)

	// then the store is not called
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode[controller.ErrorResponse](t, w)
	require.NotNil(t, resp.State)
	assert.Equal(t, "Product name is required", resp.State.Form.Errors["name"])
	assert.Equal(t, "creating", string(resp.State.Form.Mode))
	assert.Zero(t, c.store.creates)

	// when the draft is completed
	for field, value := range map[string]string{"name": "Rake", "price": "12.5", "quantity": "7", "category": "1"} {
		w = c.do(t, http.MethodPatch, "/admin/forms/fields", map[string]string{"field": field, "value": value})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w = c.do(t, http.MethodPost, "/admin/forms/submit", nil)

	// then
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, c.store.creates)
	list := decode[controller.ListProductsResponse](t, c.do(t, http.MethodGet, "/admin/products?sort=id", nil))
	assert.Equal(t, []int64{1, 2, 3}, ids(list.Products))
	state := decode[admin.State](t, c.do(t, http.MethodGet, "/admin/view", nil))
	assert.Equal(t, admin.ListView, state.View)
}

func TestSetImage(t *testing.T) {
	c := newConsole(t)
	c.login(t)
	require.Equal(t, http.StatusOK, c.do(t, http.MethodPost, "/admin/forms/edit/1", nil).Code)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "bucket.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("png"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPut, "/admin/forms/image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = c.do(t, http.MethodPost, "/admin/forms/submit", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "/media/bucket.png")
}

func TestEditFieldWithoutOpenForm(t *testing.T) {
	c := newConsole(t)
	c.login(t)

	w := c.do(t, http.MethodPatch, "/admin/forms/fields", map[string]string{"field": "name", "value": "x"})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteProduct(t *testing.T) {
	c := newConsole(t)
	c.login(t)

	w := c.do(t, http.MethodDelete, "/admin/products/1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	list := decode[controller.ListProductsResponse](t, c.do(t, http.MethodGet, "/admin/products", nil))
	assert.Equal(t, []int64{2}, ids(list.Products))

	// deleting again reports the product as gone
	w = c.do(t, http.MethodDelete, "/admin/products/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.True(t, decode[controller.ErrorResponse](t, w).Reloaded)

	w = c.do(t, http.MethodDelete, "/admin/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToggleAvailability(t *testing.T) {
	c := newConsole(t)
	c.login(t)

	w := c.do(t, http.MethodPost, "/admin/products/2/availability", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	p := decode[controller.ProductResponse](t, w)
	assert.True(t, p.Available)
	assert.False(t, p.Pending)
	assert.NotEmpty(t, p.LastUpdated)
	assert.True(t, c.store.products[1].Available)
}

func TestCatalog(t *testing.T) {
	c := newConsole(t)

	w := c.do(t, http.MethodGet, "/catalog?search=BUCK", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[controller.CatalogResponse](t, w)
	assert.Len(t, resp.Categories, 2)
	assert.Equal(t, []int64{1}, ids(resp.Products))

	// unavailable products never reach shoppers
	resp = decode[controller.CatalogResponse](t, c.do(t, http.MethodGet, "/catalog?category=kitchen&all=true", nil))
	assert.Empty(t, resp.Products)
}

func TestAuditRoutesMountedOnlyWhenEnabled(t *testing.T) {
	c := newConsole(t)
	c.login(t)

	w := c.do(t, http.MethodGet, "/admin/audit", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPreflight(t *testing.T) {
	c := newConsole(t)

	w := c.do(t, http.MethodOptions, "/admin/products", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "PATCH"))
}
