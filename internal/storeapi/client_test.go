package storeapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iyhunko/storefront-admin/internal/model"
	"github.com/iyhunko/storefront-admin/internal/storeapi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productJSON = `{
	"id": 7,
	"name": "Bucket",
	"description": "Galvanised",
	"price": "12.50",
	"quantity": 3,
	"category": {"id": 2, "name": "Garden", "slug": "garden"},
	"category_slug": "garden",
	"available": true,
	"image": "/media/bucket.png",
	"last_updated": "2024-03-01T10:00:00Z"
}`

func newServer(t *testing.T, handler http.HandlerFunc) *storeapi.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return storeapi.NewClient(srv.URL+"/", time.Second)
}

func TestClient_ListProducts(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bare array", body: "[" + productJSON + "]"},
		{name: "wrapped in product", body: `{"product": [` + productJSON + `]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/api/v1/store/products/all/", r.URL.Path)
				assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
				assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, tt.body)
			})

			// when
			products, err := client.ListProducts(context.Background(), "tok")

			// then
			require.NoError(t, err)
			require.Len(t, products, 1)
			p := products[0]
			assert.Equal(t, int64(7), p.ID)
			assert.Equal(t, "Bucket", p.Name)
			assert.True(t, p.Price.Equal(decimal.RequireFromString("12.5")))
			assert.Equal(t, 3, p.Quantity)
			assert.Equal(t, int64(2), p.Category.ID)
			assert.Equal(t, "garden", p.CategorySlug)
			assert.True(t, p.Available)
			assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), p.LastUpdated.UTC())
		})
	}
}

func TestClient_MissingTokenFailsLocally(t *testing.T) {
	called := false
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	ctx := context.Background()

	_, listErr := client.ListProducts(ctx, "")
	_, catErr := client.ListCategories(ctx, "")
	_, createErr := client.CreateProduct(ctx, model.ProductPayload{}, "")
	_, updateErr := client.UpdateProduct(ctx, 1, model.ProductPayload{}, "")
	deleteErr := client.DeleteProduct(ctx, 1, "")

	for _, err := range []error{listErr, catErr, createErr, updateErr, deleteErr} {
		assert.ErrorIs(t, err, storeapi.ErrUnauthorized)
	}
	assert.False(t, called)
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, storeapi.ErrUnauthorized},
		{http.StatusForbidden, storeapi.ErrUnauthorized},
		{http.StatusNotFound, storeapi.ErrNotFound},
		{http.StatusBadRequest, storeapi.ErrValidation},
		{http.StatusUnprocessableEntity, storeapi.ErrValidation},
		{http.StatusInternalServerError, storeapi.ErrServer},
		{http.StatusBadGateway, storeapi.ErrServer},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			err := client.DeleteProduct(context.Background(), 9, "tok")

			assert.ErrorIs(t, err, tt.want)
			var apiErr *storeapi.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
		})
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()
	client := storeapi.NewClient(url, time.Second)

	_, err := client.ListProducts(context.Background(), "tok")

	assert.ErrorIs(t, err, storeapi.ErrNetwork)
	assert.Equal(t, storeapi.KindNetwork, storeapi.KindOf(err))
}

func TestClient_ValidationFieldErrors(t *testing.T) {
	// given
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"name": ["product with this name already exists."], "price": ["Ensure this value is greater than 0.", "Required."], "non_field_errors": ["Invalid data."]}`)
	})

	// when
	_, err := client.CreateProduct(context.Background(), model.ProductPayload{Name: "Bucket"}, "tok")

	// then
	require.ErrorIs(t, err, storeapi.ErrValidation)
	assert.Equal(t, map[string]string{
		"name":  "product with this name already exists.",
		"price": "Ensure this value is greater than 0. Required.",
	}, storeapi.FieldErrors(err))
	var apiErr *storeapi.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid data.", apiErr.Message)
}

func TestClient_CreateProduct(t *testing.T) {
	// given
	payload := model.ProductPayload{
		Name:        "Bucket",
		Description: "Galvanised",
		Price:       decimal.RequireFromString("12.50"),
		Quantity:    3,
		CategoryID:  2,
		Available:   true,
		LastUpdated: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Image:       &model.Image{Filename: "bucket.png", Content: []byte("png-bytes")},
	}
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/store/products/create/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Bucket", r.FormValue("name"))
		assert.Equal(t, "Galvanised", r.FormValue("description"))
		assert.Equal(t, "12.5", r.FormValue("price"))
		assert.Equal(t, "3", r.FormValue("quantity"))
		assert.Equal(t, "2", r.FormValue("category"))
		assert.Equal(t, "true", r.FormValue("available"))
		assert.Equal(t, "2024-03-01T10:00:00Z", r.FormValue("last_updated"))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "bucket.png", header.Filename)
		assert.Equal(t, "png-bytes", string(content))

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, productJSON)
	})

	// when
	p, err := client.CreateProduct(context.Background(), payload, "tok")

	// then
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.ID)
}

func TestClient_UpdateProductWithoutEcho(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/store/products/update/7/", r.URL.Path)
		_, _ = io.WriteString(w, `{"message": "Product updated successfully"}`)
	})

	p, err := client.UpdateProduct(context.Background(), 7, model.ProductPayload{Name: "Bucket"}, "tok")

	require.NoError(t, err)
	assert.Zero(t, p.ID)
}

func TestClient_DeleteProduct(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/store/products/delete/7", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.DeleteProduct(context.Background(), 7, "tok"))
}

func TestClient_ListCategoriesWithProducts(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/store/category-products/", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[{"id": 2, "name": "Garden", "slug": "garden", "products": [`+productJSON+`]}]`)
	})

	categories, err := client.ListCategoriesWithProducts(context.Background())

	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "garden", categories[0].Slug)
	require.Len(t, categories[0].Products, 1)
	assert.Equal(t, "Bucket", categories[0].Products[0].Name)
}

func TestClient_ListCategories(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/store/category/all/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[{"id": 1, "name": "Tools", "slug": "tools"}]`)
	})

	categories, err := client.ListCategories(context.Background(), "tok")

	require.NoError(t, err)
	assert.Equal(t, []model.Category{{ID: 1, Name: "Tools", Slug: "tools"}}, categories)
}

func TestClient_Login(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/v1/accounts/login/", r.URL.Path)
			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "admin", req["username"])
			_, _ = io.WriteString(w, `{"access": "acc", "refresh": "ref"}`)
		})

		creds, err := client.Login(context.Background(), "admin")

		require.NoError(t, err)
		assert.Equal(t, model.Credentials{Access: "acc", Refresh: "ref"}, creds)
	})

	t.Run("rejected", func(t *testing.T) {
		client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail": "No active account found"}`)
		})

		_, err := client.Login(context.Background(), "nobody")

		assert.ErrorIs(t, err, storeapi.ErrInvalid)
		assert.NotErrorIs(t, err, storeapi.ErrUnauthorized)
	})

	t.Run("server failure stays a server failure", func(t *testing.T) {
		client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := client.Login(context.Background(), "admin")

		assert.ErrorIs(t, err, storeapi.ErrServer)
	})
}

func TestClient_GeneralMessagesJoinInKeyOrder(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"message": "Rejected.", "error": "Stock locked.", "detail": "Try later."}`)
	})

	for range 20 {
		err := client.DeleteProduct(context.Background(), 1, "tok")

		var apiErr *storeapi.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "Try later.; Stock locked.; Rejected.", apiErr.Message)
	}
}

func TestError_Message(t *testing.T) {
	err := &storeapi.Error{Kind: storeapi.KindValidation, Status: 400, Fields: map[string]string{"price": "bad", "name": "taken"}}

	assert.Equal(t, "store api: validation (status 400); name: taken; price: bad", err.Error())
}
