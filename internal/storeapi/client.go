// Package storeapi is a typed client for the remote store REST API.
package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/storefront-admin/internal/metrics"
	"github.com/iyhunko/storefront-admin/internal/model"
)

const (
	productsPath           = "/api/v1/store/products/all/"
	categoryProductsPath   = "/api/v1/store/category-products/"
	categoriesPath         = "/api/v1/store/category/all/"
	createProductPath      = "/api/v1/store/products/create/"
	updateProductPathFmt   = "/api/v1/store/products/update/%d/"
	deleteProductPathFmt   = "/api/v1/store/products/delete/%d"
	loginPath              = "/api/v1/accounts/login/"
	requestIDHeader        = "X-Request-ID"
	defaultTimeout         = 10 * time.Second
	maxResponseBodyLogSize = 512
)

// Client issues requests against the remote store. Every method returns
// either a value or an *Error; none of them panic on transport failures.
//
// CreateProduct is never retried internally since a retry may duplicate the product.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the given base URL. A zero timeout uses 10s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ListProducts returns every product. A missing token fails locally with
// KindUnauthorized without touching the network.
func (c *Client) ListProducts(ctx context.Context, token string) ([]model.Product, error) {
	if token == "" {
		return nil, unauthorizedLocally()
	}
	body, err := c.do(ctx, http.MethodGet, productsPath, token, nil, "")
	if err != nil {
		return nil, err
	}
	return decodeProductList(body)
}

// ListCategoriesWithProducts returns the public catalog: categories with their products embedded.
func (c *Client) ListCategoriesWithProducts(ctx context.Context) ([]model.CategoryWithProducts, error) {
	body, err := c.do(ctx, http.MethodGet, categoryProductsPath, "", nil, "")
	if err != nil {
		return nil, err
	}
	var categories []model.CategoryWithProducts
	if err := json.Unmarshal(body, &categories); err != nil {
		return nil, decodeFailure(err)
	}
	return categories, nil
}

// ListCategories returns all categories.
func (c *Client) ListCategories(ctx context.Context, token string) ([]model.Category, error) {
	if token == "" {
		return nil, unauthorizedLocally()
	}
	body, err := c.do(ctx, http.MethodGet, categoriesPath, token, nil, "")
	if err != nil {
		return nil, err
	}
	var categories []model.Category
	if err := json.Unmarshal(body, &categories); err != nil {
		return nil, decodeFailure(err)
	}
	return categories, nil
}

// CreateProduct submits a new product. The returned product has a zero ID
// when the server acknowledges the write without echoing the record.
func (c *Client) CreateProduct(ctx context.Context, payload model.ProductPayload, token string) (model.Product, error) {
	if token == "" {
		return model.Product{}, unauthorizedLocally()
	}
	form, contentType, err := encodePayload(payload)
	if err != nil {
		return model.Product{}, err
	}
	body, err := c.do(ctx, http.MethodPost, createProductPath, token, form, contentType)
	if err != nil {
		return model.Product{}, err
	}
	return decodeProduct(body)
}

// UpdateProduct replaces the fields of product id. Like CreateProduct, a
// zero ID in the result means the server did not echo the record.
func (c *Client) UpdateProduct(ctx context.Context, id int64, payload model.ProductPayload, token string) (model.Product, error) {
	if token == "" {
		return model.Product{}, unauthorizedLocally()
	}
	form, contentType, err := encodePayload(payload)
	if err != nil {
		return model.Product{}, err
	}
	body, err := c.do(ctx, http.MethodPut, fmt.Sprintf(updateProductPathFmt, id), token, form, contentType)
	if err != nil {
		return model.Product{}, err
	}
	return decodeProduct(body)
}

// DeleteProduct removes product id.
func (c *Client) DeleteProduct(ctx context.Context, id int64, token string) error {
	if token == "" {
		return unauthorizedLocally()
	}
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf(deleteProductPathFmt, id), token, nil, "")
	return err
}

type loginRequest struct {
	Username string `json:"username"`
}

// Login exchanges a username for a bearer token pair. Rejections by the
// server are reported as KindInvalid.
func (c *Client) Login(ctx context.Context, username string) (model.Credentials, error) {
	reqBody, err := json.Marshal(loginRequest{Username: username})
	if err != nil {
		return model.Credentials{}, fmt.Errorf("failed to marshal login request: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, loginPath, "", bytes.NewReader(reqBody), "application/json")
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && (apiErr.Kind == KindValidation || apiErr.Kind == KindNotFound || apiErr.Kind == KindUnauthorized) {
			apiErr.Kind = KindInvalid
		}
		return model.Credentials{}, err
	}
	var creds model.Credentials
	if err := json.Unmarshal(body, &creds); err != nil {
		return model.Credentials{}, decodeFailure(err)
	}
	if creds.Access == "" {
		return model.Credentials{}, &Error{Kind: KindInvalid, Message: "login response carried no access token"}
	}
	return creds, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("Store API request failed", slog.String("method", method), slog.String("path", path), slog.Any("err", err))
		metrics.StoreAPIFailures.WithLabelValues(string(KindNetwork)).Inc()
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.StoreAPIFailures.WithLabelValues(string(KindNetwork)).Inc()
		return nil, &Error{Kind: KindNetwork, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	kind := kindForStatus(resp.StatusCode)
	message, fields := parseErrorBody(respBody)
	slog.Warn("Store API returned an error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.String("kind", string(kind)),
		slog.String("body", truncate(respBody, maxResponseBodyLogSize)),
	)
	metrics.StoreAPIFailures.WithLabelValues(string(kind)).Inc()
	return nil, &Error{Kind: kind, Status: resp.StatusCode, Message: message, Fields: fields}
}

func unauthorizedLocally() error {
	return &Error{Kind: KindUnauthorized, Message: "no credential present"}
}

func decodeFailure(err error) error {
	return &Error{Kind: KindServer, Message: "malformed response", Err: err}
}

type productListEnvelope struct {
	Product []model.Product `json:"product"`
}

func decodeProductList(body []byte) ([]model.Product, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env productListEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, decodeFailure(err)
		}
		return env.Product, nil
	}
	var products []model.Product
	if err := json.Unmarshal(trimmed, &products); err != nil {
		return nil, decodeFailure(err)
	}
	return products, nil
}

func decodeProduct(body []byte) (model.Product, error) {
	var product model.Product
	if len(bytes.TrimSpace(body)) == 0 {
		return product, nil
	}
	if err := json.Unmarshal(body, &product); err != nil {
		return model.Product{}, decodeFailure(err)
	}
	return product, nil
}

var messageKeys = map[string]bool{
	"detail":           true,
	"message":          true,
	"error":            true,
	"non_field_errors": true,
}

// parseErrorBody extracts a general message and per-field errors from an
// error response. Bodies that are not JSON objects become the message.
func parseErrorBody(body []byte) (string, map[string]string) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		var s string
		if json.Unmarshal(trimmed, &s) == nil {
			return s, nil
		}
		return truncate(trimmed, maxResponseBodyLogSize), nil
	}

	var message string
	fields := map[string]string{}
	for _, key := range slices.Sorted(maps.Keys(raw)) {
		text := flattenMessage(raw[key])
		if text == "" {
			continue
		}
		if messageKeys[key] {
			if message == "" {
				message = text
			} else {
				message += "; " + text
			}
			continue
		}
		fields[key] = text
	}
	if len(fields) == 0 {
		fields = nil
	}
	return message, fields
}

func flattenMessage(value json.RawMessage) string {
	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(value, &list); err == nil {
		return strings.Join(list, " ")
	}
	var n json.Number
	if err := json.Unmarshal(value, &n); err == nil {
		return n.String()
	}
	return string(value)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "...(" + strconv.Itoa(len(b)-n) + " more bytes)"
}
