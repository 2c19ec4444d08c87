package admin

import (
	"errors"
	"net/http"

	"github.com/iyhunko/storefront-admin/internal/form"
	"github.com/iyhunko/storefront-admin/internal/storeapi"
)

// Notice is how a failure is presented to the admin.
type Notice struct {
	// Status is the HTTP status the console API answers with.
	Status int    `json:"-"`
	Kind   string `json:"kind"`
	// Message is banner text. It is empty for failures shown only next to inputs.
	Message   string            `json:"message,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Retryable bool              `json:"retryable"`
	SignIn    bool              `json:"sign_in"`
	Reloaded  bool              `json:"reloaded"`
}

const (
	msgSignIn   = "Please sign in."
	msgNotFound = "The product no longer exists. The list has been reloaded."
	msgNetwork  = "The store could not be reached. Please try again."
	msgServer   = "Something went wrong on the server. Please try again later."
	msgLogin    = "Failed to login. Please try again."
)

// Describe maps err to the notice shown for it.
func Describe(err error) Notice {
	switch {
	case err == nil:
		return Notice{Status: http.StatusOK}
	case errors.Is(err, form.ErrInvalid):
		return Notice{Status: http.StatusUnprocessableEntity, Kind: "validation"}
	case errors.Is(err, form.ErrNotOpen), errors.Is(err, form.ErrSubmitting):
		return Notice{Status: http.StatusConflict, Kind: "conflict", Message: err.Error()}
	case errors.Is(err, form.ErrUnknownField):
		return Notice{Status: http.StatusBadRequest, Kind: "bad_request", Message: err.Error()}
	case errors.Is(err, ErrNotFound):
		return Notice{Status: http.StatusNotFound, Kind: "not_found", Message: err.Error()}
	}

	var apiErr *storeapi.Error
	if !errors.As(err, &apiErr) {
		return Notice{Status: http.StatusBadRequest, Kind: "bad_request", Message: err.Error()}
	}

	switch apiErr.Kind {
	case storeapi.KindUnauthorized:
		return Notice{Status: http.StatusUnauthorized, Kind: string(apiErr.Kind), Message: msgSignIn, SignIn: true}
	case storeapi.KindValidation:
		n := Notice{Status: http.StatusUnprocessableEntity, Kind: string(apiErr.Kind), Fields: apiErr.Fields}
		if len(apiErr.Fields) == 0 {
			n.Message = apiErr.Message
		}
		return n
	case storeapi.KindNotFound:
		return Notice{Status: http.StatusNotFound, Kind: string(apiErr.Kind), Message: msgNotFound, Reloaded: true}
	case storeapi.KindNetwork:
		return Notice{Status: http.StatusBadGateway, Kind: string(apiErr.Kind), Message: msgNetwork, Retryable: true}
	case storeapi.KindInvalid:
		msg := apiErr.Message
		if msg == "" {
			msg = msgLogin
		}
		return Notice{Status: http.StatusBadRequest, Kind: string(apiErr.Kind), Message: msg}
	default:
		return Notice{Status: http.StatusBadGateway, Kind: string(storeapi.KindServer), Message: msgServer}
	}
}
