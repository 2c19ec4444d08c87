// Package form implements the create/edit buffer behind the product forms.
package form

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/iyhunko/storefront-admin/internal/model"
)

// Mode is the state of a form session.
type Mode string

const (
	Closed     Mode = "closed"
	Creating   Mode = "creating"
	Editing    Mode = "editing"
	Submitting Mode = "submitting"
)

// Draft field names, shared with server-reported field errors.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldPrice       = "price"
	FieldQuantity    = "quantity"
	FieldCategory    = "category"
	FieldAvailable   = "available"
	FieldImage       = "image"
)

var (
	// ErrInvalid is returned by Submit when local validation fails.
	ErrInvalid = errors.New("draft has invalid fields")
	// ErrNotOpen is returned for operations that need an open form.
	ErrNotOpen = errors.New("no form is open")
	// ErrSubmitting is returned for edits and cancels while a submit is in flight.
	ErrSubmitting = errors.New("form is being submitted")
	// ErrUnknownField is returned by SetField for names outside the draft.
	ErrUnknownField = errors.New("unknown form field")
)

// Draft holds the raw, possibly invalid field values of a product being edited.
type Draft struct {
	// ProductID is zero for a create draft.
	ProductID   int64        `json:"product_id,omitempty"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Price       string       `json:"price"`
	Quantity    string       `json:"quantity"`
	CategoryID  int64        `json:"category"`
	Available   bool         `json:"available"`
	ImageRef    string       `json:"image,omitempty"`
	Image       *model.Image `json:"-"`
}

// Session is a single form: closed, or open for create or edit.
// It is not safe for concurrent use; the admin controller serialises access.
type Session struct {
	mode       Mode
	returnMode Mode
	draft      Draft
	errors     map[string]string
	general    string
	categories []model.Category
}

// NewSession returns a closed Session.
func NewSession() *Session {
	return &Session{mode: Closed, errors: map[string]string{}}
}

// OpenCreate opens an empty draft. The first category is pre-selected.
func (s *Session) OpenCreate(categories []model.Category) error {
	if s.mode == Submitting {
		return ErrSubmitting
	}
	d := Draft{Available: true}
	if len(categories) > 0 {
		d.CategoryID = categories[0].ID
	}
	s.open(Creating, d, categories)
	return nil
}

// OpenEdit opens a draft initialised from p.
func (s *Session) OpenEdit(p model.Product, categories []model.Category) error {
	if s.mode == Submitting {
		return ErrSubmitting
	}
	s.open(Editing, Draft{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.String(),
		Quantity:    strconv.Itoa(p.Quantity),
		CategoryID:  p.Category.ID,
		Available:   p.Available,
		ImageRef:    p.Image,
	}, categories)
	return nil
}

func (s *Session) open(mode Mode, d Draft, categories []model.Category) {
	s.mode = mode
	s.returnMode = mode
	s.draft = d
	s.errors = map[string]string{}
	s.general = ""
	s.categories = append([]model.Category(nil), categories...)
}

func (s *Session) editable() error {
	switch s.mode {
	case Closed:
		return ErrNotOpen
	case Submitting:
		return ErrSubmitting
	}
	return nil
}

// SetField replaces one draft field and clears that field's error.
func (s *Session) SetField(field, value string) error {
	if err := s.editable(); err != nil {
		return err
	}
	switch field {
	case FieldName:
		s.draft.Name = value
	case FieldDescription:
		s.draft.Description = value
	case FieldPrice:
		s.draft.Price = value
	case FieldQuantity:
		s.draft.Quantity = value
	case FieldCategory:
		value = strings.TrimSpace(value)
		if value == "" {
			s.draft.CategoryID = 0
			break
		}
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid category %q: %w", value, err)
		}
		s.draft.CategoryID = id
	case FieldAvailable:
		available, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid availability %q: %w", value, err)
		}
		s.draft.Available = available
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	delete(s.errors, field)
	return nil
}

// SetImage attaches image bytes to the draft.
func (s *Session) SetImage(img model.Image) error {
	if err := s.editable(); err != nil {
		return err
	}
	s.draft.Image = &img
	delete(s.errors, FieldImage)
	return nil
}

// Submit validates the draft. On failure the session stays in its mode with
// the errors populated and ErrInvalid is returned. On success it moves to
// Submitting and returns the payload to send.
func (s *Session) Submit(now time.Time) (model.ProductPayload, error) {
	if err := s.editable(); err != nil {
		return model.ProductPayload{}, err
	}
	s.general = ""
	errs := Validate(s.draft, s.categories)
	if len(errs) > 0 {
		s.errors = errs
		return model.ProductPayload{}, ErrInvalid
	}

	price, _ := parsePrice(s.draft.Price)
	qty, _ := parseQuantity(s.draft.Quantity)
	s.errors = map[string]string{}
	s.returnMode = s.mode
	s.mode = Submitting

	return model.ProductPayload{
		Name:        strings.TrimSpace(s.draft.Name),
		Description: s.draft.Description,
		Price:       price,
		Quantity:    qty,
		CategoryID:  s.draft.CategoryID,
		Available:   s.draft.Available,
		LastUpdated: now.UTC(),
		Image:       s.draft.Image,
	}, nil
}

// Succeed closes the form after the remote store accepted the submit.
func (s *Session) Succeed() {
	s.reset()
}

// Fail returns a Submitting form to the mode it was submitted from. Field
// errors are merged into the draft's errors; general is shown as a banner.
func (s *Session) Fail(fields map[string]string, general string) {
	if s.mode != Submitting {
		return
	}
	s.mode = s.returnMode
	maps.Copy(s.errors, fields)
	s.general = general
}

// Cancel discards the draft. It fails while a submit is in flight.
func (s *Session) Cancel() error {
	if s.mode == Submitting {
		return ErrSubmitting
	}
	s.reset()
	return nil
}

func (s *Session) reset() {
	s.mode = Closed
	s.returnMode = Closed
	s.draft = Draft{}
	s.errors = map[string]string{}
	s.general = ""
	s.categories = nil
}

// Mode returns the current mode.
func (s *Session) Mode() Mode { return s.mode }

// Draft returns a copy of the draft.
func (s *Session) Draft() Draft { return s.draft }

// Errors returns a copy of the field errors.
func (s *Session) Errors() map[string]string { return maps.Clone(s.errors) }

// General returns the banner error of the last failed submit.
func (s *Session) General() string { return s.general }

// Open reports whether a create or edit form is showing.
func (s *Session) Open() bool { return s.mode != Closed }
