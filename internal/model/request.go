package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
)

// ErrInvalidRequest marks malformed input rejected before any scoring or job
// creation happens.
var ErrInvalidRequest = eris.New("invalid request")

// validate is safe for concurrent use and caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so errors match the wire format.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ScanRequest carries the already-extracted product data to score.
type ScanRequest struct {
	ProductName             string             `json:"product_name" yaml:"product_name" validate:"required"`
	Brand                   string             `json:"brand,omitempty" yaml:"brand,omitempty"`
	Category                Category           `json:"category" yaml:"category" validate:"required,oneof=food water cosmetics cookware cleaning supplements other"`
	Ingredients             []string           `json:"ingredients" yaml:"ingredients" validate:"required,min=1"`
	ExternalHazardEstimates map[string]float64 `json:"external_hazard_estimates,omitempty" yaml:"external_hazard_estimates,omitempty" validate:"omitempty,dive,keys,required,endkeys,min=0,max=10"`
	PositiveClaims          []string           `json:"positive_claims,omitempty" yaml:"positive_claims,omitempty"`
	Condition               *Condition         `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// Normalize lower-cases the category so "Food" and "food" are equivalent.
func (r *ScanRequest) Normalize() {
	r.Category = Category(strings.ToLower(strings.TrimSpace(string(r.Category))))
	r.ProductName = strings.TrimSpace(r.ProductName)
	r.Brand = strings.TrimSpace(r.Brand)
}

// Validate checks the request and returns an error wrapping ErrInvalidRequest.
func (r *ScanRequest) Validate() error {
	r.Normalize()
	return validationError(validate.Struct(r))
}

// ResearchRequest starts a deep investigation of a product.
type ResearchRequest struct {
	ProductName string   `json:"product_name" yaml:"product_name" validate:"required"`
	Brand       string   `json:"brand,omitempty" yaml:"brand,omitempty"`
	Category    Category `json:"category" yaml:"category" validate:"required,oneof=food water cosmetics cookware cleaning supplements other"`
	Ingredients []string `json:"ingredients" yaml:"ingredients" validate:"required,min=1"`
}

// Validate checks the request and returns an error wrapping ErrInvalidRequest.
func (r *ResearchRequest) Validate() error {
	r.Category = Category(strings.ToLower(strings.TrimSpace(string(r.Category))))
	r.ProductName = strings.TrimSpace(r.ProductName)
	r.Brand = strings.TrimSpace(r.Brand)
	r.Ingredients = CleanIngredients(r.Ingredients)
	return validationError(validate.Struct(r))
}

// CleanIngredients trims names, drops blanks and removes case-insensitive
// duplicates, keeping first occurrences in order. The result is never nil.
func CleanIngredients(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}

// ScanRequest converts the research input into a scoring request.
func (r *ResearchRequest) ScanRequest() ScanRequest {
	return ScanRequest{
		ProductName: r.ProductName,
		Brand:       r.Brand,
		Category:    r.Category,
		Ingredients: r.Ingredients,
	}
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return eris.Wrap(ErrInvalidRequest, err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return eris.Wrap(ErrInvalidRequest, strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
