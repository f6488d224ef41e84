package controllers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yashrajoria/catalog-service/catalog"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Query limits enforced by the token, pagesize and pagenumber tags.
const (
	MaxPageSize   = 100
	MaxPageNumber = 1000000
	maxTokenLen   = 200
)

// ListProductsQuery is the query string accepted by GET /products.
// secondSubcategory and leaf are aliases.
type ListProductsQuery struct {
	Category          string   `form:"category" validate:"token"`
	Subcategory       string   `form:"subcategory" validate:"token"`
	SecondSubcategory string   `form:"secondSubcategory" validate:"token"`
	Leaf              string   `form:"leaf" validate:"token"`
	Search            string   `form:"search" validate:"token"`
	MinPrice          *float64 `form:"minPrice" validate:"omitempty,gte=0"`
	MaxPrice          *float64 `form:"maxPrice" validate:"omitempty,gte=0"`
	Page              int      `form:"page,default=1" validate:"pagenumber"`
	Limit             int      `form:"limit,default=20" validate:"pagesize"`
}

// ResolveQuery is the query string accepted by GET /categories/resolve.
type ResolveQuery struct {
	Token string `form:"token" validate:"required,token"`
	Depth string `form:"depth" validate:"omitempty,oneof=any root sub leaf"`
	Root  string `form:"root" validate:"token"`
	Sub   string `form:"sub" validate:"token"`
}

// RequestValidator handles all input validation.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	_ = v.RegisterValidation("token", func(fl validator.FieldLevel) bool {
		return len([]rune(fl.Field().String())) <= maxTokenLen
	})
	_ = v.RegisterValidation("pagesize", intBetween(1, MaxPageSize))
	_ = v.RegisterValidation("pagenumber", intBetween(1, MaxPageNumber))
	return &RequestValidator{validate: v}
}

func intBetween(lo, hi int64) validator.Func {
	return func(fl validator.FieldLevel) bool {
		n := fl.Field().Int()
		return n >= lo && n <= hi
	}
}

// ParseListQuery binds and validates the product list query.
func (rv *RequestValidator) ParseListQuery(c *gin.Context) (catalog.Request, error) {
	var q ListProductsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return catalog.Request{}, fmt.Errorf("invalid query: %w", err)
	}
	if err := rv.validate.Struct(&q); err != nil {
		return catalog.Request{}, validationError(err)
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return catalog.Request{}, errors.New("minPrice must be less than or equal to maxPrice")
	}

	leaf := q.SecondSubcategory
	if leaf == "" {
		leaf = q.Leaf
	}
	return catalog.Request{
		Category:    strings.TrimSpace(q.Category),
		Subcategory: strings.TrimSpace(q.Subcategory),
		Leaf:        strings.TrimSpace(leaf),
		Search:      strings.TrimSpace(q.Search),
		MinPrice:    q.MinPrice,
		MaxPrice:    q.MaxPrice,
		Page:        q.Page,
		Limit:       q.Limit,
	}, nil
}

// ParseResolveQuery binds and validates the locator diagnostics query.
func (rv *RequestValidator) ParseResolveQuery(c *gin.Context) (catalog.LocateRequest, error) {
	var q ResolveQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return catalog.LocateRequest{}, fmt.Errorf("invalid query: %w", err)
	}
	q.Depth = strings.ToLower(strings.TrimSpace(q.Depth))
	if err := rv.validate.Struct(&q); err != nil {
		return catalog.LocateRequest{}, validationError(err)
	}
	depth, err := catalog.ParseDepth(q.Depth)
	if err != nil {
		return catalog.LocateRequest{}, err
	}
	return catalog.LocateRequest{Token: q.Token, Depth: depth, RootToken: q.Root, SubToken: q.Sub}, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validation failed: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, ", "))
}
