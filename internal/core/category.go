package core

import (
	"errors"

	"github.com/shopspring/decimal"
)

const (
	KindNecessary CategoryKind = "necessary"
	KindExtra     CategoryKind = "extra"
)

type (
	CategoryKind string

	Category struct {
		ID            int64
		Name          string
		Kind          CategoryKind
		Icon          string
		Color         string
		MonthlyBudget decimal.NullDecimal
		IsActive      bool
	}

	Subcategory struct {
		ID         int64
		CategoryID int64
		Name       string
		IsActive   bool
	}
)

var ErrSubcategoryMismatch = errors.New("subcategory does not belong to category")
