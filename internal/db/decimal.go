package db

import (
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func ToDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

func FromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	return decimal.NewFromString(v.String())
}

// ToDecimal128Ptr keeps nil as nil so optional prices stay absent in documents.
func ToDecimal128Ptr(d *decimal.Decimal) (*primitive.Decimal128, error) {
	if d == nil {
		return nil, nil
	}
	v, err := ToDecimal128(*d)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func FromDecimal128Ptr(v *primitive.Decimal128) (*decimal.Decimal, error) {
	if v == nil {
		return nil, nil
	}
	d, err := FromDecimal128(*v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
