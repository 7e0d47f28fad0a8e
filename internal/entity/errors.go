package entity

import "errors"

var (
	ErrUnknownPaymentMethod = errors.New("payment_method must be COD or Online")
	ErrInvalidProduct       = errors.New("invalid product")
	ErrInvalidFilter        = errors.New("invalid product filter")
)
