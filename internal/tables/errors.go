package tables

import "errors"

var (
	ErrTableNotFound     = errors.New("table not found")
	ErrLineNotFound      = errors.New("line not found")
	ErrInvalidProduct    = errors.New("invalid product")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrTargetOccupied    = errors.New("target table already has an order")
	ErrSameTable         = errors.New("source and target table are the same")
	ErrTableNotActive    = errors.New("table not active")
	ErrInvalidTransition = errors.New("invalid status transition")
)
