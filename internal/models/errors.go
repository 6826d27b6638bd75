package models

import "errors"

var (
	ErrInvalidTicker = errors.New("invalid ticker")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidBar    = errors.New("invalid bar (high < low)")
	ErrInvalidVolume = errors.New("invalid volume")
	ErrOutOfOrderBar = errors.New("bar date is not after previous bar")
	ErrNoBars        = errors.New("no bars available")
)
