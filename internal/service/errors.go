package service

import "errors"

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrParentNotFound      = errors.New("parent category not found")
	ErrCategoryCycle       = errors.New("category parent chain would form a cycle")
	ErrInvalidType         = errors.New("invalid type")
	ErrNegativeAmount      = errors.New("amount must be non-negative")
	ErrTargetAccountNeeded = errors.New("transfer requires a target account")
	ErrNameRequired        = errors.New("name is required")
	ErrAlreadyExists       = errors.New("record already exists")
)
