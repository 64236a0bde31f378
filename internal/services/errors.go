package services

import "errors"

// Sentinel errors mapped to HTTP responses by the handlers.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrConflict         = errors.New("already acknowledged")
	ErrUnsupportedType  = errors.New("unsupported file type")
	ErrConversionFailed = errors.New("file conversion to PDF failed")
	ErrSelfDelete       = errors.New("cannot delete own account")
	ErrDuplicateUser    = errors.New("username or email already exists")
)
