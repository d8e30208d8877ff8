package model

import "errors"

// Доменные ошибки. Слои выше оборачивают их через fmt.Errorf("...: %w", err),
// HTTP-контроллер маппит на статус-коды через errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidRole     = errors.New("invalid role")
	ErrNoDocument      = errors.New("no document bound")
	ErrAlreadyExists   = errors.New("already exists")
)
