package crm

import "errors"

var (
	ErrNotFound      = errors.New("crm: not found")
	ErrInvalidInput  = errors.New("crm: invalid input")
	ErrInvalidStatus = errors.New("crm: operation not allowed in current status")
	ErrNoRecipients  = errors.New("crm: no recipients for campaign")
)
