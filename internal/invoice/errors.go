package invoice

import "errors"

var (
	ErrNotFound          = errors.New("invoice not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrMissingReason     = errors.New("rejection reason is required")
	ErrNotEditable       = errors.New("invoice can only be edited while pending")
	ErrValidation        = errors.New("invalid invoice")

	// ErrDuplicateNumber is returned by a Repository when the (owner, invoice_number)
	// uniqueness constraint rejects a write.
	ErrDuplicateNumber = errors.New("duplicate invoice number")
)
