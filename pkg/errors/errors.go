package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeCartRejected       Code = "CART_REJECTED"
	CodeCatalogUnavailable Code = "CATALOG_UNAVAILABLE"
	CodeLedgerWrite        Code = "LEDGER_WRITE_FAILED"
	CodePaymentRejected    Code = "PAYMENT_REJECTED"
	CodePaymentUnavailable Code = "PAYMENT_UNAVAILABLE"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeStateConflict      Code = "STATE_CONFLICT"
	CodeIdempotency        Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit          Code = "RATE_LIMITED"
	CodeInternal           Code = "INTERNAL_ERROR"
	CodeDependency         Code = "DEPENDENCY_ERROR"
)

// Scope tells the caller which remediation applies: fix the cart or retry payment.
type Scope string

const (
	ScopeNone    Scope = ""
	ScopeCart    Scope = "cart"
	ScopePayment Scope = "payment"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	// PassMessage exposes the error's own message instead of PublicMessage.
	PassMessage bool
	Scope       Scope
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		Retryable:      false,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
		PassMessage:    true,
		Scope:          ScopeCart,
	},
	CodeCartRejected: {
		HTTPStatus:     http.StatusBadRequest,
		Retryable:      false,
		PublicMessage:  "cart could not be validated",
		DetailsAllowed: true,
		PassMessage:    true,
		Scope:          ScopeCart,
	},
	CodeCatalogUnavailable: {
		HTTPStatus:     http.StatusInternalServerError,
		Retryable:      true,
		PublicMessage:  "catalog is temporarily unavailable",
		DetailsAllowed: false,
		Scope:          ScopeCart,
	},
	CodeLedgerWrite: {
		HTTPStatus:     http.StatusInternalServerError,
		Retryable:      true,
		PublicMessage:  "order could not be created",
		DetailsAllowed: false,
		Scope:          ScopeCart,
	},
	CodePaymentRejected: {
		HTTPStatus:     http.StatusBadRequest,
		Retryable:      false,
		PublicMessage:  "payment was rejected",
		DetailsAllowed: true,
		PassMessage:    true,
		Scope:          ScopePayment,
	},
	CodePaymentUnavailable: {
		HTTPStatus:     http.StatusInternalServerError,
		Retryable:      true,
		PublicMessage:  "payment could not be started, please retry",
		DetailsAllowed: false,
		Scope:          ScopePayment,
	},
	CodeNotFound: {
		HTTPStatus:     http.StatusNotFound,
		Retryable:      false,
		PublicMessage:  "resource not found",
		DetailsAllowed: false,
		PassMessage:    true,
	},
	CodeConflict: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "conflict detected",
		DetailsAllowed: true,
		PassMessage:    true,
	},
	CodeStateConflict: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		Retryable:      false,
		PublicMessage:  "state transition disallowed",
		DetailsAllowed: true,
		PassMessage:    true,
		Scope:          ScopePayment,
	},
	CodeIdempotency: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "idempotency key reused",
		DetailsAllowed: true,
		PassMessage:    true,
	},
	CodeRateLimit: {
		HTTPStatus:     http.StatusTooManyRequests,
		Retryable:      true,
		PublicMessage:  "too many requests",
		DetailsAllowed: false,
	},
	CodeInternal: {
		HTTPStatus:     http.StatusInternalServerError,
		Retryable:      true,
		PublicMessage:  "internal server error",
		DetailsAllowed: false,
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code         Code
	message      string
	details      any
	cause        error
	orderID      string
	providerCode string
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

// OrderID is set when an order exists even though the request failed.
func (e *Error) OrderID() string {
	if e == nil {
		return ""
	}
	return e.orderID
}

func (e *Error) WithOrderID(orderID string) *Error {
	if e == nil {
		return nil
	}
	e.orderID = orderID
	return e
}

// ProviderCode is the upstream gateway's own error code, if any.
func (e *Error) ProviderCode() string {
	if e == nil {
		return ""
	}
	return e.providerCode
}

func (e *Error) WithProviderCode(code string) *Error {
	if e == nil {
		return nil
	}
	e.providerCode = code
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
