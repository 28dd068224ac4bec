package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Error codes. The LED_001..LED_005 group are caller errors: the operation had
// no effect and the request must be fixed. LED_006..LED_008 are integrity
// failures: the ledger's own invariants no longer hold and the instance should
// be treated as unusable.
const (
	CodeDuplicateWallet            = "LED_001"
	CodeUnknownWallet              = "LED_002"
	CodeUnknownSubaccount          = "LED_003"
	CodeInvalidAmount              = "LED_004"
	CodeUnknownTransaction         = "LED_005"
	CodeSnapshotMismatch           = "LED_006"
	CodeBalanceMismatch            = "LED_007"
	CodeNonZeroSum                 = "LED_008"
	CodeNotAHoldTransaction        = "REC_001"
	CodeInconsistentHistory        = "REC_002"
	CodeDuplicateSettlement        = "REC_003"
	CodeUnsupportedSnapshotVersion = "SNAP_001"
	CodeValidation                 = "REQ_001"
	CodeInternal                   = "SYS_001"
)

// Validation returns a REQ_001 request validation error.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// ---- Ledger validation (LED) ----

func ErrDuplicateWallet(name string) *AppError {
	return New(CodeDuplicateWallet, fmt.Sprintf("wallet %q is already registered", name), http.StatusConflict)
}

func ErrUnknownWallet(name string) *AppError {
	return New(CodeUnknownWallet, fmt.Sprintf("wallet %q is not registered", name), http.StatusNotFound)
}

func ErrUnknownSubaccount(name string) *AppError {
	return New(CodeUnknownSubaccount, fmt.Sprintf("subaccount %q does not exist", name), http.StatusBadRequest)
}

func ErrInvalidAmount(amount int64) *AppError {
	return New(CodeInvalidAmount, fmt.Sprintf("amount %d must be a non-negative integer", amount), http.StatusBadRequest)
}

func ErrUnknownTransaction(id int64) *AppError {
	return New(CodeUnknownTransaction, fmt.Sprintf("transaction %d does not exist", id), http.StatusNotFound)
}

// ---- Ledger integrity (LED) ----

func ErrSnapshotMismatch(txID int64) *AppError {
	return New(CodeSnapshotMismatch, fmt.Sprintf("balances-before of transaction %d do not match replay state", txID), http.StatusInternalServerError)
}

func ErrBalanceMismatch(wallet, subaccount string) *AppError {
	return New(CodeBalanceMismatch, fmt.Sprintf("live balance of %s/%s does not match replay state", wallet, subaccount), http.StatusInternalServerError)
}

func ErrNonZeroSum(total int64) *AppError {
	return New(CodeNonZeroSum, fmt.Sprintf("grand total across all subaccounts is %d, want 0", total), http.StatusInternalServerError)
}

// ---- Reconciliation (REC) ----

func ErrNotAHoldTransaction(id int64) *AppError {
	return New(CodeNotAHoldTransaction, fmt.Sprintf("transaction %d does not target a hold subaccount", id), http.StatusBadRequest)
}

func ErrInconsistentHistory(key, detail string) *AppError {
	return New(CodeInconsistentHistory, fmt.Sprintf("ledger records for %s are inconsistent: %s", key, detail), http.StatusConflict)
}

func ErrDuplicateSettlement(key string, records int) *AppError {
	return New(CodeDuplicateSettlement, fmt.Sprintf("%d ledger records found for %s, at most 2 allowed", records, key), http.StatusConflict)
}

// ---- Snapshot (SNAP) ----

func ErrUnsupportedSnapshotVersion(version int) *AppError {
	return New(CodeUnsupportedSnapshotVersion, fmt.Sprintf("snapshot version %d is not supported", version), http.StatusBadRequest)
}

// ---- System (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}
