package dto

import "net/http"

// statusByCode maps domain error codes to HTTP status codes.
// Codes not listed here fall through to 500.
var statusByCode = map[string]int{
	"NOT_FOUND": http.StatusNotFound,

	"ALREADY_EXISTS":       http.StatusConflict,
	"STALE_ALLOCATION":     http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,

	"INVALID_STATE":       http.StatusUnprocessableEntity,
	"INSUFFICIENT_STOCK":  http.StatusUnprocessableEntity,
	"ALLOCATION_MISMATCH": http.StatusUnprocessableEntity,
	"HAS_DELIVERIES":      http.StatusUnprocessableEntity,

	"INVALID_INPUT":            http.StatusBadRequest,
	"INVALID_QUANTITY":         http.StatusBadRequest,
	"INVALID_PRICE":            http.StatusBadRequest,
	"INVALID_NAME":             http.StatusBadRequest,
	"INVALID_SKU":              http.StatusBadRequest,
	"INVALID_PRODUCT":          http.StatusBadRequest,
	"INVALID_STORE":            http.StatusBadRequest,
	"INVALID_LOT":              http.StatusBadRequest,
	"INVALID_LOT_NUMBER":       http.StatusBadRequest,
	"INVALID_SALE":             http.StatusBadRequest,
	"INVALID_SALE_ITEM":        http.StatusBadRequest,
	"INVALID_SALE_NUMBER":      http.StatusBadRequest,
	"INVALID_CUSTOMER":         http.StatusBadRequest,
	"INVALID_OPERATOR":         http.StatusBadRequest,
	"INVALID_ORDER":            http.StatusBadRequest,
	"INVALID_TRANSACTION_TYPE": http.StatusBadRequest,
	"INVALID_WAYBILL_ITEM":     http.StatusBadRequest,
	"INVALID_WAYBILL_NUMBER":   http.StatusBadRequest,
	"INVALID_NOTE_NUMBER":      http.StatusBadRequest,
}

// StatusForCode returns the HTTP status for a domain error code.
func StatusForCode(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
