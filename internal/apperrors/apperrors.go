package apperrors

import "errors"

// ErrRateUnavailable indicates the upstream rate could not be fetched or decoded.
var ErrRateUnavailable = errors.New("rate unavailable")

// ErrPersistence indicates a connection or update failure against the database.
var ErrPersistence = errors.New("persistence error")

// ErrSchema indicates a failed column add or drop.
var ErrSchema = errors.New("schema error")

// ErrExport indicates a failure while reading a table or writing the export file.
var ErrExport = errors.New("export error")

// ErrInvalidRate indicates a zero, negative or missing rate.
var ErrInvalidRate = errors.New("invalid rate")

// ErrInvalidIdentifier indicates a table or column name outside the allow-list.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// ErrColumnNotFound indicates the named column does not exist on the table.
var ErrColumnNotFound = errors.New("column not found")

// Kind reports which failure domain err belongs to, or "" when unclassified.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRateUnavailable):
		return "rate_unavailable"
	case errors.Is(err, ErrSchema):
		return "schema"
	case errors.Is(err, ErrExport):
		return "export"
	case errors.Is(err, ErrPersistence), errors.Is(err, ErrInvalidRate):
		return "persistence"
	default:
		return ""
	}
}
