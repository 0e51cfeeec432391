package source

import "errors"

var (
	// ErrNoDocumentType is returned when every document toggle is off
	ErrNoDocumentType = errors.New("select at least one document type")

	// ErrNoOrderSelected is returned when the selection matches no order
	ErrNoOrderSelected = errors.New("no order selected")

	// ErrMissingAddressee is returned when a selected order has no company, department or name
	ErrMissingAddressee = errors.New("orders without addressee")

	// ErrNoSpreadsheet is returned when no spreadsheet URL is configured
	ErrNoSpreadsheet = errors.New("no spreadsheet configured")

	// ErrInvalidSpreadsheetURL is returned when the spreadsheet id cannot be found in the URL
	ErrInvalidSpreadsheetURL = errors.New("invalid spreadsheet URL")

	// ErrSpreadsheetUnavailable is returned when the CSV export cannot be downloaded
	ErrSpreadsheetUnavailable = errors.New("spreadsheet unavailable")
)
