package media

import "errors"

var (
	// ErrNotMultipart indicates the request body is not multipart/form-data.
	ErrNotMultipart = errors.New("request is not multipart/form-data")
	// ErrTooManyFiles indicates more than one file was sent for a single-file field.
	ErrTooManyFiles = errors.New("too many files for field")
	// ErrUnexpectedField indicates a file was sent under a field the endpoint does not accept.
	ErrUnexpectedField = errors.New("unexpected file field")
	// ErrUploadTooLarge indicates the request body exceeded the upload limit.
	ErrUploadTooLarge = errors.New("upload too large")
	// ErrProberUnavailable indicates the media prober is not configured or failed to run.
	ErrProberUnavailable = errors.New("media prober unavailable")
	// ErrHostUnavailable indicates the media host rejected or failed an operation.
	ErrHostUnavailable = errors.New("media host unavailable")
)
