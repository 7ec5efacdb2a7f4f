package page

import "errors"

var (
	// ErrInvalidProxyAddress is returned when the proxy address is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address: must be host:port")

	// ErrUnsupportedScheme is returned for URLs other than http and https.
	ErrUnsupportedScheme = errors.New("unsupported url scheme")

	// ErrBodyTooLarge is returned when a page exceeds the size limit.
	ErrBodyTooLarge = errors.New("page body exceeds size limit")

	// ErrUnexpectedStatus is returned for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected http status")

	// ErrNoMatch is returned when the scan root selector matches nothing.
	ErrNoMatch = errors.New("selector matched no element")
)
