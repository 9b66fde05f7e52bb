package givenergy

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthorized is returned when the API rejects our key.
var ErrUnauthorized = errors.New("givenergy: unauthorized")

// ErrNotFound is returned when a resource does not exist. Some endpoints
// use this to mean "not supported by this account" so callers often treat
// it as benign.
var ErrNotFound = errors.New("givenergy: not found")

// APIError is a non-2xx response that isn't one of the sentinel cases.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("givenergy: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("givenergy: unexpected status %d: %s", e.StatusCode, e.Message)
}

// DeviceDiscoveryError is returned when the account's communication devices
// were listed successfully but none of them carried an inverter serial. It
// keeps enough detail for a support ticket.
type DeviceDiscoveryError struct {
	DevicesChecked int
	Serials        []string
}

func (e *DeviceDiscoveryError) Error() string {
	return fmt.Sprintf("no inverter serial found across %d communication devices (device serials: %s)",
		e.DevicesChecked, strings.Join(e.Serials, ", "))
}
