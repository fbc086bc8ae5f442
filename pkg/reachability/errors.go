package reachability

import (
	"errors"
	"fmt"
)

// ErrRegistration matches any RegistrationError via errors.Is.
var ErrRegistration = errors.New("connectivity notification registration failed")

// RegistrationError reports that a Monitor could not engage the operating
// system's connectivity notifications. The Monitor returned alongside it
// reports NotReachable and never retries.
type RegistrationError struct {
	Host string
	Err  error
}

func (e *RegistrationError) Error() string {
	if e.Host == "" {
		return fmt.Sprintf("%v: %v", ErrRegistration, e.Err)
	}
	return fmt.Sprintf("%v for host %s: %v", ErrRegistration, e.Host, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

func (e *RegistrationError) Is(target error) bool { return target == ErrRegistration }
