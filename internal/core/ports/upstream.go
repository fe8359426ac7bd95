package ports

import (
	"fmt"

	"github.com/ewilliams-labs/natal-symphony/internal/core/domain"
)

// UpstreamError provides context for a failed call to an external service.
// StatusCode is zero for transport failures.
type UpstreamError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s unavailable: status %d: %v", e.Service, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s unavailable: status %d", e.Service, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s unavailable", e.Service)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == domain.ErrUpstreamUnavailable
}
