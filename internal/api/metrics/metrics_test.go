package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/presensi/attendance-api/internal/core/domain"
)

func TestResult(t *testing.T) {
	cases := map[string]error{
		"ok":              nil,
		"validation":      domain.Validationf("bad"),
		"conflict":        domain.ErrAlreadyCheckedIn,
		"not_found":       fmt.Errorf("wrapped: %w", domain.ErrNoOpenSession),
		"forbidden":       domain.ErrNotOwner,
		"unauthenticated": domain.ErrInvalidCredentials,
		"error":           errors.New("boom"),
	}
	for want, err := range cases {
		if got := Result(err); got != want {
			t.Fatalf("Result(%v) = %q, want %q", err, got, want)
		}
	}
}
