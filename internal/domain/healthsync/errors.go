package healthsync

import (
	"errors"

	apperrors "github.com/yanqian/healthsync/pkg/errors"
)

var (
	// ErrInvalidRange is returned for windows that are not [start, end) with start < end.
	ErrInvalidRange = apperrors.Wrap(apperrors.CodeInvalidRange, "time range must satisfy start < end", nil)
	// ErrPlatformUnavailable is reported by platforms whose SDK is missing or outdated.
	ErrPlatformUnavailable = errors.New("health platform unavailable")
	// ErrNotAuthorized is reported when the platform refuses a read permission.
	ErrNotAuthorized = errors.New("health platform permission denied")
	// ErrSyncInProgress is returned by run locks when the key is already held.
	ErrSyncInProgress = errors.New("sync already running for integration")
)

// degradesToEmpty reports whether a read error is absorbed into an empty result.
func degradesToEmpty(err error) bool {
	return errors.Is(err, ErrPlatformUnavailable) || errors.Is(err, ErrNotAuthorized)
}
