package discord

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/disgoorg/disgo/rest"
	"github.com/robalyx/isero/internal/platform"
)

// classify wraps a REST error with the platform error it corresponds to.
// Errors that match no category are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var restErr *rest.Error
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch status := restErr.Response.StatusCode; {
		case status == http.StatusForbidden:
			return fmt.Errorf("%w: %w", platform.ErrPermission, err)
		case status == http.StatusNotFound:
			return fmt.Errorf("%w: %w", platform.ErrNotFound, err)
		case status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %w", platform.ErrTransient, err)
		default:
			return err
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", platform.ErrTransient, err)
	}

	return err
}
