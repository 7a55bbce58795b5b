package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/marketplace/orderflow/internal/domain/shared"
	"github.com/marketplace/orderflow/internal/infrastructure/api"
)

// classify maps a failed backend call onto the domain error the caller acts
// on. The api error stays in the chain for logging and inspection.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil && api.IsKind(err, api.KindTransport) {
		return ctx.Err()
	}
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Kind {
	case api.KindTransport, api.KindServer:
		return fmt.Errorf("%w: %w", shared.ErrRetryable, err)
	case api.KindUnauthorized:
		return fmt.Errorf("%w: %w", shared.ErrSessionRequired, err)
	case api.KindForbidden:
		return fmt.Errorf("%w: %w", shared.ErrForbidden, err)
	case api.KindNotFound:
		return fmt.Errorf("%w: %w", shared.ErrNotFound, err)
	case api.KindConflict:
		return fmt.Errorf("%w: %w", shared.ErrRefreshRequired, err)
	default:
		return fmt.Errorf("%w: %w", shared.NewDomainError(shared.ErrInvalidInput.Code, apiErr.Message), err)
	}
}
