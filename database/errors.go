package database

import (
	"context"
	"errors"
	"fmt"

	"consultbook/utils"

	"go.mongodb.org/mongo-driver/mongo"
)

// ClassifyError wraps infrastructure failures as StorageUnavailable so callers
// can retry, and passes engine errors through untouched.
func ClassifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ee *utils.EngineError
	if errors.As(err, &ee) {
		return err
	}
	if IsUnavailable(err) {
		return utils.WrapEngineError(utils.ErrStorageUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsUnavailable reports transport-level failures, including server selection timeouts.
func IsUnavailable(err error) bool {
	switch {
	case mongo.IsNetworkError(err), mongo.IsTimeout(err):
		return true
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, mongo.ErrClientDisconnected):
		return true
	}
	return false
}
