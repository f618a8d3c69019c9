package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/renderkit/core/artifact"
)

// classifyS3Error converts AWS SDK errors into artifact package sentinels.
// Provides consistent error handling across all S3 operations so callers can
// branch with errors.Is regardless of the storage backend in use.
func classifyS3Error(err error, operation string) error {
	if err == nil {
		return nil
	}

	// Context errors have highest priority for proper cancellation handling
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s operation", artifact.ErrOperationTimeout, operation)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s operation", artifact.ErrOperationCanceled, operation)
	}

	// Specific S3 error types for type-safe error checking.
	// GetObject reports missing keys as NoSuchKey, HeadObject as NotFound.
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return fmt.Errorf("%w: %s", artifact.ErrNotFound, err)
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %s", artifact.ErrNotFound, err)
	}

	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return artifact.ErrBucketNotFound
	}

	// Generic API errors with proper retry classification
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch code {
		case "AccessDenied":
			return fmt.Errorf("%w: %s operation", artifact.ErrAccessDenied, operation)
		case "RequestTimeout":
			return fmt.Errorf("%w: %s operation", artifact.ErrOperationTimeout, operation)
		case "SlowDown", "ServiceUnavailable":
			return fmt.Errorf("%w: %s operation", artifact.ErrServiceUnavailable, operation) // Retryable
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %s", artifact.ErrNotFound, err)
		case "NoSuchBucket":
			return artifact.ErrBucketNotFound
		default:
			// Include error code for debugging while preserving original error
			return fmt.Errorf("%s operation failed (code: %s): %w", operation, code, err)
		}
	}

	// Default fallback with context preservation
	return fmt.Errorf("%s operation failed: %w", operation, err)
}
