// Package analyzer extracts structured line items from receipt images.
package analyzer

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmynk/onecount/internal/models"
)

// MaxImageSize is the largest receipt image accepted for analysis (5 MiB).
const MaxImageSize = 5 * 1024 * 1024

// ErrImageTooLarge is returned for images over MaxImageSize.
var ErrImageTooLarge = errors.New("receipt image exceeds 5MB limit")

// Analyzer turns a receipt image into a parsed receipt.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte) (*models.ParsedReceipt, error)
}

// AnalysisError wraps any failure of the analysis service: network, HTTP status
// or an unparseable response. Callers should offer a retry.
type AnalysisError struct {
	Op  string
	Err error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("receipt analysis failed: %s: %v", e.Op, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// IsAnalysisError reports whether err is or wraps an *AnalysisError.
func IsAnalysisError(err error) bool {
	var ae *AnalysisError
	return errors.As(err, &ae)
}

// CheckImageSize rejects images over MaxImageSize.
func CheckImageSize(image []byte) error {
	if len(image) > MaxImageSize {
		return fmt.Errorf("%w: %d bytes", ErrImageTooLarge, len(image))
	}
	return nil
}

// Disabled is used when no analysis backend is configured. Every call fails.
type Disabled struct{}

func (Disabled) Analyze(ctx context.Context, image []byte) (*models.ParsedReceipt, error) {
	return nil, &AnalysisError{Op: "analyze", Err: errors.New("receipt analysis is not configured")}
}
