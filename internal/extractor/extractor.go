// Package extractor defines the face-descriptor extraction capability
// consumed by the recognition pipeline.
package extractor

import (
	"context"
	"errors"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

// ErrNoFaceDetected is returned when the image holds no detectable face.
// It is a defined pipeline outcome, not a failure: callers map it to the
// no-face recognize response.
var ErrNoFaceDetected = errors.New("no face detected in the image")

// Extractor resolve uma imagem em no máximo um descritor de face.
//
// Images with several faces yield the one with the largest bounding-box
// area, ties broken by detection order, so selection is deterministic.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (domain.Descriptor, error)
}
