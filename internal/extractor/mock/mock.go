// Package mock provides a deterministic extractor for tests and local
// development without a face-recognition backend.
package mock

import (
	"context"
	"crypto/sha256"
	"math"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/extractor"
)

// minImageSize mimics a real detector: tiny payloads carry no face.
const minImageSize = 1000

// Extractor derives a normalized descriptor from the image hash, so the
// same bytes always yield the same descriptor.
type Extractor struct{}

var _ extractor.Extractor = (*Extractor)(nil)

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, image []byte) (domain.Descriptor, error) {
	if len(image) < minImageSize {
		return nil, extractor.ErrNoFaceDetected
	}
	return Descriptor(image), nil
}

// Descriptor generates the deterministic descriptor for an image payload.
// Exported so tests can predict what Extract returns.
func Descriptor(image []byte) domain.Descriptor {
	hash := sha256.Sum256(image)
	descriptor := make(domain.Descriptor, domain.DescriptorLength)
	hashLen := len(hash)

	for i := 0; i < domain.DescriptorLength; i++ {
		idx := i % hashLen
		descriptor[i] = (float64(hash[idx])/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range descriptor {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	for i := range descriptor {
		descriptor[i] /= norm
	}

	return descriptor
}
