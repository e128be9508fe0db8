// Package deepface implements the descriptor extractor over the DeepFace
// HTTP API.
package deepface

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/extractor"
)

// Extractor resolves images through a DeepFace /represent call.
type Extractor struct {
	client *Client
}

var _ extractor.Extractor = (*Extractor)(nil)

// New creates a DeepFace extractor.
func New(config Config) *Extractor {
	return &Extractor{client: NewClient(config)}
}

// Extract returns the descriptor of the largest detected face.
func (e *Extractor) Extract(ctx context.Context, image []byte) (domain.Descriptor, error) {
	imageBase64 := base64.StdEncoding.EncodeToString(image)

	resp, err := e.client.Represent(ctx, imageBase64)
	if err != nil {
		return nil, fmt.Errorf("deepface represent: %w", err)
	}

	if len(resp.Results) == 0 {
		return nil, extractor.ErrNoFaceDetected
	}

	best := 0
	bestArea := resp.Results[0].FacialArea.W * resp.Results[0].FacialArea.H
	for i := 1; i < len(resp.Results); i++ {
		if a := resp.Results[i].FacialArea.W * resp.Results[i].FacialArea.H; a > bestArea {
			best = i
			bestArea = a
		}
	}

	descriptor := domain.Descriptor(resp.Results[best].Embedding)
	if !descriptor.Valid() {
		return nil, fmt.Errorf("%w: embedding of length %d, want %d",
			ErrInvalidResponse, len(descriptor), domain.DescriptorLength)
	}

	return descriptor, nil
}
