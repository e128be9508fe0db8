// Package dlib implements the descriptor extractor on dlib via go-face.
package dlib

import (
	"context"
	"fmt"

	"github.com/Kagami/go-face"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/extractor"
)

// Extractor wraps a go-face recognizer. The model directory must contain
// shape_predictor_5_face_landmarks.dat and
// dlib_face_recognition_resnet_model_v1.dat.
type Extractor struct {
	rec *face.Recognizer
}

var _ extractor.Extractor = (*Extractor)(nil)

func New(modelDir string) (*Extractor, error) {
	rec, err := face.NewRecognizer(modelDir)
	if err != nil {
		return nil, fmt.Errorf("load dlib models from %s: %w", modelDir, err)
	}
	return &Extractor{rec: rec}, nil
}

// Extract returns the 128-d descriptor of the largest face in the image.
func (e *Extractor) Extract(ctx context.Context, image []byte) (domain.Descriptor, error) {
	faces, err := e.rec.Recognize(image)
	if err != nil {
		return nil, fmt.Errorf("recognize image: %w", err)
	}
	if len(faces) == 0 {
		return nil, extractor.ErrNoFaceDetected
	}

	best := 0
	bestArea := area(faces[0])
	for i := 1; i < len(faces); i++ {
		if a := area(faces[i]); a > bestArea {
			best = i
			bestArea = a
		}
	}

	descriptor := make(domain.Descriptor, domain.DescriptorLength)
	for i, v := range faces[best].Descriptor {
		descriptor[i] = float64(v)
	}
	return descriptor, nil
}

func (e *Extractor) Close() {
	e.rec.Close()
}

func area(f face.Face) int {
	return f.Rectangle.Dx() * f.Rectangle.Dy()
}
