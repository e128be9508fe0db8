package face

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/presenca/internal/config"
	"github.com/saturnino-fabrica-de-software/presenca/internal/extractor"
	"github.com/saturnino-fabrica-de-software/presenca/internal/extractor/deepface"
	"github.com/saturnino-fabrica-de-software/presenca/internal/extractor/dlib"
	"github.com/saturnino-fabrica-de-software/presenca/internal/extractor/mock"
)

// NewExtractor creates the descriptor extractor selected by configuration.
//
// Environment variables:
//   - EXTRACTOR: "dlib", "deepface" or "mock" (default: "dlib")
//   - DLIB_MODEL_DIR: directory with the dlib model files (default: "models")
//   - DEEPFACE_URL: DeepFace API URL (default: "http://localhost:5005")
func NewExtractor(cfg *config.Config) (extractor.Extractor, error) {
	switch cfg.Extractor {
	case config.ExtractorDlib, "":
		ext, err := dlib.New(cfg.DlibModelDir)
		if err != nil {
			return nil, fmt.Errorf("create dlib extractor: %w", err)
		}
		return ext, nil

	case config.ExtractorDeepFace:
		deepfaceConfig := deepface.DefaultConfig()
		if cfg.DeepFaceURL != "" {
			deepfaceConfig.BaseURL = cfg.DeepFaceURL
		}
		return deepface.New(deepfaceConfig), nil

	case config.ExtractorMock:
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown extractor type: %s (supported: %s, %s, %s)",
			cfg.Extractor, config.ExtractorDlib, config.ExtractorDeepFace, config.ExtractorMock)
	}
}
