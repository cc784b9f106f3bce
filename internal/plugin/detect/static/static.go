// Package static is a fixed-output detector for development and tests.
package static

import (
	"context"

	"github.com/wildtrack/mediatag-service/internal/model"
	registrydetect "github.com/wildtrack/mediatag-service/internal/registry/detect"
)

func init() {
	registrydetect.Register(registrydetect.Plugin{
		Name: "static",
		Loader: func(ctx context.Context) (registrydetect.Detector, error) {
			return Detector{}, nil
		},
	})
}

type Detector struct{}

func (Detector) Name() string { return "static" }

func (Detector) DetectTags(ctx context.Context, data []byte, kind model.MediaKind) (model.TagCounts, error) {
	return model.TagCounts{"crow": 1, "pigeon": 2}, nil
}
