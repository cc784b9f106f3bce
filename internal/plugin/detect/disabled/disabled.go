// Package disabled is a detector that tags nothing. Ingested media keeps an
// empty tag set until tags arrive through the tag update endpoint.
package disabled

import (
	"context"

	"github.com/wildtrack/mediatag-service/internal/model"
	registrydetect "github.com/wildtrack/mediatag-service/internal/registry/detect"
)

func init() {
	registrydetect.Register(registrydetect.Plugin{
		Name: "disabled",
		Loader: func(ctx context.Context) (registrydetect.Detector, error) {
			return Detector{}, nil
		},
	})
}

type Detector struct{}

func (Detector) Name() string { return "disabled" }

func (Detector) DetectTags(ctx context.Context, data []byte, kind model.MediaKind) (model.TagCounts, error) {
	return model.TagCounts{}, nil
}
