package weaviate

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// ArtifactClass is the class job result artifacts will be indexed under once
// real agent execution lands. The gateway only ensures it exists.
const ArtifactClass = "JobArtifact"

// SDK encapsulates all Weaviate operations
type SDK struct {
	client *weaviate.Client
}

// NewSDK creates a new instance of SDK
func NewSDK(client *weaviate.Client) *SDK {
	return &SDK{
		client: client,
	}
}

// Ready reports whether the Weaviate instance answers its readiness probe.
func (w *SDK) Ready(ctx context.Context) (bool, error) {
	ready, err := w.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check readiness: %v", err)
	}
	return ready, nil
}

// EnsureArtifactSchema creates the artifact class if it does not exist yet.
func (w *SDK) EnsureArtifactSchema(ctx context.Context) error {
	exists, err := w.classExists(ctx, ArtifactClass)
	if err != nil {
		return fmt.Errorf("failed to check if class exists: %v", err)
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class: ArtifactClass,
		Properties: []*models.Property{
			{Name: "jobId", DataType: []string{"text"}},
			{Name: "inputHash", DataType: []string{"text"}},
			{Name: "result", DataType: []string{"text"}},
		},
		Vectorizer: "none",
	}

	if err := w.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create Weaviate class: %v", err)
	}

	return nil
}

// classExists checks if a class exists in the schema
func (w *SDK) classExists(ctx context.Context, className string) (bool, error) {
	schema, err := w.client.Schema().Getter().Do(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get schema: %v", err)
	}

	for _, class := range schema.Classes {
		if class.Class == className {
			return true, nil
		}
	}

	return false, nil
}
