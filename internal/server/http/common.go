package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ekisa-team/voicebox/internal/model"
)

// HandlerOptions tune handler behaviour.
type HandlerOptions struct {
	// Debug appends engine error detail to 500 responses.
	Debug bool

	// CUDAAvailable is reported by the synthesis health check.
	CUDAAvailable bool

	// MaxBodyBytes caps inference request bodies. Zero keeps huma's default.
	MaxBodyBytes int64
}

// modelService is what health and models endpoints need from a service.
type modelService interface {
	Model() *model.Instance
	ServiceName() string
	Models() []string
}

type (
	HealthResponseDTO struct {
		Status        string `json:"status"`
		ModelLoaded   bool   `json:"model_loaded"`
		Service       string `json:"service"`
		CUDAAvailable *bool  `json:"cuda_available,omitempty"`
	}

	ModelsResponseDTO struct {
		Models       []string `json:"models"`
		CurrentModel *string  `json:"current_model"`
	}
)

type (
	HealthOutput struct {
		Body HealthResponseDTO
	}

	ModelsOutput struct {
		Body ModelsResponseDTO
	}
)

// registerHealth registers GET /health. cuda is nil for services that do not report it.
func registerHealth(api huma.API, svc modelService, tag string, cuda *bool) {
	huma.Register(api, huma.Operation{
		OperationID:   tag + "-health",
		Method:        http.MethodGet,
		Path:          "/health",
		Summary:       "Report service and model status",
		Tags:          []string{tag},
		DefaultStatus: http.StatusOK,
	}, func(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
		return &HealthOutput{
			Body: HealthResponseDTO{
				Status:        "healthy",
				ModelLoaded:   svc.Model().Loaded(),
				Service:       svc.ServiceName(),
				CUDAAvailable: cuda,
			},
		}, nil
	})
}

// registerModels registers GET /models.
func registerModels(api huma.API, svc modelService, tag string) {
	huma.Register(api, huma.Operation{
		OperationID:   tag + "-models",
		Method:        http.MethodGet,
		Path:          "/models",
		Summary:       "List known models and the loaded one",
		Tags:          []string{tag},
		DefaultStatus: http.StatusOK,
	}, func(ctx context.Context, _ *struct{}) (*ModelsOutput, error) {
		out := &ModelsOutput{Body: ModelsResponseDTO{Models: svc.Models()}}
		if m := svc.Model(); m.Loaded() {
			id := m.ID
			out.Body.CurrentModel = &id
		}
		return out, nil
	})
}

// registerRawBody registers an operation whose handler decodes RawBody
// itself. The documented request body stays optional and unvalidated so
// every body, empty or malformed, reaches the handler.
func registerRawBody[I, O any](api huma.API, op huma.Operation, handler func(context.Context, *I) (*O, error)) {
	body := op.RequestBody
	op.SkipValidateBody = true
	huma.Register(api, op, handler)

	// huma marks RawBody inputs as required while registering.
	body.Required = false
}
