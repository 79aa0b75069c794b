package http

import (
	"context"
	"net/http"
	"reflect"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ekisa-team/voicebox/internal/service"
)

type (
	// SynthesizeRequestDTO documents the JSON body. The handler decodes the raw
	// body itself so validation errors keep their order and wording.
	SynthesizeRequestDTO struct {
		Text           string  `json:"text" doc:"Text to speak"`
		ResponseFormat string  `json:"response_format,omitempty" default:"wav" doc:"Only wav is supported"`
		Speed          float64 `json:"speed,omitempty" default:"1" doc:"Playback rate, pitch is preserved"`
	}

	VoicesResponseDTO struct {
		Voices       []string `json:"voices"`
		CurrentVoice string   `json:"current_voice"`
		Note         string   `json:"note"`
	}
)

type (
	SynthesizeInput struct {
		RawBody []byte
	}

	SynthesizeOutput struct {
		ContentType        string `header:"Content-Type"`
		ContentDisposition string `header:"Content-Disposition"`
		Body               []byte
	}

	VoicesOutput struct {
		Body VoicesResponseDTO
	}
)

// TTSHandler handles HTTP requests for TTS.
type TTSHandler struct {
	service *service.TTS
	debug   bool
}

// NewTTSHandler creates a new TTSHandler instance.
func NewTTSHandler(api huma.API, svc *service.TTS, opts HandlerOptions) *TTSHandler {
	h := &TTSHandler{service: svc, debug: opts.Debug}

	cuda := opts.CUDAAvailable
	registerHealth(api, svc, "tts", &cuda)
	registerModels(api, svc, "tts")

	registerRawBody(api, huma.Operation{
		OperationID:   "synthesize",
		Method:        http.MethodPost,
		Path:          "/synthesize",
		Summary:       "Synthesize speech from text",
		Tags:          []string{"tts"},
		DefaultStatus: http.StatusOK,
		MaxBodyBytes:  opts.MaxBodyBytes,
		RequestBody: &huma.RequestBody{
			Description: "JSON object with the text to speak",
			Content: map[string]*huma.MediaType{
				"application/json": {
					Schema: api.OpenAPI().Components.Schemas.Schema(reflect.TypeOf(SynthesizeRequestDTO{}), true, "SynthesizeRequest"),
				},
			},
		},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "WAV audio",
				Content: map[string]*huma.MediaType{
					"audio/wav": {Schema: &huma.Schema{Type: huma.TypeString, Format: "binary"}},
				},
			},
		},
	}, h.handleSynthesize)

	huma.Register(api, huma.Operation{
		OperationID:   "voices",
		Method:        http.MethodGet,
		Path:          "/voices",
		Summary:       "List voices",
		Tags:          []string{"tts"},
		DefaultStatus: http.StatusOK,
	}, h.handleVoices)

	return h
}

// handleSynthesize handles the synthesize operation.
func (h *TTSHandler) handleSynthesize(ctx context.Context, input *SynthesizeInput) (*SynthesizeOutput, error) {
	speech, err := h.service.Synthesize(ctx, service.ParseSynthesisRequest(input.RawBody))
	if err != nil {
		return nil, toAPIError(err, h.debug)
	}

	return &SynthesizeOutput{
		ContentType:        "audio/wav",
		ContentDisposition: `attachment; filename="speech.wav"`,
		Body:               speech.Audio,
	}, nil
}

// handleVoices handles the voices operation.
func (h *TTSHandler) handleVoices(ctx context.Context, _ *struct{}) (*VoicesOutput, error) {
	return &VoicesOutput{
		Body: VoicesResponseDTO{
			Voices:       []string{"default"},
			CurrentVoice: "default",
			Note:         "Voice selection depends on the loaded TTS model",
		},
	}, nil
}
