package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ekisa-team/voicebox/internal/service"
)

// maxFormMemory is how much of a multipart form is kept in memory before
// file parts spill to disk.
const maxFormMemory = 32 << 20

type (
	TranscribeInput struct {
		ContentType string `header:"Content-Type"`
		RawBody     []byte
	}

	TranscribeOutput struct {
		ContentType string `header:"Content-Type"`
		Body        []byte
	}
)

// STTHandler handles HTTP requests for STT.
type STTHandler struct {
	service *service.STT
	debug   bool
}

// NewSTTHandler creates a new STTHandler instance.
func NewSTTHandler(api huma.API, svc *service.STT, opts HandlerOptions) *STTHandler {
	h := &STTHandler{service: svc, debug: opts.Debug}

	registerHealth(api, svc, "stt", nil)
	registerModels(api, svc, "stt")

	registerRawBody(api, huma.Operation{
		OperationID:   "transcribe",
		Method:        http.MethodPost,
		Path:          "/transcribe",
		Summary:       "Transcribe an uploaded audio file",
		Tags:          []string{"stt"},
		DefaultStatus: http.StatusOK,
		MaxBodyBytes:  opts.MaxBodyBytes,
		RequestBody: &huma.RequestBody{
			Content: map[string]*huma.MediaType{
				"multipart/form-data": {
					Schema: &huma.Schema{
						Type: huma.TypeObject,
						Properties: map[string]*huma.Schema{
							"audio":           {Type: huma.TypeString, Format: "binary", Description: "Audio file"},
							"response_format": {Type: huma.TypeString, Description: "json (default) or anything else for text/plain"},
						},
					},
				},
			},
		},
	}, h.handleTranscribe)

	return h
}

// handleTranscribe handles the transcribe operation.
func (h *STTHandler) handleTranscribe(ctx context.Context, input *TranscribeInput) (*TranscribeOutput, error) {
	form := readForm(input.ContentType, input.RawBody)
	if form != nil {
		defer form.RemoveAll()
	}

	result, err := h.service.Transcribe(ctx, uploadFrom(form))
	if err != nil {
		return nil, toAPIError(err, h.debug)
	}

	if formValue(form, "response_format", "json") != "json" {
		return &TranscribeOutput{
			ContentType: "text/plain; charset=utf-8",
			Body:        []byte(result.Text),
		}, nil
	}

	body, err := json.Marshal(result)
	if err != nil {
		return nil, toAPIError(err, h.debug)
	}

	return &TranscribeOutput{
		ContentType: "application/json",
		Body:        body,
	}, nil
}

// readForm parses a multipart body. Anything unparsable yields nil, which
// the service reports as a missing file.
func readForm(contentType string, body []byte) *multipart.Form {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" || params["boundary"] == "" {
		return nil
	}

	form, err := multipart.NewReader(bytes.NewReader(body), params["boundary"]).ReadForm(maxFormMemory)
	if err != nil {
		return nil
	}

	return form
}

// uploadFrom picks the audio part. A part sent without a filename lands in
// the form values and becomes an upload with an empty name.
func uploadFrom(form *multipart.Form) *service.Upload {
	if form == nil {
		return nil
	}

	if files := form.File["audio"]; len(files) > 0 {
		fh := files[0]
		return &service.Upload{
			Filename: fh.Filename,
			Open:     func() (io.ReadCloser, error) { return fh.Open() },
		}
	}

	if _, ok := form.Value["audio"]; ok {
		return service.NewUpload("", bytes.NewReader(nil))
	}

	return nil
}

func formValue(form *multipart.Form, key, fallback string) string {
	if form == nil {
		return fallback
	}
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return fallback
}
