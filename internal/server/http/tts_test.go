package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTS_Health(t *testing.T) {
	synth := &fakeSynth{fakeEngine: fakeEngine{name: "coqui-tts"}}
	env := newTTSEnv(t, synth, HandlerOptions{CUDAAvailable: false})

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["model_loaded"])
	assert.Equal(t, "coqui-tts", body["service"])
	assert.Equal(t, false, body["cuda_available"])

	env.load(t, synth)

	body = decodeJSON(t, env.do(t, http.MethodGet, "/health", "", nil))
	assert.Equal(t, true, body["model_loaded"])
}

func TestTTS_Synthesize(t *testing.T) {
	synth := &fakeSynth{fakeEngine: fakeEngine{name: "coqui-tts"}, wav: toneWAV(t, 0.3)}
	env := newTTSEnv(t, synth, HandlerOptions{})
	env.load(t, synth)

	var bodies [][]byte
	for range 2 {
		rec := env.do(t, http.MethodPost, "/synthesize", "application/json", strings.NewReader(`{"text": "Hello, traveller."}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="speech.wav"`)
		assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

		b := rec.Body.Bytes()
		require.Greater(t, len(b), 44)
		assert.Equal(t, "RIFF", string(b[:4]))
		assert.Equal(t, "WAVE", string(b[8:12]))
		bodies = append(bodies, b)
	}

	assert.Equal(t, bodies[0], bodies[1])
	env.assertNoTempFiles(t)
}

func TestTTS_SynthesizeErrors(t *testing.T) {
	synth := &fakeSynth{fakeEngine: fakeEngine{name: "coqui-tts"}, wav: toneWAV(t, 0.1)}
	env := newTTSEnv(t, synth, HandlerOptions{})
	env.load(t, synth)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"empty object", `{}`, http.StatusBadRequest, "No text provided"},
		{"empty body", ``, http.StatusBadRequest, "No text provided"},
		{"invalid json", `{"text":`, http.StatusBadRequest, "No text provided"},
		{"blank text", `{"text": "   "}`, http.StatusBadRequest, "Empty text provided"},
		{"mp3", `{"text": "hi", "response_format": "mp3"}`, http.StatusBadRequest, "Unsupported format: mp3"},
		{"zero speed", `{"text": "hi", "speed": 0}`, http.StatusBadRequest, "Speed must be a positive number"},
		{"null text", `{"text": null}`, http.StatusBadRequest, "No text provided"},
		{"numeric text", `{"text": 5}`, http.StatusBadRequest, "Text must be a string"},
		{"numeric format", `{"text": "hi", "response_format": 3}`, http.StatusBadRequest, "response_format must be a string"},
		{"string speed", `{"text": "hi", "speed": "fast"}`, http.StatusBadRequest, "Speed must be a number"},
		{"tiny speed", `{"text": "hi", "speed": 1e-6}`, http.StatusBadRequest, "Speed must be between 0.25 and 4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/synthesize", "application/json", strings.NewReader(tt.body))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, map[string]any{"error": tt.message}, decodeJSON(t, rec))
		})
	}
	env.assertNoTempFiles(t)
}

func TestTTS_SynthesizeNotLoaded(t *testing.T) {
	env := newTTSEnv(t, &fakeSynth{}, HandlerOptions{})

	for _, body := range []string{`{}`, ``, `{"text": 5}`} {
		rec := env.do(t, http.MethodPost, "/synthesize", "application/json", strings.NewReader(body))
		assert.Equal(t, http.StatusInternalServerError, rec.Code, body)
		assert.Equal(t, "TTS model not loaded", decodeJSON(t, rec)["error"], body)
	}
}

func TestTTS_EngineFailure(t *testing.T) {
	synth := &fakeSynth{err: errors.New("tts-server returned 500")}

	t.Run("hides detail", func(t *testing.T) {
		env := newTTSEnv(t, synth, HandlerOptions{})
		env.load(t, synth)

		rec := env.do(t, http.MethodPost, "/synthesize", "application/json", strings.NewReader(`{"text": "hi"}`))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Speech synthesis failed", decodeJSON(t, rec)["error"])
		env.assertNoTempFiles(t)
	})

	t.Run("debug shows detail", func(t *testing.T) {
		env := newTTSEnv(t, synth, HandlerOptions{Debug: true})
		env.load(t, synth)

		rec := env.do(t, http.MethodPost, "/synthesize", "application/json", strings.NewReader(`{"text": "hi"}`))
		assert.Equal(t, "Speech synthesis failed: tts-server returned 500", decodeJSON(t, rec)["error"])
	})
}

func TestTTS_BodyTooLarge(t *testing.T) {
	synth := &fakeSynth{}
	env := newTTSEnv(t, synth, HandlerOptions{MaxBodyBytes: 16})
	env.load(t, synth)

	rec := env.do(t, http.MethodPost, "/synthesize", "application/json", strings.NewReader(`{"text": "`+strings.Repeat("a", 64)+`"}`))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.NotEmpty(t, decodeJSON(t, rec)["error"])
}

func TestTTS_VoicesAndModels(t *testing.T) {
	synth := &fakeSynth{fakeEngine: fakeEngine{name: "coqui-tts"}}
	env := newTTSEnv(t, synth, HandlerOptions{})

	voices := decodeJSON(t, env.do(t, http.MethodGet, "/voices", "", nil))
	assert.Equal(t, []any{"default"}, voices["voices"])
	assert.Equal(t, "default", voices["current_voice"])
	assert.NotEmpty(t, voices["note"])

	models := decodeJSON(t, env.do(t, http.MethodGet, "/models", "", nil))
	assert.Equal(t, []any{"small", "large"}, models["models"])
	assert.Contains(t, models, "current_model")
	assert.Nil(t, models["current_model"])

	env.load(t, synth)
	models = decodeJSON(t, env.do(t, http.MethodGet, "/models", "", nil))
	assert.Equal(t, "small", models["current_model"])
}

func TestRouter_CORSAndRequestID(t *testing.T) {
	env := newTTSEnv(t, &fakeSynth{}, HandlerOptions{})

	req := "11111111-2222-3333-4444-555555555555"
	r := env.do(t, http.MethodGet, "/health", "", nil)
	assert.NotEqual(t, req, r.Header().Get(RequestIDHeader))

	rec := httptestRequest(env, http.MethodOptions, "/synthesize", map[string]string{
		"Origin":                        "http://localhost:3000",
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptestRequest(env, http.MethodGet, "/health", map[string]string{RequestIDHeader: req})
	assert.Equal(t, req, rec.Header().Get(RequestIDHeader))
}

func TestRouter_OpenAPI(t *testing.T) {
	env := newTTSEnv(t, &fakeSynth{}, HandlerOptions{})

	rec := env.do(t, http.MethodGet, "/openapi.json", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/synthesize")

	var doc struct {
		Paths map[string]map[string]struct {
			RequestBody struct {
				Required bool                      `json:"required"`
				Content  map[string]map[string]any `json:"content"`
			} `json:"requestBody"`
		} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))

	body := doc.Paths["/synthesize"]["post"].RequestBody
	assert.False(t, body.Required)
	assert.Contains(t, body.Content["application/json"], "schema")
}
