package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/voicebox/internal/audio"
	"github.com/ekisa-team/voicebox/internal/backend"
	"github.com/ekisa-team/voicebox/internal/model"
	"github.com/ekisa-team/voicebox/internal/service"
)

type fakeEngine struct {
	name string
}

func (f fakeEngine) Provider() backend.BackendProvider { return "fake" }

func (f fakeEngine) ServiceName() string { return f.name }

func (f fakeEngine) Models() []string { return []string{"small", "large"} }

func (f fakeEngine) Load(_ context.Context, id string) (string, error) { return id, nil }

func (f fakeEngine) Close() error { return nil }

type fakeSynth struct {
	fakeEngine
	wav []byte
	err error
}

func (f *fakeSynth) Synthesize(_ context.Context, req *backend.SynthesisRequest) (*backend.ResponseMetadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &backend.ResponseMetadata{}, os.WriteFile(req.OutputPath, f.wav, 0o644)
}

type fakeTranscriber struct {
	fakeEngine
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ *backend.TranscriptionRequest) (*backend.Transcript, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &backend.Transcript{
		Text:     f.text,
		Segments: []backend.Segment{{ID: 0, Start: 0, End: 0.5, Text: " " + f.text}},
	}, nil
}

func toneWAV(t *testing.T, seconds float64) []byte {
	t.Helper()
	rate := 16000
	samples := make([]float64, int(float64(rate)*seconds))
	for i := range samples {
		samples[i] = 0.3 * math.Sin(2*math.Pi*440*float64(i)/float64(rate))
	}

	var buf bytes.Buffer
	require.NoError(t, audio.EncodeWAV(&buf, &audio.Clip{SampleRate: rate, Channels: 1, Samples: samples}))
	return buf.Bytes()
}

type testEnv struct {
	handler http.Handler
	models  *model.Manager
	tempDir string
}

func (e *testEnv) load(t *testing.T, loader model.Loader) {
	t.Helper()
	_, err := e.models.Load(context.Background(), loader, "small")
	require.NoError(t, err)
}

func newTTSEnv(t *testing.T, synth *fakeSynth, opts HandlerOptions) *testEnv {
	t.Helper()
	env := &testEnv{models: model.NewManager(model.ModelTypeTTS), tempDir: t.TempDir()}
	svc := service.NewTTS(synth, env.models, service.NewSlots(1, time.Second), service.TTSOptions{TempDir: env.tempDir})

	router, api := NewRouter(RouterOptions{Title: "test", Version: "0"})
	NewTTSHandler(api, svc, opts)
	env.handler = router
	return env
}

func newSTTEnv(t *testing.T, tr *fakeTranscriber, opts HandlerOptions) *testEnv {
	t.Helper()
	env := &testEnv{models: model.NewManager(model.ModelTypeSTT), tempDir: t.TempDir()}
	svc := service.NewSTT(tr, env.models, service.NewSlots(1, time.Second), service.STTOptions{TempDir: env.tempDir})

	router, api := NewRouter(RouterOptions{Title: "test", Version: "0"})
	NewSTTHandler(api, svc, opts)
	env.handler = router
	return env
}

func (e *testEnv) do(t *testing.T, method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) assertNoTempFiles(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(e.tempDir)
	require.NoError(t, err)
	require.Empty(t, entries, "temporary files left behind")
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

type formPart struct {
	field, filename string
	data            []byte
}

func multipartBody(t *testing.T, parts []formPart, values map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		fw, err := w.CreateFormFile(p.field, p.filename)
		require.NoError(t, err)
		_, err = fw.Write(p.data)
		require.NoError(t, err)
	}
	for k, v := range values {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func httptestRequest(e *testEnv, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func readAll(t *testing.T, r io.Reader) []byte {
	t.Helper()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return data
}
