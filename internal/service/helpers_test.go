package service

import (
	"bytes"
	"context"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/voicebox/internal/audio"
	"github.com/ekisa-team/voicebox/internal/backend"
	"github.com/ekisa-team/voicebox/internal/model"
)

// sineWAV returns a 16-bit PCM WAV holding a 220 Hz tone.
func sineWAV(t *testing.T, rate, channels int, seconds float64) []byte {
	t.Helper()
	frames := int(float64(rate) * seconds)
	samples := make([]float64, frames*channels)
	for f := range frames {
		v := 0.5 * math.Sin(2*math.Pi*220*float64(f)/float64(rate))
		for ch := range channels {
			samples[f*channels+ch] = v
		}
	}

	var buf bytes.Buffer
	require.NoError(t, audio.EncodeWAV(&buf, &audio.Clip{SampleRate: rate, Channels: channels, Samples: samples}))
	return buf.Bytes()
}

func decode(t *testing.T, data []byte) *audio.Clip {
	t.Helper()
	clip, err := audio.DecodeWAV(bytes.NewReader(data))
	require.NoError(t, err)
	return clip
}

func loadedManager(t *testing.T, typ model.ModelType, loader model.Loader) *model.Manager {
	t.Helper()
	m := model.NewManager(typ)
	_, err := m.Load(context.Background(), loader, "test-model")
	require.NoError(t, err)
	return m
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "temporary files left behind")
}

// fakeEngine implements the Backend lifecycle for the fakes below.
type fakeEngine struct{}

func (fakeEngine) Provider() backend.BackendProvider { return "fake" }

func (fakeEngine) ServiceName() string { return "fake-engine" }

func (fakeEngine) Models() []string { return []string{"test-model"} }

func (fakeEngine) Load(_ context.Context, id string) (string, error) { return "/models/" + id, nil }

func (fakeEngine) Close() error { return nil }
