package speech

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgash22/voicebridge-ai-website/internal/config"
	"github.com/bgash22/voicebridge-ai-website/internal/fakeupstream"
	"github.com/bgash22/voicebridge-ai-website/internal/upstream"
)

var clip = []byte("RIFF\x24\x00\x00\x00WAVEfmt fake audio payload")

func newFake(t *testing.T, opts fakeupstream.Options) (*fakeupstream.Server, string) {
	t.Helper()
	fake := fakeupstream.New(opts, nil)
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, srv.URL
}

func TestDeepgramTranscribeRequest(t *testing.T) {
	var got *http.Request
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":{"channels":[{"alternatives":[{"transcript":"hola","confidence":0.91}]}]}}`))
	}))
	defer srv.Close()

	tr := NewDeepgramTranscriber(config.TranscriptionConfig{Endpoint: srv.URL + "/", APIKey: "dg-key", Timeout: 5}, nil)
	res, err := tr.Transcribe(context.Background(), clip, Options{Language: "es", ContentType: "audio/webm"})
	require.NoError(t, err)

	assert.Equal(t, Transcript{Text: "hola", Confidence: 0.91}, res)
	assert.Equal(t, "/v1/listen", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "nova-2", q.Get("model"))
	assert.Equal(t, "true", q.Get("smart_format"))
	assert.Equal(t, "true", q.Get("punctuate"))
	assert.Equal(t, "es", q.Get("language"))
	assert.Equal(t, "Token dg-key", got.Header.Get("Authorization"))
	assert.Equal(t, "audio/webm", got.Header.Get("Content-Type"))
	assert.Equal(t, clip, body)
}

func TestDeepgramTranscribeEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":{"channels":[{"alternatives":[{"transcript":"","confidence":0}]}]}}`))
	}))
	defer srv.Close()

	tr := NewDeepgramTranscriber(config.TranscriptionConfig{Endpoint: srv.URL, APIKey: "k", Timeout: 5}, nil)
	res, err := tr.Transcribe(context.Background(), clip, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Text)
}

func TestDeepgramErrors(t *testing.T) {
	fake, url := newFake(t, fakeupstream.Options{})

	tr := NewDeepgramTranscriber(config.TranscriptionConfig{Endpoint: url, Timeout: 5}, nil)
	_, err := tr.Transcribe(context.Background(), clip, Options{})
	assert.ErrorIs(t, err, upstream.ErrMissingCredential)
	assert.Equal(t, 0, fake.Calls(fakeupstream.PathListen))

	_, err = tr.Transcribe(context.Background(), nil, Options{})
	assert.ErrorIs(t, err, ErrEmptyAudio)

	tr = NewDeepgramTranscriber(config.TranscriptionConfig{Endpoint: url, APIKey: "k", Timeout: 5}, nil)
	fake.FailNext(fakeupstream.PathListen, http.StatusBadGateway)
	_, err = tr.Transcribe(context.Background(), clip, Options{})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, upstream.StatusCode(err))
	assert.Contains(t, upstream.Body(err), "injected failure")
}

func TestDeepgramSynthesize(t *testing.T) {
	fake, url := newFake(t, fakeupstream.Options{Speech: []byte("ID3fake"), SpeechContentType: "audio/mpeg"})

	syn := NewDeepgramSynthesizer(config.SynthesisConfig{Endpoint: url, APIKey: "k", Timeout: 5}, nil)
	out, err := syn.Synthesize(context.Background(), "Your package is in transit.", "en")
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", out.ContentType)
	assert.Equal(t, []byte("ID3fake"), out.Data)
	assert.Equal(t, 1, fake.Calls(fakeupstream.PathSpeak))

	_, err = syn.Synthesize(context.Background(), "   ", "en")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestOpenAITranscribe(t *testing.T) {
	fake, url := newFake(t, fakeupstream.Options{Transcript: "track 1234567890"})

	tr := NewOpenAITranscriber(config.TranscriptionConfig{Endpoint: url + "/v1", APIKey: "sk", Timeout: 5}, nil)
	res, err := tr.Transcribe(context.Background(), clip, Options{Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, "track 1234567890", res.Text)
	assert.Equal(t, 1, fake.Calls(fakeupstream.PathTranscriptions))

	fake.FailNext(fakeupstream.PathTranscriptions, http.StatusTooManyRequests)
	_, err = tr.Transcribe(context.Background(), clip, Options{})
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode(err))

	_, err = NewOpenAITranscriber(config.TranscriptionConfig{Endpoint: url + "/v1", Timeout: 5}, nil).
		Transcribe(context.Background(), clip, Options{})
	assert.ErrorIs(t, err, upstream.ErrMissingCredential)
}

func TestOpenAISynthesize(t *testing.T) {
	fake, url := newFake(t, fakeupstream.Options{})

	syn := NewOpenAISynthesizer(config.SynthesisConfig{Endpoint: url + "/v1", APIKey: "sk", Timeout: 5}, nil)
	out, err := syn.Synthesize(context.Background(), "hello", "fr")
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", out.ContentType)
	assert.Equal(t, "RIFF", string(out.Data[:4]))
	assert.Equal(t, 1, fake.Calls(fakeupstream.PathSpeech))
}

func TestUploadName(t *testing.T) {
	assert.Equal(t, "audio.webm", uploadName("audio/webm;codecs=opus"))
	assert.Equal(t, "audio.mp3", uploadName("audio/mpeg"))
	assert.Equal(t, "audio.wav", uploadName(""))
}

func TestGoogleRejectsNonWAV(t *testing.T) {
	tr := NewGoogleTranscriber(config.TranscriptionConfig{Provider: ProviderGoogle, Timeout: 5}, nil)
	_, err := tr.Transcribe(context.Background(), []byte("not a wav file at all, just bytes"), Options{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = tr.Transcribe(context.Background(), nil, Options{})
	assert.ErrorIs(t, err, ErrEmptyAudio)
	assert.NoError(t, tr.Close())

	syn := NewGoogleSynthesizer(config.SynthesisConfig{Provider: ProviderGoogle, Timeout: 5}, nil)
	_, err = syn.Synthesize(context.Background(), "", "en")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestFactories(t *testing.T) {
	for _, p := range []string{ProviderDeepgram, ProviderOpenAI, ProviderGoogle} {
		tr, err := NewTranscriber(config.TranscriptionConfig{Provider: p, Timeout: 5}, nil)
		require.NoError(t, err)
		assert.Equal(t, p, tr.Name())

		syn, err := NewSynthesizer(config.SynthesisConfig{Provider: p, Timeout: 5}, nil)
		require.NoError(t, err)
		assert.Equal(t, p, syn.Name())
	}

	_, err := NewTranscriber(config.TranscriptionConfig{Provider: "watson"}, nil)
	assert.Error(t, err)
	_, err = NewSynthesizer(config.SynthesisConfig{Provider: "polly"}, nil)
	assert.Error(t, err)
}
