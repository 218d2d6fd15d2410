package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	resp      *genai.GenerateContentResponse
	err       error
	lastModel string
	lastCfg   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.lastModel = model
	f.lastCfg = cfg
	return f.resp, f.err
}

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: s}}},
	}}}
}

func blobResponse(data []byte, mime string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "here you go"},
			{InlineData: &genai.Blob{Data: data, MIMEType: mime}},
		}},
	}}}
}

func TestGeminiGenerateJSON(t *testing.T) {
	m := &fakeModels{resp: textResponse(`{"definition":"hi"}`)}
	g := newGeminiWith(m, GeminiConfig{})

	out, err := g.GenerateJSON(context.Background(), "define hola", lookupSchema)
	require.NoError(t, err)
	assert.Equal(t, `{"definition":"hi"}`, out)
	assert.Equal(t, "gemini-2.5-flash", m.lastModel)
	assert.Equal(t, "application/json", m.lastCfg.ResponseMIMEType)
	assert.Same(t, lookupSchema, m.lastCfg.ResponseSchema)
}

func TestGeminiGenerateJSONEmpty(t *testing.T) {
	g := newGeminiWith(&fakeModels{resp: &genai.GenerateContentResponse{}}, GeminiConfig{})
	_, err := g.GenerateJSON(context.Background(), "p", nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)

	g = newGeminiWith(&fakeModels{err: errors.New("quota exceeded")}, GeminiConfig{})
	_, err = g.GenerateJSON(context.Background(), "p", nil)
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestGeminiGenerateImage(t *testing.T) {
	m := &fakeModels{resp: blobResponse([]byte("img"), "image/jpeg")}
	g := newGeminiWith(m, GeminiConfig{ImageModel: "custom-image"})

	data, mime, err := g.GenerateImage(context.Background(), "a cat")
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), data)
	assert.Equal(t, "image/jpeg", mime)
	assert.Equal(t, "custom-image", m.lastModel)

	g = newGeminiWith(&fakeModels{resp: textResponse("sorry, no image")}, GeminiConfig{})
	_, _, err = g.GenerateImage(context.Background(), "a cat")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGeminiSynthesize(t *testing.T) {
	m := &fakeModels{resp: blobResponse([]byte{1, 0, 2, 0}, "audio/L16;rate=24000")}
	g := newGeminiWith(m, GeminiConfig{})

	pcm, err := g.Synthesize(context.Background(), "hola", "")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 2, 0}, pcm)
	assert.Equal(t, "gemini-2.5-flash-preview-tts", m.lastModel)
	assert.Equal(t, []string{"AUDIO"}, m.lastCfg.ResponseModalities)
	assert.Equal(t, "Kore", m.lastCfg.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)

	_, err = g.Synthesize(context.Background(), "hola", "Puck")
	require.NoError(t, err)
	assert.Equal(t, "Puck", m.lastCfg.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
}

func TestGeminiModels(t *testing.T) {
	g := newGeminiWith(&fakeModels{}, GeminiConfig{TextModel: "t"})
	assert.Equal(t, "t", g.Model(CapabilityText))
	assert.Equal(t, "gemini-2.5-flash-image", g.Model(CapabilityImage))
	assert.Equal(t, "gemini-2.5-flash-preview-tts", g.Model(CapabilitySpeech))
	assert.Equal(t, ProviderGemini, g.Name())
}

func newOpenAIServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		format, _ := req["response_format"].(map[string]any)
		assert.Equal(t, "json_object", format["type"])

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"title\":\"T\",\"story\":\"S\"}"},"finish_reason":"stop"}]}`)
	})
	mux.HandleFunc("/v1/audio/speech", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "pcm", req["response_format"])
		assert.Equal(t, "nova", req["voice"])
		w.Write([]byte{1, 0, 2, 0})
	})
	mux.HandleFunc("/v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"created":1,"data":[{"b64_json":"aW1n"}]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIBackend(t *testing.T) {
	srv := newOpenAIServer(t)
	o := NewOpenAI("sk-test", OpenAIConfig{BaseURL: srv.URL + "/v1"})
	ctx := context.Background()

	out, err := o.GenerateJSON(ctx, "write a story", storySchema)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"T","story":"S"}`, out)

	pcm, err := o.Synthesize(ctx, "hola", "")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 2, 0}, pcm)

	img, mime, err := o.GenerateImage(ctx, "a cat")
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), img)
	assert.Equal(t, "image/png", mime)
}

func TestOpenAIBackendHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	o := NewOpenAI("sk-bad", OpenAIConfig{BaseURL: srv.URL + "/v1"})
	_, err := o.GenerateJSON(context.Background(), "p", nil)
	assert.ErrorContains(t, err, "bad key")
}
