package fakeupstream

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(t *testing.T, h http.Handler, path, auth, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListen(t *testing.T) {
	s := New(Options{Transcript: "hello world"}, nil)

	rec := post(t, s, PathListen, "", "RIFF....")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(t, s, PathListen+"?model=nova-2", "Token k", "RIFF....")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"transcript":"hello world"`)
	assert.Equal(t, 2, s.Calls(PathListen))
}

func TestChatToolSelection(t *testing.T) {
	s := New(Options{}, nil)

	body := `{"model":"m","messages":[{"role":"user","content":"track 1234-5678-90 please"}],"tools":[{"type":"function","function":{"name":"track_shipment"}}]}`
	rec := post(t, s, PathChatCompletions, "Bearer k", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Choices []struct {
			Message struct {
				ToolCalls []struct {
					Function struct {
						Name      string `json:"name"`
						Arguments string `json:"arguments"`
					} `json:"function"`
				} `json:"tool_calls"`
			} `json:"message"`
		} `json:"choices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Choices[0].Message.ToolCalls, 1)
	assert.Equal(t, "track_shipment", resp.Choices[0].Message.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"tracking_number":"1234-5678-90"}`, resp.Choices[0].Message.ToolCalls[0].Function.Arguments)

	// Without tools on offer the message is echoed.
	rec = post(t, s, PathChatCompletions, "Bearer k", `{"model":"m","messages":[{"role":"user","content":"track 1234567890"}]}`)
	assert.Contains(t, rec.Body.String(), "You said: track 1234567890")
}

func TestChatSummarizesToolResult(t *testing.T) {
	s := New(Options{}, nil)

	body := `{"model":"m","messages":[{"role":"user","content":"x"},{"role":"tool","tool_call_id":"c","content":"{\"status\":\"Package in transit.\"}"}]}`
	rec := post(t, s, PathChatCompletions, "Bearer k", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"content":"Package in transit."`)
}

func TestSpeechAndFailures(t *testing.T) {
	s := New(Options{}, nil)

	rec := post(t, s, PathSpeak, "Token k", `{"text":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("RIFF")))

	s.FailNext(PathSpeech, http.StatusServiceUnavailable)
	rec = post(t, s, PathSpeech, "Bearer k", `{"input":"hi"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = post(t, s, PathSpeech, "Bearer k", `{"input":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}
