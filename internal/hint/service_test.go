package hint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/magefree/solitaire-server-go/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func geminiAnswer(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"role": "model", "parts": []map[string]any{{"text": text}}}},
		},
	}
}

func TestGeminiClientSuggest(t *testing.T) {
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(geminiAnswer("  Move the 5 of hearts onto the 6 of spades.\n"))
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.Client(), "test-key", srv.URL+"/v1beta/", "test-model", nil, zaptest.NewLogger(t))
	text, err := client.Suggest(context.Background(), "Score: 0")
	require.NoError(t, err)
	assert.Equal(t, "Move the 5 of hearts onto the 6 of spades.", text)

	require.Len(t, gotReq.Contents, 1)
	assert.Equal(t, "Score: 0", gotReq.Contents[0].Parts[0].Text)
	require.NotNil(t, gotReq.SystemInstruction)
	assert.Equal(t, SystemPrompt, gotReq.SystemInstruction.Parts[0].Text)
}

func TestGeminiClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "upstream status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"boom"}`))
			},
			want: ErrUpstream,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
			want: ErrUpstream,
		},
		{
			name: "oversized body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"candidates":[],"padding":"`))
				_, _ = w.Write(bytes.Repeat([]byte("x"), maxResponseBytes))
				_, _ = w.Write([]byte(`"}`))
			},
			want: ErrUpstream,
		},
		{
			name: "no candidates",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"candidates":[]}`))
			},
			want: ErrEmptyAnswer,
		},
		{
			name: "blank text",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(geminiAnswer("   "))
			},
			want: ErrEmptyAnswer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client := NewGeminiClient(srv.Client(), "key", srv.URL, "model", nil, zaptest.NewLogger(t))
			_, err := client.Suggest(context.Background(), "prompt")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGeminiClientFallbackModels(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path == "/models/primary:generateContent" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(geminiAnswer("Turn over a card from the stock."))
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.Client(), "", srv.URL, "primary", []string{"backup"}, zaptest.NewLogger(t))
	text, err := client.Suggest(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Turn over a card from the stock.", text)
	assert.Equal(t, int32(2), calls.Load())
}

type oracleFunc func(ctx context.Context, prompt string) (string, error)

func (f oracleFunc) Suggest(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func TestServiceFallbacks(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		oracle Oracle
		want   string
	}{
		{"answer", oracleFunc(func(context.Context, string) (string, error) { return "Move the ace.", nil }), "Move the ace."},
		{"empty", oracleFunc(func(context.Context, string) (string, error) { return "", ErrEmptyAnswer }), FallbackNoAnswer},
		{"upstream", oracleFunc(func(context.Context, string) (string, error) {
			return "", fmt.Errorf("%w: status 500", ErrUpstream)
		}), FallbackConnection},
		{"other", oracleFunc(func(context.Context, string) (string, error) { return "", errors.New("boom") }), FallbackConnection},
		{"nil oracle", nil, FallbackDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.oracle, time.Second, zaptest.NewLogger(t))
			assert.Equal(t, tt.want, svc.Hint(ctx, "prompt"))
		})
	}
}

func TestServiceTimeout(t *testing.T) {
	oracle := oracleFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", fmt.Errorf("%w: %w", ErrUpstream, ctx.Err())
	})
	svc := NewService(oracle, 20*time.Millisecond, zaptest.NewLogger(t))
	assert.Equal(t, FallbackConnection, svc.Hint(context.Background(), "prompt"))
}

func newPlayingSession(t *testing.T) *game.Session {
	t.Helper()
	sess := game.NewSession(context.Background(), "hint-session", "", nil, game.SessionOptions{}, zaptest.NewLogger(t))
	require.NoError(t, sess.StartSeeded(context.Background(), game.DrawOne, "hint-service"))
	return sess
}

func TestServiceRequest(t *testing.T) {
	var prompt string
	oracle := oracleFunc(func(_ context.Context, p string) (string, error) {
		prompt = p
		return "Move the king to the empty column.", nil
	})
	svc := NewService(oracle, time.Second, zaptest.NewLogger(t))
	sess := newPlayingSession(t)

	text, delivered, err := svc.Request(context.Background(), sess)
	require.NoError(t, err)
	assert.True(t, delivered)
	assert.Equal(t, "Move the king to the empty column.", text)
	assert.Contains(t, prompt, "Current Klondike solitaire game state:")
	assert.Equal(t, text, sess.View().Hint)
}

func TestServiceRequestAsyncDeliversThroughSession(t *testing.T) {
	release := make(chan struct{})
	oracle := oracleFunc(func(context.Context, string) (string, error) {
		<-release
		return "Draw from the stock.", nil
	})
	svc := NewService(oracle, time.Second, zaptest.NewLogger(t))
	sess := newPlayingSession(t)

	hints := make(chan string, 1)
	sess.SetNotificationHandler(func(n game.Notification) {
		if n.Type == game.NotifyHint {
			hints <- n.Data["hint"].(string)
		}
	})

	require.NoError(t, svc.RequestAsync(context.Background(), sess))
	assert.ErrorIs(t, svc.RequestAsync(context.Background(), sess), game.ErrHintPending)
	assert.True(t, sess.View().HintPending)

	close(release)
	select {
	case text := <-hints:
		assert.Equal(t, "Draw from the stock.", text)
	case <-time.After(time.Second):
		t.Fatal("hint was not delivered")
	}
	svc.Wait()
	assert.False(t, sess.View().HintPending)
}

func TestServiceRequestAsyncDropsStaleHint(t *testing.T) {
	release := make(chan struct{})
	oracle := oracleFunc(func(context.Context, string) (string, error) {
		<-release
		return "stale", nil
	})
	svc := NewService(oracle, time.Second, zaptest.NewLogger(t))
	sess := newPlayingSession(t)

	require.NoError(t, svc.RequestAsync(context.Background(), sess))
	require.NoError(t, sess.PlayAgain(context.Background()))
	close(release)
	svc.Wait()

	view := sess.View()
	assert.Empty(t, view.Hint)
	assert.False(t, view.HintPending)
}

func TestServiceRequestWithoutGame(t *testing.T) {
	svc := NewService(nil, time.Second, zaptest.NewLogger(t))
	sess := game.NewSession(context.Background(), "idle", "", nil, game.SessionOptions{}, zaptest.NewLogger(t))

	_, _, err := svc.Request(context.Background(), sess)
	assert.ErrorIs(t, err, game.ErrNoActiveGame)
	assert.ErrorIs(t, svc.RequestAsync(context.Background(), sess), game.ErrNoActiveGame)
}
