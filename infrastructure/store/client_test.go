package store

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sendify-chat/domain"
	"sendify-chat/errors"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(url, 2*time.Second, logs.GetLoggerFromLevel(slog.LevelDebug))
}

func TestClient_CreateMessage_Sends_Exact_Identifiers(t *testing.T) {
	req := require.New(t)
	var method, path, body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		_, _ = w.Write([]byte(`{"msg":"ok"}`))
	}))
	defer server.Close()

	// Given identifiers above the float64 exact range
	record := domain.StoreRecord{
		ChannelID: 9007199254740993,
		UserID:    18446744073709551615,
		Type:      domain.KindText,
		Content:   "hello",
	}

	// When the record is persisted
	err := newTestClient(server.URL + "/").CreateMessage(context.Background(), record)

	// Then the store receives them digit for digit
	req.NoError(err)
	req.Equal(http.MethodPost, method)
	req.Equal("/message", path)
	req.JSONEq(`{"channel_id":9007199254740993,"user_id":18446744073709551615,"type":"text","content":"hello"}`, body)
}

func TestClient_CreateMessage_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"Server error", http.StatusInternalServerError, `{"msg":"ok"}`},
		{"Not acknowledged", http.StatusOK, `{"msg":"duplicate"}`},
		{"Not json", http.StatusOK, `ok`},
		{"Bad request", http.StatusBadRequest, `{"msg":"channel not found"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := newTestClient(server.URL).CreateMessage(context.Background(), domain.StoreRecord{ChannelID: 1, UserID: 1, Type: domain.KindText, Content: "x"})

			require.ErrorIs(t, err, errors.ErrPersistenceFailure)
		})
	}
}

func TestClient_CreateMessage_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	err := newTestClient(url).CreateMessage(context.Background(), domain.StoreRecord{ChannelID: 1, UserID: 1, Type: domain.KindText, Content: "x"})

	require.ErrorIs(t, err, errors.ErrPersistenceFailure)
}

func TestClient_CreateMessage_Canceled_Context(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestClient("http://127.0.0.1:1").CreateMessage(ctx, domain.StoreRecord{})

	require.ErrorIs(t, err, errors.ErrPersistenceFailure)
	require.ErrorIs(t, err, context.Canceled)
}
