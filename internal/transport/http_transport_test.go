package transport

import (
	"net/http"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestReadEventStream(t *testing.T) {
	stream := strings.Join([]string{
		"id:evt-1\nevent:chat\ndata:{\"subEvent\":\"message\",\"message\":{\"text\":\"hi\"}}",
		"id:evt-2\nevent:chat\ndata:ping",
		"id:evt-3\nevent:botUnreadChatCount\ndata:{\"subEvent\":\"increment\"}",
	}, "\n\n")

	events, cursor, err := readEventStream(strings.NewReader(stream), "")

	if err != nil {
		t.Fatal("unexpected error ", err)
	}

	// the ping keepalive is dropped
	assert.Equal(t, len(events), 2)
	assert.Equal(t, string(events[0].ID), "evt-1")
	assert.Equal(t, events[0].Name, "chat")
	assert.Equal(t, events[1].Name, "botUnreadChatCount")
	assert.Equal(t, string(cursor), "evt-3")
}

func TestReadEventStreamInvalidToken(t *testing.T) {
	stream := strings.Join([]string{
		"id:evt-1\nevent:chat\ndata:{\"subEvent\":\"message\"}",
		"id:evt-2\nevent:fail\ndata:{\"subEvent\":\"invalid_token\"}",
	}, "\n\n")

	_, _, err := readEventStream(strings.NewReader(stream), "")

	if !IsSessionExpired(err) {
		t.Fatalf("expected a session-expired error, got %v", err)
	}
}

func TestParseEventFrame(t *testing.T) {
	testCases := []struct {
		name     string
		frame    string
		wantOK   bool
		wantName string
	}{
		{"well formed", "id:e1\nevent:chat\ndata:{\"subEvent\":\"message\"}", true, "chat"},
		{"ping keepalive", "id:e1\nevent:message\ndata:ping", false, ""},
		{"missing event name", "id:e1\ndata:{}", false, ""},
		{"unparseable data preserved", "id:e1\nevent:chat\ndata:not-json", true, "chat"},
		{"spaces after colons", "id: e1\nevent: chat\ndata: {}", true, "chat"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			raw, ok := parseEventFrame(tc.frame)

			if ok != tc.wantOK {
				t.Fatalf("expected ok=%t, got %t", tc.wantOK, ok)
			}
			if ok && raw.Name != tc.wantName {
				t.Fatalf("expected event name %s, got %s", tc.wantName, raw.Name)
			}
		})
	}
}

func TestParseEventFramePreservesRawPayloadOnBadJson(t *testing.T) {
	raw, ok := parseEventFrame("id:e1\nevent:chat\ndata:not-json")

	if !ok {
		t.Fatal("expected the frame to parse")
	}
	assert.Equal(t, raw.Data["raw"], "not-json")
}

func TestStatusErrorClassification(t *testing.T) {
	testCases := []struct {
		statusCode int
		wantKind   ErrorKind
	}{
		{http.StatusUnauthorized, ErrorKindSessionExpired},
		{http.StatusForbidden, ErrorKindSessionExpired},
		{http.StatusInternalServerError, ErrorKindRetryable},
		{http.StatusBadGateway, ErrorKindRetryable},
		{http.StatusTooManyRequests, ErrorKindRetryable},
		{http.StatusBadRequest, ErrorKindTerminal},
		{http.StatusNotFound, ErrorKindTerminal},
	}

	for _, tc := range testCases {
		err := statusError("poll", tc.statusCode)

		transportErr, ok := err.(*TransportError)
		if !ok {
			t.Fatalf("expected a TransportError for status %d", tc.statusCode)
		}
		if transportErr.Kind != tc.wantKind {
			t.Fatalf("status %d: expected kind %s, got %s", tc.statusCode, tc.wantKind, transportErr.Kind)
		}
	}
}

func TestSesFromCookieHeader(t *testing.T) {
	testCases := []struct {
		name    string
		cookies string
		want    string
		wantErr bool
	}{
		{"single cookie", "ses=abc123", "abc123", false},
		{"among others", "XSRF-TOKEN=xyz; ses=abc123; theme=dark", "abc123", false},
		{"value with equals", "ses=abc=123", "abc=123", false},
		{"missing", "XSRF-TOKEN=xyz", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ses, err := sesFromCookieHeader(tc.cookies)

			if tc.wantErr {
				if err == nil {
					t.Fatal("expected an error, did not receive an error")
				}
				return
			}

			if err != nil {
				t.Fatal("unexpected error ", err)
			}
			assert.Equal(t, ses, tc.want)
		})
	}
}
