package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oachat/chat-connector/internal/config"
	"github.com/oachat/chat-connector/internal/domain"
	"github.com/oachat/chat-connector/internal/platform/logger"
	"github.com/oachat/chat-connector/internal/session"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const userAgent = "chat-connector/1.0"

var (
	ErrNoBots      = errors.New("the account does not own any bots")
	ErrBotNotFound = errors.New("no bot with the configured name was found")
)

// HTTPTransport talks to the chat platform's web API: cookie-session login,
// csrf/streaming token fetch, SSE long-poll, and JSON send calls.
type HTTPTransport struct {
	chatHost      string
	accountHost   string
	streamingHost string
	clientType    string
	deviceType    string
	pingSecs      int
	botName       string
	httpClient    *http.Client

	mu  sync.Mutex
	bot domain.BotInfo
}

func NewHTTPTransport(cfg *config.Config) *HTTPTransport {
	return &HTTPTransport{
		chatHost:      cfg.ChatApiHost,
		accountHost:   cfg.AccountApiHost,
		streamingHost: cfg.StreamingApiHost,
		clientType:    cfg.ClientType,
		deviceType:    cfg.DeviceType,
		pingSecs:      cfg.PingSecs,
		botName:       cfg.BotName,
		httpClient:    &http.Client{},
	}
}

// Bot returns the bot resolved during login.
func (t *HTTPTransport) Bot() domain.BotInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bot
}

func (t *HTTPTransport) Login(ctx context.Context, credentials session.Credentials) (session.Payload, error) {

	var sesCookie string
	var err error

	switch credentials.Kind {
	case session.CookieCredentials:
		sesCookie, err = sesFromCookieHeader(credentials.Cookies)
	case session.PasswordCredentials:
		sesCookie, err = t.emailLogin(ctx, credentials)
	default:
		err = fmt.Errorf("unsupported credential kind: %s", credentials.Kind)
	}

	if err != nil {
		return session.Payload{}, err
	}

	partial := session.Session{Token: sesCookie}

	xsrfToken, err := t.csrfToken(ctx, partial)
	if err != nil {
		return session.Payload{}, err
	}
	partial.XSRFToken = xsrfToken

	bot, err := t.selectBot(ctx, partial, credentials.BotName)
	if err != nil {
		return session.Payload{}, err
	}

	t.mu.Lock()
	t.bot = bot
	t.mu.Unlock()

	logger.Log.WithFields(logrus.Fields{"bot": bot.Name, "bot_id": bot.BotID}).Info("Selected bot")

	streamingToken, err := t.streamingToken(ctx, partial, bot.BotID)
	if err != nil {
		return session.Payload{}, err
	}

	return session.Payload{
		Token:        sesCookie,
		XSRFToken:    xsrfToken,
		RefreshToken: streamingToken,
	}, nil
}

// Refresh re-fetches the streaming token with the existing login cookie.
// This is the lightweight path; when the cookie itself is dead the call
// fails and the session manager falls back to a full login.
func (t *HTTPTransport) Refresh(ctx context.Context, current session.Session) (session.Payload, error) {
	bot := t.Bot()
	if bot.BotID == "" {
		return session.Payload{}, errors.New("no bot selected, a full login is required")
	}

	streamingToken, err := t.streamingToken(ctx, current, bot.BotID)
	if err != nil {
		return session.Payload{}, err
	}

	return session.Payload{
		Token:        current.Token,
		XSRFToken:    current.XSRFToken,
		RefreshToken: streamingToken,
	}, nil
}

func (t *HTTPTransport) emailLogin(ctx context.Context, credentials session.Credentials) (string, error) {

	body := map[string]interface{}{
		"email":        credentials.Username,
		"password":     credentials.Password,
		"stayLoggedIn": false,
	}

	loginURL := t.accountHost + "/api/login/email"

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", classifyCallError("login", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", statusError("login", resp.StatusCode)
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "ses" {
			return cookie.Value, nil
		}
	}

	return "", NewTerminalError("login", errors.New("login response did not contain a session cookie"))
}

func sesFromCookieHeader(cookies string) (string, error) {
	for _, item := range strings.Split(cookies, "; ") {
		name, value, found := strings.Cut(item, "=")
		if found && name == "ses" {
			return value, nil
		}
	}

	return "", NewTerminalError("login", errors.New("cookie credentials did not contain a ses cookie"))
}

func (t *HTTPTransport) csrfToken(ctx context.Context, sess session.Session) (string, error) {
	var response struct {
		Token string `json:"token"`
	}

	if err := t.doJSON(ctx, sess, http.MethodGet, t.chatHost+"/api/v1/csrfToken", nil, &response); err != nil {
		return "", err
	}

	return response.Token, nil
}

func (t *HTTPTransport) selectBot(ctx context.Context, sess session.Session, botName string) (domain.BotInfo, error) {
	var response struct {
		List []struct {
			BotID         string `json:"botId"`
			Name          string `json:"name"`
			BasicSearchID string `json:"basicSearchId"`
		} `json:"list"`
	}

	botsURL := t.chatHost + "/api/v1/bots?noFilter=true&limit=1000"

	if err := t.doJSON(ctx, sess, http.MethodGet, botsURL, nil, &response); err != nil {
		return domain.BotInfo{}, err
	}

	if len(response.List) == 0 {
		return domain.BotInfo{}, NewTerminalError("login", ErrNoBots)
	}

	for _, bot := range response.List {
		if bot.Name == botName {
			return domain.BotInfo{
				BotID:         domain.BotID(bot.BotID),
				Name:          bot.Name,
				BasicSearchID: bot.BasicSearchID,
			}, nil
		}
	}

	return domain.BotInfo{}, NewTerminalError("login", ErrBotNotFound)
}

func (t *HTTPTransport) streamingToken(ctx context.Context, sess session.Session, botID domain.BotID) (string, error) {
	var response struct {
		StreamingApiToken string `json:"streamingApiToken"`
	}

	tokenURL := fmt.Sprintf("%s/api/v1/bots/%s/streamingApiToken", t.chatHost, botID)

	if err := t.doJSON(ctx, sess, http.MethodPost, tokenURL, nil, &response); err != nil {
		return "", err
	}

	return response.StreamingApiToken, nil
}

// Poll opens the SSE stream and collects frames until the poll deadline.  A
// deadline expiring mid-read is a normal empty-handed return, not an error.
func (t *HTTPTransport) Poll(ctx context.Context, sess session.Session, cursor Cursor) ([]RawEvent, Cursor, error) {

	params := url.Values{}
	params.Set("token", sess.RefreshToken)
	params.Set("deviceType", t.deviceType)
	params.Set("clientType", t.clientType)
	params.Set("pingSecs", strconv.Itoa(t.pingSecs))
	if cursor != "" {
		params.Set("lastEventId", string(cursor))
	}

	streamURL := t.streamingHost + "/api/v2/sse?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, cursor, err
	}
	t.setSessionHeaders(req, sess)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, cursor, classifyCallError("poll", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, cursor, statusError("poll", resp.StatusCode)
	}

	events, next, err := readEventStream(resp.Body, cursor)
	if err != nil {
		return nil, cursor, err
	}

	return events, next, nil
}

// readEventStream parses frames of the form "id:...\nevent:...\ndata:..."
// separated by blank lines.  Ping keepalives are dropped.  An invalid_token
// failure frame ends the stream with a session-expired error so the recovery
// path can fetch a fresh streaming token.
func readEventStream(body io.Reader, cursor Cursor) ([]RawEvent, Cursor, error) {

	var events []RawEvent

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(splitEventFrames)

	for scanner.Scan() {
		frame := scanner.Text()
		if frame == "" {
			continue
		}

		raw, ok := parseEventFrame(frame)
		if !ok {
			continue
		}

		if isInvalidTokenEvent(raw) {
			return events, cursor, NewSessionExpiredError("poll", errors.New("the streaming token was rejected"))
		}

		events = append(events, raw)
		cursor = Cursor(raw.ID)
	}

	// a poll deadline expiring mid-stream just ends the batch
	if err := scanner.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return events, cursor, classifyCallError("poll", err)
	}

	return events, cursor, nil
}

func splitEventFrames(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.Index(data, []byte("\n\n")); i >= 0 {
		return i + 2, data[0:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}

func parseEventFrame(frame string) (RawEvent, bool) {
	raw := RawEvent{ReceivedAt: time.Now()}

	var data string
	for _, line := range strings.Split(frame, "\n") {
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch name {
		case "id":
			raw.ID = domain.EventID(value)
		case "event":
			raw.Name = value
		case "data":
			data = value
		}
	}

	if raw.Name == "" || data == "ping" {
		return RawEvent{}, false
	}

	if data != "" {
		if err := json.Unmarshal([]byte(data), &raw.Data); err != nil {
			// malformed payloads still flow through as unclassifiable
			// events so wildcard handlers can observe them
			raw.Data = map[string]interface{}{"raw": data}
		}
	}

	return raw, true
}

func isInvalidTokenEvent(raw RawEvent) bool {
	if raw.Name != "fail" {
		return false
	}

	subEvent, _ := raw.Data["subEvent"].(string)
	return subEvent == "invalid_token"
}

func (t *HTTPTransport) Send(ctx context.Context, sess session.Session, msg Message) (Ack, error) {
	bot := t.Bot()

	sendID := makeSendID(msg.ContactID)

	body := map[string]interface{}{
		"sendId": sendID,
		"type":   msg.Type,
	}
	if msg.Text != "" {
		body["text"] = msg.Text
	}
	if len(msg.Emojis) > 0 {
		body["emojis"] = msg.Emojis
	}
	if msg.Type == "sticker" {
		body["stickerId"] = msg.StickerID
		body["packageId"] = msg.PackageID
	}
	if msg.QuoteToken != "" {
		body["quoteToken"] = msg.QuoteToken
	}

	sendURL := fmt.Sprintf("%s/api/v1/bots/%s/messages/%s/send", t.chatHost, bot.BotID, msg.ContactID)

	var response struct {
		MessageID string `json:"messageId"`
	}

	if err := t.doJSON(ctx, sess, http.MethodPost, sendURL, body, &response); err != nil {
		return Ack{}, err
	}

	return Ack{SendID: sendID, MessageID: response.MessageID}, nil
}

func (t *HTTPTransport) SetTyping(ctx context.Context, sess session.Session, contactID domain.ContactID) error {
	bot := t.Bot()
	typingURL := fmt.Sprintf("%s/api/v1/bots/%s/chats/%s/typing", t.chatHost, bot.BotID, contactID)
	return t.doJSON(ctx, sess, http.MethodPut, typingURL, nil, nil)
}

func (t *HTTPTransport) MarkAsRead(ctx context.Context, sess session.Session, contactID domain.ContactID, messageID string) error {
	bot := t.Bot()
	readURL := fmt.Sprintf("%s/api/v1/bots/%s/chats/%s/markAsRead", t.chatHost, bot.BotID, contactID)
	return t.doJSON(ctx, sess, http.MethodPut, readURL, map[string]interface{}{"messageId": messageID}, nil)
}

func (t *HTTPTransport) UseManualChat(ctx context.Context, sess session.Session, contactID domain.ContactID, expiresAt time.Time) error {
	bot := t.Bot()
	manualURL := fmt.Sprintf("%s/api/v2/bots/%s/chats/%s/useManualChat", t.chatHost, bot.BotID, contactID)
	return t.doJSON(ctx, sess, http.MethodPut, manualURL, map[string]interface{}{"expiresAt": expiresAt.UnixMilli()}, nil)
}

func makeSendID(contactID domain.ContactID) domain.SendID {
	return domain.SendID(fmt.Sprintf("%s_%d_%s", contactID, time.Now().UnixMilli(), uuid.NewString()))
}

func (t *HTTPTransport) setSessionHeaders(req *http.Request, sess session.Session) {
	req.Header.Set("User-Agent", userAgent)
	if sess.XSRFToken != "" {
		req.Header.Set("X-XSRF-TOKEN", sess.XSRFToken)
		req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: sess.XSRFToken})
	}
	if sess.Token != "" {
		req.AddCookie(&http.Cookie{Name: "ses", Value: sess.Token})
	}
}

func (t *HTTPTransport) doJSON(ctx context.Context, sess session.Session, method string, callURL string, body interface{}, out interface{}) error {

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, callURL, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	t.setSessionHeaders(req, sess)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return classifyCallError(method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError(method, resp.StatusCode)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func statusError(op string, statusCode int) error {
	err := fmt.Errorf("unexpected status code %d", statusCode)

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return NewSessionExpiredError(op, err)
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusTooManyRequests || statusCode >= 500:
		return NewRetryableError(op, err)
	default:
		return NewTerminalError(op, err)
	}
}
