package channels

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/amayadev/amaya/pkg/bus"
	"github.com/amayadev/amaya/pkg/config"
	"github.com/amayadev/amaya/pkg/domain"
	"github.com/amayadev/amaya/pkg/logger"
)

// OneBotAdapter is a reverse-WebSocket server speaking OneBot v11: the QQ
// client (NapCat) dials in and keeps one long-lived connection. Action calls
// are correlated to their responses by an echo token. A new connection
// replaces the old one; there is at most one active session.
type OneBotAdapter struct {
	cfg    config.OneBotConfig
	bus    *bus.Bus
	server *http.Server

	allowed map[int64]bool

	mu      sync.Mutex
	session *obSession
	pending map[string]chan obActionResponse
}

type obSession struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (s *obSession) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

type obActionResponse struct {
	Status  string          `json:"status"`
	RetCode int             `json:"retcode"`
	Data    json.RawMessage `json:"data"`
}

// obEvent is the superset of event and response fields we care about.
type obEvent struct {
	Echo          string          `json:"echo"`
	Status        string          `json:"status"`
	RetCode       int             `json:"retcode"`
	PostType      string          `json:"post_type"`
	MessageType   string          `json:"message_type"`
	MetaEventType string          `json:"meta_event_type"`
	SubType       string          `json:"sub_type"`
	UserID        int64           `json:"user_id"`
	GroupID       int64           `json:"group_id"`
	SelfID        int64           `json:"self_id"`
	Time          int64           `json:"time"`
	Message       json.RawMessage `json:"message"`
	RawMessage    string          `json:"raw_message"`
}

// NewOneBot builds the adapter from config.
func NewOneBot(cfg config.OneBotConfig, b *bus.Bus) *OneBotAdapter {
	allowed := make(map[int64]bool, len(cfg.AllowedUserIDs))
	for _, id := range cfg.AllowedUserIDs {
		allowed[id] = true
	}
	return &OneBotAdapter{
		cfg:     cfg,
		bus:     b,
		allowed: allowed,
		pending: make(map[string]chan obActionResponse),
	}
}

func (o *OneBotAdapter) Type() domain.ChannelType { return domain.ChannelOneBot }

// Start brings up the WebSocket endpoint and returns.
func (o *OneBotAdapter) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(o.cfg.Path, o.handleWS)
	o.server = &http.Server{Addr: o.cfg.ListenAddr, Handler: mux}

	go func() {
		logger.InfoCF(component, "onebot reverse ws listening",
			map[string]any{"addr": o.cfg.ListenAddr, "path": o.cfg.Path})
		if err := o.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorCF(component, "onebot server failed",
				map[string]any{"error": err.Error()})
		}
	}()
	return nil
}

func (o *OneBotAdapter) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.server != nil {
		_ = o.server.Shutdown(ctx)
	}
	o.mu.Lock()
	if o.session != nil {
		_ = o.session.conn.Close()
		o.session = nil
	}
	o.failAllPending()
	o.mu.Unlock()
}

var obUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func (o *OneBotAdapter) handleWS(w http.ResponseWriter, r *http.Request) {
	if !o.authorized(r) {
		logger.WarnC(component, "onebot connection rejected: bad token")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := obUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnCF(component, "onebot upgrade failed",
			map[string]any{"error": err.Error()})
		return
	}
	session := &obSession{conn: conn}

	o.mu.Lock()
	old := o.session
	o.session = session
	o.mu.Unlock()
	if old != nil {
		_ = old.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseServiceRestart, "replaced"),
			time.Now().Add(time.Second))
		_ = old.conn.Close()
	}
	logger.InfoC(component, "onebot client connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var event obEvent
		if err := json.Unmarshal(data, &event); err != nil {
			logger.WarnC(component, "onebot payload not json, ignored")
			continue
		}
		o.handleEvent(event)
	}

	o.mu.Lock()
	if o.session == session {
		o.session = nil
		o.failAllPending()
	}
	o.mu.Unlock()
	logger.WarnC(component, "onebot client disconnected")
}

// authorized checks the bearer header or access_token query parameter in
// constant time. An empty configured token disables auth.
func (o *OneBotAdapter) authorized(r *http.Request) bool {
	if o.cfg.Token == "" {
		return true
	}
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		token = r.URL.Query().Get("access_token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(o.cfg.Token)) == 1
}

func (o *OneBotAdapter) handleEvent(event obEvent) {
	if event.Echo != "" {
		o.resolvePending(event)
		return
	}

	switch event.PostType {
	case "message":
		o.handleMessageEvent(event)
	case "meta_event":
		if event.MetaEventType == "lifecycle" {
			logger.InfoCF(component, "onebot lifecycle event",
				map[string]any{"sub_type": event.SubType, "self_id": event.SelfID})
		}
	}
}

func (o *OneBotAdapter) handleMessageEvent(event obEvent) {
	if event.MessageType != "private" && event.MessageType != "group" {
		return
	}
	if event.MessageType == "group" && !o.cfg.EnableGroup {
		return
	}
	if event.UserID == 0 || event.UserID == event.SelfID {
		return
	}
	if len(o.allowed) > 0 && !o.allowed[event.UserID] {
		logger.WarnCF(component, "unauthorized onebot user",
			map[string]any{"user_id": event.UserID})
		return
	}

	content := extractOneBotText(event.Message, event.RawMessage)
	if content == "" {
		return
	}

	route := domain.OneBotRoute{UserID: event.UserID}
	if event.MessageType == "group" {
		route.GroupID = event.GroupID
	}

	timestamp := time.Now()
	if event.Time > 0 {
		timestamp = time.Unix(event.Time, 0)
	}

	o.bus.Publish(bus.EventMessageReceived, domain.IncomingMessage{
		Channel:   domain.ChannelOneBot,
		Route:     route,
		SenderID:  strconv.FormatInt(event.UserID, 10),
		Content:   content,
		Timestamp: timestamp,
	})
}

// extractOneBotText pulls the plain text out of a OneBot message field,
// which is either a string or an array of typed segments. Falls back to
// raw_message when no text segments survive.
func extractOneBotText(message json.RawMessage, rawMessage string) string {
	var asString string
	if err := json.Unmarshal(message, &asString); err == nil {
		return strings.TrimSpace(asString)
	}

	var segments []struct {
		Type string `json:"type"`
		Data struct {
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := json.Unmarshal(message, &segments); err == nil {
		var parts []string
		for _, seg := range segments {
			if seg.Type == "text" {
				parts = append(parts, seg.Data.Text)
			}
		}
		if merged := strings.TrimSpace(strings.Join(parts, "")); merged != "" {
			return merged
		}
	}
	return strings.TrimSpace(rawMessage)
}

// Send performs send_private_msg or send_group_msg over the active session.
func (o *OneBotAdapter) Send(ctx context.Context, msg domain.OutgoingMessage) error {
	route, ok := msg.Route.(domain.OneBotRoute)
	if !ok {
		return fmt.Errorf("onebot send: route is %T", msg.Route)
	}

	action := "send_private_msg"
	params := map[string]any{"user_id": route.UserID, "message": msg.Content}
	if route.GroupID != 0 {
		action = "send_group_msg"
		params = map[string]any{"group_id": route.GroupID, "message": msg.Content}
	}

	resp, err := o.callAction(ctx, action, params)
	if err != nil {
		return fmt.Errorf("onebot %s: %w", action, err)
	}
	if resp.Status != "ok" {
		return fmt.Errorf("onebot %s: status=%s retcode=%d", action, resp.Status, resp.RetCode)
	}
	return nil
}

// callAction writes one echo-tagged action frame and waits for the matching
// response or the send timeout.
func (o *OneBotAdapter) callAction(ctx context.Context, action string, params map[string]any) (obActionResponse, error) {
	o.mu.Lock()
	session := o.session
	o.mu.Unlock()
	if session == nil {
		return obActionResponse{}, errors.New("no active onebot connection")
	}

	echo := uuid.NewString()
	ch := make(chan obActionResponse, 1)
	o.mu.Lock()
	o.pending[echo] = ch
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.pending, echo)
		o.mu.Unlock()
	}()

	frame := map[string]any{"action": action, "params": params, "echo": echo}
	if err := session.writeJSON(frame); err != nil {
		return obActionResponse{}, err
	}

	timeout := time.Duration(o.cfg.SendTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	select {
	case resp := <-ch:
		return resp, nil
	case <-time.After(timeout):
		return obActionResponse{}, errors.New("action response timed out")
	case <-ctx.Done():
		return obActionResponse{}, ctx.Err()
	}
}

func (o *OneBotAdapter) resolvePending(event obEvent) {
	o.mu.Lock()
	ch, ok := o.pending[event.Echo]
	if ok {
		delete(o.pending, event.Echo)
	}
	o.mu.Unlock()
	if ok {
		ch <- obActionResponse{Status: event.Status, RetCode: event.RetCode}
	}
}

// failAllPending drops every in-flight action call. Caller holds o.mu.
func (o *OneBotAdapter) failAllPending() {
	for echo, ch := range o.pending {
		close(ch)
		delete(o.pending, echo)
	}
}

var _ Adapter = (*OneBotAdapter)(nil)
