package realtime

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/flutterbye/platform/internal/authz"
	"github.com/flutterbye/platform/internal/identity"
	"github.com/flutterbye/platform/internal/observability"
	"github.com/flutterbye/platform/internal/shared"
)

const maxDecodeErrorsPerConn = 3

// inbound is the client->server event shape. Anything beyond type and topic
// is carried opaquely and rebroadcast as-is.
type inbound struct {
	Type    string          `json:"type"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// CredentialResolver resolves the handshake credential to an identity.
type CredentialResolver interface {
	ResolveCredential(r *http.Request, token, wallet string) (*identity.Identity, error)
}

// Handler terminates websocket connections and routes their events through
// the authorization gate before broadcast.
type Handler struct {
	logger     *slog.Logger
	hub        *Hub
	gate       *authz.Gate
	resolver   CredentialResolver
	metrics    *observability.Metrics
	bufferSize int
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, hub *Hub, gate *authz.Gate, resolver CredentialResolver, metrics *observability.Metrics, bufferSize int) *Handler {
	return &Handler{
		logger:     logger,
		hub:        hub,
		gate:       gate,
		resolver:   resolver,
		metrics:    metrics,
		bufferSize: bufferSize,
	}
}

// HTTPHandler returns the /ws endpoint.
func (h *Handler) HTTPHandler() http.Handler {
	wsHandler := websocket.Handler(h.serve)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})
}

type wsWriter struct {
	ws *websocket.Conn
}

func (w wsWriter) WriteFrame(v any) error { return websocket.JSON.Send(w.ws, v) }
func (w wsWriter) Close() error           { return w.ws.Close() }

func (h *Handler) serve(ws *websocket.Conn) {
	r := ws.Request()
	actor := h.resolveHandshake(r)

	conn := newConn(uuid.NewString(), actor, wsWriter{ws: ws}, h.bufferSize)
	h.hub.Register(conn)
	defer h.hub.Unregister(conn.ID, StateClosed)

	h.hub.Send(conn, outbound{
		Type:       "welcome",
		ClientID:   conn.ID,
		ServerTime: time.Now().UTC().Format(time.RFC3339),
	})

	decoder := json.NewDecoder(ws)
	decodeErrors := 0
	for {
		var event inbound
		if err := decoder.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			h.metrics.WSEvent("unknown", "malformed")
			if h.logger != nil {
				h.logger.Warn("malformed event",
					slog.String("conn", conn.ID),
					slog.Any("error", err))
			}
			if decodeErrors >= maxDecodeErrorsPerConn {
				h.hub.Unregister(conn.ID, StateErrored)
				return
			}
			h.hub.Send(conn, outbound{Type: "denied", Reason: "malformed_event"})
			// Resync the decoder after garbage input.
			decoder = json.NewDecoder(ws)
			continue
		}
		conn.Touch(time.Now())
		if !h.dispatch(conn, event) {
			return
		}
	}
}

// resolveHandshake pulls the credential off the upgrade request. Anonymous
// connections are allowed; they can only reach ungoverned public topics.
func (h *Handler) resolveHandshake(r *http.Request) *identity.Identity {
	token := r.URL.Query().Get("token")
	wallet := r.URL.Query().Get("wallet")
	actor, err := h.resolver.ResolveCredential(r, token, wallet)
	if err != nil {
		if !errors.Is(err, shared.ErrUnauthenticated) && h.logger != nil {
			h.logger.Warn("handshake credential", slog.Any("error", err))
		}
		return nil
	}
	return actor
}

// dispatch handles one accepted event. Returns false when the connection
// should be torn down.
func (h *Handler) dispatch(conn *Conn, event inbound) bool {
	switch event.Type {
	case "ping":
		h.hub.Send(conn, outbound{Type: "pong", ServerTime: time.Now().UTC().Format(time.RFC3339)})
		return true
	case "subscribe":
		if !h.permit(conn, event) {
			return true
		}
		h.hub.Subscribe(conn, event.Topic)
		h.confirm(conn, event)
		h.hub.Broadcast(event.Topic, h.presenceFrame("join", conn, event.Topic))
		return true
	case "unsubscribe":
		h.hub.Unsubscribe(conn, event.Topic)
		h.confirm(conn, event)
		h.hub.Broadcast(event.Topic, h.presenceFrame("leave", conn, event.Topic))
		return true
	case "message", "typing", "notification":
		if !h.permit(conn, event) {
			return true
		}
		h.hub.Broadcast(event.Topic, outbound{
			Type:    event.Type,
			Topic:   event.Topic,
			From:    senderLabel(conn),
			Payload: event.Payload,
		})
		h.confirm(conn, event)
		return true
	default:
		h.metrics.WSEvent(event.Type, "malformed")
		h.hub.Send(conn, outbound{Type: "denied", Event: event.Type, Reason: "malformed_event"})
		return true
	}
}

// permit runs the gate against the event's target topic. Denials are
// acknowledged to the sender only; nothing is broadcast.
func (h *Handler) permit(conn *Conn, event inbound) bool {
	if event.Topic == "" {
		h.metrics.WSEvent(event.Type, "malformed")
		h.hub.Send(conn, outbound{Type: "denied", Event: event.Type, Reason: "malformed_event"})
		return false
	}
	verdict := h.gate.CheckTopic(conn.Identity, event.Topic)
	if verdict.Allowed {
		return true
	}
	h.metrics.WSEvent(event.Type, "denied")
	h.hub.Send(conn, outbound{
		Type:   "denied",
		Event:  event.Type,
		Topic:  event.Topic,
		Reason: denialReason(verdict.Reason),
	})
	return false
}

func (h *Handler) confirm(conn *Conn, event inbound) {
	h.metrics.WSEvent(event.Type, "ok")
	h.hub.Send(conn, outbound{Type: "confirmation", Event: event.Type, Topic: event.Topic})
}

func (h *Handler) presenceFrame(kind string, conn *Conn, topic string) outbound {
	return outbound{
		Type:  kind,
		Topic: topic,
		From:  senderLabel(conn),
	}
}

func senderLabel(conn *Conn) string {
	if conn.Identity != nil {
		return conn.Identity.WalletAddress
	}
	return "anonymous:" + conn.ID
}

func denialReason(reason error) string {
	switch {
	case errors.Is(reason, shared.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(reason, shared.ErrInsufficientRole):
		return "insufficient_role"
	case errors.Is(reason, shared.ErrFeatureDisabled):
		return "feature_disabled"
	default:
		return "denied"
	}
}
