package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ahwlsqja/dogcatpaw-chat/internal/services"
	"github.com/ahwlsqja/dogcatpaw-chat/pkg/errors"
	"github.com/ahwlsqja/dogcatpaw-chat/pkg/logger"
	"github.com/ahwlsqja/dogcatpaw-chat/pkg/utils"
	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
)

var SocketServer *socketio.Server

// session is the per-connection state of the subscription gate: created on
// connect once the token checks out, read on every subscribe, discarded on
// disconnect. Never shared between connections.
type session struct {
	MemberID string
	Nickname string
}

// destinationPrefix is the room-scoped channel convention: the trailing
// segment is the room's integer id.
const destinationPrefix = "/topic/rooms/"

// parseRoomDestination extracts the room id from a subscribe destination.
// Anything that does not match the convention exactly is an error; the gate
// fails closed on malformed destinations.
func parseRoomDestination(destination string) (int64, error) {
	if !strings.HasPrefix(destination, destinationPrefix) {
		return 0, fmt.Errorf("destination %q is not room-scoped", destination)
	}
	tail := strings.TrimPrefix(destination, destinationPrefix)
	roomID, err := strconv.ParseInt(tail, 10, 64)
	if err != nil || roomID <= 0 {
		return 0, fmt.Errorf("destination %q has no valid room id", destination)
	}
	return roomID, nil
}

// authorizeSubscribe runs the gate for one subscribe attempt: parse the
// destination, then require room membership. A parse failure is reported as
// the same authorization error so the gate never fails open.
func authorizeSubscribe(memberID, destination string) (int64, error) {
	roomID, err := parseRoomDestination(destination)
	if err != nil {
		return 0, errors.ErrNotAParticipant
	}
	if _, err := services.RequireParticipant(memberID, roomID); err != nil {
		return 0, err
	}
	return roomID, nil
}

// authenticateSocket validates the connect token and builds the per-connection
// session. A connection that fails here never reaches the subscribe gate.
func authenticateSocket(token string) (*session, error) {
	if token == "" {
		return nil, fmt.Errorf("authentication required")
	}

	claims, err := utils.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("invalid token")
	}

	member, err := services.ResolveMember(claims.MemberID)
	if err != nil {
		return nil, fmt.Errorf("unknown member")
	}

	return &session{MemberID: member.ID, Nickname: member.Nickname}, nil
}

// roomGroup names the local fan-out group for a room.
func roomGroup(roomID int64) string {
	return "room:" + strconv.FormatInt(roomID, 10)
}

func InitSocketServer() *socketio.Server {
	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&websocket.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
			&polling.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
		},
	})

	server.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(nil)

		u := s.URL()
		sess, err := authenticateSocket(u.Query().Get("token"))
		if err != nil {
			logger.Warn().Str("socket", s.ID()).Err(err).Msg("Socket rejected")
			return err
		}

		s.SetContext(sess)
		logger.Info().Str("socket", s.ID()).Str("member", sess.MemberID).Msg("Socket connected")
		return nil
	})

	// subscribe admits the connection to a room's local fan-out group after
	// the gate check. A rejected connection is never joined to the group and
	// therefore never receives that room's broadcasts.
	server.OnEvent("/", "subscribe", func(s socketio.Conn, destination string) {
		sess, ok := s.Context().(*session)
		if !ok {
			s.Emit("subscribe_error", map[string]interface{}{
				"destination": destination,
				"error":       errors.ErrNotAParticipant.Message,
			})
			return
		}

		roomID, err := authorizeSubscribe(sess.MemberID, destination)
		if err != nil {
			logger.Warn().Str("member", sess.MemberID).Str("destination", destination).
				Msg("Subscription rejected")
			msg := errors.ErrNotAParticipant.Message
			if appErr, ok := err.(*errors.AppError); ok {
				msg = appErr.Message
			}
			s.Emit("subscribe_error", map[string]interface{}{
				"destination": destination,
				"error":       msg,
			})
			return
		}

		s.Join(roomGroup(roomID))
		s.Emit("subscribed", map[string]interface{}{"roomId": roomID})
		logger.Info().Str("member", sess.MemberID).Str("nickname", sess.Nickname).
			Int64("room", roomID).Msg("Socket subscribed")
	})

	// unsubscribe only removes group membership; there is no per-room state
	// to roll back.
	server.OnEvent("/", "unsubscribe", func(s socketio.Conn, destination string) {
		roomID, err := parseRoomDestination(destination)
		if err != nil {
			return
		}
		s.Leave(roomGroup(roomID))
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		s.LeaveAll()
		logger.Debug().Str("socket", s.ID()).Str("reason", reason).Msg("Socket closed")
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		logger.Error().Err(e).Msg("Socket error")
	})

	go server.Serve()
	SocketServer = server
	return server
}

// roomBroadcaster is the slice of the socket server the relay needs: push an
// event to one local room group. Connections outside the group get nothing.
type roomBroadcaster interface {
	BroadcastToRoom(namespace, room, event string, args ...interface{}) bool
}

// StartBridgeRelay subscribes this instance to the broadcast topic and pushes
// every received event to the locally subscribed sockets of the event's room.
// Messages accepted on any instance reach subscribers here without a store
// read.
func StartBridgeRelay(ctx context.Context, bridge services.Bridge) error {
	return relayBroadcasts(ctx, bridge, func() roomBroadcaster {
		if SocketServer == nil {
			return nil
		}
		return SocketServer
	})
}

func relayBroadcasts(ctx context.Context, bridge services.Bridge, target func() roomBroadcaster) error {
	return bridge.Subscribe(ctx, func(event services.ChatEvent) {
		broadcaster := target()
		if broadcaster == nil {
			return
		}
		broadcaster.BroadcastToRoom("/", roomGroup(event.RoomID), "receive_message", event)
	})
}

// Gin handler to wrap Socket.io
func SocketHandler(server *socketio.Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		server.ServeHTTP(c.Writer, c.Request)
	}
}
