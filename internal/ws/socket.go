package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/kiliankoe/codewords/internal/game"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ConnCtx is the per-connection session: which room it watches and which
// player it acts as.
type ConnCtx struct {
	mu       sync.Mutex
	Code     string
	PlayerID string
	cancel   func()
	limiter  *rate.Limiter
}

func (c *ConnCtx) watching() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Code, c.PlayerID
}

func (c *ConnCtx) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

type Server struct {
	svc       *game.Service
	rateLimit rate.Limit
	rateBurst int
}

func New(svc *game.Service, perSecond float64, burst int) *Server {
	return &Server{svc: svc, rateLimit: rate.Limit(perSecond), rateBurst: burst}
}

type playerPayload struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Team game.Team `json:"team"`
	Role game.Role `json:"role"`
}

func (p playerPayload) player() game.Player {
	return game.Player{ID: p.ID, Name: p.Name, Team: p.Team, Role: p.Role}
}

// Mount attaches the Socket.IO server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{limiter: rate.NewLimiter(srv.rateLimit, srv.rateBurst)})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	// room:create
	io.OnEvent("/", "room:create", func(s socketio.Conn, payload struct {
		Host      playerPayload `json:"host"`
		Words     []string      `json:"words"`
		FirstTeam game.Team     `json:"firstTeam"`
	}) map[string]any {
		if !srv.allow(s) {
			return srv.err(s, "rate_limited", "Too many requests")
		}
		room, err := srv.svc.CreateRoom(context.Background(), payload.Host.player(), payload.Words, payload.FirstTeam)
		if err != nil {
			return srv.fail(s, err)
		}
		host, _ := room.Host()
		if err := srv.watch(s, room.ID, host.ID); err != nil {
			return srv.fail(s, err)
		}
		log.Info().Str("sid", s.ID()).Str("code", room.ID).Msg("room:create")
		return map[string]any{"roomId": room.ID, "playerId": host.ID}
	})

	// room:join
	io.OnEvent("/", "room:join", func(s socketio.Conn, payload struct {
		RoomID string        `json:"roomId"`
		Player playerPayload `json:"player"`
	}) map[string]any {
		if !srv.allow(s) {
			return srv.err(s, "rate_limited", "Too many requests")
		}
		_, p, err := srv.svc.JoinRoom(context.Background(), payload.RoomID, payload.Player.player())
		if err != nil {
			return srv.fail(s, err)
		}
		if err := srv.watch(s, payload.RoomID, p.ID); err != nil {
			return srv.fail(s, err)
		}
		log.Info().Str("sid", s.ID()).Str("code", payload.RoomID).Str("playerId", p.ID).Msg("room:join")
		return map[string]any{"playerId": p.ID}
	})

	// room:watch re-subscribes after a reconnect; the current state is pushed
	// right away.
	io.OnEvent("/", "room:watch", func(s socketio.Conn, payload struct {
		RoomID   string `json:"roomId"`
		PlayerID string `json:"playerId"`
	}) map[string]any {
		if err := srv.watch(s, payload.RoomID, payload.PlayerID); err != nil {
			return srv.fail(s, err)
		}
		log.Info().Str("sid", s.ID()).Str("code", payload.RoomID).Str("playerId", payload.PlayerID).Msg("room:watch")
		return map[string]any{"ok": true}
	})

	// room:setRole (self unless playerId is given)
	io.OnEvent("/", "room:setRole", func(s socketio.Conn, payload struct {
		PlayerID string     `json:"playerId"`
		Team     *game.Team `json:"team"`
		Role     *game.Role `json:"role"`
	}) map[string]any {
		return srv.act(s, "room:setRole", func(ctx context.Context, code, playerID string) error {
			if payload.PlayerID != "" {
				playerID = payload.PlayerID
			}
			_, err := srv.svc.SetPlayerRole(ctx, code, playerID, game.RoleUpdate{Team: payload.Team, Role: payload.Role})
			return err
		})
	})

	io.OnEvent("/", "game:start", func(s socketio.Conn) map[string]any {
		return srv.act(s, "game:start", func(ctx context.Context, code, playerID string) error {
			_, err := srv.svc.StartGame(ctx, code, playerID)
			return err
		})
	})

	io.OnEvent("/", "game:hint", func(s socketio.Conn, payload struct {
		Word  string `json:"word"`
		Count int    `json:"count"`
	}) map[string]any {
		return srv.act(s, "game:hint", func(ctx context.Context, code, playerID string) error {
			_, err := srv.svc.SubmitHint(ctx, code, playerID, payload.Word, payload.Count)
			return err
		})
	})

	io.OnEvent("/", "game:reveal", func(s socketio.Conn, payload struct {
		Index int `json:"index"`
	}) map[string]any {
		return srv.act(s, "game:reveal", func(ctx context.Context, code, playerID string) error {
			_, err := srv.svc.RevealCard(ctx, code, playerID, payload.Index)
			return err
		})
	})

	io.OnEvent("/", "game:endTurn", func(s socketio.Conn) map[string]any {
		return srv.act(s, "game:endTurn", func(ctx context.Context, code, playerID string) error {
			_, err := srv.svc.EndTurn(ctx, code, playerID)
			return err
		})
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		if s == nil {
			log.Error().Err(e).Msg("socket error")
			return
		}
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if ctx, ok := s.Context().(*ConnCtx); ok {
			ctx.stop()
		}
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go func() {
		if err := io.Serve(); err != nil {
			log.Error().Err(err).Msg("socket.io server stopped")
		}
	}()

	// Mount to router
	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))

	// Basic CORS preflight for Socket.IO POST
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

// watch points the connection at a room, replacing any earlier
// subscription, and forwards every snapshot as a personalized room:state.
func (srv *Server) watch(s socketio.Conn, code, playerID string) error {
	cc, ok := s.Context().(*ConnCtx)
	if !ok {
		return game.ErrForbidden
	}
	ch, cancel, err := srv.svc.Subscribe(context.Background(), code)
	if err != nil {
		return err
	}
	cc.stop()
	cc.mu.Lock()
	cc.Code, cc.PlayerID, cc.cancel = code, playerID, cancel
	cc.mu.Unlock()

	go func() {
		for room := range ch {
			s.Emit("room:state", game.ViewFor(room, playerID))
		}
	}()
	return nil
}

// act runs an action for the connection's player in its watched room. The
// resulting state reaches clients through their subscriptions.
func (srv *Server) act(s socketio.Conn, event string, fn func(ctx context.Context, code, playerID string) error) map[string]any {
	cc, ok := s.Context().(*ConnCtx)
	if !ok {
		return srv.err(s, "not_joined", "Join a room first")
	}
	code, playerID := cc.watching()
	if code == "" {
		return srv.err(s, "not_joined", "Join a room first")
	}
	if !srv.allow(s) {
		return srv.err(s, "rate_limited", "Too many requests")
	}
	if err := fn(context.Background(), code, playerID); err != nil {
		return srv.fail(s, err)
	}
	log.Debug().Str("sid", s.ID()).Str("code", code).Str("playerId", playerID).Msg(event)
	return map[string]any{"ok": true}
}

func (srv *Server) allow(s socketio.Conn) bool {
	cc, ok := s.Context().(*ConnCtx)
	return !ok || cc.limiter == nil || cc.limiter.Allow()
}

func (srv *Server) fail(s socketio.Conn, err error) map[string]any {
	return srv.err(s, game.ErrorCode(err), err.Error())
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit("error", map[string]any{"code": code, "message": message})
	return map[string]any{"error": code, "message": message}
}
