package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kiliankoe/codewords/internal/game"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	svc *game.Service
}

func New(svc *game.Service) *Handler {
	return &Handler{svc: svc}
}

type playerReq struct {
	ID   string    `json:"id"`
	Name string    `json:"name" binding:"required"`
	Team game.Team `json:"team"`
	Role game.Role `json:"role"`
}

func (p playerReq) player() game.Player {
	return game.Player{ID: p.ID, Name: p.Name, Team: p.Team, Role: p.Role}
}

type createReq struct {
	Host      playerReq `json:"host"`
	Words     []string  `json:"words"`
	FirstTeam game.Team `json:"firstTeam"`
}

type actorReq struct {
	PlayerID string `json:"playerId" binding:"required"`
}

type hintReq struct {
	PlayerID string `json:"playerId" binding:"required"`
	Word     string `json:"word"`
	Count    int    `json:"count"`
}

type revealReq struct {
	PlayerID string `json:"playerId" binding:"required"`
	Index    *int   `json:"index" binding:"required"`
}

// Register mounts the room API on r.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/rooms", h.createRoom)
	r.GET("/rooms/:id", h.getRoom)
	r.GET("/rooms/:id/events", h.events)
	r.POST("/rooms/:id/players", h.joinRoom)
	r.PATCH("/rooms/:id/players/:playerId", h.setRole)
	r.POST("/rooms/:id/start", h.startGame)
	r.POST("/rooms/:id/hint", h.submitHint)
	r.POST("/rooms/:id/reveal", h.revealCard)
	r.POST("/rooms/:id/end-turn", h.endTurn)
}

// RegisterAdmin mounts routes that return unredacted rooms. Callers guard
// them with auth.
func (h *Handler) RegisterAdmin(r gin.IRouter) {
	r.GET("/rooms/:id", func(c *gin.Context) {
		room, err := h.svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, room)
	})
}

func (h *Handler) createRoom(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	room, err := h.svc.CreateRoom(c.Request.Context(), req.Host.player(), req.Words, req.FirstTeam)
	if err != nil {
		h.fail(c, err)
		return
	}
	host, _ := room.Host()
	c.JSON(http.StatusCreated, gin.H{
		"roomId":   room.ID,
		"playerId": host.ID,
		"room":     game.ViewFor(room, host.ID),
	})
}

func (h *Handler) getRoom(c *gin.Context) {
	room, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, game.ViewFor(room, c.Query("playerId")))
}

// events streams every committed snapshot as an SSE "room" event until the
// client goes away.
func (h *Handler) events(c *gin.Context) {
	ctx := c.Request.Context()
	roomID, viewer := c.Param("id"), c.Query("playerId")
	ch, cancel, err := h.svc.Subscribe(ctx, roomID)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer cancel()
	log.Info().Str("room", roomID).Str("playerId", viewer).Msg("sse subscribe")

	c.Stream(func(w io.Writer) bool {
		select {
		case room, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("room", game.ViewFor(room, viewer))
			return true
		case <-ctx.Done():
			return false
		}
	})
	log.Info().Str("room", roomID).Str("playerId", viewer).Msg("sse unsubscribe")
}

func (h *Handler) joinRoom(c *gin.Context) {
	var req playerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	room, p, err := h.svc.JoinRoom(c.Request.Context(), c.Param("id"), req.player())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"playerId": p.ID, "room": game.ViewFor(room, p.ID)})
}

func (h *Handler) setRole(c *gin.Context) {
	var upd game.RoleUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		h.badRequest(c, err)
		return
	}
	playerID := c.Param("playerId")
	room, err := h.svc.SetPlayerRole(c.Request.Context(), c.Param("id"), playerID, upd)
	h.respond(c, room, playerID, err)
}

func (h *Handler) startGame(c *gin.Context) {
	var req actorReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	room, err := h.svc.StartGame(c.Request.Context(), c.Param("id"), req.PlayerID)
	h.respond(c, room, req.PlayerID, err)
}

func (h *Handler) submitHint(c *gin.Context) {
	var req hintReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	room, err := h.svc.SubmitHint(c.Request.Context(), c.Param("id"), req.PlayerID, req.Word, req.Count)
	h.respond(c, room, req.PlayerID, err)
}

func (h *Handler) revealCard(c *gin.Context) {
	var req revealReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	room, err := h.svc.RevealCard(c.Request.Context(), c.Param("id"), req.PlayerID, *req.Index)
	h.respond(c, room, req.PlayerID, err)
}

func (h *Handler) endTurn(c *gin.Context) {
	var req actorReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	room, err := h.svc.EndTurn(c.Request.Context(), c.Param("id"), req.PlayerID)
	h.respond(c, room, req.PlayerID, err)
}

func (h *Handler) respond(c *gin.Context, room game.Room, viewer string, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, game.ViewFor(room, viewer))
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
}

func (h *Handler) fail(c *gin.Context, err error) {
	code := game.ErrorCode(err)
	status := StatusFor(code)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": code, "message": err.Error()})
}

// StatusFor maps a game error code to an HTTP status.
func StatusFor(code string) int {
	switch code {
	case "not_found", "player_not_found":
		return http.StatusNotFound
	case "expired":
		return http.StatusGone
	case "forbidden":
		return http.StatusForbidden
	case "room_full", "duplicate_player", "invalid_phase", "team_incomplete",
		"missing_spymaster", "transform_rejected", "already_exists":
		return http.StatusConflict
	case "invalid_hint", "insufficient_words", "invalid_card", "invalid_team", "invalid_role":
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
