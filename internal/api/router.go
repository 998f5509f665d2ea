package api

import (
	"math/big"
	"net/http"
	"strings"

	"zkpoker-client/internal/middleware"
	"zkpoker-client/internal/service"
	"zkpoker-client/internal/service/ledger"
	"zkpoker-client/internal/service/reveal"
	"zkpoker-client/internal/service/session"
	"zkpoker-client/internal/ws"
	appErr "zkpoker-client/pkg/errors"
	"zkpoker-client/pkg/logger"
	"zkpoker-client/pkg/response"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container) {
	handler := &Handler{services: services}
	wsHandler := ws.NewHandler(services.Sessions)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})

	v1 := r.Group("/v1")
	{
		v1.GET("/games", middleware.AuthRequired(), handler.ListGames)
		v1.POST("/games", middleware.PlayerRequired(), handler.CreateGame)

		view := v1.Group("/games/:addr")
		view.Use(middleware.AuthRequired())
		{
			view.GET("/state", handler.GetState)
			view.GET("/results", handler.GetResults)
		}

		play := v1.Group("/games/:addr")
		play.Use(middleware.PlayerRequired())
		{
			play.POST("/join", handler.JoinGame)
			play.POST("/start", handler.StartGame)
			play.POST("/shuffle", handler.Shuffle)
			play.POST("/reveal/:category", handler.Reveal)
			play.POST("/bet", handler.Bet)
			play.POST("/call", handler.Call)
			play.POST("/check", handler.Check)
			play.POST("/fold", handler.Fold)
			play.POST("/force-fold", handler.ForceFold)
			play.POST("/declare-winner", handler.DeclareWinner)
			play.GET("/hand", handler.GetHand)
			play.POST("/showdown/toggle", handler.ToggleCard)
			play.PUT("/showdown/selection", handler.SelectCards)
			play.POST("/showdown/preview", handler.PreviewCards)
			play.GET("/showdown/suggest", handler.SuggestCards)
			play.POST("/showdown/submit", handler.SubmitCards)
		}
	}

	r.GET("/ws/games/:addr", wsHandler.HandleGameWS)
}

type betBody struct {
	Amount string `json:"amount" binding:"required"`
}

type toggleBody struct {
	Position *int `json:"position" binding:"required"`
}

type selectionBody struct {
	Positions []int `json:"positions"`
}

func receiptData(receipt *ledger.Receipt) gin.H {
	return gin.H{
		"txHash":      receipt.TxHash.Hex(),
		"blockNumber": receipt.BlockNumber,
	}
}

func parseAddress(c *gin.Context) (common.Address, bool) {
	raw := strings.TrimSpace(c.Param("addr"))
	if !common.IsHexAddress(raw) {
		response.Error(c, http.StatusBadRequest, "invalid game address")
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func getAddress(c *gin.Context) (string, bool) {
	v, ok := c.Get(middleware.ContextAddressKey)
	if !ok {
		return "", false
	}
	addr, ok := v.(string)
	return addr, ok
}

// requireSigner admits player tokens issued for the configured signing key only.
func (h *Handler) requireSigner(c *gin.Context) bool {
	addr, ok := getAddress(c)
	if !ok || !common.IsHexAddress(addr) || common.HexToAddress(addr) != h.services.Signer {
		response.Fail(c, appErr.ErrUnauthorized)
		return false
	}
	return true
}

func (h *Handler) session(c *gin.Context) (*session.Session, bool) {
	addr, ok := parseAddress(c)
	if !ok {
		return nil, false
	}
	s, err := h.services.Sessions.Get(addr)
	if err != nil {
		response.Fail(c, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) playerSession(c *gin.Context) (*session.Session, bool) {
	if !h.requireSigner(c) {
		return nil, false
	}
	return h.session(c)
}

// ListGames lists factory games; ?mine=true keeps only those the signer is seated in.
func (h *Handler) ListGames(c *gin.Context) {
	games, err := h.services.Lobby.ListGames(c.Request.Context(), c.Query("mine") == "true")
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, gin.H{"items": games})
}

func (h *Handler) CreateGame(c *gin.Context) {
	if !h.requireSigner(c) {
		return
	}
	rec, err := h.services.Lobby.CreateGame(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, rec)
}

func (h *Handler) JoinGame(c *gin.Context) {
	if !h.requireSigner(c) {
		return
	}
	addr, ok := parseAddress(c)
	if !ok {
		return
	}
	rec, err := h.services.Lobby.JoinGame(c.Request.Context(), addr)
	if err != nil {
		response.Fail(c, err)
		return
	}
	h.refresh(c, addr)
	response.Success(c, rec)
}

func (h *Handler) StartGame(c *gin.Context) {
	if !h.requireSigner(c) {
		return
	}
	addr, ok := parseAddress(c)
	if !ok {
		return
	}
	receipt, err := h.services.Lobby.StartGame(c.Request.Context(), addr)
	if err != nil {
		response.Fail(c, err)
		return
	}
	h.refresh(c, addr)
	response.Success(c, receiptData(receipt))
}

func (h *Handler) DeclareWinner(c *gin.Context) {
	if !h.requireSigner(c) {
		return
	}
	addr, ok := parseAddress(c)
	if !ok {
		return
	}
	receipt, err := h.services.Lobby.DeclareWinner(c.Request.Context(), addr)
	if err != nil {
		response.Fail(c, err)
		return
	}
	h.refresh(c, addr)
	response.Success(c, receiptData(receipt))
}

// refresh re-reads a game that already has a running session after a lobby write.
func (h *Handler) refresh(c *gin.Context, addr common.Address) {
	if s, ok := h.services.Sessions.Lookup(addr); ok {
		if _, err := s.Refresh(c.Request.Context()); err != nil {
			logger.With(addr.Hex(), s.Self().Hex()).Warn("refresh after lobby write failed", zap.Error(err))
		}
	}
}

func (h *Handler) GetState(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	state, err := s.State(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, state)
}

func (h *Handler) GetResults(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	results, err := s.Results(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, gin.H{"items": results})
}

func (h *Handler) GetHand(c *gin.Context) {
	s, ok := h.playerSession(c)
	if !ok {
		return
	}
	hand, err := s.Hand(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, hand)
}

func (h *Handler) Shuffle(c *gin.Context) {
	s, ok := h.playerSession(c)
	if !ok {
		return
	}
	receipt, err := s.Shuffle(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, receiptData(receipt))
}

func (h *Handler) Reveal(c *gin.Context) {
	category := reveal.Category(c.Param("category"))
	if category != reveal.Hole && category != reveal.Community {
		response.Error(c, http.StatusBadRequest, "category must be hole or community")
		return
	}
	s, ok := h.playerSession(c)
	if !ok {
		return
	}
	receipt, err := s.Reveal(c.Request.Context(), category)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, receiptData(receipt))
}

func (h *Handler) Bet(c *gin.Context) {
	var body betBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(body.Amount), 10)
	if !ok {
		response.Fail(c, appErr.ErrInvalidAmount)
		return
	}
	s, ok := h.playerSession(c)
	if !ok {
		return
	}
	receipt, err := s.Bet(c.Request.Context(), amount)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, receiptData(receipt))
}

func (h *Handler) Call(c *gin.Context) {
	s, ok := h.playerSession(c)
	if !ok {
		return
	}
	receipt, err := s.Call(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, receiptData(receipt))
}

func (h *Handler) Check(c *gin.Context) {
	s, ok := h.playerSession(c)
	if !ok {
		return
	}
	receipt, err := s.Check(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, receiptData(receipt))
}

func (h *Handler) Fold(c *gin.Context) {
	s, ok := h.playerSession(c)
	if !ok {
		return
	}
	receipt, err := s.Fold(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, receiptData(receipt))
}

func (h *Handler) ForceFold(c *gin.Context) {
	s, ok := h.playerSession(c)
	if !ok {
		return
	}
	receipt, err := s.ForceFold(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, receiptData(receipt))
}

func (h *Handler) ToggleCard(c *gin.Context) {
	var body toggleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	s, ok := h.playerSession(c)
	if !ok {
		return
	}
	selected, err := s.ToggleCard(*body.Position)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, gin.H{"selection": selected})
}

func (h *Handler) SelectCards(c *gin.Context) {
	var body selectionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	s, ok := h.playerSession(c)
	if !ok {
		return
	}
	if err := s.SelectCards(body.Positions); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, gin.H{"selection": body.Positions})
}

func (h *Handler) PreviewCards(c *gin.Context) {
	var body selectionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	s, ok := h.playerSession(c)
	if !ok {
		return
	}
	name, err := s.Preview(c.Request.Context(), body.Positions)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, gin.H{"positions": body.Positions, "hand": name})
}

func (h *Handler) SuggestCards(c *gin.Context) {
	s, ok := h.playerSession(c)
	if !ok {
		return
	}
	positions, name, err := s.Suggest(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, gin.H{"positions": positions, "hand": name})
}

func (h *Handler) SubmitCards(c *gin.Context) {
	s, ok := h.playerSession(c)
	if !ok {
		return
	}
	receipt, err := s.SubmitCards(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, receiptData(receipt))
}
