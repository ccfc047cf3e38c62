package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"github.com/theotime2005/blocklucky/internal/models"
	"github.com/theotime2005/blocklucky/internal/services"
)

const (
	callerHeader = "X-Caller"
	callerKey    = "caller"
)

// TimeTraveler moves ledger time forward. Only wired in dev mode.
type TimeTraveler interface {
	IncreaseTime(d time.Duration)
}

// HTTPHandler exposes the lottery's read and write interface to the dashboard.
type HTTPHandler struct {
	service *services.Lottery
	dev     TimeTraveler
}

// NewHTTPHandler creates a new HTTPHandler. dev may be nil.
func NewHTTPHandler(service *services.Lottery, dev TimeTraveler) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		dev:     dev,
	}
}

type ticketRequest struct {
	Value string `json:"value" binding:"required"`
}

type commitRequest struct {
	Commitment string `json:"commitment" binding:"required"`
}

type revealRequest struct {
	Seed string `json:"seed" binding:"required"`
}

type configurationRequest struct {
	TicketPrice     string `json:"ticketPrice" binding:"required"`
	MaxParticipants uint64 `json:"maxParticipants" binding:"required"`
	RoundDuration   int64  `json:"roundDuration" binding:"required,gt=0,lte=31536000"`
}

type increaseTimeRequest struct {
	Seconds int64 `json:"seconds" binding:"required,gt=0"`
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.GET("/lottery", h.GetLottery)
	api.GET("/players", h.GetPlayers)
	api.GET("/balance", h.GetBalance)
	api.GET("/phase", h.GetPhase)
	api.GET("/rounds", h.GetRounds)
	api.GET("/rounds/latest", h.GetLatestRound)
	api.GET("/rounds/:index", h.GetRoundSummary)
	api.GET("/events", h.StreamEvents)

	calls := api.Group("/")
	calls.Use(h.CallerMiddleware())
	calls.POST("/tickets", h.BuyTicket)
	calls.POST("/commitments", h.CommitRandomness)
	calls.POST("/commitments/reveal", h.RevealAndPickWinner)
	calls.POST("/commitments/void", h.VoidExpiredCommitment)
	calls.POST("/draws/force", h.ForceDraw)
	calls.POST("/draws/pick", h.PickWinner)
	calls.POST("/reset", h.ResetToPhase1)
	calls.PUT("/configuration", h.UpdateConfiguration)

	if h.dev != nil {
		api.POST("/dev/increase-time", h.IncreaseTime)
	}
}

// CallerMiddleware resolves the calling identity from the X-Caller header.
func (h *HTTPHandler) CallerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(callerHeader)
		if !common.IsHexAddress(raw) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid " + callerHeader + " header"})
			return
		}
		c.Set(callerKey, common.HexToAddress(raw))
		c.Next()
	}
}

func caller(c *gin.Context) common.Address {
	return c.MustGet(callerKey).(common.Address)
}

// GetLottery returns every public accessor in one response.
func (h *HTTPHandler) GetLottery(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Snapshot())
}

// GetPlayers returns the tickets of the active round.
func (h *HTTPHandler) GetPlayers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"players": h.service.Players()})
}

// GetBalance returns the treasury balance in wei and ether.
func (h *HTTPHandler) GetBalance(c *gin.Context) {
	balance := h.service.Balance()
	c.JSON(http.StatusOK, gin.H{"wei": balance.String(), "ether": models.FormatEther(balance)})
}

// GetPhase returns the phase flags of the active round.
func (h *HTTPHandler) GetPhase(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"currentLotteryPhase": h.service.CurrentLotteryPhase(),
		"lotteryInProgress":   h.service.LotteryInProgress(),
		"commitmentActive":    h.service.CommitmentActive(),
		"roundActive":         h.service.RoundActive(),
	})
}

// GetRounds returns the round count and the most recent summaries.
// The optional limit query parameter bounds the list.
func (h *HTTPHandler) GetRounds(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  h.service.RoundCount(),
		"rounds": h.service.Rounds(limit),
	})
}

// GetLatestRound returns the most recent round summary.
func (h *HTTPHandler) GetLatestRound(c *gin.Context) {
	summary, err := h.service.LatestRound()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetRoundSummary returns the summary at a history index.
func (h *HTTPHandler) GetRoundSummary(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid round index"})
		return
	}
	summary, err := h.service.RoundSummary(index)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// BuyTicket handles a ticket purchase paying value wei.
func (h *HTTPHandler) BuyTicket(c *gin.Context) {
	var req ticketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	value, err := models.ParseWei(req.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c)(h.service.BuyTicket(caller(c), value))
}

// CommitRandomness handles the owner's commitment to a secret seed.
func (h *HTTPHandler) CommitRandomness(c *gin.Context) {
	var req commitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	raw, err := hexutil.Decode(req.Commitment)
	if err != nil || len(raw) != common.HashLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "commitment must be a 32-byte hex string"})
		return
	}
	h.respond(c)(h.service.CommitRandomness(caller(c), common.BytesToHash(raw)))
}

// RevealAndPickWinner handles the reveal of the committed seed.
func (h *HTTPHandler) RevealAndPickWinner(c *gin.Context) {
	var req revealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c)(h.service.RevealAndPickWinner(caller(c), req.Seed))
}

// VoidExpiredCommitment handles recovery from an unrevealed commitment.
func (h *HTTPHandler) VoidExpiredCommitment(c *gin.Context) {
	h.respond(c)(h.service.VoidExpiredCommitment(caller(c)))
}

// ForceDraw handles a draw request after the round deadline.
func (h *HTTPHandler) ForceDraw(c *gin.Context) {
	h.respond(c)(h.service.ForceDraw(caller(c)))
}

// PickWinner handles the legacy owner draw.
func (h *HTTPHandler) PickWinner(c *gin.Context) {
	h.respond(c)(h.service.PickWinner(caller(c)))
}

// ResetToPhase1 handles reopening the lottery after a draw.
func (h *HTTPHandler) ResetToPhase1(c *gin.Context) {
	h.respond(c)(h.service.ResetToPhase1(caller(c)))
}

// UpdateConfiguration handles a change of ticket price, threshold and duration.
// ticketPrice is in wei and roundDuration in seconds, at most one year.
func (h *HTTPHandler) UpdateConfiguration(c *gin.Context) {
	var req configurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	price, err := models.ParseWei(req.TicketPrice)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg := models.Configuration{
		TicketPrice:     price,
		MaxParticipants: req.MaxParticipants,
		RoundDuration:   time.Duration(req.RoundDuration) * time.Second,
	}
	h.respond(c)(h.service.UpdateConfiguration(caller(c), cfg))
}

// IncreaseTime moves ledger time forward.
func (h *HTTPHandler) IncreaseTime(c *gin.Context) {
	var req increaseTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.dev.IncreaseTime(time.Duration(req.Seconds) * time.Second)
	logger.Infof("Ledger time increased by %ds", req.Seconds)
	c.JSON(http.StatusOK, gin.H{"roundDeadline": h.service.RoundDeadline().Unix()})
}

func (h *HTTPHandler) respond(c *gin.Context) func(*models.Receipt, error) {
	return func(receipt *models.Receipt, err error) {
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, receipt)
	}
}

func (h *HTTPHandler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch services.ClassOf(err) {
	case services.ClassAuthorization:
		return http.StatusForbidden
	case services.ClassPayment, services.ClassConfiguration:
		return http.StatusBadRequest
	case services.ClassPhase, services.ClassEmptiness:
		return http.StatusConflict
	case services.ClassIntegrity:
		return http.StatusUnprocessableEntity
	case services.ClassTiming:
		return http.StatusTooEarly
	case services.ClassTransfer:
		return http.StatusBadGateway
	case services.ClassLookup:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
