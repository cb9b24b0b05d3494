package api

import (
	"net/http"
	"strings"

	"bingo-service/internal/bingo"
	"bingo-service/internal/service/pool"
	"bingo-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createPoolBody struct {
	Scope          string          `json:"scope" binding:"omitempty,oneof=session pack"`
	Name           string          `json:"name"`
	Format         string          `json:"format" binding:"required"`
	TargetCapacity int             `json:"targetCapacity" binding:"required,min=1"`
	ReuseAllowed   bool            `json:"reuseAllowed"`
	EntryFee       decimal.Decimal `json:"entryFee"`
	PatternCodes   []string        `json:"patternCodes"`
}

func (b createPoolBody) toParams(operatorID int64) pool.CreatePoolParams {
	return pool.CreatePoolParams{
		OperatorID:     operatorID,
		Scope:          b.Scope,
		Name:           strings.TrimSpace(b.Name),
		Format:         b.Format,
		TargetCapacity: b.TargetCapacity,
		ReuseAllowed:   b.ReuseAllowed,
		EntryFee:       b.EntryFee,
	}
}

type reuseBody struct {
	SourcePoolID int64 `json:"sourcePoolId" binding:"required,min=1"`
}

type poolPatternsBody struct {
	Codes []string `json:"codes" binding:"required,min=1"`
}

type reserveBody struct {
	PlayerID int64   `json:"playerId" binding:"required,min=1"`
	CardIDs  []int64 `json:"cardIds" binding:"required,min=1"`
}

type confirmBody struct {
	PlayerID int64 `json:"playerId" binding:"required,min=1"`
}

func (h *Handler) CreatePool(c *gin.Context) {
	var body createPoolBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	params := body.toParams(getOperatorID(c))
	// Pattern codes are checked before the insert so a rejected request
	// leaves no pool behind.
	if len(body.PatternCodes) > 0 {
		format, err := bingo.ParseFormat(body.Format)
		if err != nil {
			respondError(c, err)
			return
		}
		if params.PatternCodes, err = h.services.Pattern.ValidatePoolPatterns(ctx, params.OperatorID, format, body.PatternCodes); err != nil {
			respondError(c, err)
			return
		}
	}

	created, err := h.services.Pool.CreatePool(ctx, params)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, created)
}

func (h *Handler) GetPool(c *gin.Context) {
	p, ok := h.ownedPool(c, "id")
	if !ok {
		return
	}
	response.Success(c, p)
}

func (h *Handler) GeneratePoolCards(c *gin.Context) {
	p, ok := h.ownedPool(c, "id")
	if !ok {
		return
	}
	result, err := h.services.Pool.GenerateCards(c.Request.Context(), p.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMsg(c, result, result.Notice)
}

func (h *Handler) ReusePoolCards(c *gin.Context) {
	dest, ok := h.ownedPool(c, "id")
	if !ok {
		return
	}
	var body reuseBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Pool.ReuseCards(c.Request.Context(), pool.ReuseRequest{
		SourcePoolID: body.SourcePoolID,
		DestPoolID:   dest.ID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMsg(c, result, result.Notice)
}

func (h *Handler) ConfigurePoolPatterns(c *gin.Context) {
	p, ok := h.ownedPool(c, "id")
	if !ok {
		return
	}
	var body poolPatternsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := h.services.Pattern.ConfigurePoolPatterns(c.Request.Context(), p.ID, body.Codes)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, updated)
}

// PoolPatterns lists the configured codes next to everything the pool could use.
func (h *Handler) PoolPatterns(c *gin.Context) {
	p, ok := h.ownedPool(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	active, err := h.services.Pattern.PoolPatterns(ctx, p)
	if err != nil {
		respondError(c, err)
		return
	}
	available, err := h.services.Pattern.ListCompatible(ctx, p.OperatorID, bingo.Format(p.Format))
	if err != nil {
		respondError(c, err)
		return
	}

	codes := make([]string, 0, len(active))
	for _, pat := range active {
		codes = append(codes, pat.Code)
	}
	views := make([]patternView, 0, len(available))
	for i := range available {
		views = append(views, toPatternView(&available[i]))
	}
	response.Success(c, gin.H{
		"active":    codes,
		"available": views,
	})
}

func (h *Handler) ListPoolCards(c *gin.Context) {
	p, ok := h.ownedPool(c, "id")
	if !ok {
		return
	}
	page, err := parsePositiveIntQuery(c, "page", 1)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	size, err := parsePositiveIntQuery(c, "size", 20)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Pool.ListCards(c.Request.Context(), pool.CardFilter{
		PoolID: p.ID,
		Status: c.Query("status"),
		Page:   page,
		Size:   size,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	views, err := cardViews(result.Items)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Paged(c, views, result.Total, page, size)
}

func (h *Handler) PoolStats(c *gin.Context) {
	p, ok := h.ownedPool(c, "id")
	if !ok {
		return
	}
	stats, err := h.services.Pool.Stats(c.Request.Context(), p.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, stats)
}

func (h *Handler) PlayerCards(c *gin.Context) {
	p, ok := h.ownedPool(c, "id")
	if !ok {
		return
	}
	playerID, ok := parseIDParam(c, "playerId")
	if !ok {
		return
	}

	summary, err := h.services.Pool.PlayerCards(c.Request.Context(), p.ID, playerID)
	if err != nil {
		respondError(c, err)
		return
	}
	views, err := cardViews(summary.Cards)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"cards":    views,
		"reserved": summary.Reserved,
		"sold":     summary.Sold,
		"spent":    summary.Spent.StringFixed(2),
	})
}

func (h *Handler) ReserveCards(c *gin.Context) {
	p, ok := h.ownedPool(c, "id")
	if !ok {
		return
	}
	var body reserveBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Pool.ReserveMany(c.Request.Context(), p.ID, body.PlayerID, body.CardIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) ConfirmPurchase(c *gin.Context) {
	p, ok := h.ownedPool(c, "id")
	if !ok {
		return
	}
	var body confirmBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Pool.SellReserved(c.Request.Context(), p.ID, body.PlayerID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) CreateGame(c *gin.Context) {
	p, ok := h.ownedPool(c, "id")
	if !ok {
		return
	}
	created, err := h.services.Game.CreateGame(c.Request.Context(), p.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, created)
}
