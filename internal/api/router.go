package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"bingo-service/internal/middleware"
	"bingo-service/internal/model"
	"bingo-service/internal/service"
	appErr "bingo-service/pkg/errors"
	"bingo-service/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container) {
	handler := &Handler{services: services}

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})

	v1 := r.Group("/bingo/v1")
	v1.Use(middleware.OperatorAuthRequired())
	{
		v1.POST("/cards/generate", handler.GenerateLayouts)
		v1.POST("/cards/validate", handler.ValidateLayout)
		v1.POST("/cards/check", handler.CheckLayout)

		v1.GET("/patterns", handler.ListPatterns)
		v1.POST("/patterns", handler.CreatePattern)
		v1.PUT("/patterns/:code", handler.UpdatePattern)
		v1.DELETE("/patterns/:code", handler.DeactivatePattern)

		v1.POST("/pools", handler.CreatePool)
		v1.GET("/pools/:id", handler.GetPool)
		v1.POST("/pools/:id/generate", handler.GeneratePoolCards)
		v1.POST("/pools/:id/reuse", handler.ReusePoolCards)
		v1.GET("/pools/:id/patterns", handler.PoolPatterns)
		v1.PUT("/pools/:id/patterns", handler.ConfigurePoolPatterns)
		v1.GET("/pools/:id/cards", handler.ListPoolCards)
		v1.GET("/pools/:id/stats", handler.PoolStats)
		v1.GET("/pools/:id/players/:playerId/cards", handler.PlayerCards)
		v1.POST("/pools/:id/reserve", handler.ReserveCards)
		v1.POST("/pools/:id/confirm", handler.ConfirmPurchase)
		v1.POST("/pools/:id/games", handler.CreateGame)

		v1.POST("/cards/:id/sell", handler.SellCard)
		v1.POST("/cards/:id/release", handler.ReleaseCard)
		v1.POST("/cards/:id/check", handler.CheckCard)

		v1.POST("/games/:id/draw", handler.DrawBall)
		v1.GET("/games/:id/balls", handler.ListBalls)
		v1.POST("/games/:id/check", handler.CheckGameCards)
		v1.GET("/games/:id/cards/:cardId/winner", handler.CardWinner)
	}

	admin := r.Group("/bingo/v1/admin")
	admin.Use(middleware.AdminAuthRequired())
	{
		admin.GET("/operators", handler.AdminListOperators)
		admin.POST("/operators", handler.AdminCreateOperator)
		admin.PUT("/operators/:id/limits", handler.AdminUpdateLimits)
		admin.POST("/operators/:id/players", handler.AdminCreatePlayer)
		admin.POST("/cards/:id/cancel", handler.AdminCancelCard)
	}
}

// statusOf maps service errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, appErr.ErrInvalidFormat),
		errors.Is(err, appErr.ErrInvalidLayout),
		errors.Is(err, appErr.ErrInvalidPatternKind),
		errors.Is(err, appErr.ErrInvalidPattern),
		errors.Is(err, appErr.ErrInvalidPool),
		errors.Is(err, appErr.ErrInvalidCardIDs),
		errors.Is(err, appErr.ErrInvalidOperator),
		errors.Is(err, appErr.ErrFormatNotAllowed),
		errors.Is(err, appErr.ErrFormatMismatch),
		errors.Is(err, appErr.ErrPatternMismatch):
		return http.StatusBadRequest
	case errors.Is(err, appErr.ErrPoolNotFound),
		errors.Is(err, appErr.ErrCardNotFound),
		errors.Is(err, appErr.ErrPatternNotFound),
		errors.Is(err, appErr.ErrGameNotFound),
		errors.Is(err, appErr.ErrOperatorNotFound),
		errors.Is(err, appErr.ErrPlayerNotFound),
		errors.Is(err, appErr.ErrTenantMismatch):
		return http.StatusNotFound
	case errors.Is(err, appErr.ErrInvalidStateTransition),
		errors.Is(err, appErr.ErrQuotaExceeded),
		errors.Is(err, appErr.ErrDuplicatePatternCode),
		errors.Is(err, appErr.ErrDuplicateOperator),
		errors.Is(err, appErr.ErrDuplicatePlayer),
		errors.Is(err, appErr.ErrDrawExhausted),
		errors.Is(err, appErr.ErrPatternImmutable),
		errors.Is(err, appErr.ErrPatternInactive),
		errors.Is(err, appErr.ErrPoolNotGenerated),
		errors.Is(err, appErr.ErrReuseNotAllowed),
		errors.Is(err, appErr.ErrNoReservedCards),
		errors.Is(err, appErr.ErrOperatorInactive),
		errors.Is(err, appErr.ErrResourceBusy),
		errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	response.Error(c, statusOf(err), err.Error())
}

func parseIDParam(c *gin.Context, key string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(key), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, fmt.Sprintf("invalid %s", key))
		return 0, false
	}
	return id, true
}

func parsePositiveIntQuery(c *gin.Context, key string, defaultVal int) (int, error) {
	val := c.Query(key)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return parsed, nil
}

func getOperatorID(c *gin.Context) int64 {
	v, ok := c.Get(middleware.ContextOperatorIDKey)
	if !ok {
		return 0
	}
	id, _ := v.(int64)
	return id
}

// ownedPool loads a pool and hides it from other operators.
func (h *Handler) ownedPool(c *gin.Context, key string) (*model.CardPool, bool) {
	id, ok := parseIDParam(c, key)
	if !ok {
		return nil, false
	}
	p, err := h.services.Pool.GetPool(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if p.OperatorID != getOperatorID(c) {
		respondError(c, appErr.ErrPoolNotFound)
		return nil, false
	}
	return p, true
}

func (h *Handler) ownedCard(c *gin.Context, key string) (*model.CardInstance, bool) {
	id, ok := parseIDParam(c, key)
	if !ok {
		return nil, false
	}
	card, err := h.services.Pool.GetCard(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	p, err := h.services.Pool.GetPool(c.Request.Context(), card.PoolID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if p.OperatorID != getOperatorID(c) {
		respondError(c, appErr.ErrCardNotFound)
		return nil, false
	}
	return card, true
}

func (h *Handler) ownedGame(c *gin.Context, key string) (*model.Game, bool) {
	id, ok := parseIDParam(c, key)
	if !ok {
		return nil, false
	}
	g, err := h.services.Game.GetGame(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if g.OperatorID != getOperatorID(c) {
		respondError(c, appErr.ErrGameNotFound)
		return nil, false
	}
	return g, true
}
