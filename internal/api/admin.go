package api

import (
	"net/http"

	"bingo-service/internal/service/operator"
	"bingo-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type operatorBody struct {
	Code              string   `json:"code" binding:"required"`
	Name              string   `json:"name" binding:"required"`
	AllowedFormats    []string `json:"allowedFormats"`
	MaxCardsPerPlayer int      `json:"maxCardsPerPlayer" binding:"min=0"`
	MaxCardsPerPool   int      `json:"maxCardsPerPool" binding:"min=0"`
}

type limitsBody struct {
	MaxCardsPerPlayer *int     `json:"maxCardsPerPlayer"`
	MaxCardsPerPool   *int     `json:"maxCardsPerPool"`
	AllowedFormats    []string `json:"allowedFormats"`
	Status            *string  `json:"status"`
}

type playerBody struct {
	Username    string `json:"username" binding:"required"`
	DisplayName string `json:"displayName"`
	Phone       string `json:"phone"`
}

func (h *Handler) AdminListOperators(c *gin.Context) {
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

	result, err := h.services.Operator.AdminListOperators(c.Request.Context(), page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Paged(c, result.Items, result.Total, page, size)
}

func (h *Handler) AdminCreateOperator(c *gin.Context) {
	var body operatorBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	op, err := h.services.Operator.CreateOperator(c.Request.Context(), operator.OperatorParams{
		Code:              body.Code,
		Name:              body.Name,
		AllowedFormats:    body.AllowedFormats,
		MaxCardsPerPlayer: body.MaxCardsPerPlayer,
		MaxCardsPerPool:   body.MaxCardsPerPool,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, op)
}

func (h *Handler) AdminUpdateLimits(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body limitsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	op, err := h.services.Operator.UpdateLimits(c.Request.Context(), id, operator.LimitParams{
		MaxCardsPerPlayer: body.MaxCardsPerPlayer,
		MaxCardsPerPool:   body.MaxCardsPerPool,
		AllowedFormats:    body.AllowedFormats,
		Status:            body.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, op)
}

func (h *Handler) AdminCreatePlayer(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body playerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	player, err := h.services.Operator.CreatePlayer(c.Request.Context(), id, operator.PlayerParams{
		Username:    body.Username,
		DisplayName: body.DisplayName,
		Phone:       body.Phone,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, player)
}
