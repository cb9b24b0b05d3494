package api

import (
	"net/http"

	"bingo-service/internal/bingo"
	"bingo-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type gameCheckBody struct {
	Mode string `json:"mode" binding:"omitempty,oneof=first_match check_all"`
}

type ballView struct {
	Number   int    `json:"number"`
	Label    string `json:"label"`
	Color    string `json:"color"`
	Sequence int    `json:"sequence"`
}

func (h *Handler) DrawBall(c *gin.Context) {
	g, ok := h.ownedGame(c, "id")
	if !ok {
		return
	}
	result, err := h.services.Game.DrawBall(c.Request.Context(), g.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) ListBalls(c *gin.Context) {
	g, ok := h.ownedGame(c, "id")
	if !ok {
		return
	}
	balls, err := h.services.Game.ListBalls(c.Request.Context(), g.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	format := bingo.Format(g.Format)
	views := make([]ballView, 0, len(balls))
	for _, b := range balls {
		views = append(views, ballView{
			Number:   b.Number,
			Label:    bingo.BallLabel(format, b.Number),
			Color:    bingo.BallColor(format, b.Number),
			Sequence: b.Sequence,
		})
	}
	response.Success(c, gin.H{
		"gameId": g.ID,
		"status": g.Status,
		"balls":  views,
	})
}

func (h *Handler) CheckGameCards(c *gin.Context) {
	g, ok := h.ownedGame(c, "id")
	if !ok {
		return
	}
	var body gameCheckBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.Error(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	result, err := h.services.Game.CheckAllCards(c.Request.Context(), g.ID, bingo.CheckMode(body.Mode))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) CardWinner(c *gin.Context) {
	g, ok := h.ownedGame(c, "id")
	if !ok {
		return
	}
	cardID, ok := parseIDParam(c, "cardId")
	if !ok {
		return
	}
	result, err := h.services.Game.CheckCardInGame(c.Request.Context(), g.ID, cardID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}
