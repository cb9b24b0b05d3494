package api

import (
	"encoding/json"
	"net/http"

	"bingo-service/internal/bingo"
	"bingo-service/internal/model"
	"bingo-service/internal/service/pattern"
	"bingo-service/internal/service/pool"
	"bingo-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type generateLayoutsBody struct {
	Format string `json:"format" binding:"required"`
	Count  int    `json:"count" binding:"omitempty,min=1,max=100"`
}

type layoutBody struct {
	Format string          `json:"format" binding:"required"`
	Grid   json.RawMessage `json:"grid" binding:"required"`
	Drawn  []int           `json:"drawn"`
}

func (b layoutBody) toLayout() (bingo.Layout, error) {
	format, err := bingo.ParseFormat(b.Format)
	if err != nil {
		return bingo.Layout{}, err
	}
	grid, err := bingo.DecodeGrid(b.Grid)
	if err != nil {
		return bingo.Layout{}, err
	}
	return bingo.Layout{Format: format, Grid: grid}, nil
}

type cardCheckBody struct {
	Drawn      []int  `json:"drawn" binding:"required"`
	BallsDrawn int    `json:"ballsDrawn" binding:"min=0"`
	Mode       string `json:"mode" binding:"omitempty,oneof=first_match check_all"`
}

// GenerateLayouts returns fresh layouts without storing them.
func (h *Handler) GenerateLayouts(c *gin.Context) {
	var body generateLayoutsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	format, err := bingo.ParseFormat(body.Format)
	if err != nil {
		respondError(c, err)
		return
	}
	count := body.Count
	if count == 0 {
		count = 1
	}

	layouts := make([]bingo.Layout, 0, count)
	for i := 0; i < count; i++ {
		layout, err := h.services.Generator.Generate(format)
		if err != nil {
			respondError(c, err)
			return
		}
		layouts = append(layouts, layout)
	}
	response.Success(c, gin.H{"cards": layouts})
}

func (h *Handler) ValidateLayout(c *gin.Context) {
	var body layoutBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	layout, err := body.toLayout()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, bingo.Validate(layout))
}

// CheckLayout runs the built-in lines against a caller-supplied grid.
func (h *Handler) CheckLayout(c *gin.Context) {
	var body layoutBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	layout, err := body.toLayout()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, bingo.CheckWinner(layout, bingo.NewNumberSet(body.Drawn...)))
}

func (h *Handler) SellCard(c *gin.Context) {
	card, ok := h.ownedCard(c, "id")
	if !ok {
		return
	}
	sold, err := h.services.Pool.Sell(c.Request.Context(), card.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondCard(c, sold)
}

func (h *Handler) ReleaseCard(c *gin.Context) {
	card, ok := h.ownedCard(c, "id")
	if !ok {
		return
	}
	released, err := h.services.Pool.Release(c.Request.Context(), card.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondCard(c, released)
}

func (h *Handler) CheckCard(c *gin.Context) {
	card, ok := h.ownedCard(c, "id")
	if !ok {
		return
	}
	var body cardCheckBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Pattern.CheckCard(c.Request.Context(), pattern.CheckCardRequest{
		CardID:     card.ID,
		Drawn:      body.Drawn,
		BallsDrawn: body.BallsDrawn,
		Mode:       bingo.CheckMode(body.Mode),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) AdminCancelCard(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	cancelled, err := h.services.Pool.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondCard(c, cancelled)
}

func (h *Handler) respondCard(c *gin.Context, card *model.CardInstance) {
	view, err := pool.View(card)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, view)
}

func cardViews(cards []model.CardInstance) ([]pool.CardView, error) {
	views := make([]pool.CardView, 0, len(cards))
	for i := range cards {
		view, err := pool.View(&cards[i])
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}
