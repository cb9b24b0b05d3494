package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"bingo-service/internal/bingo"
	"bingo-service/internal/model"
	"bingo-service/internal/service/pattern"
	"bingo-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type patternBody struct {
	Code            string           `json:"code" binding:"required"`
	Name            string           `json:"name" binding:"required"`
	Description     string           `json:"description"`
	Category        string           `json:"category" binding:"omitempty,oneof=classic special custom"`
	CompatibleWith  string           `json:"compatibleWith"`
	Kind            string           `json:"kind" binding:"required"`
	PrizeMultiplier float64          `json:"prizeMultiplier" binding:"gte=0"`
	HasJackpot      bool             `json:"hasJackpot"`
	JackpotMaxBalls int              `json:"jackpotMaxBalls" binding:"gte=0"`
	Cells           []bingo.Position `json:"cells"`
}

func (b patternBody) toParams(operatorID int64) pattern.PatternParams {
	return pattern.PatternParams{
		OperatorID:      &operatorID,
		Code:            strings.TrimSpace(b.Code),
		Name:            strings.TrimSpace(b.Name),
		Description:     b.Description,
		Category:        b.Category,
		CompatibleWith:  b.CompatibleWith,
		Kind:            b.Kind,
		PrizeMultiplier: b.PrizeMultiplier,
		HasJackpot:      b.HasJackpot,
		JackpotMaxBalls: b.JackpotMaxBalls,
		Cells:           b.Cells,
	}
}

type patternUpdateBody struct {
	Name            *string          `json:"name"`
	Description     *string          `json:"description"`
	CompatibleWith  *string          `json:"compatibleWith"`
	PrizeMultiplier *float64         `json:"prizeMultiplier"`
	HasJackpot      *bool            `json:"hasJackpot"`
	JackpotMaxBalls *int             `json:"jackpotMaxBalls"`
	Cells           []bingo.Position `json:"cells"`
	IsActive        *bool            `json:"isActive"`
}

type patternView struct {
	Code            string           `json:"code"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Category        string           `json:"category"`
	CompatibleWith  string           `json:"compatibleWith"`
	Kind            string           `json:"kind"`
	PrizeMultiplier float64          `json:"prizeMultiplier"`
	HasJackpot      bool             `json:"hasJackpot"`
	JackpotMaxBalls int              `json:"jackpotMaxBalls"`
	Cells           []bingo.Position `json:"cells,omitempty"`
	IsActive        bool             `json:"isActive"`
	IsSystem        bool             `json:"isSystem"`
}

func toPatternView(p *model.WinningPattern) patternView {
	view := patternView{
		Code:            p.Code,
		Name:            p.Name,
		Description:     p.Description,
		Category:        p.Category,
		CompatibleWith:  p.CompatibleWith,
		Kind:            p.Kind,
		PrizeMultiplier: p.PrizeMultiplier,
		HasJackpot:      p.HasJackpot,
		JackpotMaxBalls: p.JackpotMaxBalls,
		IsActive:        p.IsActive,
		IsSystem:        p.IsSystem,
	}
	if len(p.CellsJSON) > 0 {
		_ = json.Unmarshal(p.CellsJSON, &view.Cells)
	}
	return view
}

func (h *Handler) ListPatterns(c *gin.Context) {
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

	operatorID := getOperatorID(c)
	result, err := h.services.Pattern.List(c.Request.Context(), pattern.ListFilter{
		Page:            page,
		Size:            size,
		OperatorID:      &operatorID,
		Format:          c.Query("format"),
		Category:        c.Query("category"),
		IncludeInactive: c.Query("includeInactive") == "true",
	})
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]patternView, 0, len(result.Items))
	for i := range result.Items {
		views = append(views, toPatternView(&result.Items[i]))
	}
	response.Paged(c, views, result.Total, page, size)
}

func (h *Handler) CreatePattern(c *gin.Context) {
	var body patternBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.services.Pattern.Create(c.Request.Context(), body.toParams(getOperatorID(c)))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, toPatternView(created))
}

func (h *Handler) UpdatePattern(c *gin.Context) {
	var body patternUpdateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	operatorID := getOperatorID(c)
	updated, err := h.services.Pattern.Update(c.Request.Context(), c.Param("code"), &operatorID, pattern.UpdateParams{
		Name:            body.Name,
		Description:     body.Description,
		CompatibleWith:  body.CompatibleWith,
		PrizeMultiplier: body.PrizeMultiplier,
		HasJackpot:      body.HasJackpot,
		JackpotMaxBalls: body.JackpotMaxBalls,
		Cells:           body.Cells,
		IsActive:        body.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, toPatternView(updated))
}

func (h *Handler) DeactivatePattern(c *gin.Context) {
	operatorID := getOperatorID(c)
	if err := h.services.Pattern.Deactivate(c.Request.Context(), c.Param("code"), &operatorID); err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMsg(c, gin.H{"code": c.Param("code")}, "pattern deactivated")
}
