package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/polyblog/backend/internal/model"
	"github.com/polyblog/backend/internal/service"
)

// CatalogStore lists the role and rank catalogs.
type CatalogStore interface {
	ListRoles(ctx context.Context) ([]model.Role, error)
	ListActiveRanks(ctx context.Context) ([]model.Rank, error)
}

type CatalogHandler struct {
	store CatalogStore
}

func NewCatalogHandler(store CatalogStore) *CatalogHandler {
	return &CatalogHandler{store: store}
}

// ListRoles godoc
// @Summary List roles
// @Tags catalog
// @Produce json
// @Success 200 {array} model.RoleResponse
// @Router /api/v1/roles [get]
func (h *CatalogHandler) ListRoles(c *gin.Context) {
	roles, err := h.store.ListRoles(c.Request.Context())
	if err != nil {
		writeAuthError(c, err)
		return
	}
	out := make([]model.RoleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, model.RoleResponse{
			Name:        r.Name,
			DisplayName: r.DisplayName,
			Description: r.Description,
			Color:       r.Color,
			Permissions: r.Permissions,
			Level:       r.Level,
		})
	}
	c.JSON(http.StatusOK, out)
}

// ListRanks godoc
// @Summary List ranks
// @Tags catalog
// @Produce json
// @Success 200 {array} model.RankResponse
// @Router /api/v1/ranks [get]
func (h *CatalogHandler) ListRanks(c *gin.Context) {
	ranks, err := h.store.ListActiveRanks(c.Request.Context())
	if err != nil {
		writeAuthError(c, err)
		return
	}
	out := make([]model.RankResponse, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, model.RankResponse{
			Name:        r.Name,
			DisplayName: r.DisplayName,
			Description: r.Description,
			Icon:        r.Icon,
			Color:       r.Color,
			MinComments: r.MinComments,
			MinLikes:    r.MinLikes,
			Level:       r.Level,
		})
	}
	c.JSON(http.StatusOK, out)
}

// RankHandler exposes the counter hooks the comment and post handlers call.
type RankHandler struct {
	svc *service.RankService
}

func NewRankHandler(svc *service.RankService) *RankHandler {
	return &RankHandler{svc: svc}
}

// RecordComment godoc
// @Summary Record a comment for the current user
// @Description Increments the comment counter and reports any rank promotion.
// @Tags ranks
// @Produce json
// @Success 200 {object} model.APIResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/ranks/comment [post]
func (h *RankHandler) RecordComment(c *gin.Context) {
	h.record(c, h.svc.RecordComment)
}

// RecordLike godoc
// @Summary Record a received like for the current user
// @Tags ranks
// @Produce json
// @Success 200 {object} model.APIResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/ranks/like [post]
func (h *RankHandler) RecordLike(c *gin.Context) {
	h.record(c, h.svc.RecordLike)
}

func (h *RankHandler) record(c *gin.Context, fn func(context.Context, int64) (*model.PromotionResult, error)) {
	auth := GetAuthUser(c)
	if auth == nil {
		writeAuthError(c, service.ErrInvalidToken)
		return
	}

	result, err := fn(c.Request.Context(), auth.ID)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	data := map[string]any{
		"promoted":           result.Promoted,
		"totalComments":      result.Comments,
		"totalLikesReceived": result.Likes,
	}
	if result.NewRank != nil {
		data["newRank"] = result.NewRank.Name
		data["newRankIcon"] = result.NewRank.Icon
	}
	c.JSON(http.StatusOK, model.APIResponse{
		Success: true,
		Code:    "ranks.recorded",
		Message: "activity recorded",
		Data:    data,
	})
}
