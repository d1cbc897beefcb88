package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"deskhub/internal/app/dto"
	tagapp "deskhub/internal/app/handlers/tags"
	"deskhub/internal/app/queries"
)

type TagHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h TagHandler) List(c *gin.Context) {
	result, err := queries.Ask[tagapp.ListTagsQuery, dto.TagCollection](c.Request.Context(), h.Queries, tagapp.ListTagsQuery{})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
