package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Laisky/laisky-cloud-drive/internal/drive/dto"
)

func (s *Server) usage(ctx *gin.Context) {
	agg, err := s.svc.Usage(ctx)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.FromUsage(agg))
}

func (s *Server) usageSummary(ctx *gin.Context) {
	entries, err := s.svc.UsageSummary(ctx)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"categories": dto.FromUsageSummary(entries)})
}
