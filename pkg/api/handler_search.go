package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hoferino/dealintel/pkg/retrieval"
	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

const defaultSearchLimit = 10

// handleHybridSearch handles POST /search/hybrid, driving
// pkg/retrieval.Retriever directly for callers that want raw citations
// rather than a synthesized chat answer (e.g. a CIM drafting step pulling
// supporting quotes for a section).
func (s *Server) handleHybridSearch(c *gin.Context) {
	scope, _, _, ok := requireScope(c)
	if !ok {
		return
	}

	var req hybridSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.Wrap(apperrors.Validation, "api", err))
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	result, err := s.retriever.Retrieve(c.Request.Context(), scope.GroupID(), req.Query, limit, retrieval.Filters{
		DocumentID:    req.DocumentID,
		SourceChannel: req.SourceChannel,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
