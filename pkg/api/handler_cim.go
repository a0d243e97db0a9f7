package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hoferino/dealintel/pkg/checkpoint"
	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

// handleCIMStep handles POST /cims/:id/step: advances the CIM authoring
// workflow by recording a new checkpoint for its thread, per C11's
// human-in-the-loop workflow model. :id is the CIM's identifier; the
// thread_id convention scopes it to the caller's org/deal.
func (s *Server) handleCIMStep(c *gin.Context) {
	scope, _, _, ok := requireScope(c)
	if !ok {
		return
	}
	cimID := c.Param("id")

	var req cimStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.Wrap(apperrors.Validation, "api", err))
		return
	}

	threadID := scope.ThreadID("cim:" + cimID)
	checkpointID := uuid.NewString()

	state := checkpoint.State{
		ThreadID:      threadID,
		CheckpointID:  checkpointID,
		Phase:         checkpoint.PhaseRunning,
		Node:          req.Node,
		ChannelValues: req.ChannelValues,
		Metadata:      req.Metadata,
	}
	if err := s.checkpoints.Put(c.Request.Context(), state, nil); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, cimStepResponse{
		ThreadID:     threadID,
		CheckpointID: checkpointID,
		Phase:        string(checkpoint.PhaseRunning),
		Node:         req.Node,
	})
}
