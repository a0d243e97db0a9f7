package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hoferino/dealintel/ent"
	"github.com/hoferino/dealintel/ent/document"
	"github.com/hoferino/dealintel/pkg/ingestion"
	"github.com/hoferino/dealintel/pkg/jobqueue"
	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

// handleUploadDocument handles POST /documents/upload: stores the
// multipart file in blob storage, inserts the Document row in
// upload_status=completed, and enqueues ParseDocument to drive it through
// C2-C7 (see SPEC_FULL.md §4).
func (s *Server) handleUploadDocument(c *gin.Context) {
	scope, _, _, ok := requireScope(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, apperrors.New(apperrors.Validation, "api", "missing file field"))
		return
	}

	f, err := fh.Open()
	if err != nil {
		writeError(c, apperrors.Wrap(apperrors.Validation, "api", err))
		return
	}
	defer f.Close()

	docID := uuid.NewString()
	blobPath := fmt.Sprintf("deals/%s/documents/%s/%s", scope.DealID, docID, fh.Filename)
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := s.blobs.Put(c.Request.Context(), blobPath, contentType, f); err != nil {
		writeError(c, err)
		return
	}

	doc, err := s.client.Document.Create().
		SetID(docID).
		SetDealID(scope.DealID).
		SetName(fh.Filename).
		SetBlobPath(blobPath).
		SetFileSize(fh.Size).
		SetMimeType(contentType).
		SetUploadStatus(document.UploadStatusCompleted).
		SetProcessingStatus(document.ProcessingStatusPending).
		Save(c.Request.Context())
	if err != nil {
		writeError(c, apperrors.Wrap(apperrors.TransientIO, "api", err))
		return
	}

	if _, err := s.queue.Enqueue(c.Request.Context(), jobqueue.EnqueueInput{
		OrgID:  scope.OrgID,
		DealID: scope.DealID,
		Queue:  ingestion.QueueParseDocument,
		Payload: map[string]any{
			"document_id": doc.ID,
		},
		SingletonKey: "parse_document:" + doc.ID,
	}); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, toDocumentResponse(doc))
}

// handleDocumentUploadedWebhook lets an external upload pipeline (e.g. a
// data-room sync job that writes directly to blob storage) notify
// dealintel that a document is ready to ingest, without going through
// handleUploadDocument's multipart path.
func (s *Server) handleDocumentUploadedWebhook(c *gin.Context) {
	scope, _, _, ok := requireScope(c)
	if !ok {
		return
	}

	var body struct {
		DocumentID  string `json:"document_id" binding:"required"`
		Name        string `json:"name" binding:"required"`
		BlobPath    string `json:"blob_path" binding:"required"`
		FileSize    int64  `json:"file_size"`
		MimeType    string `json:"mime_type"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, apperrors.Wrap(apperrors.Validation, "api", err))
		return
	}

	doc, err := s.client.Document.Create().
		SetID(body.DocumentID).
		SetDealID(scope.DealID).
		SetName(body.Name).
		SetBlobPath(body.BlobPath).
		SetFileSize(body.FileSize).
		SetMimeType(body.MimeType).
		SetUploadStatus(document.UploadStatusCompleted).
		SetProcessingStatus(document.ProcessingStatusPending).
		Save(c.Request.Context())
	if err != nil {
		writeError(c, apperrors.Wrap(apperrors.TransientIO, "api", err))
		return
	}

	if _, err := s.queue.Enqueue(c.Request.Context(), jobqueue.EnqueueInput{
		OrgID:        scope.OrgID,
		DealID:       scope.DealID,
		Queue:        ingestion.QueueParseDocument,
		Payload:      map[string]any{"document_id": doc.ID},
		SingletonKey: "parse_document:" + doc.ID,
	}); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, toDocumentResponse(doc))
}

func (s *Server) handleGetDocument(c *gin.Context) {
	id := c.Param("id")
	doc, err := s.client.Document.Get(c.Request.Context(), id)
	if err != nil {
		if ent.IsNotFound(err) {
			writeError(c, apperrors.New(apperrors.NotFound, "api", "document not found"))
			return
		}
		writeError(c, apperrors.Wrap(apperrors.TransientIO, "api", err))
		return
	}
	c.JSON(http.StatusOK, toDocumentResponse(doc))
}

// handleRetryDocument re-enqueues the stage a failed document last
// stopped at, per spec.md §3's manual-retry invariant: retry resumes from
// last_completed_stage rather than restarting the whole pipeline.
func (s *Server) handleRetryDocument(c *gin.Context) {
	scope, _, _, ok := requireScope(c)
	if !ok {
		return
	}
	id := c.Param("id")

	doc, err := s.client.Document.Get(c.Request.Context(), id)
	if err != nil {
		if ent.IsNotFound(err) {
			writeError(c, apperrors.New(apperrors.NotFound, "api", "document not found"))
			return
		}
		writeError(c, apperrors.Wrap(apperrors.TransientIO, "api", err))
		return
	}

	queueName := retryQueueFor(doc)
	if _, err := s.queue.Enqueue(c.Request.Context(), jobqueue.EnqueueInput{
		OrgID:        scope.OrgID,
		DealID:       scope.DealID,
		Queue:        queueName,
		Payload:      map[string]any{"document_id": doc.ID},
		SingletonKey: queueName + ":" + doc.ID,
	}); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, toDocumentResponse(doc))
}

// retryQueueFor resumes from the stage after last_completed_stage, or
// from the beginning if the document never completed a stage.
func retryQueueFor(doc *ent.Document) string {
	if doc.LastCompletedStage == nil {
		return ingestion.QueueParseDocument
	}
	switch *doc.LastCompletedStage {
	case document.LastCompletedStageParsed:
		return ingestion.QueueGraphitiIngest
	case document.LastCompletedStageGraphitiIngested:
		return ingestion.QueueAnalyzeDocument
	default:
		return ingestion.QueueParseDocument
	}
}

func toDocumentResponse(doc *ent.Document) documentResponse {
	return documentResponse{
		ID:                doc.ID,
		DealID:            doc.DealID,
		Name:              doc.Name,
		UploadStatus:      string(doc.UploadStatus),
		ProcessingStatus:  string(doc.ProcessingStatus),
		ReliabilityStatus: string(doc.ReliabilityStatus),
		ErrorCount:        doc.ErrorCount,
		CreatedAt:         doc.CreatedAt,
	}
}
