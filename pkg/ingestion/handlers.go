package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hoferino/dealintel/ent"
	"github.com/hoferino/dealintel/ent/document"
	"github.com/hoferino/dealintel/ent/documentchunk"
	"github.com/hoferino/dealintel/ent/finding"
	"github.com/hoferino/dealintel/pkg/blobstore"
	"github.com/hoferino/dealintel/pkg/jobqueue"
	"github.com/hoferino/dealintel/pkg/kgraph"
	"github.com/hoferino/dealintel/pkg/parsing"
	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
	"github.com/hoferino/dealintel/pkg/shared/tenancy"
)

// Extractor produces Findings from a document's chunks, the analyze_document
// counterpart to kgraph.Extractor's entity/fact extraction. Concrete
// implementation lives in pkg/agent, backed by pkg/llmprovider.
type Extractor interface {
	ExtractFindings(ctx context.Context, dealID, documentID string, chunks []*ent.DocumentChunk) ([]FindingCandidate, error)
}

// FindingCandidate is one Extractor-proposed Finding, prior to persistence.
type FindingCandidate struct {
	ChunkID     string
	Text        string
	PageNumber  *int
	Confidence  float64
	FindingType string
	Domain      string
}

// Handlers bundles the dependencies shared by every stage handler and
// exposes the jobqueue.Handler functions pkg/worker registers against each
// queue.
type Handlers struct {
	client    *ent.Client
	blobs     *blobstore.Store
	graph     *kgraph.Graph
	queue     *jobqueue.Queue
	extractor Extractor
}

// New builds a Handlers bundle. extractor may be nil, in which case
// analyze_document only records the chunks/episodes pipeline and skips
// Finding extraction (useful for graph-only deployments or tests).
func New(client *ent.Client, blobs *blobstore.Store, graph *kgraph.Graph, queue *jobqueue.Queue, extractor Extractor) *Handlers {
	return &Handlers{client: client, blobs: blobs, graph: graph, queue: queue, extractor: extractor}
}

// Registry is satisfied by *pkg/worker.Registry; declared here so this
// package doesn't need to import pkg/worker just to wire itself in.
type Registry interface {
	Register(queue string, concurrency int, handler jobqueue.Handler)
}

// Register wires every stage handler into reg under its queue name, so a
// single worker.Pool can drain the whole document pipeline.
func (h *Handlers) Register(reg Registry, concurrency int) {
	reg.Register(QueueParseDocument, concurrency, h.ParseDocument)
	reg.Register(QueueGraphitiIngest, concurrency, h.GraphitiIngest)
	reg.Register(QueueAnalyzeDocument, concurrency, h.AnalyzeDocument)
	reg.Register(QueueIndexEpisode, concurrency, h.IndexEpisode)
}

// ParseDocument handles QueueParseDocument: downloads the original from
// object storage, detects its format, windows it into chunks, and persists
// them. Idempotent via last_completed_stage — a document already past
// "parsed" is a no-op.
func (h *Handlers) ParseDocument(ctx context.Context, job *jobqueue.Job) error {
	payload, err := decodePayload[ParseDocumentPayload](job.Payload)
	if err != nil {
		return err
	}

	doc, err := h.client.Document.Get(ctx, payload.DocumentID)
	if err != nil {
		return wrapLookup(err, "document", payload.DocumentID)
	}
	if stagePast(doc, document.LastCompletedStageParsed) {
		return h.enqueueGraphitiIngest(ctx, doc)
	}

	raw, err := h.blobs.Get(ctx, doc.BlobPath)
	if err != nil {
		return h.fail(ctx, doc, "parsing", err)
	}

	chunks, err := parsing.Parse(doc.MimeType, raw)
	if err != nil {
		return h.fail(ctx, doc, "parsing", err)
	}

	if err := h.persistChunks(ctx, doc.ID, chunks); err != nil {
		return h.fail(ctx, doc, "parsing", err)
	}

	if _, err := doc.Update().
		SetProcessingStatus(document.ProcessingStatusParsed).
		SetLastCompletedStage(document.LastCompletedStageParsed).
		Save(ctx); err != nil {
		return apperrors.Wrap(apperrors.TransientIO, "ingestion", err)
	}

	return h.enqueueGraphitiIngest(ctx, doc)
}

func (h *Handlers) persistChunks(ctx context.Context, documentID string, chunks []parsing.Chunk) error {
	existing, err := h.client.DocumentChunk.Query().
		Where(documentchunk.DocumentIDEQ(documentID)).
		Count(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.TransientIO, "ingestion", err)
	}
	if existing > 0 {
		return nil // already parsed, e.g. a retried job that crashed after this step
	}

	tx, err := h.client.Tx(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.TransientIO, "ingestion", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range chunks {
		builder := tx.DocumentChunk.Create().
			SetID(uuid.NewString()).
			SetDocumentID(documentID).
			SetChunkIndex(c.ChunkIndex).
			SetContent(c.Content).
			SetChunkType(documentchunk.ChunkType(c.ChunkType)).
			SetTokenCount(c.TokenCount)
		if c.PageNumber != nil {
			builder = builder.SetPageNumber(*c.PageNumber)
		}
		if c.SheetName != nil {
			builder = builder.SetSheetName(*c.SheetName)
		}
		if c.CellReference != nil {
			builder = builder.SetCellReference(*c.CellReference)
		}
		if c.Metadata != nil {
			builder = builder.SetMetadata(c.Metadata)
		}
		if _, err := builder.Save(ctx); err != nil {
			return apperrors.Wrap(apperrors.TransientIO, "ingestion", err)
		}
	}

	return tx.Commit()
}

func (h *Handlers) enqueueGraphitiIngest(ctx context.Context, doc *ent.Document) error {
	scope, err := tenancy.RequireScope(ctx)
	if err != nil {
		return err
	}
	_, err = h.queue.Enqueue(ctx, jobqueue.EnqueueInput{
		OrgID:        scope.OrgID,
		DealID:       doc.DealID,
		Queue:        QueueGraphitiIngest,
		Payload:      map[string]any{"document_id": doc.ID},
		SingletonKey: "graphiti_ingest:" + doc.ID,
	})
	return err
}

// GraphitiIngest handles QueueGraphitiIngest: turns every chunk without a
// backing Episode into one via kgraph.AddEpisode, tagging each chunk with
// the resulting episode_id so a retried run only processes the remainder.
func (h *Handlers) GraphitiIngest(ctx context.Context, job *jobqueue.Job) error {
	payload, err := decodePayload[GraphitiIngestPayload](job.Payload)
	if err != nil {
		return err
	}

	doc, err := h.client.Document.Get(ctx, payload.DocumentID)
	if err != nil {
		return wrapLookup(err, "document", payload.DocumentID)
	}
	if stagePast(doc, document.LastCompletedStageGraphitiIngested) {
		return h.enqueueAnalyzeDocument(ctx, doc)
	}

	scope, err := tenancy.RequireScope(ctx)
	if err != nil {
		return err
	}
	groupID := tenancy.Scope{OrgID: scope.OrgID, DealID: doc.DealID}.GroupID()

	pending, err := h.client.DocumentChunk.Query().
		Where(documentchunk.DocumentIDEQ(doc.ID), documentchunk.EpisodeIDIsNil()).
		Order(ent.Asc(documentchunk.FieldChunkIndex)).
		All(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.TransientIO, "ingestion", err)
	}

	for _, chunk := range pending {
		episodeID, err := h.graph.AddEpisode(ctx, kgraph.AddEpisodeInput{
			GroupID:           groupID,
			Body:              chunk.Content,
			SourceChannel:     "document",
			SourceDescription: fmt.Sprintf("%s (chunk %d)", doc.Name, chunk.ChunkIndex),
			DocumentID:        doc.ID,
			ReferenceTime:     time.Now(),
			Confidence:        ConfidenceDocumentExtracted,
		})
		if err != nil {
			return h.fail(ctx, doc, "graphiti_ingesting", err)
		}
		if err := chunk.Update().SetEpisodeID(episodeID).Exec(ctx); err != nil {
			return apperrors.Wrap(apperrors.TransientIO, "ingestion", err)
		}
	}

	if _, err := doc.Update().
		SetProcessingStatus(document.ProcessingStatusGraphitiIngested).
		SetLastCompletedStage(document.LastCompletedStageGraphitiIngested).
		Save(ctx); err != nil {
		return apperrors.Wrap(apperrors.TransientIO, "ingestion", err)
	}

	return h.enqueueAnalyzeDocument(ctx, doc)
}

func (h *Handlers) enqueueAnalyzeDocument(ctx context.Context, doc *ent.Document) error {
	scope, err := tenancy.RequireScope(ctx)
	if err != nil {
		return err
	}
	_, err = h.queue.Enqueue(ctx, jobqueue.EnqueueInput{
		OrgID:        scope.OrgID,
		DealID:       doc.DealID,
		Queue:        QueueAnalyzeDocument,
		Payload:      map[string]any{"document_id": doc.ID},
		SingletonKey: "analyze_document:" + doc.ID,
	})
	return err
}

// AnalyzeDocument handles QueueAnalyzeDocument: runs Extractor over the
// document's chunks and persists the resulting Findings, then marks the
// document complete. A nil Extractor (graph-only deployments) skips
// straight to completion.
func (h *Handlers) AnalyzeDocument(ctx context.Context, job *jobqueue.Job) error {
	payload, err := decodePayload[AnalyzeDocumentPayload](job.Payload)
	if err != nil {
		return err
	}

	doc, err := h.client.Document.Get(ctx, payload.DocumentID)
	if err != nil {
		return wrapLookup(err, "document", payload.DocumentID)
	}
	if stagePast(doc, document.LastCompletedStageComplete) {
		return nil
	}

	if h.extractor != nil {
		chunks, err := h.client.DocumentChunk.Query().
			Where(documentchunk.DocumentIDEQ(doc.ID)).
			Order(ent.Asc(documentchunk.FieldChunkIndex)).
			All(ctx)
		if err != nil {
			return apperrors.Wrap(apperrors.TransientIO, "ingestion", err)
		}

		candidates, err := h.extractor.ExtractFindings(ctx, doc.DealID, doc.ID, chunks)
		if err != nil {
			return h.fail(ctx, doc, "analyzing", err)
		}

		if err := h.persistFindings(ctx, doc, candidates); err != nil {
			return h.fail(ctx, doc, "analyzing", err)
		}
	}

	_, err = doc.Update().
		SetProcessingStatus(document.ProcessingStatusComplete).
		SetLastCompletedStage(document.LastCompletedStageComplete).
		Save(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.TransientIO, "ingestion", err)
	}
	return nil
}

func (h *Handlers) persistFindings(ctx context.Context, doc *ent.Document, candidates []FindingCandidate) error {
	for _, c := range candidates {
		builder := h.client.Finding.Create().
			SetID(uuid.NewString()).
			SetDealID(doc.DealID).
			SetDocumentID(doc.ID).
			SetText(c.Text).
			SetSourceDocument(doc.Name).
			SetConfidence(c.Confidence).
			SetFindingType(finding.FindingType(c.FindingType)).
			SetDomain(finding.Domain(c.Domain))
		if c.ChunkID != "" {
			builder = builder.SetChunkID(c.ChunkID)
		}
		if c.PageNumber != nil {
			builder = builder.SetPageNumber(*c.PageNumber)
		}
		if _, err := builder.Save(ctx); err != nil {
			return apperrors.Wrap(apperrors.TransientIO, "ingestion", err)
		}
	}
	return nil
}

// IndexEpisode handles QueueIndexEpisode: the autonomous write-back job
// enqueued by the agent orchestrator (C10) when a chat turn produces
// knowledge worth persisting outside the document pipeline. Unlike the
// three document stages, it has no Document row to advance — it only adds
// an Episode.
func (h *Handlers) IndexEpisode(ctx context.Context, job *jobqueue.Job) error {
	payload, err := decodePayload[IndexEpisodePayload](job.Payload)
	if err != nil {
		return err
	}

	confidence := payload.ConfidenceHint
	if confidence == 0 {
		confidence = ConfidenceAnalystSourced
	}

	_, err = h.graph.AddEpisode(ctx, kgraph.AddEpisodeInput{
		GroupID:       payload.GroupID,
		Body:          payload.Body,
		SourceChannel: payload.SourceChannel,
		ReferenceTime: time.Now(),
		Confidence:    confidence,
	})
	return err
}

// fail records a structured processing_error, appends to retry_history
// (capped at 10 entries), and sets processing_status to the stage's
// failure status (stageFailureStatus) — the job
// itself carries the retry-vs-fail decision back to pkg/worker via the
// returned error's Kind.
func (h *Handlers) fail(ctx context.Context, doc *ent.Document, stage string, cause error) error {
	history := doc.RetryHistory
	entry := map[string]any{
		"stage":     stage,
		"message":   cause.Error(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	history = append(history, entry)
	if len(history) > 10 {
		history = history[len(history)-10:]
	}

	processingErr := map[string]any{
		"category":  string(apperrors.KindOf(cause)),
		"message":   cause.Error(),
		"stage":     stage,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	failedStatus := stageFailureStatus(stage)
	if _, updateErr := doc.Update().
		SetProcessingStatus(failedStatus).
		SetProcessingError(processingErr).
		SetRetryHistory(history).
		AddErrorCount(1).
		Save(ctx); updateErr != nil {
		return apperrors.Wrap(apperrors.TransientIO, "ingestion", updateErr)
	}

	return cause
}

func stageFailureStatus(stage string) document.ProcessingStatus {
	switch stage {
	case "analyzing":
		return document.ProcessingStatusAnalysisFailed
	default:
		return document.ProcessingStatusFailed
	}
}

// stagePast reports whether doc has already completed stage or later,
// making every handler safe to re-run against a job that was retried after
// a crash partway through.
func stagePast(doc *ent.Document, stage document.LastCompletedStage) bool {
	if doc.LastCompletedStage == nil {
		return false
	}
	order := map[document.LastCompletedStage]int{
		document.LastCompletedStageParsed:            1,
		document.LastCompletedStageGraphitiIngested:  2,
		document.LastCompletedStageAnalyzed:          3,
		document.LastCompletedStageComplete:          4,
	}
	return order[*doc.LastCompletedStage] >= order[stage]
}

func wrapLookup(err error, component, id string) error {
	if ent.IsNotFound(err) {
		return apperrors.New(apperrors.NotFound, component, fmt.Sprintf("%s %q not found", component, id)).WithID(id)
	}
	return apperrors.Wrap(apperrors.TransientIO, component, err)
}
