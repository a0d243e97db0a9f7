package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hoferino/dealintel/ent/contradiction"
	"github.com/hoferino/dealintel/pkg/retrieval"
	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
	"github.com/hoferino/dealintel/pkg/shared/tenancy"
)

// executeTool dispatches one model-requested tool call by name, returning
// the short summary that re-enters the prompt (the Isolate hook handles
// stashing the full result separately). Unknown or unloaded-at-tier names
// surface toolNotLoadedError so the caller can escalate.
func (rt *Runtime) executeTool(ctx context.Context, scope tenancy.Scope, tier Tier, name, argsJSON string) (summary string, full any, err error) {
	if !allowsTool(tier, name) {
		return "", nil, toolNotLoadedError{name: name}
	}

	switch name {
	case "search_documents":
		return rt.toolSearchDocuments(ctx, scope, argsJSON)
	case "get_finding":
		return rt.toolGetFinding(ctx, argsJSON)
	case "get_qa_item":
		return rt.toolGetQAItem(ctx, argsJSON)
	case "search_knowledge_graph":
		return rt.toolSearchKnowledgeGraph(ctx, scope, argsJSON)
	case "get_document_info":
		return rt.toolGetDocumentInfo(ctx, argsJSON)
	case "financial_ratio":
		return rt.toolFinancialRatio(ctx, scope, argsJSON)
	case "detect_contradiction":
		return rt.toolDetectContradiction(ctx, scope)
	case "graph_traversal":
		return rt.toolSearchKnowledgeGraph(ctx, scope, argsJSON)
	case "index_to_knowledge_base":
		return rt.toolIndexToKnowledgeBase(ctx, scope, argsJSON)
	default:
		return "", nil, toolNotLoadedError{name: name}
	}
}

func (rt *Runtime) toolSearchDocuments(ctx context.Context, scope tenancy.Scope, argsJSON string) (string, any, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", nil, apperrors.Wrap(apperrors.Validation, "agent.tool", err)
	}
	result, err := rt.retriever.Retrieve(ctx, scope.GroupID(), args.Query, 5, retrieval.Filters{})
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Found %d relevant passages.", len(result.Citations)), result, nil
}

func (rt *Runtime) toolGetFinding(ctx context.Context, argsJSON string) (string, any, error) {
	var args struct {
		FindingID string `json:"finding_id"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", nil, apperrors.Wrap(apperrors.Validation, "agent.tool", err)
	}
	f, err := rt.client.Finding.Get(ctx, args.FindingID)
	if err != nil {
		return "", nil, apperrors.Wrap(apperrors.NotFound, "agent.tool", err).WithID(args.FindingID)
	}
	return fmt.Sprintf("Finding %s (%s, confidence %.2f): %.120s", f.ID, f.Status, f.Confidence, f.Text), f, nil
}

func (rt *Runtime) toolGetQAItem(ctx context.Context, argsJSON string) (string, any, error) {
	var args struct {
		QAItemID string `json:"qa_item_id"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", nil, apperrors.Wrap(apperrors.Validation, "agent.tool", err)
	}
	q, err := rt.client.QAItem.Get(ctx, args.QAItemID)
	if err != nil {
		return "", nil, apperrors.Wrap(apperrors.NotFound, "agent.tool", err).WithID(args.QAItemID)
	}
	return fmt.Sprintf("Q&A item %s (%s): %.120s", q.ID, q.Category, q.Question), q, nil
}

func (rt *Runtime) toolSearchKnowledgeGraph(ctx context.Context, scope tenancy.Scope, argsJSON string) (string, any, error) {
	var args struct {
		CanonicalName string `json:"canonical_name"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", nil, apperrors.Wrap(apperrors.Validation, "agent.tool", err)
	}
	e, err := rt.graph.GetEntity(ctx, scope.GroupID(), args.CanonicalName)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Entity %q (%s), role=%s", e.CanonicalName, e.EntityType, deref(e.Role)), e, nil
}

func (rt *Runtime) toolGetDocumentInfo(ctx context.Context, argsJSON string) (string, any, error) {
	var args struct {
		DocumentID string `json:"document_id"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", nil, apperrors.Wrap(apperrors.Validation, "agent.tool", err)
	}
	d, err := rt.client.Document.Get(ctx, args.DocumentID)
	if err != nil {
		return "", nil, apperrors.Wrap(apperrors.NotFound, "agent.tool", err).WithID(args.DocumentID)
	}
	return fmt.Sprintf("Document %s: status=%s stage=%s", d.ID, d.ProcessingStatus, d.LastCompletedStage), d, nil
}

func (rt *Runtime) toolFinancialRatio(ctx context.Context, scope tenancy.Scope, argsJSON string) (string, any, error) {
	var args struct {
		MetricA string `json:"metric_a"`
		MetricB string `json:"metric_b"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", nil, apperrors.Wrap(apperrors.Validation, "agent.tool", err)
	}
	a, err := rt.graph.GetEntity(ctx, scope.GroupID(), args.MetricA)
	if err != nil {
		return "", nil, err
	}
	if args.MetricB == "" {
		return fmt.Sprintf("%s attributes: %v", a.CanonicalName, a.Attributes), a, nil
	}
	b, err := rt.graph.GetEntity(ctx, scope.GroupID(), args.MetricB)
	if err != nil {
		return "", nil, err
	}
	av, aok := a.Attributes["value"].(float64)
	bv, bok := b.Attributes["value"].(float64)
	if !aok || !bok || bv == 0 {
		return fmt.Sprintf("%s and %s attributes are not directly comparable numeric values.", a.CanonicalName, b.CanonicalName), map[string]any{"a": a, "b": b}, nil
	}
	ratio := av / bv
	return fmt.Sprintf("%s / %s = %.3f", a.CanonicalName, b.CanonicalName, ratio), map[string]any{"a": a, "b": b, "ratio": ratio}, nil
}

func (rt *Runtime) toolDetectContradiction(ctx context.Context, scope tenancy.Scope) (string, any, error) {
	contradictions, err := rt.client.Contradiction.Query().
		Where(contradiction.DealIDEQ(scope.DealID), contradiction.StatusEQ(contradiction.StatusUnresolved)).
		All(ctx)
	if err != nil {
		return "", nil, apperrors.Wrap(apperrors.TransientIO, "agent.tool", err)
	}
	return fmt.Sprintf("%d unresolved contradictions.", len(contradictions)), contradictions, nil
}

func (rt *Runtime) toolIndexToKnowledgeBase(ctx context.Context, scope tenancy.Scope, argsJSON string) (string, any, error) {
	var args struct {
		Content    string `json:"content"`
		SourceType string `json:"source_type"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", nil, apperrors.Wrap(apperrors.Validation, "agent.tool", err)
	}
	summary, err := rt.writeBack(ctx, scope, args.Content, args.SourceType)
	if err != nil {
		return "", nil, err
	}
	return summary, nil, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
