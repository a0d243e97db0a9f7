package kgraph

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hoferino/dealintel/ent"
	"github.com/hoferino/dealintel/ent/entity"
	"github.com/hoferino/dealintel/ent/episode"
	"github.com/hoferino/dealintel/ent/factedge"
	"github.com/hoferino/dealintel/pkg/embedding"
	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

// Graph is the knowledge-graph store: Episode ingestion, entity resolution,
// and fact-edge supersession, all persisted through ent so C7 shares one
// Postgres instance with the relational entities of C1.
type Graph struct {
	client    *ent.Client
	embedder  *embedding.Provider
	extractor Extractor
}

// New builds a Graph. extractor performs LLM-based entity/fact extraction
// from episode bodies; see pkg/agent for the concrete implementation.
func New(client *ent.Client, embedder *embedding.Provider, extractor Extractor) *Graph {
	return &Graph{client: client, embedder: embedder, extractor: extractor}
}

// AddEpisode ingests one unit of content: embeds the body, extracts entity
// and fact candidates, resolves each candidate against the existing graph,
// and emits FactEdges — superseding every currently valid edge that shares
// the same (subject, relation, object, period) signature, whether or not
// it differs from the new one. Idempotent by (group_id, content hash): calling it twice
// with the same group_id/body/reference_time returns the existing episode.
func (g *Graph) AddEpisode(ctx context.Context, in AddEpisodeInput) (string, error) {
	if in.Confidence == 0 {
		in.Confidence = 1.0
	}
	hash := contentHash(in.GroupID, in.Body, in.ReferenceTime)

	if existing, err := g.client.Episode.Query().
		Where(episode.GroupIDEQ(in.GroupID), episode.ContentHashEQ(hash)).
		Only(ctx); err == nil {
		return existing.ID, nil
	} else if !ent.IsNotFound(err) {
		return "", apperrors.Wrap(apperrors.TransientIO, "kgraph", err)
	}

	vectors, err := g.embedder.Embed(ctx, []string{in.Body}, "embed_episode")
	if err != nil {
		return "", err
	}
	var bodyVector []float32
	if len(vectors) > 0 {
		bodyVector = vectors[0]
	}

	entityCandidates, factCandidates, err := g.extractor.Extract(ctx, in.Body)
	if err != nil {
		return "", err
	}

	episodeBuilder := g.client.Episode.Create().
		SetID(uuid.NewString()).
		SetGroupID(in.GroupID).
		SetContentHash(hash).
		SetBody(in.Body).
		SetSourceChannel(episode.SourceChannel(in.SourceChannel)).
		SetReferenceTime(in.ReferenceTime).
		SetConfidence(in.Confidence)
	if in.SourceDescription != "" {
		episodeBuilder = episodeBuilder.SetSourceDescription(in.SourceDescription)
	}
	if in.DocumentID != "" {
		episodeBuilder = episodeBuilder.SetDocumentID(in.DocumentID)
	}
	if bodyVector != nil {
		episodeBuilder = episodeBuilder.SetEmbedding(bodyVector)
	}

	ep, err := episodeBuilder.Save(ctx)
	if err != nil {
		return "", apperrors.Wrap(apperrors.TransientIO, "kgraph", err)
	}

	resolvedIDs, err := g.resolveEntities(ctx, in.GroupID, entityCandidates)
	if err != nil {
		return "", err
	}

	for _, fc := range factCandidates {
		if fc.SubjectIndex < 0 || fc.SubjectIndex >= len(resolvedIDs) ||
			fc.ObjectIndex < 0 || fc.ObjectIndex >= len(resolvedIDs) {
			continue
		}
		if err := g.upsertFact(ctx, in.GroupID, ep.ID, resolvedIDs[fc.SubjectIndex], fc.Relation, resolvedIDs[fc.ObjectIndex], fc.Period, fc.Confidence); err != nil {
			return "", err
		}
	}

	return ep.ID, nil
}

// resolveEntities merges each candidate into an existing Entity of the same
// group_id, first by exact canonical_name and entity_type match, then by
// vector similarity (threshold 0.85), creating a new row only when neither
// matches. Existing entities' aliases are not searched.
func (g *Graph) resolveEntities(ctx context.Context, groupID string, candidates []EntityCandidate) ([]string, error) {
	resolved := make([]string, len(candidates))

	for i, c := range candidates {
		existing, err := g.findMatchingEntity(ctx, groupID, c)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			resolved[i] = existing.ID
			if err := g.mergeAliases(ctx, existing, c); err != nil {
				return nil, err
			}
			continue
		}

		vectors, err := g.embedder.Embed(ctx, []string{c.CanonicalName}, "embed_entity")
		if err != nil {
			return nil, err
		}
		builder := g.client.Entity.Create().
			SetID(uuid.NewString()).
			SetGroupID(groupID).
			SetEntityType(c.EntityType).
			SetCanonicalName(c.CanonicalName)
		if len(c.Aliases) > 0 {
			builder = builder.SetAliases(c.Aliases)
		}
		if c.Role != "" {
			builder = builder.SetRole(c.Role)
		}
		if c.Attributes != nil {
			builder = builder.SetAttributes(c.Attributes)
		}
		if len(vectors) > 0 {
			builder = builder.SetEmbedding(vectors[0])
		}
		created, err := builder.Save(ctx)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.TransientIO, "kgraph", err)
		}
		resolved[i] = created.ID
	}

	return resolved, nil
}

func (g *Graph) findMatchingEntity(ctx context.Context, groupID string, c EntityCandidate) (*ent.Entity, error) {
	exact, err := g.client.Entity.Query().
		Where(entity.GroupIDEQ(groupID), entity.CanonicalNameEQ(c.CanonicalName), entity.EntityTypeEQ(c.EntityType)).
		First(ctx)
	if err == nil {
		return exact, nil
	}
	if !ent.IsNotFound(err) {
		return nil, apperrors.Wrap(apperrors.TransientIO, "kgraph", err)
	}

	vectors, err := g.embedder.Embed(ctx, []string{c.CanonicalName}, "embed_entity_resolve")
	if err != nil || len(vectors) == 0 {
		return nil, err
	}
	candidateVector := vectors[0]

	pool, err := g.client.Entity.Query().
		Where(entity.GroupIDEQ(groupID), entity.EntityTypeEQ(c.EntityType)).
		All(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TransientIO, "kgraph", err)
	}

	var best *ent.Entity
	var bestScore float32
	for _, e := range pool {
		if len(e.Embedding) == 0 {
			continue
		}
		score := embedding.CosineSimilarity(candidateVector, e.Embedding)
		if score > bestScore {
			bestScore, best = score, e
		}
	}
	if best != nil && bestScore >= resolveThreshold {
		return best, nil
	}
	return nil, nil
}

func (g *Graph) mergeAliases(ctx context.Context, existing *ent.Entity, c EntityCandidate) error {
	aliasSet := make(map[string]struct{}, len(existing.Aliases)+len(c.Aliases)+1)
	for _, a := range existing.Aliases {
		aliasSet[a] = struct{}{}
	}
	if c.CanonicalName != existing.CanonicalName {
		aliasSet[c.CanonicalName] = struct{}{}
	}
	for _, a := range c.Aliases {
		aliasSet[a] = struct{}{}
	}
	if len(aliasSet) == len(existing.Aliases) {
		return nil
	}
	merged := make([]string, 0, len(aliasSet))
	for a := range aliasSet {
		merged = append(merged, a)
	}
	if err := existing.Update().SetAliases(merged).Exec(ctx); err != nil {
		return apperrors.Wrap(apperrors.TransientIO, "kgraph", err)
	}
	return nil
}

// upsertFact creates a new FactEdge, superseding every currently valid edge
// sharing the (subject, relation, object, period) dedup signature.
func (g *Graph) upsertFact(ctx context.Context, groupID, episodeID, subjectID, relation, objectID, period string, confidence float64) error {
	if confidence == 0 {
		confidence = 1.0
	}

	query := g.client.FactEdge.Query().
		Where(
			factedge.GroupIDEQ(groupID),
			factedge.SubjectIDEQ(subjectID),
			factedge.RelationEQ(relation),
			factedge.ObjectIDEQ(objectID),
			factedge.InvalidAtIsNil(),
		)
	if period != "" {
		query = query.Where(factedge.PeriodEQ(period))
	} else {
		query = query.Where(factedge.PeriodIsNil())
	}

	existing, err := query.Only(ctx)
	now := time.Now()
	var supersedes string
	if err == nil {
		supersedes = existing.ID
		if err := existing.Update().SetInvalidAt(now).Exec(ctx); err != nil {
			return apperrors.Wrap(apperrors.TransientIO, "kgraph", err)
		}
	} else if !ent.IsNotFound(err) {
		return apperrors.Wrap(apperrors.TransientIO, "kgraph", err)
	}

	builder := g.client.FactEdge.Create().
		SetID(uuid.NewString()).
		SetGroupID(groupID).
		SetSubjectID(subjectID).
		SetRelation(relation).
		SetObjectID(objectID).
		SetConfidence(confidence).
		SetProvenanceEpisodeID(episodeID).
		SetValidAt(now)
	if period != "" {
		builder = builder.SetPeriod(period)
	}
	if supersedes != "" {
		builder = builder.SetSupersedesID(supersedes)
	}
	if _, err := builder.Save(ctx); err != nil {
		return apperrors.Wrap(apperrors.TransientIO, "kgraph", err)
	}
	return nil
}

// GetEntity looks up an Entity by canonical name, falling back to an alias
// match.
func (g *Graph) GetEntity(ctx context.Context, groupID, canonicalName string) (*ent.Entity, error) {
	e, err := g.client.Entity.Query().
		Where(entity.GroupIDEQ(groupID), entity.CanonicalNameEQ(canonicalName)).
		First(ctx)
	if err == nil {
		return e, nil
	}
	if !ent.IsNotFound(err) {
		return nil, apperrors.Wrap(apperrors.TransientIO, "kgraph", err)
	}

	candidates, err := g.client.Entity.Query().Where(entity.GroupIDEQ(groupID)).All(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TransientIO, "kgraph", err)
	}
	for _, c := range candidates {
		for _, alias := range c.Aliases {
			if alias == canonicalName {
				return c, nil
			}
		}
	}
	return nil, apperrors.New(apperrors.NotFound, "kgraph", fmt.Sprintf("entity %q not found", canonicalName))
}

func contentHash(groupID, body string, referenceTime time.Time) string {
	sum := sha256.Sum256([]byte(groupID + "\x00" + body + "\x00" + referenceTime.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])
}
