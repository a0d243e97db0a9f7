package ingestion

import (
	"context"

	"github.com/hoferino/dealintel/ent"
	"github.com/hoferino/dealintel/ent/document"
	"github.com/hoferino/dealintel/ent/featureflag"
	"github.com/hoferino/dealintel/ent/finding"
	"github.com/hoferino/dealintel/ent/findingcorrection"
	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

const (
	flagSourceErrorCascade  = "source_error_cascade"
	flagAutoFlagDocFindings = "auto_flag_document_findings"
)

// OnSourceErrorCorrection reacts to a FindingCorrection whose
// validation_status is source_error: if the source_error_cascade flag is
// enabled for org, the source Document is marked contains_errors, and if
// auto_flag_document_findings is also enabled every other Finding from that
// document is flagged needs_review. Both flags default off — called by
// whatever handler writes the FindingCorrection (pkg/api's validation
// endpoint), not by a queued job, since the write itself is the trigger.
func (h *Handlers) OnSourceErrorCorrection(ctx context.Context, orgID string, correction *ent.FindingCorrection) error {
	if correction.ValidationStatus != findingcorrection.ValidationStatusSourceError {
		return nil
	}

	cascadeEnabled, err := h.flagEnabled(ctx, orgID, flagSourceErrorCascade)
	if err != nil || !cascadeEnabled {
		return err
	}

	f, err := h.client.Finding.Get(ctx, correction.FindingID)
	if err != nil {
		return wrapLookup(err, "finding", correction.FindingID)
	}
	if f.DocumentID == nil {
		return nil
	}

	if err := h.client.Document.UpdateOneID(*f.DocumentID).
		SetReliabilityStatus(document.ReliabilityStatusContainsErrors).
		Exec(ctx); err != nil {
		return apperrors.Wrap(apperrors.TransientIO, "ingestion", err)
	}

	autoFlag, err := h.flagEnabled(ctx, orgID, flagAutoFlagDocFindings)
	if err != nil || !autoFlag {
		return err
	}

	_, err = h.client.Finding.Update().
		Where(finding.DocumentIDEQ(*f.DocumentID)).
		SetNeedsReview(true).
		SetReviewReason("source document flagged contains_errors after a source_error correction").
		Save(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.TransientIO, "ingestion", err)
	}
	return nil
}

// flagEnabled checks an org-scoped flag, falling back to the global
// (org_id nil) row, defaulting to false if neither row exists.
func (h *Handlers) flagEnabled(ctx context.Context, orgID, key string) (bool, error) {
	orgScoped, err := h.client.FeatureFlag.Query().
		Where(featureflag.KeyEQ(key), featureflag.OrgIDEQ(orgID)).
		Only(ctx)
	if err == nil {
		return orgScoped.Enabled, nil
	}
	if !ent.IsNotFound(err) {
		return false, apperrors.Wrap(apperrors.TransientIO, "ingestion", err)
	}

	global, err := h.client.FeatureFlag.Query().
		Where(featureflag.KeyEQ(key), featureflag.OrgIDIsNil()).
		Only(ctx)
	if err == nil {
		return global.Enabled, nil
	}
	if ent.IsNotFound(err) {
		return false, nil
	}
	return false, apperrors.Wrap(apperrors.TransientIO, "ingestion", err)
}
