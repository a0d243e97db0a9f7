package observability

import (
	"context"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/hoferino/dealintel/ent"
	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

// Repository answers the C12 cost-dashboard aggregation queries of
// spec.md §4.10, all scoped by (org, date range). Callers (pkg/api's
// /admin/usage/* handlers) are responsible for verifying the requesting
// principal is superadmin before calling any method here — the repository
// itself performs no authorization.
type Repository struct {
	client *ent.Client
}

// NewRepository builds a Repository.
func NewRepository(client *ent.Client) *Repository {
	return &Repository{client: client}
}

// DailyCost is one day's aggregated spend.
type DailyCost struct {
	Day      string  `json:"day"`
	CostUSD  float64 `json:"cost_usd"`
	CallCount int    `json:"call_count"`
}

// FeatureCost is one feature's aggregated spend.
type FeatureCost struct {
	Feature   string  `json:"feature"`
	CostUSD   float64 `json:"cost_usd"`
	CallCount int     `json:"call_count"`
}

// ModelCost is one model's aggregated spend.
type ModelCost struct {
	Model     string  `json:"model"`
	CostUSD   float64 `json:"cost_usd"`
	CallCount int     `json:"call_count"`
}

// DealSummary is one deal's aggregated spend.
type DealSummary struct {
	DealID    string  `json:"deal_id"`
	CostUSD   float64 `json:"cost_usd"`
	CallCount int     `json:"call_count"`
}

// ErrorEntry is one recent failed or timed-out LLM call.
type ErrorEntry struct {
	ID           string `json:"id"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	Feature      string `json:"feature"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	CreatedAt    string `json:"created_at"`
}

// OverallSummary is the top-level cost-dashboard figure.
type OverallSummary struct {
	TotalCostUSD float64 `json:"total_cost_usd"`
	TotalCalls   int     `json:"total_calls"`
	TotalTokens  int     `json:"total_tokens"`
	ErrorCount   int     `json:"error_count"`
}

func (r *Repository) db() (*entsql.Driver, error) {
	drv, ok := r.client.Driver().(*entsql.Driver)
	if !ok {
		return nil, apperrors.New(apperrors.Internal, "observability", "driver does not support raw SQL aggregation")
	}
	return drv, nil
}

// DailyCosts returns per-day cost and call count for orgID within rng,
// ent has no first-class GROUP BY, so this runs against llm_usage
// directly, the same escape hatch pkg/kgraph.keywordSearch uses for
// full-text ranking.
func (r *Repository) DailyCosts(ctx context.Context, orgID string, rng DateRange) ([]DailyCost, error) {
	drv, err := r.db()
	if err != nil {
		return nil, err
	}
	rows, err := drv.DB().QueryContext(ctx, `
		SELECT to_char(created_at, 'YYYY-MM-DD') AS day, SUM(cost_usd), COUNT(*)
		FROM llm_usages
		WHERE org_id = $1 AND created_at BETWEEN $2 AND $3
		GROUP BY day ORDER BY day`, orgID, rng.From, rng.To)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TransientIO, "observability", err)
	}
	defer rows.Close()

	var out []DailyCost
	for rows.Next() {
		var d DailyCost
		if err := rows.Scan(&d.Day, &d.CostUSD, &d.CallCount); err != nil {
			return nil, apperrors.Wrap(apperrors.TransientIO, "observability", err)
		}
		out = append(out, d)
	}
	return out, nil
}

// CostsByFeature returns per-feature cost and call count for orgID within rng.
func (r *Repository) CostsByFeature(ctx context.Context, orgID string, rng DateRange) ([]FeatureCost, error) {
	drv, err := r.db()
	if err != nil {
		return nil, err
	}
	rows, err := drv.DB().QueryContext(ctx, `
		SELECT feature, SUM(cost_usd), COUNT(*)
		FROM llm_usages
		WHERE org_id = $1 AND created_at BETWEEN $2 AND $3
		GROUP BY feature ORDER BY SUM(cost_usd) DESC`, orgID, rng.From, rng.To)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TransientIO, "observability", err)
	}
	defer rows.Close()

	var out []FeatureCost
	for rows.Next() {
		var f FeatureCost
		if err := rows.Scan(&f.Feature, &f.CostUSD, &f.CallCount); err != nil {
			return nil, apperrors.Wrap(apperrors.TransientIO, "observability", err)
		}
		out = append(out, f)
	}
	return out, nil
}

// CostsByModel returns per-model cost and call count for orgID within rng.
func (r *Repository) CostsByModel(ctx context.Context, orgID string, rng DateRange) ([]ModelCost, error) {
	drv, err := r.db()
	if err != nil {
		return nil, err
	}
	rows, err := drv.DB().QueryContext(ctx, `
		SELECT model, SUM(cost_usd), COUNT(*)
		FROM llm_usages
		WHERE org_id = $1 AND created_at BETWEEN $2 AND $3
		GROUP BY model ORDER BY SUM(cost_usd) DESC`, orgID, rng.From, rng.To)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TransientIO, "observability", err)
	}
	defer rows.Close()

	var out []ModelCost
	for rows.Next() {
		var m ModelCost
		if err := rows.Scan(&m.Model, &m.CostUSD, &m.CallCount); err != nil {
			return nil, apperrors.Wrap(apperrors.TransientIO, "observability", err)
		}
		out = append(out, m)
	}
	return out, nil
}

// PerDealSummary returns per-deal cost and call count for orgID within rng,
// excluding org-level (deal_id IS NULL) calls.
func (r *Repository) PerDealSummary(ctx context.Context, orgID string, rng DateRange) ([]DealSummary, error) {
	drv, err := r.db()
	if err != nil {
		return nil, err
	}
	rows, err := drv.DB().QueryContext(ctx, `
		SELECT deal_id, SUM(cost_usd), COUNT(*)
		FROM llm_usages
		WHERE org_id = $1 AND deal_id IS NOT NULL AND created_at BETWEEN $2 AND $3
		GROUP BY deal_id ORDER BY SUM(cost_usd) DESC`, orgID, rng.From, rng.To)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TransientIO, "observability", err)
	}
	defer rows.Close()

	var out []DealSummary
	for rows.Next() {
		var d DealSummary
		if err := rows.Scan(&d.DealID, &d.CostUSD, &d.CallCount); err != nil {
			return nil, apperrors.Wrap(apperrors.TransientIO, "observability", err)
		}
		out = append(out, d)
	}
	return out, nil
}

// RecentErrors returns the most recent non-ok LLM calls for orgID, newest
// first, capped at limit.
func (r *Repository) RecentErrors(ctx context.Context, orgID string, limit int) ([]ErrorEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	drv, err := r.db()
	if err != nil {
		return nil, err
	}
	rows, err := drv.DB().QueryContext(ctx, `
		SELECT id, provider, model, feature, status, COALESCE(error_message, ''), to_char(created_at, 'YYYY-MM-DD"T"HH24:MI:SSZ')
		FROM llm_usages
		WHERE org_id = $1 AND status != 'ok'
		ORDER BY created_at DESC LIMIT $2`, orgID, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TransientIO, "observability", err)
	}
	defer rows.Close()

	var out []ErrorEntry
	for rows.Next() {
		var e ErrorEntry
		if err := rows.Scan(&e.ID, &e.Provider, &e.Model, &e.Feature, &e.Status, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return nil, apperrors.Wrap(apperrors.TransientIO, "observability", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// OverallSummaryFor returns the top-level dashboard figure for orgID within rng.
func (r *Repository) OverallSummaryFor(ctx context.Context, orgID string, rng DateRange) (*OverallSummary, error) {
	drv, err := r.db()
	if err != nil {
		return nil, err
	}
	row := drv.DB().QueryRowContext(ctx, `
		SELECT COALESCE(SUM(cost_usd), 0), COUNT(*), COALESCE(SUM(input_tokens + output_tokens), 0),
		       COALESCE(SUM(CASE WHEN status != 'ok' THEN 1 ELSE 0 END), 0)
		FROM llm_usages
		WHERE org_id = $1 AND created_at BETWEEN $2 AND $3`, orgID, rng.From, rng.To)

	var s OverallSummary
	if err := row.Scan(&s.TotalCostUSD, &s.TotalCalls, &s.TotalTokens, &s.ErrorCount); err != nil {
		return nil, apperrors.Wrap(apperrors.TransientIO, "observability", err)
	}
	return &s, nil
}
