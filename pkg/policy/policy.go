// Package policy evaluates tenant authorization decisions against an
// in-process Rego bundle. Where Alfred's gateway calls out to a sidecar OPA
// server over REST, dealintel embeds the evaluator directly — every request
// already carries org/deal scope (pkg/shared/tenancy), so there is no
// separate policy service to keep available.
package policy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/open-policy-agent/opa/rego"

	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
	"github.com/hoferino/dealintel/pkg/shared/tenancy"
)

// Input is the fact base handed to the policy for every authorization
// decision.
type Input struct {
	OrgID     string `json:"org_id"`
	DealID    string `json:"deal_id,omitempty"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	Action    string `json:"action"`
	Resource  string `json:"resource"`
	RequestAt string `json:"request_at"`
}

// Decision is the policy's verdict.
type Decision struct {
	Allow  bool     `json:"allow"`
	Deny   []string `json:"deny"`
	Reason string   `json:"reason,omitempty"`
}

// Evaluator wraps a prepared Rego query, compiled once at startup from the
// bundle directory and reused for every request.
type Evaluator struct {
	query rego.PreparedEvalQuery
}

// New compiles every .rego file under bundlePath into a single evaluator
// for data.dealintel.authz.
func New(ctx context.Context, bundlePath string) (*Evaluator, error) {
	files, err := regoFiles(bundlePath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "policy", err)
	}

	opts := []func(*rego.Rego){
		rego.Query("data.dealintel.authz"),
	}
	for _, f := range files {
		opts = append(opts, rego.Load([]string{f}, nil))
	}

	query, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "policy", fmt.Errorf("compile bundle: %w", err))
	}
	return &Evaluator{query: query}, nil
}

func regoFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".rego" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// Authorize evaluates whether scope+userID+role may perform action on
// resource, returning NotAuthorized as an *errors.Error (not a bare bool)
// so callers get a single error-handling path regardless of failure cause.
func (e *Evaluator) Authorize(ctx context.Context, scope tenancy.Scope, userID, role, action, resource string) error {
	input := Input{
		OrgID:     scope.OrgID,
		DealID:    scope.DealID,
		UserID:    userID,
		Role:      role,
		Action:    action,
		Resource:  resource,
		RequestAt: time.Now().UTC().Format(time.RFC3339),
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, "policy", fmt.Errorf("evaluate: %w", err))
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return apperrors.New(apperrors.NotAuthorized, "policy", "no policy decision produced")
	}

	decision, err := parseDecision(results[0].Expressions[0].Value)
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, "policy", err)
	}
	if !decision.Allow {
		reason := decision.Reason
		if reason == "" && len(decision.Deny) > 0 {
			reason = decision.Deny[0]
		}
		return apperrors.New(apperrors.NotAuthorized, "policy", reason)
	}
	return nil
}

func parseDecision(value any) (Decision, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return Decision{}, fmt.Errorf("unexpected policy result shape: %T", value)
	}
	var d Decision
	if allow, ok := m["allow"].(bool); ok {
		d.Allow = allow
	}
	if reason, ok := m["reason"].(string); ok {
		d.Reason = reason
	}
	if denies, ok := m["deny"].([]any); ok {
		for _, v := range denies {
			if s, ok := v.(string); ok {
				d.Deny = append(d.Deny, s)
			}
		}
	}
	return d, nil
}
