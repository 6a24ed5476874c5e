package retrieval

import "fmt"

// Scope is the tenant and job a retrieval is bound to.
type Scope struct {
	TenantID string
	JobID    string
}

// FilterCandidate is one representation of the scope filter. Vector stores
// disagree on how metadata values are typed, so several are tried in order.
type FilterCandidate struct {
	Name  string
	Build func(Scope) map[string]any
}

func DefaultFilterCandidates() []FilterCandidate {
	return []FilterCandidate{
		{
			Name: "tenant_job_eq",
			Build: func(s Scope) map[string]any {
				return map[string]any{"$and": []any{
					map[string]any{"tenantId": map[string]any{"$eq": s.TenantID}},
					map[string]any{"jobId": map[string]any{"$eq": s.JobID}},
				}}
			},
		},
		{
			Name: "tenant_job_in",
			Build: func(s Scope) map[string]any {
				return map[string]any{
					"tenantId": map[string]any{"$in": []any{s.TenantID}},
					"jobId":    map[string]any{"$in": []any{s.JobID}},
				}
			},
		},
		{
			Name: "tenant_job_plain",
			Build: func(s Scope) map[string]any {
				return map[string]any{"tenantId": s.TenantID, "jobId": s.JobID}
			},
		},
		{
			Name: "tenant_only",
			Build: func(s Scope) map[string]any {
				return map[string]any{"tenantId": map[string]any{"$eq": s.TenantID}}
			},
		},
		{
			Name: "job_only",
			Build: func(s Scope) map[string]any {
				return map[string]any{"jobId": map[string]any{"$eq": s.JobID}}
			},
		},
	}
}

// Accept reports whether match metadata belongs to scope. Both camelCase and
// snake_case keys are honoured; values are compared by their string form.
func Accept(metadata map[string]any, scope Scope) bool {
	tenant, ok := metaString(metadata, "tenantId", "tenant_id")
	if !ok || tenant != scope.TenantID {
		return false
	}
	job, ok := metaString(metadata, "jobId", "job_id")
	return ok && job == scope.JobID
}

func metaString(md map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := md[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return t, true
		case float64:
			if t == float64(int64(t)) {
				return fmt.Sprintf("%d", int64(t)), true
			}
			return fmt.Sprintf("%v", t), true
		default:
			return fmt.Sprintf("%v", t), true
		}
	}
	return "", false
}
