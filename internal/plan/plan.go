package plan

import "encoding/json"

// Resource names one quota-gated action type.
type Resource string

const (
	ResourceDocuments  Resource = "documents"
	ResourceQueries    Resource = "ai_queries"
	ResourceQuizzes    Resource = "quizzes"
	ResourceDecks      Resource = "flashcard_decks"
	ResourceInterviews Resource = "interviews"
)

// Quota is either a finite per-window limit or unlimited. Unlimited is a
// tagged state, not a reserved integer.
type Quota struct {
	unlimited bool
	limit     int
}

func Limited(n int) Quota { return Quota{limit: n} }
func Unlimited() Quota    { return Quota{unlimited: true} }

func (q Quota) IsUnlimited() bool { return q.unlimited }

// Limit returns the numeric limit, or -1 for unlimited (display only).
func (q Quota) Limit() int {
	if q.unlimited {
		return -1
	}
	return q.limit
}

// Allows reports whether one more unit may be consumed at the given usage.
func (q Quota) Allows(used int) bool {
	return q.unlimited || used < q.limit
}

func (q Quota) MarshalJSON() ([]byte, error) {
	if q.unlimited {
		return json.Marshal("unlimited")
	}
	return json.Marshal(q.limit)
}

type Plan struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	PriceCents int64              `json:"price_cents"`
	Currency   string             `json:"currency"`
	Quotas     map[Resource]Quota `json:"quotas"`
}

// Quota returns the plan's quota for a resource. Unknown resources are
// treated as never allowed.
func (p Plan) Quota(r Resource) Quota {
	q, ok := p.Quotas[r]
	if !ok {
		return Limited(0)
	}
	return q
}

const (
	Free    = "free"
	Pro     = "pro"
	Premium = "premium"
)

// catalog is static and never mutated at runtime.
var catalog = map[string]Plan{
	Free: {
		ID:         Free,
		Name:       "Free",
		PriceCents: 0,
		Currency:   "USD",
		Quotas: map[Resource]Quota{
			ResourceDocuments:  Limited(3),
			ResourceQueries:    Limited(50),
			ResourceQuizzes:    Limited(2),
			ResourceDecks:      Limited(3),
			ResourceInterviews: Limited(0),
		},
	},
	Pro: {
		ID:         Pro,
		Name:       "Pro",
		PriceCents: 999,
		Currency:   "USD",
		Quotas: map[Resource]Quota{
			ResourceDocuments:  Limited(50),
			ResourceQueries:    Limited(1000),
			ResourceQuizzes:    Limited(20),
			ResourceDecks:      Limited(50),
			ResourceInterviews: Limited(10),
		},
	},
	Premium: {
		ID:         Premium,
		Name:       "Premium",
		PriceCents: 1999,
		Currency:   "USD",
		Quotas: map[Resource]Quota{
			ResourceDocuments:  Unlimited(),
			ResourceQueries:    Unlimited(),
			ResourceQuizzes:    Unlimited(),
			ResourceDecks:      Unlimited(),
			ResourceInterviews: Unlimited(),
		},
	},
}

// order for display listings.
var order = []string{Free, Pro, Premium}

// Get looks up a plan by identifier.
func Get(id string) (Plan, bool) {
	p, ok := catalog[id]
	return p, ok
}

// ByID returns the plan for id, falling back to the free plan for unknown
// identifiers so a corrupt account row never gets unlimited quotas.
func ByID(id string) Plan {
	if p, ok := catalog[id]; ok {
		return p
	}
	return catalog[Free]
}

// All returns the catalog in display order.
func All() []Plan {
	out := make([]Plan, 0, len(order))
	for _, id := range order {
		out = append(out, catalog[id])
	}
	return out
}

func IsValid(id string) bool {
	_, ok := catalog[id]
	return ok
}
