package routing

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/domain"
)

// DefaultWeightThreshold is the minimum rule weight that can win a match.
const DefaultWeightThreshold = 0.5

// Candidate pairs an agent with its open-ticket load at decision time. The
// load may be slightly stale; balancing is a heuristic, not a correctness
// requirement.
type Candidate struct {
	Agent       domain.Agent
	OpenTickets int
}

// Options tune one routing call.
type Options struct {
	// PreferTierAbove prefers agents whose Tier exceeds this value when any
	// exist, falling back to the full pool otherwise. Zero disables the
	// preference. Escalation re-routing passes the ticket's escalation level
	// here to pull in more senior handlers.
	PreferTierAbove int
}

// Decision is the routing outcome. Assigned false is a valid result, not an
// error: the ticket stays open and unowned until someone routes it manually.
type Decision struct {
	Assigned    bool
	AgentID     string
	Method      domain.RoutingMethod
	MatchedRule *string
}

// Engine selects an agent for a ticket from department-eligible candidates.
type Engine struct {
	weightThreshold float64
	logger          *zap.Logger
}

func NewEngine(weightThreshold float64, logger *zap.Logger) *Engine {
	if weightThreshold <= 0 {
		weightThreshold = DefaultWeightThreshold
	}
	return &Engine{weightThreshold: weightThreshold, logger: logger}
}

// Route filters candidates by department and availability, narrows by the
// first matching routing rule's required skill, then picks the least-loaded
// agent, breaking ties by smallest agent id.
func (e *Engine) Route(ticket *domain.Ticket, rules []domain.RoutingRule, candidates []Candidate) Decision {
	return e.RouteWithOptions(ticket, rules, candidates, Options{})
}

func (e *Engine) RouteWithOptions(ticket *domain.Ticket, rules []domain.RoutingRule, candidates []Candidate, opts Options) Decision {
	eligible := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Agent.IsAvailable && c.Agent.InDepartment(ticket.DepartmentID) {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		e.logger.Info("no available agents for department",
			zap.String("ticket_id", ticket.ID),
			zap.String("department_id", ticket.DepartmentID))
		return Decision{Method: domain.RoutingMethodUnassigned}
	}

	pool := eligible
	method := domain.RoutingMethodLoadBalance
	var matchedRule *string

	if rule := e.firstMatch(ticket, rules); rule != nil {
		narrowed := withSkill(eligible, rule.RequiredSkill)
		if len(narrowed) > 0 {
			pool = narrowed
			method = domain.RoutingMethodRule
			name := rule.Name
			matchedRule = &name
		}
	}

	if opts.PreferTierAbove > 0 {
		if seniors := aboveTier(pool, opts.PreferTierAbove); len(seniors) > 0 {
			pool = seniors
		}
	}

	winner := pickLeastLoaded(pool)
	return Decision{
		Assigned:    true,
		AgentID:     winner.Agent.ID,
		Method:      method,
		MatchedRule: matchedRule,
	}
}

// firstMatch walks rules in position order and returns the first active rule
// that clears the weight threshold and matches the ticket.
func (e *Engine) firstMatch(ticket *domain.Ticket, rules []domain.RoutingRule) *domain.RoutingRule {
	ordered := make([]domain.RoutingRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	text := strings.ToLower(ticket.Title + " " + ticket.Description)
	for i := range ordered {
		rule := &ordered[i]
		if !rule.IsActive || rule.Weight < e.weightThreshold {
			continue
		}
		if !rule.MatchesPriority(ticket.Priority) {
			continue
		}
		if matchesKeywords(text, rule.Keywords) {
			return rule
		}
	}
	return nil
}

// matchesKeywords is true when any keyword occurs in the text. A rule with no
// keywords matches on its priority filter alone.
func matchesKeywords(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func withSkill(pool []Candidate, skill string) []Candidate {
	if skill == "" {
		return pool
	}
	var out []Candidate
	for _, c := range pool {
		if c.Agent.HasSkill(skill) {
			out = append(out, c)
		}
	}
	return out
}

func aboveTier(pool []Candidate, tier int) []Candidate {
	var out []Candidate
	for _, c := range pool {
		if c.Agent.Tier > tier {
			out = append(out, c)
		}
	}
	return out
}

func pickLeastLoaded(pool []Candidate) Candidate {
	winner := pool[0]
	for _, c := range pool[1:] {
		if c.OpenTickets < winner.OpenTickets ||
			(c.OpenTickets == winner.OpenTickets && c.Agent.ID < winner.Agent.ID) {
			winner = c
		}
	}
	return winner
}
