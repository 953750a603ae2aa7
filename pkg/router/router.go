package router

import (
	"github.com/cuemby/meshrelay/pkg/types"
)

// Router selects the forwarding rule for a message
type Router struct {
	rules []types.ForwardingRule
}

// NewRouter creates a new router with the given rules. The list is copied.
func NewRouter(rules []types.ForwardingRule) *Router {
	r := &Router{rules: make([]types.ForwardingRule, len(rules))}
	copy(r.rules, rules)
	return r
}

// Route returns the first rule matching msg, or nil if no rule matches
func (r *Router) Route(msg *types.Message) *types.ForwardingRule {
	return Match(msg, r.rules)
}

// Rules returns a copy of the configured rules in evaluation order
func (r *Router) Rules() []types.ForwardingRule {
	out := make([]types.ForwardingRule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Len returns the number of rules
func (r *Router) Len() int {
	return len(r.rules)
}

// Match scans rules in order and returns the first one whose predicates all
// hold for msg. Later rules are not evaluated.
// A rule without predicates matches every message.
func Match(msg *types.Message, rules []types.ForwardingRule) *types.ForwardingRule {
	for i := range rules {
		if matchRule(&rules[i], msg) {
			return &rules[i]
		}
	}
	return nil
}

// matchRule checks every predicate of a single rule
func matchRule(rule *types.ForwardingRule, msg *types.Message) bool {
	if !matchField(rule.Type, string(msg.Type)) {
		return false
	}
	if !matchField(rule.Dst, msg.Dst()) {
		return false
	}
	return matchField(rule.Src, msg.Src())
}

// matchField checks an exact-match predicate. Empty pattern matches all.
func matchField(pattern, value string) bool {
	if pattern == "" {
		return true
	}
	return pattern == value
}
