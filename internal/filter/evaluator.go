package filter

import "strings"

// Evaluator evaluates search filters against entries. Values are compared
// case-insensitively, the caseIgnoreMatch rule that uid and the other
// naming attributes use.
type Evaluator struct{}

// NewEvaluator creates a new filter evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate reports whether entry matches f.
func (e *Evaluator) Evaluate(f *Filter, entry Entry) bool {
	if f == nil || entry == nil {
		return false
	}

	switch f.Type {
	case FilterAnd:
		// An empty AND is true.
		for _, child := range f.Children {
			if !e.Evaluate(child, entry) {
				return false
			}
		}
		return true
	case FilterOr:
		for _, child := range f.Children {
			if e.Evaluate(child, entry) {
				return true
			}
		}
		return false
	case FilterNot:
		return f.Child != nil && !e.Evaluate(f.Child, entry)
	case FilterEquality:
		for _, v := range entry.AttributeValues(f.Attribute) {
			if strings.EqualFold(v, f.Value) {
				return true
			}
		}
		return false
	case FilterPresent:
		return len(entry.AttributeValues(f.Attribute)) > 0
	default:
		return false
	}
}
