package authz

// Observer receives every policy decision. Implementations must not block and
// must not influence the outcome; they exist for metrics and audit trails.
type Observer interface {
	Decision(action string, subject Subject, allowed bool)
}

// Table maps action names to predicate expressions. It is built once at
// startup and passed by reference into whatever needs authorization checks;
// there is no process-global registry.
type Table struct {
	policies map[string]Expr
	observer Observer
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithObserver attaches a decision observer.
func WithObserver(obs Observer) TableOption {
	return func(t *Table) {
		t.observer = obs
	}
}

// NewTable copies the given policies into an immutable table.
func NewTable(policies map[string]Expr, opts ...TableOption) *Table {
	cp := make(map[string]Expr, len(policies))
	for action, expr := range policies {
		if action == "" || expr == nil {
			continue
		}
		cp[action] = expr
	}
	t := &Table{policies: cp}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Allows evaluates the policy registered for action against (subject,
// resource). Fail-closed: an unknown action is a denial, not an error.
// Resource may be nil; resource-scoped predicates then evaluate false.
func (t *Table) Allows(action string, s Subject, r Resource) bool {
	expr, ok := t.policies[action]
	allowed := ok && expr.Eval(s, r)
	if t.observer != nil {
		t.observer.Decision(action, s, allowed)
	}
	return allowed
}

// Actions returns the number of registered policies.
func (t *Table) Actions() int { return len(t.policies) }
