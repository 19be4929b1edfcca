package authz

// Subject is the authenticated (or anonymous) actor a policy is evaluated
// for. A nil Subject is treated as unauthenticated.
type Subject interface {
	SubjectID() string
	IsAuthenticated() bool
	Roles() []string
}

// Resource is the object a policy may inspect. A nil Resource makes every
// resource-scoped predicate false, which allows list-level checks against
// per-item policies.
type Resource interface {
	ResourceID() string
	ResourceStatus() string
	CreatorID() string
}

// Expr is a boolean expression over (subject, resource). Expressions are
// immutable and safe for concurrent evaluation.
type Expr interface {
	Eval(s Subject, r Resource) bool
	// Name describes the expression for diagnostics.
	Name() string
}

type unaryPredicate struct {
	name string
	fn   func(Subject) bool
}

func (p unaryPredicate) Name() string { return p.name }

func (p unaryPredicate) Eval(s Subject, _ Resource) bool {
	if s == nil || !s.IsAuthenticated() {
		return false
	}
	return p.fn(s)
}

type binaryPredicate struct {
	name string
	fn   func(Subject, Resource) bool
}

func (p binaryPredicate) Name() string { return p.name }

func (p binaryPredicate) Eval(s Subject, r Resource) bool {
	if s == nil || !s.IsAuthenticated() {
		return false
	}
	if r == nil {
		return false
	}
	return p.fn(s, r)
}

// Unary builds a predicate over the subject alone.
func Unary(name string, fn func(Subject) bool) Expr {
	return unaryPredicate{name: name, fn: fn}
}

// Binary builds a predicate that also needs the resource.
func Binary(name string, fn func(Subject, Resource) bool) Expr {
	return binaryPredicate{name: name, fn: fn}
}

type andExpr struct{ exprs []Expr }

func (e andExpr) Name() string { return joinNames("and", e.exprs) }

func (e andExpr) Eval(s Subject, r Resource) bool {
	for _, sub := range e.exprs {
		if !sub.Eval(s, r) {
			return false
		}
	}
	return true
}

type orExpr struct{ exprs []Expr }

func (e orExpr) Name() string { return joinNames("or", e.exprs) }

func (e orExpr) Eval(s Subject, r Resource) bool {
	for _, sub := range e.exprs {
		if sub.Eval(s, r) {
			return true
		}
	}
	return false
}

type notExpr struct{ expr Expr }

func (e notExpr) Name() string { return "not(" + e.expr.Name() + ")" }

func (e notExpr) Eval(s Subject, r Resource) bool {
	return !e.expr.Eval(s, r)
}

// And evaluates left to right and stops at the first false operand.
func And(exprs ...Expr) Expr { return andExpr{exprs: exprs} }

// Or evaluates left to right and stops at the first true operand.
func Or(exprs ...Expr) Expr { return orExpr{exprs: exprs} }

// Not inverts an expression.
func Not(expr Expr) Expr { return notExpr{expr: expr} }

func joinNames(op string, exprs []Expr) string {
	out := op + "("
	for i, e := range exprs {
		if i > 0 {
			out += ","
		}
		out += e.Name()
	}
	return out + ")"
}

// HasRole reports exact membership of role in the subject's role list.
func HasRole(s Subject, role string) bool {
	if s == nil || role == "" {
		return false
	}
	for _, r := range s.Roles() {
		if r == role {
			return true
		}
	}
	return false
}

// Role-membership predicates. False for anonymous subjects.
var (
	IsAdmin     = Unary("is_admin", func(s Subject) bool { return HasRole(s, RoleAdmin) })
	IsReader    = Unary("is_reader", func(s Subject) bool { return HasRole(s, RoleReader) })
	IsTrader    = Unary("is_trader", func(s Subject) bool { return HasRole(s, RoleTrader) })
	IsConfirmer = Unary("is_confirmer", func(s Subject) bool { return HasRole(s, RoleConfirmer) })
	IsApprover  = Unary("is_approver", func(s Subject) bool { return HasRole(s, RoleApprover) })
)

// Resource-state predicates. False when no resource is supplied.
var (
	IsTradeCreator = Binary("is_trade_creator", func(s Subject, r Resource) bool {
		return r.CreatorID() != "" && r.CreatorID() == s.SubjectID()
	})
	IsTradePending = Binary("is_trade_pending", func(_ Subject, r Resource) bool {
		return r.ResourceStatus() == "PENDING"
	})
	IsTradeConfirmed = Binary("is_trade_confirmed", func(_ Subject, r Resource) bool {
		return r.ResourceStatus() == "CONFIRMED"
	})
	IsTradeNotConfirmed = Binary("is_trade_not_confirmed", func(_ Subject, r Resource) bool {
		return r.ResourceStatus() == "PENDING"
	})
)
