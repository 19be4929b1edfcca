package authz

// Trade action keys checked by request handlers before any read or mutation.
const (
	ActionTradeView      = "trade.view"
	ActionTradeList      = "trade.list"
	ActionTradeCreate    = "trade.create"
	ActionTradeDelete    = "trade.delete"
	ActionTradeChange    = "trade.change"
	ActionTradeConfirm   = "trade.confirm"
	ActionTradeApprove   = "trade.approve"
	ActionTradeReject    = "trade.reject"
	ActionTradeUnconfirm = "trade.unconfirm"
)

// DefaultTable builds the trade-approval policy table. The admin disjunct
// comes first in every rule and short-circuits the rest.
//
// Transition rules mirror the trade state machine: confirm acts on PENDING
// (or re-confirms CONFIRMED), approve/reject and unconfirm act on CONFIRMED
// only. APPROVED and REJECTED are terminal; no rule grants a way out of them
// for anyone but admin.
func DefaultTable(opts ...TableOption) *Table {
	anyViewer := Or(IsAdmin, IsReader, IsTrader, IsConfirmer, IsApprover)
	return NewTable(map[string]Expr{
		ActionTradeView:   anyViewer,
		ActionTradeList:   anyViewer,
		ActionTradeCreate: Or(IsAdmin, IsTrader),
		// Traders may remove their own trades while still unconfirmed.
		ActionTradeDelete: Or(IsAdmin, And(IsTrader, IsTradeCreator, IsTradeNotConfirmed)),
		ActionTradeChange: IsAdmin,
		ActionTradeConfirm: Or(IsAdmin,
			And(IsConfirmer, Or(IsTradePending, IsTradeConfirmed))),
		ActionTradeApprove:   Or(IsAdmin, And(IsApprover, IsTradeConfirmed)),
		ActionTradeReject:    Or(IsAdmin, And(IsApprover, IsTradeConfirmed)),
		ActionTradeUnconfirm: Or(IsAdmin, And(IsConfirmer, IsTradeConfirmed)),
	}, opts...)
}
