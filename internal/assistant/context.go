package assistant

// ConversationContext is the rolling memory of one chat session: the last
// amount and target the user mentioned. It is passed into each turn and a
// new value is returned, so sessions can be tested and serialized.
type ConversationContext struct {
	LastAmount float64 `json:"lastAmount,omitempty"`
	LastTarget float64 `json:"lastTarget,omitempty"`
}

// Remember returns cc updated with the goal numbers of g. A goal without a
// target keeps the previously remembered target.
func (cc ConversationContext) Remember(g Goal) ConversationContext {
	if g.Amount > 0 {
		cc.LastAmount = g.Amount
	}
	if g.Target > 0 {
		cc.LastTarget = g.Target
	}
	return cc
}

// IsZero reports whether nothing has been remembered yet.
func (cc ConversationContext) IsZero() bool {
	return cc.LastAmount == 0 && cc.LastTarget == 0
}
