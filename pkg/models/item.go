package models

// WorkItem is one (order, document type) unit of work in the download queue.
// It is created when the queue is built and never mutated afterwards.
type WorkItem struct {
	Order    Order    `json:"order"`
	Type     DocType  `json:"type"`
	Label    string   `json:"docType"`
	Strategy Strategy `json:"strategy"`
}

func NewWorkItem(order Order, t DocType) WorkItem {
	return WorkItem{
		Order:    order,
		Type:     t,
		Label:    t.Label(),
		Strategy: StrategyFor(t),
	}
}

// GetLabel returns the stored label, falling back to the type's label for
// items persisted without one.
func (w *WorkItem) GetLabel() string {
	if w.Label != "" {
		return w.Label
	}
	return w.Type.Label()
}

// GetIdentifier returns the id the document URL is keyed on.
func (w *WorkItem) GetIdentifier() string {
	if w.Type == Receipt {
		return w.Order.BaseOrderID
	}
	return w.Order.OrderID
}

// Checkpoint is the durable queue state. It is persisted after every
// transition and removed once Index reaches Total.
type Checkpoint struct {
	Items   []WorkItem `json:"downloadQueue"`
	Index   int        `json:"downloadIndex"`
	Total   int        `json:"downloadTotal"`
	Success int        `json:"downloadSuccess"`
	Fail    int        `json:"downloadFail"`
	Current *WorkItem  `json:"currentItem,omitempty"`
}

// Done reports whether every item has been processed.
func (c *Checkpoint) Done() bool {
	return c.Index >= c.Total
}

// Consistent checks the cursor invariants.
func (c *Checkpoint) Consistent() bool {
	return c.Index >= 0 && c.Index <= c.Total && c.Success+c.Fail == c.Index && c.Total == len(c.Items)
}
