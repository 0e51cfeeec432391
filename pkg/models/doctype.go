package models

// DocType is the kind of document requested for an order.
type DocType string

const (
	Receipt      DocType = "receipt"
	DeliverySlip DocType = "delivery"
	Invoice      DocType = "invoice"
)

// Label returns the localized label used for the {type} token.
func (t DocType) Label() string {
	switch t {
	case Receipt:
		return "領収書"
	case DeliverySlip:
		return "納品書"
	case Invoice:
		return "請求書"
	}

	return string(t)
}

// Strategy is how a document is turned into PDF bytes.
type Strategy string

const (
	// Direct fetches a ready-made PDF from the server.
	Direct Strategy = "direct"
	// Render loads the page in a browser tab and prints it to PDF.
	Render Strategy = "render"
)

// StrategyFor derives the fetch strategy from the document type alone.
func StrategyFor(t DocType) Strategy {
	if t == Receipt {
		return Render
	}
	return Direct
}
