package models

import "regexp"

var variantSuffix = regexp.MustCompile(`-\d{2}$`)

// Order is one purchase as scraped from the order history page.
// Presence flags are kept as strings because the page sometimes marks an
// addressee field as present with a hidden input while leaving the value empty.
type Order struct {
	Date        string `json:"date"`          // Date is the raw vendor date, e.g. 2024/3/5
	Price       string `json:"price"`         // Price is the raw total, e.g. ￥1,234
	OrderID     string `json:"orderId"`       // OrderID is the line order identifier, e.g. 12345-01
	BaseOrderID string `json:"baseOrderId"`   // BaseOrderID groups every line of one purchase
	ProductName string `json:"productName"`   // ProductName is already truncated by the source
	Category    string `json:"dropdownValue"` // Category is the user-chosen label
	CSRFToken   string `json:"csrfToken,omitempty"`

	AddrComp   string `json:"addrComp,omitempty"`
	AddrDept   string `json:"addrDept,omitempty"`
	AddrName   string `json:"addrName,omitempty"`
	AddrCompOn string `json:"addrCompOn,omitempty"`
	AddrDeptOn string `json:"addrDeptOn,omitempty"`
	AddrNameOn string `json:"addrNameOn,omitempty"`
}

// GetBaseOrderID returns the explicit base order id, or derives it from the
// order id by stripping a trailing two-digit variant suffix.
func (o *Order) GetBaseOrderID() string {
	if o.BaseOrderID != "" {
		return o.BaseOrderID
	}

	return variantSuffix.ReplaceAllString(o.OrderID, "")
}

// GetDisplayID is the identifier shown to the user in progress lines.
func (o *Order) GetDisplayID() string {
	if o.OrderID != "" {
		return o.OrderID
	}
	return o.BaseOrderID
}

func (o *Order) HasCompany() bool    { return o.AddrComp != "" || o.AddrCompOn != "" }
func (o *Order) HasDepartment() bool { return o.AddrDept != "" || o.AddrDeptOn != "" }
func (o *Order) HasName() bool       { return o.AddrName != "" || o.AddrNameOn != "" }

// HasAddressee reports whether at least one addressee value was entered.
func (o *Order) HasAddressee() bool {
	return o.AddrComp != "" || o.AddrDept != "" || o.AddrName != ""
}
