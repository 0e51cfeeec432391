package queue

import (
	"net/url"
	"strings"

	"github.com/receiptexporter/receiptexporter/internal/pkg/config"
	"github.com/receiptexporter/receiptexporter/pkg/models"
)

var printPaths = map[models.DocType]string{
	models.Receipt:      "/catalog/customer/printreceipt.aspx?base_order_id=",
	models.DeliverySlip: "/catalog/customer/printdeliveryslip.aspx?order_id=",
	models.Invoice:      "/catalog/customer/printinvoice.aspx?order_id=",
}

// Build expands the selected orders into work items, in selection order and
// receipt, delivery slip, invoice order within each order.
func Build(orders []models.Order, settings config.Settings) ([]models.WorkItem, error) {
	items := []models.WorkItem{}

	for _, order := range orders {
		if settings.Receipt && order.BaseOrderID != "" {
			items = append(items, models.NewWorkItem(order, models.Receipt))
		}
		if settings.DeliverySlip && order.OrderID != "" {
			items = append(items, models.NewWorkItem(order, models.DeliverySlip))
		}
		if settings.Invoice && order.OrderID != "" {
			items = append(items, models.NewWorkItem(order, models.Invoice))
		}
	}

	if len(items) == 0 {
		return nil, ErrNothingToDownload
	}

	return items, nil
}

// DocumentURL returns the print page of item on baseURL, with the addressee
// flags the order carries.
func DocumentURL(baseURL string, item *models.WorkItem) string {
	var b strings.Builder

	b.WriteString(strings.TrimRight(baseURL, "/"))
	b.WriteString(printPaths[item.Type])
	b.WriteString(url.QueryEscape(item.GetIdentifier()))

	if item.Order.HasCompany() {
		b.WriteString("&comp_on=true")
	}
	if item.Order.HasDepartment() {
		b.WriteString("&dept_on=true")
	}
	if item.Order.HasName() {
		b.WriteString("&name_on=true")
	}

	return b.String()
}
