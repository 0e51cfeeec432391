package source

import (
	"fmt"
	"strings"

	"github.com/receiptexporter/receiptexporter/internal/pkg/config"
	"github.com/receiptexporter/receiptexporter/pkg/models"
)

// CheckStart validates a selection before a queue is started: at least one
// document type, at least one order and, unless allowMissingAddressee, an
// addressee on every order.
func CheckStart(orders []models.Order, settings config.Settings, allowMissingAddressee bool) error {
	if !settings.AnyDocument() {
		return ErrNoDocumentType
	}

	if len(orders) == 0 {
		return ErrNoOrderSelected
	}

	if allowMissingAddressee {
		return nil
	}

	missing := []string{}
	for i := range orders {
		if !orders[i].HasAddressee() {
			missing = append(missing, orders[i].GetDisplayID())
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingAddressee, strings.Join(missing, ", "))
	}

	return nil
}
