// receiptexporter downloads the receipts, delivery slips and invoices of
// akizukidenshi.com orders and saves them as consistently named PDF files.
package main

import (
	"fmt"
	"os"

	"github.com/receiptexporter/receiptexporter/cmd"
	"github.com/receiptexporter/receiptexporter/internal/pkg/log"
)

func main() {
	defer log.Stop()

	if err := cmd.Run(); err != nil {
		fmt.Println(err)
		log.Stop()
		os.Exit(1)
	}
}
