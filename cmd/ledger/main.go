// @title                       Ledger API
// @version                     1.0
// @description                 Marketplace balance ledger: job payments and reserve-bounded client deposits.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"os"

	"github.com/99minutos/ledger-system/cmd/ledger/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
