package main

import (
	"os"

	"github.com/vnkhanh/erp-questionnaire/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
