package main

import (
	"log"

	"github.com/anoideaopen/crowdfund/core"
	"github.com/anoideaopen/crowdfund/core/logger"
	"github.com/anoideaopen/crowdfund/crowdfund"
)

func main() {
	l := logger.Logger()
	l.Warning("start crowdfund")

	cc, err := core.NewCC(crowdfund.NewContract())
	if err != nil {
		log.Fatal(err)
	}

	if err = cc.Start(); err != nil {
		log.Fatal(err)
	}
}
