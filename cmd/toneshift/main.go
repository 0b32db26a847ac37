package main

import (
	"github.com/toneshift/toneshift/cli"
	"github.com/toneshift/toneshift/logger"
)

func main() {
	logger.InitLogger()
	cli.Execute()
}
