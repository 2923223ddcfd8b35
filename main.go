package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/amuthap/wedding-automation/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		logrus.WithError(err).Error("Fatal error")
		os.Exit(1)
	}
}
