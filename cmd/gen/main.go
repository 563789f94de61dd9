package main

import (
	"KVisit/internal/repository"
	"KVisit/pkg/logger"
)

func main() {
	logger.Init()
	defer logger.Sync()

	repository.RunGenerate()
}
