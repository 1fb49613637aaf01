package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/Trewaters/soar-sub011/libraryservice"
)

func main() {
	if err := libraryservice.Run(); err != nil {
		log.Error().Err(err).Msg("library-service exited with error")
		os.Exit(1)
	}
}
