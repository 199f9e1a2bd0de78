package main

import (
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/liavyona/covid-dashboard/pkg"
)

var config *pkg.Config
var handler *pkg.Handler

func init() {
	var err error
	config, err = pkg.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	level, err := zerolog.ParseLevel(config.LogLevel)
	if err != nil {
		log.Fatal().Str("level", config.LogLevel).Err(err).Msg("Unknown log level")
	}
	zerolog.SetGlobalLevel(level)
	if !onLambda() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	var archive pkg.Archiver
	if config.Archive {
		arangoDb, err := pkg.ConnectToArango(config.Arango, log.Logger)
		if err != nil {
			log.Fatal().Str("endpoint", config.Arango.Endpoint).Err(err).Msg("Error while connecting to arango db")
		}
		archive = arangoDb
	}

	client := pkg.NewClient(config, log.Logger)
	dashboard := pkg.NewDashboard(client, archive, config.LookbackDays, log.Logger)
	handler = pkg.NewHandler(dashboard, log.Logger)
}

func onLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

func main() {
	if onLambda() {
		lambda.Start(handler.Lambda)
		return
	}
	gin.SetMode(gin.ReleaseMode)
	log.Info().Str("addr", config.ListenAddr).Str("upstream", config.BaseURL).Msg("Serving dashboard")
	if err := handler.Router().Run(config.ListenAddr); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
