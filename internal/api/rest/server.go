// Package rest provides functionality for initializing a server.
package rest

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/rs/zerolog"

	"pokerroom/internal/api/rest/client"
	"pokerroom/internal/api/rest/handlers"
	"pokerroom/internal/api/rest/middleware"
	"pokerroom/internal/config"
	"pokerroom/internal/service/broker/v1/broker"
	"pokerroom/internal/service/processor/v1/processor"
	"pokerroom/internal/service/secretary/v1/secretary"
	"pokerroom/internal/storage/v1/inpsql"
)

// InitServer returns a http.Server object ready to be listening and serving.
func InitServer(ctx context.Context, cfg *config.Config, log *zerolog.Logger, wg *sync.WaitGroup) (server *http.Server, err error) {
	//initialize secretary
	secretaryService, err := secretary.NewSecretaryService(cfg.SecretConfig)
	if err != nil {
		return nil, err
	}

	// initialize token handler
	tokenHandler, err := middleware.NewTokenHandler(secretaryService, cfg.SecretConfig)
	if err != nil {
		return nil, err
	}

	// initialize storage
	storage, err := inpsql.InitStorage(ctx, cfg.StorageConfig, log, wg)
	if err != nil {
		return nil, err
	}

	// initialize main service
	mainService, err := processor.InitService(storage, secretaryService)
	if err != nil {
		return nil, err
	}

	// initialize hand feed client
	feedClient := client.InitClient(cfg.ServerConfig, log)

	// initialize broker
	brokerService := broker.InitBroker(ctx, storage.QueueIn, storage.QueueOut, log, wg, feedClient, cfg.QueueConfig.WorkerNumber, cfg.QueueConfig.RetryNumber)
	brokerService.ListenAndProcess()

	// initialize handlers
	urlHandler, err := handlers.InitHandlers(mainService, cfg.ServerConfig, log)
	if err != nil {
		return nil, err
	}

	// initialize server and set routing
	r := chi.NewRouter()
	r.Use(middleware.CompressHandle)
	r.Use(middleware.DecompressHandle)
	loginGroup := r.Group(nil)
	mainGroup := r.Group(nil)
	mainGroup.Use(tokenHandler.TokenHandle) // token authentication is not used for login/register routes
	loginGroup.Post("/api/user/register", urlHandler.HandleRegister())
	loginGroup.Post("/api/user/login", urlHandler.HandleLogin())
	mainGroup.Get("/account", urlHandler.HandleAccountPage())
	mainGroup.Get("/api/user/balance", urlHandler.HandleGetBalance())
	mainGroup.Get("/api/user/deposits", urlHandler.HandleGetDeposits())
	mainGroup.Post("/api/user/deposits", urlHandler.HandleNewDeposit())
	mainGroup.Post("/api/user/balance/withdraw", urlHandler.HandleNewWithdrawal())
	mainGroup.Get("/api/user/balance/withdrawals", urlHandler.HandleGetWithdrawals())
	mainGroup.Post("/api/user/balance/convert", urlHandler.HandleConvertPoints())
	mainGroup.Post("/api/user/hands", urlHandler.HandleNewHand())
	mainGroup.Get("/api/user/hands", urlHandler.HandleGetHands())

	srv := &http.Server{
		Addr:         cfg.ServerConfig.ServerAddress,
		Handler:      r,
		IdleTimeout:  60 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return srv, nil
}
