// Package client implements a client for querying hand results from the hand feed service.
package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"pokerroom/internal/config"
)

// Client defines attributes of a struct available to its methods.
type Client struct {
	client       *resty.Client
	serverConfig *config.ServerConfig
	log          *zerolog.Logger
}

// InitClient initializes a resty client.
func InitClient(serverConfig *config.ServerConfig, log *zerolog.Logger) *Client {
	feedClient := resty.New()
	log.Info().Msg("hand feed client initialized")
	return &Client{client: feedClient, serverConfig: serverConfig, log: log}
}

// GetHandResult executes a hand result retrieval query for a given hand serial.
func (c *Client) GetHandResult(ctx context.Context, handSerial int64) (*resty.Response, error) {
	c.log.Info().Msg(fmt.Sprintf("sending request for hand %v", handSerial))
	response, err := c.client.R().SetContext(ctx).SetPathParams(map[string]string{"handSerial": strconv.FormatInt(handSerial, 10)}).Get(c.serverConfig.HandFeedAddress + "/api/hands/{handSerial}")
	if err != nil {
		c.log.Err(err).Msg(fmt.Sprintf("hand result retrieval from feed failed for hand %v", handSerial))
		return nil, err
	}
	return response, nil
}
