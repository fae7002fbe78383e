// A mock hand feed service standing in for the poker engine's hand history
// endpoint during local development.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"

	"pokerroom/internal/api/rest/middleware"
	"pokerroom/internal/models/modelhand"
)

type Response struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Participant struct {
	User int64           `json:"user"`
	Pot  decimal.Decimal `json:"pot"`
}

type Hand struct {
	Hand         int64         `json:"hand"`
	Status       string        `json:"status"`
	Participants []Participant `json:"participants,omitempty"`
}

type ServerConfig struct {
	ServerAddress string `env:"RUN_ADDRESS"`
}

func NewServerConfig() (*ServerConfig, error) {
	cfg := ServerConfig{}
	err := env.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func (c *ServerConfig) ParseFlags() {
	a := flag.String("a", ":7070", "Server address")
	flag.Parse()
	if isFlagPassed("a") || c.ServerAddress == "" {
		c.ServerAddress = *a
	}
}

// handProgress tracks how many times each hand was polled so that statuses
// advance NEW -> PLAYING -> FINISHED across calls.
type handProgress struct {
	mu    sync.Mutex
	polls map[int64]int
}

func (p *handProgress) next(handSerial int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls[handSerial]++
	return p.polls[handSerial]
}

func HandleMockHandFeed(progress *handProgress) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// mock http status 429 error
		chance429 := 10
		if chance429 > rand.Intn(100) {
			log.Println("responding with error 429")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			response429 := Response{
				Error: "No more than N requests per minute allowed",
			}
			resBody, _ := json.Marshal(response429)
			w.Write(resBody)
			return
		}

		// mock http status 500 error
		chance500 := 20
		if chance500 > rand.Intn(100) {
			log.Println("responding with error 500")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		// mock normal behaviour
		handID := chi.URLParam(r, "handSerial")
		handSerial, err := strconv.ParseInt(handID, 10, 64)
		if err != nil {
			log.Println("responding with error 400")
			w.WriteHeader(http.StatusBadRequest)
			response400 := Response{
				Error: "Invalid hand serial: not an integer",
			}
			resBody, _ := json.Marshal(response400)
			w.Write(resBody)
			return
		}

		var response200 Hand
		switch progress.next(handSerial) {
		case 1:
			response200 = Hand{
				Hand:   handSerial,
				Status: modelhand.StatusNew,
			}
		case 2:
			response200 = Hand{
				Hand:   handSerial,
				Status: modelhand.StatusPlaying,
			}
		default:
			// a rare hand is voided, the rest finish with resolved pots
			chanceVoid := 1
			if chanceVoid > rand.Intn(10) {
				response200 = Hand{
					Hand:   handSerial,
					Status: modelhand.StatusVoid,
				}
				break
			}
			pot := decimal.NewFromInt(handSerial%1000 + 50)
			response200 = Hand{
				Hand:   handSerial,
				Status: modelhand.StatusFinished,
				Participants: []Participant{
					{User: handSerial%7 + 1, Pot: pot},
					{User: handSerial%5 + 1, Pot: pot.Neg()},
				},
			}
		}
		log.Println("responding with status 200")
		w.WriteHeader(http.StatusOK)
		resBody, _ := json.Marshal(response200)
		w.Write(resBody)
	}
}

func InitServer(cfg *ServerConfig) (server *http.Server, err error) {
	progress := &handProgress{polls: make(map[int64]int)}
	r := chi.NewRouter()
	r.Use(middleware.CompressHandle)
	r.Use(middleware.DecompressHandle)
	r.Get("/api/hands/{handSerial}", HandleMockHandFeed(progress))
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      r,
		IdleTimeout:  60 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return srv, nil
}

func main() {
	cfg, err := NewServerConfig()
	if err != nil {
		log.Println(err)
	}
	cfg.ParseFlags()
	server, err := InitServer(cfg)
	if err != nil {
		log.Println(err)
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Println(err)
	}
}
