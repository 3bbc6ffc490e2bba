package api

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// APIServer wraps the Fiber application
type APIServer struct {
	app           *fiber.App
	listenAddress string
}

// NewAPIServer creates a new API server listening on the given address
func NewAPIServer(listenAddress string) *APIServer {
	return &APIServer{
		app:           fiber.New(fiber.Config{BodyLimit: 512 * 1024 * 1024}),
		listenAddress: listenAddress,
	}
}

// GetEngine returns the underlying Fiber application
func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

// Run starts serving requests
func (s *APIServer) Run() error {
	log.Println("Starting API Server")
	log.Printf("Listening on %s", s.listenAddress)

	return s.app.Listen(s.listenAddress)
}

// Shutdown gracefully stops the server
func (s *APIServer) Shutdown() error {
	return s.app.Shutdown()
}
