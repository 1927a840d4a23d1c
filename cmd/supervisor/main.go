package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kitsu-vt/orchestrator/pkg/supervisor"
)

type stdLogger struct{}

func (stdLogger) Debug(msg string, args ...interface{}) { log.Println(append([]interface{}{"DEBUG", msg}, args...)...) }
func (stdLogger) Info(msg string, args ...interface{})  { log.Println(append([]interface{}{"INFO", msg}, args...)...) }
func (stdLogger) Warn(msg string, args ...interface{})  { log.Println(append([]interface{}{"WARN", msg}, args...)...) }
func (stdLogger) Error(msg string, args ...interface{}) { log.Println(append([]interface{}{"ERROR", msg}, args...)...) }

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, using system environment variables")
	}

	servicesPath := os.Getenv("SERVICES_CONFIG")
	if servicesPath == "" {
		servicesPath = "config/services.yaml"
	}

	specs, disabled, err := supervisor.LoadConfig(servicesPath)
	if err != nil {
		log.Fatalf("Error: failed to load services config: %v", err)
	}

	sup := supervisor.New(specs, disabled, stdLogger{})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Supervising %d service(s) from %s\n", len(specs), servicesPath)
	fmt.Println("Press Ctrl+C to exit")

	if err := sup.Run(ctx); err != nil {
		log.Printf("supervisor exited with error: %v", err)
	}
	fmt.Println("\nAll supervised services stopped.")
}
