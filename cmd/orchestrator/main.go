package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	memsqlite "github.com/kitsu-vt/orchestrator/pkg/memory/sqlite"
	"github.com/kitsu-vt/orchestrator/pkg/orchestrator"
	policyProvider "github.com/kitsu-vt/orchestrator/pkg/providers/policy"
	ttsProvider "github.com/kitsu-vt/orchestrator/pkg/providers/tts"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, using system environment variables")
	}

	policyURL := os.Getenv("POLICY_WORKER_URL")
	if policyURL == "" {
		policyURL = "http://127.0.0.1:8102/invoke"
	}
	policyKey := os.Getenv("POLICY_WORKER_API_KEY")

	ttsProviderName := os.Getenv("TTS_PROVIDER")
	if ttsProviderName == "" {
		ttsProviderName = "http"
	}
	ttsURL := os.Getenv("TTS_WORKER_URL")
	ttsHost := os.Getenv("TTS_WORKER_HOST")
	ttsKey := os.Getenv("TTS_WORKER_API_KEY")

	personaPath := os.Getenv("PERSONA_CONFIG")
	if personaPath == "" {
		personaPath = "config/personas.yaml"
	}
	defaultPreset := os.Getenv("DEFAULT_PRESET")

	memoryPath := os.Getenv("MEMORY_DB_PATH")
	if memoryPath == "" {
		memoryPath = "conversation_memory.db"
	}

	cfg := orchestrator.DefaultConfig()

	personas, fallbackPreset, err := loadPersonaConfig(personaPath)
	if err != nil {
		log.Fatalf("Error: failed to load persona config: %v", err)
	}
	if defaultPreset == "" {
		defaultPreset = fallbackPreset
	}

	store, err := memsqlite.Open(memoryPath)
	if err != nil {
		log.Fatalf("Error: failed to open conversation memory store: %v", err)
	}
	defer store.Close()

	var tts orchestrator.TTSClient
	switch ttsProviderName {
	case "streamws":
		if ttsHost == "" {
			log.Fatal("Error: TTS_WORKER_HOST must be set for streamws TTS provider")
		}
		client := ttsProvider.NewStreamWSClient(ttsHost, ttsKey)
		defer client.Close()
		tts = client
	case "http":
		fallthrough
	default:
		if ttsURL == "" {
			log.Fatal("Error: TTS_WORKER_URL must be set for http TTS provider")
		}
		tts = ttsProvider.NewHTTPClient(ttsURL, ttsKey, cfg.TTSTimeout)
	}

	policy := policyProvider.NewHTTPStreamingClient(policyURL, policyKey, cfg.PolicyTimeout)

	broker := orchestrator.NewBroker(cfg.BrokerQueueDepth, nil, nil)
	registry := orchestrator.NewModuleRegistry([]string{
		"asr_worker", "policy_worker", "tts_worker", "avatar_bridge", "obs_bridge", "chat_ingest",
	})
	persona := orchestrator.NewPersonaStore(personas, defaultPreset)
	memory := orchestrator.NewConversationMemory(cfg.MemoryCapacity, cfg.SummaryInterval, store, orchestrator.NewHeuristicSummarizer(0), nil)

	state := orchestrator.NewOrchestratorState(broker, registry, persona, memory, policy, tts, cfg, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := memory.Prepare(ctx, true, cfg.RestoreWindow); err != nil {
		log.Printf("Warning: failed to restore conversation memory: %v", err)
	}

	state.StartBackgroundTasks(ctx)
	defer state.Shutdown()

	fmt.Printf("Configured: Policy=%s | TTS=%s | Persona=%s (default preset %q)\n", policy.Name(), tts.Name(), personaPath, defaultPreset)
	fmt.Println("Conversation core started. Press Ctrl+C to exit.")

	<-ctx.Done()

	fmt.Println("\nShutting down...")
	time.Sleep(50 * time.Millisecond)
}
