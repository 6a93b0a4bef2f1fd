// kalm-admin drives the capabilities that are deliberately not reachable from
// the message pipeline: cloning a caller's voice into ElevenLabs, inspecting
// the voice store, and managing the Telegram webhook registration.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"kalm/internal/config"
	"kalm/internal/platform/telegram"
	"kalm/internal/voice"
	"kalm/internal/voicestore"
)

func main() {
	envFile := flag.String("env-file", ".env", "env file to load before reading configuration")
	flag.Parse()

	_ = godotenv.Load(*envFile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	args := flag.Args()
	if len(args) < 2 {
		printUsage()
		os.Exit(2)
	}

	ctx := context.Background()

	switch args[0] {
	case "voice":
		runVoice(ctx, cfg, args[1], args[2:])
	case "webhook":
		runWebhook(ctx, cfg, args[1], args[2:])
	default:
		printUsage()
		os.Exit(2)
	}
}

func runVoice(ctx context.Context, cfg *config.Config, sub string, args []string) {
	store, err := voicestore.New(cfg.DataDir)
	if err != nil {
		log.Fatalf("open voice store: %v", err)
	}

	switch sub {
	case "clone":
		if len(args) != 3 {
			printUsage()
			os.Exit(2)
		}
		samplePath, userID, name := args[0], args[1], args[2]

		sample, err := os.ReadFile(samplePath)
		if err != nil {
			log.Fatalf("read sample: %v", err)
		}

		tts := voice.NewElevenLabsClient(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoiceID)
		voiceID, err := tts.CloneVoice(ctx, sample, name)
		if err != nil {
			log.Fatalf("clone voice: %v", err)
		}
		if err := store.Save(userID, voiceID); err != nil {
			log.Fatalf("save voice record: %v", err)
		}
		fmt.Printf("cloned voice %s for user %s\n", voiceID, userID)
	case "get":
		if len(args) != 1 {
			printUsage()
			os.Exit(2)
		}
		voiceID, ok, err := store.Get(args[0])
		if err != nil {
			log.Fatalf("get voice record: %v", err)
		}
		if !ok {
			fmt.Printf("no cloned voice for user %s\n", args[0])
			return
		}
		fmt.Println(voiceID)
	case "delete":
		if len(args) != 1 {
			printUsage()
			os.Exit(2)
		}
		deleted, err := store.Delete(args[0])
		if err != nil {
			log.Fatalf("delete voice record: %v", err)
		}
		if !deleted {
			fmt.Printf("no cloned voice for user %s\n", args[0])
			return
		}
		fmt.Printf("deleted voice record for user %s\n", args[0])
	default:
		printUsage()
		os.Exit(2)
	}
}

func runWebhook(ctx context.Context, cfg *config.Config, sub string, args []string) {
	tg := telegram.NewClient(cfg.TelegramBotToken)

	switch sub {
	case "set":
		if len(args) != 1 {
			printUsage()
			os.Exit(2)
		}
		result, err := tg.SetWebhook(ctx, args[0])
		if err != nil {
			log.Fatalf("set webhook: %v", err)
		}
		fmt.Println(string(result))
	case "delete":
		result, err := tg.DeleteWebhook(ctx)
		if err != nil {
			log.Fatalf("delete webhook: %v", err)
		}
		fmt.Println(string(result))
	default:
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Println("usage:")
	fmt.Println("  kalm-admin [-env-file .env] voice clone <sample.ogg> <telegram-user-id> <name>")
	fmt.Println("  kalm-admin [-env-file .env] voice get <telegram-user-id>")
	fmt.Println("  kalm-admin [-env-file .env] voice delete <telegram-user-id>")
	fmt.Println("  kalm-admin [-env-file .env] webhook set <url>")
	fmt.Println("  kalm-admin [-env-file .env] webhook delete")
}
