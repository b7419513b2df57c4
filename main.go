package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"murmur/backend"
	"murmur/chat"
	"murmur/config"
	"murmur/model"
	"murmur/storage"
	"murmur/store"
	"murmur/title"
)

const Version = "v0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	backendType := backend.MapBackendID(cfg.Backend)

	apiKey := os.Getenv("MURMUR_API_KEY")
	if apiKey == "" {
		creds := config.NewCredentialStore(config.SecurityPlainText, "")
		if err := creds.Load(cfg.DataDir); err == nil {
			apiKey = creds.Get(cfg.Backend)
		}
	}

	be, err := backend.New(backend.Config{
		Type:     backendType,
		Endpoint: cfg.Endpoint,
		APIKey:   apiKey,
		ProxyURL: proxyURLFor(backendType, cfg),
		Timeout:  cfg.RequestTimeout(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create backend: %v\n", err)
		os.Exit(1)
	}

	var archive *storage.Archive
	if cfg.ArchiveEnabled {
		archive, err = storage.NewArchive(cfg.DataDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open archive: %v\n", err)
			os.Exit(1)
		}
		defer archive.Close()
	}

	var titler title.Generator
	if cfg.TitleEnabled {
		titler, err = title.NewOllamaGenerator(cfg.TitleHost, cfg.TitleModel)
		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[main] title generator unavailable: %v", err)
			}
			titler = nil
		}
	}

	conversations := store.NewConversationStore()
	controller := chat.NewController(conversations, be, titler, archive, chat.Options{
		SystemPrompt: cfg.SystemPrompt,
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
	})

	runREPL(controller, cfg.DefaultModel)
}

func proxyURLFor(t backend.Type, cfg *config.Config) string {
	switch t {
	case backend.TypeWorker:
		return cfg.WorkerURL
	case backend.TypeEdge:
		return cfg.EdgeURL
	default:
		return ""
	}
}

// runREPL is a minimal line-oriented front end. Streaming output is
// printed incrementally by diffing the assistant tail on each
// observer callback. The observer always runs under the controller's
// lock, so printed/printedID need no synchronization of their own as
// long as nothing else touches them; store reads from the REPL loop go
// through the controller's snapshot accessors for the same reason.
func runREPL(controller *chat.Controller, modelID string) {
	fmt.Printf("murmur %s (model %s). /help for commands.\n", Version, modelID)

	printed := 0
	printedID := ""
	controller.SetObserver(func() {
		conv := controller.Store().Selected()
		if conv == nil || len(conv.Messages) == 0 {
			return
		}
		last := conv.Messages[len(conv.Messages)-1]
		if last.Role != model.RoleAssistant {
			return
		}
		if last.ID != printedID {
			printedID = last.ID
			printed = 0
		}
		if len(last.Content) > printed {
			fmt.Print(last.Content[printed:])
			printed = len(last.Content)
		}
	})

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit", line == "/exit":
			return
		case line == "/help":
			fmt.Println("/new  /list  /select <id>  /delete <id>  /search <query>  /quit")
		case line == "/new":
			fmt.Printf("created %s\n", controller.NewConversation())
		case line == "/list":
			for _, conv := range controller.ListConversations() {
				fmt.Printf("%s  %s (%d messages)\n", conv.ID, conv.Title, conv.MessageCount)
			}
		case strings.HasPrefix(line, "/select "):
			controller.SelectConversation(strings.TrimSpace(strings.TrimPrefix(line, "/select ")))
		case strings.HasPrefix(line, "/delete "):
			controller.DeleteConversation(strings.TrimSpace(strings.TrimPrefix(line, "/delete ")))
		case strings.HasPrefix(line, "/search "):
			query := strings.TrimSpace(strings.TrimPrefix(line, "/search "))
			for _, conv := range controller.SearchConversations(query) {
				fmt.Printf("%s  %s\n", conv.ID, conv.Title)
			}
		default:
			controller.Submit(context.Background(), line, modelID)
			fmt.Println()
		}
	}
}
