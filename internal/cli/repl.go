package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/hession/daymate/internal/config"
	"github.com/hession/daymate/internal/guide"
	"github.com/hession/daymate/internal/llm"
	"github.com/hession/daymate/internal/memory"
)

const (
	Version = "0.1.0"

	// defaultUserID single-user CLI deployment
	defaultUserID = "local"

	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// Run starts the interactive reflection session
func Run(cfg *config.Config) error {
	printWelcome(cfg)

	if !cfg.IsAPIKeyConfigured() {
		configPath, _ := config.ConfigPath()
		fmt.Printf("%s⚠ No API key configured. Set DAYMATE_API_KEY or edit %s%s\n",
			colorYellow, configPath, colorReset)
		fmt.Printf("%sThe session will use built-in prompts only; diary generation needs a model.%s\n\n",
			colorGray, colorReset)
	}

	var chatClient guide.ChatClient
	if cfg.IsAPIKeyConfigured() {
		chatClient = llm.New(
			cfg.Model.APIKey,
			cfg.Model.BaseURL,
			cfg.Model.Model,
			cfg.Model.Temperature,
			cfg.Model.MaxTokens,
			cfg.Model.Timeout(),
		)
	}

	var embedder memory.Embedder
	if cfg.Embedding.APIKey != "" {
		embedder = memory.NewOpenAIEmbedder(
			cfg.Embedding.APIKey,
			cfg.Embedding.BaseURL,
			cfg.Embedding.Model,
			cfg.Embedding.Dimension,
			cfg.Embedding.MaxRetries,
			cfg.Embedding.Timeout(),
		)
	}

	memStore, err := memory.NewSQLiteStore(cfg.Memory.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize memory store: %w", err)
	}
	defer memStore.Close()

	sessionStore, err := guide.NewSQLiteStore(cfg.Session.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}
	defer sessionStore.Close()

	engine := guide.NewEngine(sessionStore, memStore, embedder, chatClient,
		cfg.Memory.OverwriteThreshold, cfg.Memory.RetrievalLimit,
		guide.Config{
			Language:      cfg.Session.Language,
			CharacterName: cfg.Session.CharacterName,
			Tone:          cfg.Session.Tone,
			HistoryWindow: cfg.Session.HistoryWindow,
		})

	return runREPL(engine, memStore, cfg)
}

func printWelcome(cfg *config.Config) {
	fmt.Printf("\n%s📔 DayMate v%s%s - Your Reflective Journaling Companion\n", colorCyan, Version, colorReset)
	fmt.Printf("%sType /help for commands, /exit to quit%s\n\n", colorGray, colorReset)
}

func getHistoryFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	historyDir := filepath.Join(homeDir, ".daymate")
	if err := os.MkdirAll(historyDir, 0755); err != nil {
		return ""
	}
	return filepath.Join(historyDir, "history")
}

// runREPL runs the interactive loop with readline support
func runREPL(engine *guide.Engine, memStore memory.Store, cfg *config.Config) error {
	rlConfig := &readline.Config{
		Prompt:          fmt.Sprintf("%sYou: %s", colorGreen, colorReset),
		HistoryFile:     getHistoryFilePath(),
		HistoryLimit:    1000,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:      true,
		DisableAutoSaveHistory: false,
	}

	rl, err := readline.NewEx(rlConfig)
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Printf("\n\n%sGoodbye! 👋%s\n", colorCyan, colorReset)
		cancel()
		rl.Close()
		os.Exit(0)
	}()

	memCommands := NewMemoryCommands(memStore, defaultUserID, cfg.Session.Language)

	// Open or resume today's session
	session, err := engine.StartSession(ctx, defaultUserID, cfg.Session.Language)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	fmt.Printf("%s%s: %s%s\n\n", colorBlue, cfg.Session.CharacterName,
		guide.Greeting(session.Language, cfg.Session.CharacterName), colorReset)

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				fmt.Printf("\n%sPress Ctrl+C again or type /exit to quit%s\n", colorYellow, colorReset)
				continue
			}
			if err == io.EOF {
				fmt.Printf("\n%sGoodbye! 👋%s\n", colorCyan, colorReset)
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			done, newSession := handleCommand(ctx, input, engine, memCommands, session, cfg)
			if done {
				return nil
			}
			if newSession != nil {
				session = newSession
			}
			continue
		}

		session = processMessage(ctx, engine, session, input, cfg)
	}
}

// processMessage sends a message to the engine and prints the reply
func processMessage(ctx context.Context, engine *guide.Engine, session *guide.Session, input string, cfg *config.Config) *guide.Session {
	reply, err := engine.SendMessage(ctx, session.ID, input, session.Language)
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrUnavailable):
			fmt.Printf("\n%s⚠ The model is unavailable right now. Your answers are saved — just send another message to retry.%s\n\n",
				colorYellow, colorReset)
		case errors.Is(err, guide.ErrSessionNotFound):
			fmt.Printf("\n%s⚠ Session expired. Use /new to start a fresh one.%s\n\n", colorYellow, colorReset)
		case errors.Is(err, guide.ErrSessionComplete):
			fmt.Printf("\n%s✓ Today's diary is already written. Use /new to start over, or /diary to read it.%s\n\n",
				colorCyan, colorReset)
		default:
			fmt.Printf("\n%s❌ Error: %v%s\n\n", colorRed, err, colorReset)
		}
		return session
	}

	if reply.IsCrisis {
		fmt.Printf("\n%s%s: %s%s\n\n", colorRed, cfg.Session.CharacterName, reply.Response, colorReset)
		return session
	}

	fmt.Printf("\n%s%s: %s%s\n\n", colorBlue, cfg.Session.CharacterName, reply.Response, colorReset)

	if reply.IsComplete && reply.Diary != nil {
		fmt.Printf("%s——— Today's Diary ———%s\n%s\n%s—————————————%s\n\n",
			colorCyan, colorReset, reply.Diary.Content, colorCyan, colorReset)
		fmt.Printf("%sUse /edit <text> to revise it, or /new to start another session.%s\n\n",
			colorGray, colorReset)
	}

	return session
}

// handleCommand handles built-in commands
// Returns (exit, replacement session)
func handleCommand(ctx context.Context, cmd string, engine *guide.Engine,
	memCommands *MemoryCommands, session *guide.Session, cfg *config.Config) (bool, *guide.Session) {

	parts := strings.Fields(cmd)
	name := parts[0]

	switch name {
	case "/exit", "/quit":
		fmt.Printf("%sGoodbye! 👋%s\n", colorCyan, colorReset)
		return true, nil

	case "/help":
		printHelp()
		return false, nil

	case "/new":
		fresh, err := engine.StartFresh(ctx, defaultUserID, session.Language)
		if err != nil {
			fmt.Printf("%s❌ Failed to start fresh: %v%s\n", colorRed, err, colorReset)
			return false, nil
		}
		fmt.Printf("\n%s%s: %s%s\n\n", colorBlue, cfg.Session.CharacterName,
			guide.Greeting(fresh.Language, cfg.Session.CharacterName), colorReset)
		return false, fresh

	case "/memory":
		fmt.Println(memCommands.Stats())
		return false, nil

	case "/memories":
		fmt.Println(memCommands.List())
		return false, nil

	case "/conflicts":
		fmt.Println(memCommands.Conflicts())
		return false, nil

	case "/diary":
		printDiary(ctx, engine, session)
		return false, nil

	case "/edit":
		text := strings.TrimSpace(strings.TrimPrefix(cmd, "/edit"))
		if text == "" {
			fmt.Printf("%sUsage: /edit <new diary text>%s\n", colorGray, colorReset)
			return false, nil
		}
		entry, err := engine.EditDiary(ctx, session.ID, text)
		if err != nil {
			fmt.Printf("%s❌ Failed to edit diary: %v%s\n", colorRed, err, colorReset)
			return false, nil
		}
		fmt.Printf("%s✓ Diary updated to version %d%s\n", colorCyan, entry.Version, colorReset)
		return false, nil

	default:
		fmt.Printf("%sUnknown command: %s (see /help)%s\n", colorGray, name, colorReset)
		return false, nil
	}
}

func printDiary(ctx context.Context, engine *guide.Engine, session *guide.Session) {
	entry, err := engine.LatestDiary(ctx, session.ID)
	if err != nil {
		fmt.Printf("%sNo diary yet for this session. Answer the questions or say \"generate\".%s\n",
			colorGray, colorReset)
		return
	}
	fmt.Printf("%s——— Diary (v%d) ———%s\n%s\n", colorCyan, entry.Version, colorReset, entry.Content)
}

func printHelp() {
	fmt.Printf(`
%sCommands:%s
  /help       Show this help
  /new        Discard the current session and start fresh
  /memory     Show memory statistics
  /memories   List what I remember about you
  /conflicts  Show remembered facts awaiting clarification
  /diary      Show the latest diary for this session
  /edit <t>   Replace the diary text (creates a new version)
  /exit       Quit

%sJust type naturally to answer the daily reflection questions.
Say "generate my diary" at any point to skip ahead.%s
`, colorCyan, colorReset, colorGray, colorReset)
}
