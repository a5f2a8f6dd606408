// Command loomgate runs the narrative gating engine as an interactive
// console: each line is processed as a user turn and answered with the
// gate verdict and the updated state.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"loomgate/internal/config"
	"loomgate/internal/engine"
	"loomgate/internal/event"
	"loomgate/internal/logging"
	"loomgate/internal/oracle"
	"loomgate/internal/pattern"
	"loomgate/internal/store"
)

// #region main
func main() {
	userID := flag.String("user", "local", "user id for this session")
	flag.Parse()

	// Missing .env is fine; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	st, err := store.Open(cfg.DB.Path)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer st.Close()

	var classifier pattern.Oracle
	if cfg.Oracle.APIKey != "" {
		classifier, err = oracle.NewGemini(context.Background(), oracle.Config{
			APIKey:      cfg.Oracle.APIKey,
			Model:       cfg.Oracle.Model,
			Temperature: float32(cfg.Oracle.Temperature),
		})
		if err != nil {
			logger.Fatal("init oracle", zap.Error(err))
		}
	} else {
		logger.Warn("LOOM_ORACLE_API_KEY not set, pattern detection disabled")
	}

	detector := pattern.NewDetector(st, classifier, logger, pattern.Config{
		HistoryLimit:      cfg.Detector.HistoryLimit,
		StrengthThreshold: cfg.Detector.StrengthThreshold,
		Timeout:           time.Duration(cfg.Detector.TimeoutSecs) * time.Second,
		EvidenceLimit:     cfg.Detector.EvidenceLimit,
	})
	eng := engine.New(st, detector, logger, engine.Config{
		NoveltyWindow:  cfg.Engine.NoveltyWindow,
		RepeatWindow:   time.Duration(cfg.Engine.RepeatWindowHrs) * time.Hour,
		DormancyStreak: cfg.Engine.DormancyStreak,
	})

	fmt.Println("Loom gate ready.")
	fmt.Printf("  DB: %s | user: %s | oracle: %s\n", cfg.DB.Path, *userID, oracleStatus(classifier, cfg.Oracle.Model))
	fmt.Println("Type a message, '/mask light|dark', '/state', or 'quit':")

	repl(eng, *userID)
}

// #endregion main

// #region repl
func repl(eng *engine.Engine, userID string) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		switch {
		case strings.HasPrefix(line, "/mask "):
			mask, err := event.ParseMask(strings.TrimSpace(strings.TrimPrefix(line, "/mask ")))
			if err != nil {
				fmt.Printf("error: %v\n", err)
				break
			}
			if err := eng.SwitchMask(ctx, userID, mask); err != nil {
				fmt.Printf("error: %v\n", err)
				break
			}
			fmt.Printf("mask -> %s\n", mask)

		case line == "/state":
			snap, err := eng.GetState(ctx, userID)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				break
			}
			printState(snap)

		default:
			gate, err := eng.Process(ctx, userID, line)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				break
			}
			fmt.Printf("[gate] %s\n", gate)
		}
		cancel()
	}
}

func printState(st event.LoomState) {
	fmt.Printf("entropy=%.3f silence_streak=%d dormancy=%v dependency_risk=%.3f mask=%s (light=%.2f dark=%.2f) v%d\n",
		st.Entropy, st.SilenceStreak, st.Dormancy, st.DependencyRisk,
		st.ActiveMask, st.MaskWeights.Light, st.MaskWeights.Dark, st.Version)
}

func oracleStatus(o pattern.Oracle, model string) string {
	if o == nil {
		return "disabled"
	}
	return model
}

// #endregion repl
