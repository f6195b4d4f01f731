package main

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"cardkeep/internal/collection"
	"cardkeep/internal/config"
	"cardkeep/internal/identify"
	"cardkeep/internal/scanner"
	"cardkeep/internal/staging"
)

const staleSessionAge = 30 * 24 * time.Hour

func newScanCommand(ctx *commandContext) *cobra.Command {
	var (
		collectionName string
		condition      string
		storage        string
		languageFlag   string
		quantity       int
	)

	cmd := &cobra.Command{
		Use:   "scan IMAGE [IMAGE...]",
		Short: "Identify card images and stage the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			session, err := ctx.openSession(collectionName)
			if err != nil {
				return err
			}
			staging.CleanStale(cmd.Context(), cfg.Paths.StagingDir, staleSessionAge, logger)

			defaults, err := scanDefaults(cfg, condition, languageFlag, storage, quantity)
			if err != nil {
				return err
			}

			embedder := newSidecarEmbedder()
			matcher := identify.NewMatcher(store, identify.MatcherOptions{
				ArtMatchThreshold: cfg.Scanner.ArtMatchThreshold,
				MinMatchScore:     cfg.Scanner.MinMatchScore,
				Logger:            logger,
			})
			policy := identify.Policy{AmbiguityThreshold: cfg.Scanner.AmbiguityThreshold}
			pipeline := scanner.NewPipeline(buildTracks(cfg, embedder), matcher, policy, logger)

			// The event loop below can sit at the ambiguity prompt while
			// the worker keeps finishing items, so the hub must buffer
			// the whole batch or later scan_finished events are lost.
			worker := scanner.NewWorker(scanner.WorkerOptions{
				Pipeline:      pipeline,
				Catalog:       store,
				Stager:        session,
				Hub:           scanner.NewBatchHub(len(args)),
				Notifier:      ctx.notifier(),
				Logger:        logger,
				QueueCapacity: cfg.Scanner.QueueCapacity,
			})
			events, cancelEvents := worker.Events().Subscribe()
			defer cancelEvents()

			images := map[string]string{}
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read image %s: %w", path, err)
				}
				embedder.loadSidecar(path, data)

				handle, err := worker.Enqueue(scanner.ScanRequest{Image: data, Defaults: defaults})
				if err != nil {
					return fmt.Errorf("enqueue %s: %w", path, err)
				}
				images[handle] = path
			}

			worker.Start(cmd.Context())
			defer worker.Stop()

			interactive := isatty.IsTerminal(os.Stdin.Fd())
			pending := len(images)
			for pending > 0 {
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case event := <-events:
					if event.Type != scanner.EventScanFinished {
						continue
					}
					pending--
					if err := reportOutcome(cmd, worker, event, images[event.RequestID], interactive); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&collectionName, "collection", "main", "Collection to stage scans for")
	cmd.Flags().StringVar(&condition, "condition", "", "Card condition (defaults from config)")
	cmd.Flags().StringVar(&storage, "storage", "", "Storage location (defaults from config)")
	cmd.Flags().StringVar(&languageFlag, "language", "", "Card language override")
	cmd.Flags().IntVar(&quantity, "quantity", 1, "Copies per matched scan")

	return cmd
}

func scanDefaults(cfg *config.Config, condition, language, storage string, quantity int) (scanner.ScanDefaults, error) {
	if condition == "" {
		condition = cfg.Defaults.Condition
	}
	parsed, ok := collection.ParseCondition(condition)
	if !ok {
		return scanner.ScanDefaults{}, fmt.Errorf("unknown condition %q", condition)
	}
	if language == "" {
		language = cfg.Defaults.Language
	}
	if storage == "" {
		storage = cfg.Defaults.Storage
	}
	return scanner.ScanDefaults{
		Condition: parsed,
		Language:  language,
		Storage:   storage,
		Quantity:  quantity,
	}, nil
}

func buildTracks(cfg *config.Config, embedder *sidecarEmbedder) []scanner.Track {
	recognizer := &scanner.TesseractRecognizer{}

	var tracks []scanner.Track
	if cfg.TrackActive(scanner.TrackSetCode) {
		tracks = append(tracks, &scanner.SetCodeTrack{Recognizer: recognizer})
	}
	if cfg.TrackActive(scanner.TrackName) {
		tracks = append(tracks, &scanner.NameTrack{Recognizer: recognizer})
	}
	if cfg.TrackActive(scanner.TrackStats) {
		tracks = append(tracks, &scanner.StatsTrack{Recognizer: recognizer})
	}
	if cfg.TrackActive(scanner.TrackArtwork) {
		tracks = append(tracks, &scanner.ArtworkTrack{Embedder: embedder})
	}
	return tracks
}

func reportOutcome(cmd *cobra.Command, worker *scanner.Worker, event scanner.Event, imagePath string, interactive bool) error {
	out := cmd.OutOrStdout()
	outcome := event.Outcome

	switch outcome.Status {
	case scanner.StatusMatched:
		best := outcome.Best
		fmt.Fprintf(out, "%s: matched %s (%s, score %.0f)\n", imagePath, best.Card.Name, best.Printing.SetCode, best.Score)
		return nil
	case scanner.StatusFailed:
		fmt.Fprintf(out, "%s: failed (%s) %s\n", imagePath, outcome.Failure, outcome.FailureCause)
		return nil
	}

	fmt.Fprintf(out, "%s: ambiguous (%s), %d candidates\n", imagePath, outcome.Reason, len(outcome.Choices))
	rows := make([][]string, 0, len(outcome.Choices))
	for i, choice := range outcome.Choices {
		kind := ""
		if choice.Virtual {
			kind = "new printing"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			choice.Card.Name,
			choice.Printing.SetCode,
			choice.Printing.Rarity,
			fmt.Sprintf("%.0f", choice.Score),
			kind,
		})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "Card", "Set", "Rarity", "Score", ""}, rows, 0, 4))

	if !interactive {
		fmt.Fprintln(out, "no terminal attached; scan left unresolved")
		return nil
	}
	choice, err := promptChoice(cmd, len(outcome.Choices))
	if err != nil {
		return err
	}
	if choice < 0 {
		if err := worker.Resolve(cmd.Context(), event.RequestID, nil); err != nil {
			return err
		}
		fmt.Fprintln(out, "dismissed")
		return nil
	}
	selected := outcome.Choices[choice]
	if err := worker.Resolve(cmd.Context(), event.RequestID, &selected); err != nil {
		return err
	}
	fmt.Fprintf(out, "staged %s (%s)\n", selected.Card.Name, selected.Printing.SetCode)
	return nil
}

func promptChoice(cmd *cobra.Command, count int) (int, error) {
	reader := bufio.NewReader(cmd.InOrStdin())
	for {
		fmt.Fprintf(cmd.OutOrStdout(), "choose candidate [1-%d, s to skip]: ", count)
		line, err := reader.ReadString('\n')
		if err != nil {
			return -1, fmt.Errorf("read choice: %w", err)
		}
		trimmed := strings.TrimSpace(line)
		if strings.EqualFold(trimmed, "s") {
			return -1, nil
		}
		index, err := strconv.Atoi(trimmed)
		if err == nil && index >= 1 && index <= count {
			return index - 1, nil
		}
	}
}

// sidecarEmbedder serves artwork embeddings from optional JSON files
// next to the scanned images ("<image>.embedding.json"), keyed by the
// image digest so the embedder can look them up from raw bytes.
type sidecarEmbedder struct {
	byDigest map[string][]float64
}

func newSidecarEmbedder() *sidecarEmbedder {
	return &sidecarEmbedder{byDigest: make(map[string][]float64)}
}

func (s *sidecarEmbedder) loadSidecar(imagePath string, image []byte) {
	data, err := os.ReadFile(imagePath + ".embedding.json")
	if err != nil {
		return
	}
	var embedding []float64
	if err := json.Unmarshal(data, &embedding); err != nil {
		return
	}
	s.byDigest[imageDigest(image)] = embedding
}

func (s *sidecarEmbedder) EmbedArtwork(_ context.Context, image []byte) ([]float64, error) {
	return s.byDigest[imageDigest(image)], nil
}

func imageDigest(image []byte) string {
	sum := sha1.Sum(image)
	return hex.EncodeToString(sum[:])
}
