package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"affection-tracker/internal/db"
	"affection-tracker/internal/domain"
	"affection-tracker/internal/repository"
	"affection-tracker/internal/service"
)

const (
	cliSubject       = "user"
	chatHistoryLimit = 10
)

var (
	chatDBPath       string
	chatSession      string
	chatCounterparts []string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive loop: type counterpart lines and watch affection move",
	Long: `Each input line is "<counterpart-id>: <message>". Lines starting with
"narrator:" are classified but never change affection. Commands:
/state prints the affection map, /history the last turns, /quit exits.
State and turn history persist in SQLite.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()
		defer logger.Sync()

		eng, err := loadEngine(logger)
		if err != nil {
			return err
		}
		dbPath := chatDBPath
		if dbPath == "" {
			dbPath = eng.cfg.SQLitePath
		}
		conn, err := db.OpenSQLite(dbPath)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		defer conn.Close()

		store := repository.NewSQLiteStateRepository(conn)
		history := service.NewTurnHistoryService(repository.NewSQLiteTurnReportRepository(conn))
		turns := service.NewTurnService(eng.classifier, eng.pipeline, eng.directives, store, nil, logger).
			WithHistory(history)

		counterparts := make([]domain.Counterpart, 0, len(chatCounterparts))
		for _, raw := range chatCounterparts {
			id, name, _ := strings.Cut(raw, "=")
			counterparts = append(counterparts, domain.Counterpart{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name)})
		}
		view, err := turns.OpenSession(ctx, chatSession, []string{cliSubject}, counterparts)
		if err != nil {
			return err
		}
		fmt.Printf("session %s (%d counterparts)\n", view.ID, len(view.Counterparts))

		reader := bufio.NewReader(os.Stdin)
		for {
			out, err := turns.BeforePrompt(ctx, view.ID)
			if err != nil {
				return err
			}
			if out.Directives != "" {
				fmt.Println("---")
				fmt.Println(out.Directives)
			}
			fmt.Print("> ")

			line, err := reader.ReadString('\n')
			line = strings.TrimSpace(line)
			if line == "" && err != nil {
				return nil
			}
			switch line {
			case "":
				continue
			case "/quit", "/exit":
				return nil
			case "/state":
				state, err := turns.State(ctx, view.ID)
				if err != nil {
					return err
				}
				for _, rec := range state.Records {
					fmt.Printf("  %s: %d\n", rec.Key.CounterpartID, rec.Score)
				}
				continue
			case "/history":
				reports, err := turns.History(ctx, view.ID, chatHistoryLimit)
				if err != nil {
					return err
				}
				for _, r := range reports {
					fmt.Println("  " + describeReport(r))
				}
				continue
			}

			speaker, content, ok := strings.Cut(line, ":")
			if !ok {
				fmt.Println(`expected "<counterpart-id>: <message>"`)
				continue
			}
			speaker = strings.TrimSpace(speaker)
			msg := domain.TurnMessage{
				SessionID:    view.ID,
				SubjectID:    cliSubject,
				AnonymizedID: speaker,
				Name:         speaker,
				Content:      strings.TrimSpace(content),
			}
			outcome, err := turns.AfterResponse(ctx, msg, nil)
			if err != nil {
				return err
			}
			fmt.Println(outcome.Report.DiagnosticLog)
		}
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatDBPath, "db", "", "SQLite file for session state (default from SQLITE_PATH)")
	chatCmd.Flags().StringVar(&chatSession, "session", "cli", "session id")
	chatCmd.Flags().StringSliceVar(&chatCounterparts, "counterpart", nil, "known counterpart as id or id=Name (repeatable)")
}

func cliKey(counterpartID string) domain.RelationshipKey {
	return domain.RelationshipKey{SubjectID: cliSubject, CounterpartID: counterpartID}
}

func stateWith(key domain.RelationshipKey, score int) domain.AffectionState {
	state := domain.AffectionState{}
	state.Set(key, score)
	return state
}

func describeReport(r domain.TurnReport) string {
	if r.Skipped {
		return fmt.Sprintf("#%d %s: skipped (%s)", r.TurnSeq, r.Speaker, r.SkipReason)
	}
	return fmt.Sprintf("#%d %s: %+d (%d -> %d)", r.TurnSeq, r.Speaker, r.Delta, r.PreviousScore, r.NewScore)
}
