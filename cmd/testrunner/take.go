package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"lms_backend/internal/clock"
	"lms_backend/internal/grading"
	"lms_backend/internal/model"
	"lms_backend/internal/session"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var takeCmd = &cobra.Command{
	Use:   "take <assignment-id>",
	Short: "Start or resume a test attempt",
	Long: `Start or resume the attempt for an assignment.

Interactive commands: <enter> next, p previous, g N go to question N,
s save now, f finish and submit, q interrupt and quit. Anything else is
taken as the answer: an option number for single choice, a comma list for
multiple choice, free text otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: runTake,
}

func init() {
	takeCmd.Flags().String("answers", "", "JSON file mapping question id to answer; submits without prompting")
}

func runTake(cmd *cobra.Command, args []string) error {
	assignmentID, err := parseID(args[0])
	if err != nil {
		return err
	}
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	expired := make(chan struct{})
	var once sync.Once
	s := session.New(e.client, clock.Real{},
		session.WithLogger(e.log),
		session.WithSyncConfig(syncConfig(e.cfg.Session)),
		session.WithListener(func(st session.State) {
			if st.Status == session.StatusExpired {
				once.Do(func() { close(expired) })
			}
		}),
	)
	defer func() {
		s.Wait()
		s.Close()
	}()

	out := cmd.OutOrStdout()
	if err := s.Init(ctx, assignmentID); err != nil {
		var ie *session.InitError
		if errors.As(err, &ie) {
			return fmt.Errorf("cannot start test (%s): %w", ie.Reason, ie.Err)
		}
		return err
	}

	st := s.State()
	fmt.Fprintf(out, "%s: %d questions", st.Assignment.Test.Title, st.QuestionsCount())
	if st.Timed {
		fmt.Fprintf(out, ", %s left", st.Countdown.FormattedTime)
	}
	fmt.Fprintln(out)
	if st.Status == session.StatusExpired {
		fmt.Fprintln(out, "Time is already up; the attempt has been closed.")
		return nil
	}

	if file, _ := cmd.Flags().GetString("answers"); file != "" {
		return answerFromFile(ctx, s, file, out)
	}
	return interactive(ctx, s, cmd.InOrStdin(), out, expired, e.log)
}

func answerFromFile(ctx context.Context, s *session.Session, path string, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var answers map[string]json.RawMessage
	if err := json.Unmarshal(data, &answers); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	ids := make([]uint, 0, len(answers))
	raw := make(map[uint]json.RawMessage, len(answers))
	for k, v := range answers {
		id, err := parseID(k)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		raw[id] = v
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := s.Answer(id, raw[id]); err != nil {
			return fmt.Errorf("answer question %d: %w", id, err)
		}
	}
	return finish(ctx, s, out)
}

func interactive(ctx context.Context, s *session.Session, in io.Reader, out io.Writer, expired <-chan struct{}, log *zap.Logger) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		st := s.State()
		if st.Status != session.StatusActive {
			return nil
		}
		printQuestion(out, st)

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			s.Interrupt()
			fmt.Fprintln(out, "\nInterrupted; run take again to resume.")
			return nil
		case <-expired:
			fmt.Fprintln(out, "\nTime is up. Your answers have been submitted for grading.")
			return nil
		case line, ok = <-lines:
			if !ok {
				s.Interrupt()
				return nil
			}
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			s.Next()
		case line == "p":
			s.Prev()
		case strings.HasPrefix(line, "g "):
			n, err := strconv.Atoi(strings.TrimSpace(line[2:]))
			if err != nil {
				fmt.Fprintln(out, "usage: g <question number>")
				continue
			}
			s.Navigate(n - 1)
		case line == "s":
			if err := s.Checkpoint(ctx, session.FlushOptions{}); err != nil {
				fmt.Fprintf(out, "save failed: %v\n", err)
			}
		case line == "f":
			return finish(ctx, s, out)
		case line == "q":
			s.Interrupt()
			fmt.Fprintln(out, "Interrupted; run take again to resume.")
			return nil
		default:
			q, _ := st.CurrentQuestion()
			raw, err := parseAnswer(q, line)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			if err := s.Answer(q.ID, raw); err != nil {
				log.Debug("Answer rejected", zap.Error(err))
				continue
			}
			s.Next()
		}
	}
}

func finish(ctx context.Context, s *session.Session, out io.Writer) error {
	res, err := s.Finish(ctx)
	if res == nil {
		return err
	}
	printResult(out, *res)
	if err != nil {
		fmt.Fprintf(out, "warning: %v\n", err)
	}
	return nil
}

func printQuestion(out io.Writer, st session.State) {
	q, ok := st.CurrentQuestion()
	if !ok {
		return
	}
	fmt.Fprintf(out, "\n[%d/%d]", st.CurrentQuestionIndex+1, st.QuestionsCount())
	if st.Timed {
		fmt.Fprintf(out, " %s left", st.Countdown.FormattedTime)
	}
	fmt.Fprintf(out, "\n%s\n", q.Text)

	var options []string
	_ = json.Unmarshal(q.Options, &options)
	for i, o := range options {
		fmt.Fprintf(out, "  %d) %s\n", i, o)
	}
	if prev, ok := st.Answers[q.ID]; ok {
		fmt.Fprintf(out, "current answer: %s\n", prev)
	}
	fmt.Fprint(out, "> ")
}

// parseAnswer turns a typed line into the JSON answer for q.
func parseAnswer(q model.Question, line string) (json.RawMessage, error) {
	switch q.Type {
	case model.QuestionSingle:
		i, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("enter an option number")
		}
		return json.Marshal(i)
	case model.QuestionMultiple:
		parts := strings.Split(line, ",")
		picks := make([]int, 0, len(parts))
		for _, p := range parts {
			i, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, fmt.Errorf("enter option numbers separated by commas")
			}
			picks = append(picks, i)
		}
		return json.Marshal(picks)
	}
	return json.Marshal(line)
}

func printResult(out io.Writer, r grading.Result) {
	verdict := "not passed"
	if r.Passed {
		verdict = "passed"
	}
	fmt.Fprintf(out, "\nScore %d/%d, %s\n", r.Score, r.MaxScore, verdict)
	if r.NeedsManual {
		fmt.Fprintf(out, "%d answer(s) await manual grading\n", len(r.Manual))
	}
	if len(r.Unanswered) > 0 {
		fmt.Fprintf(out, "%d question(s) unanswered\n", len(r.Unanswered))
	}
}
