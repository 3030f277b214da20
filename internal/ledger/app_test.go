package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

type capturePublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *capturePublisher) Publish(ctx context.Context, eventType string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
	return nil
}

func newTestApp() (*App, *MemoryRepository, *capturePublisher) {
	repo := NewMemoryRepository()
	pub := &capturePublisher{}
	clk := clockwork.NewFakeClockAt(time.Date(2026, 8, 30, 19, 0, 0, 0, time.UTC))
	return NewApp(repo, pub, clk), repo, pub
}

func TestZeroResultIsNotAccepted(t *testing.T) {
	var result Result
	if result.Outcome == OutcomeAccepted {
		t.Error("zero-value Result reads as accepted")
	}
	if got := result.Outcome.String(); got != "invalid" {
		t.Errorf("zero-value Outcome.String() = %q, want invalid", got)
	}
}

func TestSubmitAcceptsFirstAnswer(t *testing.T) {
	app, _, pub := newTestApp()
	ctx := context.Background()

	result, err := app.Submit(ctx, "team-1", "Neural Ninjas", 0, "  Influenza ", 2000)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result.Outcome != OutcomeAccepted {
		t.Fatalf("Submit() outcome = %v, want accepted", result.Outcome)
	}
	if result.Submission == nil {
		t.Fatal("Submit() accepted without a submission record")
	}
	if result.Submission.AnswerText != "Influenza" {
		t.Errorf("AnswerText = %q, want trimmed %q", result.Submission.AnswerText, "Influenza")
	}
	if result.Submission.ElapsedMs != 2000 {
		t.Errorf("ElapsedMs = %d, want 2000", result.Submission.ElapsedMs)
	}
	if len(pub.types) != 1 {
		t.Errorf("published %d events, want 1", len(pub.types))
	}
}

func TestSubmitRejectsEmptyAnswer(t *testing.T) {
	app, repo, pub := newTestApp()
	ctx := context.Background()

	result, err := app.Submit(ctx, "team-1", "Neural Ninjas", 0, "   ", 2000)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result.Outcome != OutcomeRejected {
		t.Fatalf("Submit() outcome = %v, want rejected", result.Outcome)
	}

	subs, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("rejected submission reached the store: %d records", len(subs))
	}
	if len(pub.types) != 0 {
		t.Errorf("rejected submission published %d events, want 0", len(pub.types))
	}
}

func TestSubmitRejectsNegativeElapsed(t *testing.T) {
	app, repo, _ := newTestApp()
	ctx := context.Background()

	result, err := app.Submit(ctx, "team-1", "Neural Ninjas", 0, "Influenza", -40)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result.Outcome != OutcomeRejected {
		t.Fatalf("Submit() outcome = %v, want rejected", result.Outcome)
	}

	subs, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("skewed submission reached the store: %d records", len(subs))
	}
}

func TestSubmitSecondAttemptAlreadySubmitted(t *testing.T) {
	app, _, _ := newTestApp()
	ctx := context.Background()

	if result, err := app.Submit(ctx, "team-1", "Neural Ninjas", 3, "first", 1000); err != nil || result.Outcome != OutcomeAccepted {
		t.Fatalf("first Submit() = %v, %v", result.Outcome, err)
	}

	result, err := app.Submit(ctx, "team-1", "Neural Ninjas", 3, "second", 2000)
	if err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}
	if result.Outcome != OutcomeAlreadySubmitted {
		t.Errorf("second Submit() outcome = %v, want already_submitted", result.Outcome)
	}

	subs, err := app.ListByQuestion(ctx, 3)
	if err != nil {
		t.Fatalf("ListByQuestion() error = %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("ledger holds %d records for the key, want 1", len(subs))
	}
	if subs[0].AnswerText != "first" {
		t.Errorf("stored answer = %q, want the first submission", subs[0].AnswerText)
	}
}

func TestSubmitConcurrentSameKeyAcceptsExactlyOne(t *testing.T) {
	app, _, pub := newTestApp()
	ctx := context.Background()

	const racers = 16
	results := make([]Result, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := app.Submit(ctx, "team-race", "Racers", 5, "answer", 1500)
			if err != nil {
				t.Errorf("Submit() #%d error = %v", i, err)
				return
			}
			results[i] = result
		}(i)
	}
	wg.Wait()

	var accepted, duplicate int
	for _, result := range results {
		switch result.Outcome {
		case OutcomeAccepted:
			accepted++
		case OutcomeAlreadySubmitted:
			duplicate++
		}
	}
	if accepted != 1 {
		t.Errorf("accepted = %d, want exactly 1", accepted)
	}
	if duplicate != racers-1 {
		t.Errorf("already_submitted = %d, want %d", duplicate, racers-1)
	}

	subs, err := app.ListByQuestion(ctx, 5)
	if err != nil {
		t.Fatalf("ListByQuestion() error = %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("ledger holds %d records, want 1", len(subs))
	}
	if len(pub.types) != 1 {
		t.Errorf("published %d events, want 1", len(pub.types))
	}
}

func TestDeleteAllReturnsCount(t *testing.T) {
	app, _, _ := newTestApp()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := app.Submit(ctx, "team-1", "Neural Ninjas", i, "answer", 100); err != nil {
			t.Fatalf("Submit() #%d error = %v", i, err)
		}
	}

	n, err := app.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}
	if n != 3 {
		t.Errorf("DeleteAll() = %d, want 3", n)
	}

	subs, err := app.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("ledger holds %d records after wipe, want 0", len(subs))
	}
}
