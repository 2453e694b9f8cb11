// Package features runs the signing workflow scenarios in *.feature against
// the core services with in-memory adapters.
package features

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/custodia-labs/countersign/internal/adapters/driven/pdf/pdftest"
	"github.com/custodia-labs/countersign/internal/core/domain"
	"github.com/custodia-labs/countersign/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/countersign/internal/core/ports/driving"
	"github.com/custodia-labs/countersign/internal/core/services"
)

const (
	ownerID     = "owner-1"
	documentURL = "mem://lease.pdf"
)

// world is the state shared by the steps of one scenario
type world struct {
	store     *mocks.MockInstanceStore
	queue     *mocks.MockTaskQueue
	renderer  *mocks.MockRenderer
	composer  *services.Composer
	instances driving.InstanceService
	signing   *services.SubmissionProcessor

	page       domain.PageSize
	recipients []*domain.Recipient
	fields     []*domain.Field
	instance   *domain.Instance

	lastErr    error
	lastResult *domain.SubmissionResult
	submitted  map[string]bool
}

func newWorld() *world {
	store := mocks.NewMockInstanceStore()
	queue := mocks.NewMockTaskQueue()
	source := mocks.NewMockDocumentSource()
	renderer := mocks.NewMockRenderer()
	composer := services.NewComposer(source, renderer)

	source.Put(documentURL, pdftest.Blank(pdftest.Letter))

	return &world{
		store:    store,
		queue:    queue,
		renderer: renderer,
		composer: composer,
		instances: services.NewInstanceService(services.InstanceServiceConfig{
			Store:             store,
			TaskQueue:         queue,
			Composer:          composer,
			ObserversMustSign: true,
		}),
		signing: services.NewSubmissionProcessor(services.SubmissionConfig{
			Store:     store,
			Lock:      mocks.NewMockDistributedLock(),
			TaskQueue: queue,
		}),
		submitted: make(map[string]bool),
	}
}

func (w *world) aOnePageLetterDocument() error {
	w.page = pdftest.Letter
	w.renderer.Pages = []domain.PageSize{w.page}
	return nil
}

func (w *world) addRecipient(id string, rank *int, fieldType, fieldID string, x, y float64, page int) {
	w.recipients = append(w.recipients, &domain.Recipient{
		ID:    id,
		Name:  "Recipient " + id,
		Email: strings.ToLower(id) + "@example.com",
		Rank:  rank,
	})
	w.fields = append(w.fields, &domain.Field{
		ID:          fieldID,
		RecipientID: id,
		Type:        domain.FieldType(fieldType),
		Position:    domain.Position{Page: page, X: x, Y: y},
		Width:       120,
		Height:      24,
	})
}

func (w *world) rankedRecipientOwnsField(id string, rank int, fieldType, fieldID string, x, y float64, page int) error {
	w.addRecipient(id, domain.IntPtr(rank), fieldType, fieldID, x, y, page)
	return nil
}

func (w *world) unrankedRecipientOwnsField(id, fieldType, fieldID string, x, y float64, page int) error {
	w.addRecipient(id, nil, fieldType, fieldID, x, y, page)
	return nil
}

func (w *world) theOwnerSendsTheInstance(ctx context.Context) error {
	created, err := w.instances.Create(ctx, ownerID, domain.CreateInstanceRequest{
		Name:        "Lease",
		DocumentURL: documentURL,
		Recipients:  w.recipients,
		Fields:      w.fields,
	})
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	sent, err := w.instances.Send(ctx, ownerID, created.ID)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	w.instance = sent
	return nil
}

func (w *world) theInstanceIsSigned(mode string) error {
	want := domain.SigningModeUnordered
	if mode == "sequentially" {
		want = domain.SigningModeSequential
	}
	if w.instance.Mode != want {
		return fmt.Errorf("expected mode %s, got %s", want, w.instance.Mode)
	}
	return nil
}

func (w *world) submits(ctx context.Context, recipientID, fieldID, value string) error {
	w.lastResult, w.lastErr = w.signing.Submit(ctx, w.instance.ID, domain.SubmissionRequest{
		RecipientID: recipientID,
		Fields:      []domain.FieldValueInput{{ID: fieldID, Value: value}},
	})
	if w.lastErr == nil {
		w.submitted[recipientID] = true
	}
	return nil
}

func (w *world) theSubmissionIsAccepted() error {
	if w.lastErr != nil {
		return fmt.Errorf("expected submission to be accepted, got %v", w.lastErr)
	}
	return nil
}

func (w *world) theSubmissionIsRejectedWith(target error) func() error {
	return func() error {
		if !errors.Is(w.lastErr, target) {
			return fmt.Errorf("expected %v, got %v", target, w.lastErr)
		}
		return nil
	}
}

func (w *world) currentState(ctx context.Context) (domain.SigningState, error) {
	inst, err := w.store.Get(ctx, w.instance.ID)
	if err != nil {
		return domain.SigningState{}, err
	}
	state, _, err := services.NewSigningOrder(w.store).State(ctx, inst)
	return state, err
}

func (w *world) theSigningPhaseIs(ctx context.Context, phase string) error {
	state, err := w.currentState(ctx)
	if err != nil {
		return err
	}
	if string(state.Phase) != phase {
		return fmt.Errorf("expected phase %s, got %s", phase, state.Phase)
	}
	return nil
}

func (w *world) theSigningPhaseIsAtRank(ctx context.Context, phase string, rank int) error {
	if err := w.theSigningPhaseIs(ctx, phase); err != nil {
		return err
	}
	state, err := w.currentState(ctx)
	if err != nil {
		return err
	}
	if state.ActiveRank != rank {
		return fmt.Errorf("expected active rank %d, got %d", rank, state.ActiveRank)
	}
	return nil
}

func (w *world) isNotified(recipientID string) error {
	for _, task := range w.queue.Tasks() {
		if task.Type == domain.TaskTypeNotifyRecipient && task.RecipientID() == recipientID {
			return nil
		}
	}
	return fmt.Errorf("no notification queued for %s", recipientID)
}

func (w *world) theInstanceIsComplete(ctx context.Context) error {
	inst, err := w.store.Get(ctx, w.instance.ID)
	if err != nil {
		return err
	}
	if !inst.IsCompleted() {
		return fmt.Errorf("expected instance to be complete, status %s", inst.Status)
	}
	return nil
}

func (w *world) theInstanceIsNotComplete(ctx context.Context) error {
	if err := w.theInstanceIsComplete(ctx); err == nil {
		return errors.New("expected instance not to be complete")
	}
	if w.lastResult != nil && w.lastResult.Complete {
		return errors.New("submission reported completion")
	}
	return nil
}

func (w *world) everyPendingRecipientMayAct(ctx context.Context) error {
	for _, r := range w.recipients {
		if w.submitted[r.ID] {
			continue
		}
		view, err := w.signing.View(ctx, w.instance.ID, r.ID)
		if err != nil {
			return err
		}
		if !view.CanAct {
			return fmt.Errorf("recipient %s has not submitted but may not act", r.ID)
		}
	}
	return nil
}

func (w *world) theComposedDocumentShows(ctx context.Context, text string, x, y float64, page int) error {
	inst, err := w.store.Get(ctx, w.instance.ID)
	if err != nil {
		return err
	}
	progress, err := w.store.ListProgress(ctx, inst.ID)
	if err != nil {
		return err
	}
	if _, err := w.composer.ComposeInstance(ctx, inst, progress); err != nil {
		return err
	}

	for _, s := range w.renderer.LastStamps() {
		if s.Text == text && s.Page == page && s.X == x && s.Y == w.page.Height-y {
			return nil
		}
	}
	return fmt.Errorf("no stamp %q at %g,%g on page %d in %+v", text, x, y, page, w.renderer.LastStamps())
}

func InitializeScenario(sc *godog.ScenarioContext) {
	var w *world
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		w = newWorld()
		return ctx, nil
	})

	sc.Step(`^a one page letter document$`, func() error { return w.aOnePageLetterDocument() })
	sc.Step(`^recipient "([^"]*)" with rank (\d+) owns a "([^"]*)" field "([^"]*)" at (\d+),(\d+) on page (\d+)$`,
		func(id string, rank int, fieldType, fieldID string, x, y float64, page int) error {
			return w.rankedRecipientOwnsField(id, rank, fieldType, fieldID, x, y, page)
		})
	sc.Step(`^unranked recipient "([^"]*)" owns a "([^"]*)" field "([^"]*)" at (\d+),(\d+) on page (\d+)$`,
		func(id, fieldType, fieldID string, x, y float64, page int) error {
			return w.unrankedRecipientOwnsField(id, fieldType, fieldID, x, y, page)
		})
	sc.Step(`^the owner sends the instance$`, func(ctx context.Context) error { return w.theOwnerSendsTheInstance(ctx) })
	sc.Step(`^the instance is signed (sequentially|in any order)$`, func(mode string) error { return w.theInstanceIsSigned(mode) })
	sc.Step(`^"([^"]*)" submits "([^"]*)" as "([^"]*)"$`, func(ctx context.Context, rid, fid, value string) error {
		return w.submits(ctx, rid, fid, value)
	})
	sc.Step(`^the submission is accepted$`, func() error { return w.theSubmissionIsAccepted() })
	sc.Step(`^the submission is rejected as out of turn$`, func() error { return w.theSubmissionIsRejectedWith(domain.ErrOutOfTurn)() })
	sc.Step(`^the submission is rejected as unauthorized$`, func() error {
		return w.theSubmissionIsRejectedWith(domain.ErrUnauthorizedRecipient)()
	})
	sc.Step(`^the submission is rejected for a missing required field$`, func() error {
		return w.theSubmissionIsRejectedWith(domain.ErrMissingRequiredField)()
	})
	sc.Step(`^the signing phase is "([^"]*)" at rank (\d+)$`, func(ctx context.Context, phase string, rank int) error {
		return w.theSigningPhaseIsAtRank(ctx, phase, rank)
	})
	sc.Step(`^the signing phase is "([^"]*)"$`, func(ctx context.Context, phase string) error { return w.theSigningPhaseIs(ctx, phase) })
	sc.Step(`^"([^"]*)" is notified$`, func(rid string) error { return w.isNotified(rid) })
	sc.Step(`^the instance is complete$`, func(ctx context.Context) error { return w.theInstanceIsComplete(ctx) })
	sc.Step(`^the instance is not complete$`, func(ctx context.Context) error { return w.theInstanceIsNotComplete(ctx) })
	sc.Step(`^every recipient who has not submitted may act$`, func(ctx context.Context) error {
		return w.everyPendingRecipientMayAct(ctx)
	})
	sc.Step(`^the composed document shows "([^"]*)" at (\d+),(\d+) on page (\d+)$`,
		func(ctx context.Context, text string, x, y float64, page int) error {
			return w.theComposedDocumentShows(ctx, text, x, y, page)
		})
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"."},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
