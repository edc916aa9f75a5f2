package production

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sventech/prodline/internal/models"
	"github.com/sventech/prodline/internal/store"
)

// fakeStore mimics the record store's single-row atomicity: completions are
// unique per (unit, step), and the conditional updates check-and-set under
// one lock.
type fakeStore struct {
	mu          sync.Mutex
	units       map[string]*models.Unit
	steps       map[uint]*models.ProductionStep
	completions map[string]*models.StepCompletion // key: unitID/stepID
	installs    []models.FirmwareInstallRecord

	installErr    error
	completionErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		units:       make(map[string]*models.Unit),
		steps:       make(map[uint]*models.ProductionStep),
		completions: make(map[string]*models.StepCompletion),
	}
}

func (f *fakeStore) addUnit(id string, productID uint) *models.Unit {
	u := &models.Unit{
		ID:           id,
		SerialNumber: "SV-PROD1-00001",
		ProductCode:  "PROD1",
		ProductID:    productID,
		Status:       models.UnitStatusUnprovisioned,
	}
	f.units[id] = u
	return u
}

func (f *fakeStore) addSteps(productID uint, count int) []uint {
	ids := make([]uint, 0, count)
	for i := 1; i <= count; i++ {
		id := uint(len(f.steps) + 1)
		f.steps[id] = &models.ProductionStep{ID: id, ProductID: productID, StepOrder: i, Name: fmt.Sprintf("step %d", i)}
		ids = append(ids, id)
	}
	return ids
}

func (f *fakeStore) UnitByID(_ context.Context, unitID string) (*models.Unit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.units[unitID]
	if !ok {
		return nil, fmt.Errorf("unit %s: %w", unitID, store.ErrNotFound)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) StepByID(_ context.Context, stepID uint) (*models.ProductionStep, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.steps[stepID]
	if !ok {
		return nil, fmt.Errorf("step %d: %w", stepID, store.ErrNotFound)
	}
	return s, nil
}

func (f *fakeStore) InsertCompletion(_ context.Context, c *models.StepCompletion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completionErr != nil {
		return f.completionErr
	}
	key := fmt.Sprintf("%s/%d", c.UnitID, c.StepID)
	if _, dup := f.completions[key]; dup {
		return fmt.Errorf("unit %s step %d: %w", c.UnitID, c.StepID, store.ErrDuplicate)
	}
	f.completions[key] = c
	return nil
}

func (f *fakeStore) CompletionCount(_ context.Context, unitID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, c := range f.completions {
		if c.UnitID == unitID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) StepCount(_ context.Context, productID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.steps {
		if s.ProductID == productID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) StartProduction(_ context.Context, unitID string, at time.Time, totalSteps int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.units[unitID]
	if !ok || u.ProductionStartedAt != nil {
		return false, nil
	}
	t := at
	u.ProductionStartedAt = &t
	u.StepCountSnapshot = &totalSteps
	return true, nil
}

func (f *fakeStore) CompleteUnit(_ context.Context, unitID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.units[unitID]
	if !ok || u.Status == models.UnitStatusCompleted {
		return false, nil
	}
	t := at
	u.Status = models.UnitStatusCompleted
	u.ProductionCompletedAt = &t
	return true, nil
}

func (f *fakeStore) InsertFirmwareInstall(_ context.Context, r *models.FirmwareInstallRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.installErr != nil {
		return f.installErr
	}
	r.ID = uint(len(f.installs) + 1)
	f.installs = append(f.installs, *r)
	return nil
}

func (f *fakeStore) FirmwareHistory(_ context.Context, unitID string) ([]models.FirmwareInstallRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.FirmwareInstallRecord
	for _, r := range f.installs {
		if r.UnitID == unitID {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestCompleteStepOutOfOrderCompletesOnce(t *testing.T) {
	st := newFakeStore()
	st.addUnit("u1", 1)
	steps := st.addSteps(1, 3)
	svc := NewService(st)
	ctx := context.Background()

	// Complete 2, then 1, then 3: order must not matter
	r2, err := svc.CompleteStep(ctx, "u1", steps[1], "op1", "")
	if err != nil {
		t.Fatalf("step 2 completion failed: %v", err)
	}
	if !r2.Started {
		t.Error("first completion must set the start timestamp")
	}
	if r2.UnitCompleted {
		t.Error("unit completed after 1/3 steps")
	}

	startedAt := r2.Completion.CompletedAt

	r1, err := svc.CompleteStep(ctx, "u1", steps[0], "op1", "")
	if err != nil {
		t.Fatalf("step 1 completion failed: %v", err)
	}
	if r1.Started || r1.UnitCompleted {
		t.Error("second completion must neither start nor complete the unit")
	}

	r3, err := svc.CompleteStep(ctx, "u1", steps[2], "op2", "final QA")
	if err != nil {
		t.Fatalf("step 3 completion failed: %v", err)
	}
	if !r3.UnitCompleted {
		t.Error("third completion must fire the completion transition")
	}

	unit, _ := st.UnitByID(ctx, "u1")
	if unit.Status != models.UnitStatusCompleted {
		t.Errorf("status = %s, want completed", unit.Status)
	}
	if unit.ProductionCompletedAt == nil {
		t.Error("productionCompletedAt not set")
	}
	if unit.ProductionStartedAt == nil || !unit.ProductionStartedAt.Equal(startedAt) {
		t.Errorf("productionStartedAt = %v, want first completion time %v", unit.ProductionStartedAt, startedAt)
	}
}

func TestDuplicateCompletionRejected(t *testing.T) {
	st := newFakeStore()
	st.addUnit("u1", 1)
	steps := st.addSteps(1, 3)
	svc := NewService(st)
	ctx := context.Background()

	if _, err := svc.CompleteStep(ctx, "u1", steps[0], "op1", ""); err != nil {
		t.Fatalf("first completion failed: %v", err)
	}

	_, err := svc.CompleteStep(ctx, "u1", steps[0], "op1", "")
	if !errors.Is(err, ErrDuplicateCompletion) {
		t.Fatalf("got %v, want ErrDuplicateCompletion", err)
	}

	count, _ := st.CompletionCount(ctx, "u1")
	if count != 1 {
		t.Errorf("completion rows = %d, want 1", count)
	}
}

func TestStartTimestampSetOnlyOnce(t *testing.T) {
	st := newFakeStore()
	st.addUnit("u1", 1)
	steps := st.addSteps(1, 3)
	svc := NewService(st)
	ctx := context.Background()

	r1, err := svc.CompleteStep(ctx, "u1", steps[0], "op1", "")
	if err != nil {
		t.Fatalf("completion failed: %v", err)
	}
	first := r1.Completion.CompletedAt

	if _, err := svc.CompleteStep(ctx, "u1", steps[1], "op1", ""); err != nil {
		t.Fatalf("completion failed: %v", err)
	}

	unit, _ := st.UnitByID(ctx, "u1")
	if unit.ProductionStartedAt == nil || !unit.ProductionStartedAt.Equal(first) {
		t.Errorf("productionStartedAt changed: got %v, want %v", unit.ProductionStartedAt, first)
	}
}

func TestStepsAddedAfterStartDoNotBlockCompletion(t *testing.T) {
	st := newFakeStore()
	st.addUnit("u1", 1)
	steps := st.addSteps(1, 2)
	svc := NewService(st)
	ctx := context.Background()

	if _, err := svc.CompleteStep(ctx, "u1", steps[0], "op1", ""); err != nil {
		t.Fatalf("completion failed: %v", err)
	}

	// Catalog grows mid-production; the snapshot frozen at first completion
	// keeps the denominator at 2.
	st.mu.Lock()
	st.steps[99] = &models.ProductionStep{ID: 99, ProductID: 1, StepOrder: 3, Name: "late addition"}
	st.mu.Unlock()

	r, err := svc.CompleteStep(ctx, "u1", steps[1], "op1", "")
	if err != nil {
		t.Fatalf("completion failed: %v", err)
	}
	if !r.UnitCompleted {
		t.Error("unit must complete against the snapshot denominator")
	}
}

func TestStepFromWrongProductRejected(t *testing.T) {
	st := newFakeStore()
	st.addUnit("u1", 1)
	st.addSteps(1, 2)
	otherSteps := st.addSteps(2, 1)
	svc := NewService(st)

	_, err := svc.CompleteStep(context.Background(), "u1", otherSteps[0], "op1", "")
	if !errors.Is(err, ErrStepNotFound) {
		t.Fatalf("got %v, want ErrStepNotFound", err)
	}
}

func TestMarkCompleteIsIdempotent(t *testing.T) {
	st := newFakeStore()
	st.addUnit("u1", 1)
	st.addSteps(1, 3)
	svc := NewService(st)
	ctx := context.Background()

	unit, err := svc.MarkComplete(ctx, "u1")
	if err != nil {
		t.Fatalf("MarkComplete failed: %v", err)
	}
	if unit.Status != models.UnitStatusCompleted || unit.ProductionCompletedAt == nil {
		t.Fatal("unit not completed")
	}
	completedAt := *unit.ProductionCompletedAt

	again, err := svc.MarkComplete(ctx, "u1")
	if err != nil {
		t.Fatalf("second MarkComplete failed: %v", err)
	}
	if !again.ProductionCompletedAt.Equal(completedAt) {
		t.Error("repeat MarkComplete must not move the completion timestamp")
	}
}

func TestConcurrentCompletionsFireExactlyOnce(t *testing.T) {
	st := newFakeStore()
	st.addUnit("u1", 1)
	steps := st.addSteps(1, 5)
	svc := NewService(st)

	var wg sync.WaitGroup
	fired := make([]bool, len(steps))
	for i, stepID := range steps {
		wg.Add(1)
		go func(i int, stepID uint) {
			defer wg.Done()
			r, err := svc.CompleteStep(context.Background(), "u1", stepID, "op", "")
			if err != nil {
				t.Errorf("step %d failed: %v", stepID, err)
				return
			}
			fired[i] = r.UnitCompleted
		}(i, stepID)
	}
	wg.Wait()

	transitions := 0
	for _, f := range fired {
		if f {
			transitions++
		}
	}
	if transitions != 1 {
		t.Errorf("completion transition fired %d times, want exactly 1", transitions)
	}

	unit, _ := st.UnitByID(context.Background(), "u1")
	if unit.Status != models.UnitStatusCompleted {
		t.Errorf("status = %s, want completed", unit.Status)
	}
}

func TestRecordInstallWithoutStep(t *testing.T) {
	st := newFakeStore()
	st.addUnit("u1", 1)
	svc := NewService(st)

	record, stepResult, err := svc.RecordInstall(context.Background(), RecordInstallRequest{
		UnitID:             "u1",
		DeviceTypeCategory: "mainboard",
		FirmwareID:         "fw-2.4.1",
		InstalledBy:        "op1",
	})
	if err != nil {
		t.Fatalf("RecordInstall failed: %v", err)
	}
	if stepResult != nil {
		t.Error("no step result expected without a stepId")
	}
	if record.ID == 0 || record.InstalledAt.IsZero() {
		t.Error("install record not fully populated")
	}
}

func TestRecordInstallDelegatesToStepCompletion(t *testing.T) {
	st := newFakeStore()
	st.addUnit("u1", 1)
	steps := st.addSteps(1, 1)
	svc := NewService(st)

	record, stepResult, err := svc.RecordInstall(context.Background(), RecordInstallRequest{
		UnitID:             "u1",
		DeviceTypeCategory: "mainboard",
		FirmwareID:         "fw-2.4.1",
		InstalledBy:        "op1",
		StepID:             &steps[0],
	})
	if err != nil {
		t.Fatalf("RecordInstall failed: %v", err)
	}
	if record == nil || stepResult == nil {
		t.Fatal("expected both install record and step result")
	}
	if !stepResult.UnitCompleted {
		t.Error("single-step product must auto-complete on the delegated completion")
	}
}

func TestInstallHistorySurvivesFailedStepCompletion(t *testing.T) {
	st := newFakeStore()
	st.addUnit("u1", 1)
	steps := st.addSteps(1, 1)
	st.completionErr = errors.New("record store hiccup")
	svc := NewService(st)

	record, _, err := svc.RecordInstall(context.Background(), RecordInstallRequest{
		UnitID:             "u1",
		DeviceTypeCategory: "mainboard",
		FirmwareID:         "fw-2.4.1",
		InstalledBy:        "op1",
		StepID:             &steps[0],
	})
	if err == nil {
		t.Fatal("expected the delegated completion failure to surface")
	}
	if record == nil {
		t.Fatal("install record must be returned even when completion fails")
	}

	history, _ := svc.FirmwareHistory(context.Background(), "u1")
	if len(history) != 1 {
		t.Errorf("install history rows = %d, want 1", len(history))
	}
}

func TestReflashingAppendsHistory(t *testing.T) {
	st := newFakeStore()
	st.addUnit("u1", 1)
	svc := NewService(st)
	ctx := context.Background()

	for _, fw := range []string{"fw-1.0.0", "fw-1.0.1", "fw-1.0.1"} {
		if _, _, err := svc.RecordInstall(ctx, RecordInstallRequest{
			UnitID:             "u1",
			DeviceTypeCategory: "radio",
			FirmwareID:         fw,
			InstalledBy:        "op1",
		}); err != nil {
			t.Fatalf("RecordInstall(%s) failed: %v", fw, err)
		}
	}

	history, err := svc.FirmwareHistory(ctx, "u1")
	if err != nil {
		t.Fatalf("FirmwareHistory failed: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("history rows = %d, want 3 (reflashing is valid)", len(history))
	}
}
