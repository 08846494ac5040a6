package driver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"nocturne-labs/doorman/pkg/client"
	"nocturne-labs/doorman/pkg/config"
	"nocturne-labs/doorman/pkg/game"
	"nocturne-labs/doorman/pkg/game/policy"
	"nocturne-labs/doorman/pkg/runs"
	"nocturne-labs/doorman/pkg/telemetry/metrics"
)

type decideCall struct {
	personIndex int
	accept      *bool
}

// fakeAPI scripts a game server in memory. It applies the driver's
// verdicts to authoritative counters exactly like the real server and
// can be told to misbehave in specific ways.
type fakeAPI struct {
	newGameErr error
	created    client.NewGameResponse
	capacity   int
	budget     int
	person     func(index int) game.Person

	misreport      bool   // overstate admittedCount by one
	dropNext       bool   // omit nextPerson from running responses
	statusOverride string // report this status instead of the real one
	decideErrAt    int    // fail the Nth DecideAndNext call, 1-based

	admitted    int
	rejected    int
	next        int
	decideCalls int
	calls       []decideCall
}

func (f *fakeAPI) NewGame(ctx context.Context, scenario int) (*client.NewGameResponse, error) {
	if f.newGameErr != nil {
		return nil, f.newGameErr
	}
	resp := f.created
	return &resp, nil
}

func (f *fakeAPI) DecideAndNext(ctx context.Context, gameID string, personIndex int, accept *bool) (*client.DecideResponse, error) {
	f.decideCalls++
	var acceptCopy *bool
	if accept != nil {
		v := *accept
		acceptCopy = &v
	}
	f.calls = append(f.calls, decideCall{personIndex: personIndex, accept: acceptCopy})

	if f.decideErrAt > 0 && f.decideCalls == f.decideErrAt {
		return nil, errors.New("connection reset")
	}

	if accept != nil {
		if *accept {
			f.admitted++
		} else {
			f.rejected++
		}
	}

	status := string(game.StatusRunning)
	reason := ""
	switch {
	case f.admitted >= f.capacity:
		status = string(game.StatusCompleted)
	case f.rejected >= f.budget:
		status = string(game.StatusFailed)
		reason = "rejection budget exhausted"
	}
	if f.statusOverride != "" {
		status = f.statusOverride
	}

	admitted := f.admitted
	if f.misreport {
		admitted++
	}
	rejected := f.rejected
	resp := &client.DecideResponse{
		Status:        status,
		AdmittedCount: &admitted,
		RejectedCount: &rejected,
		Reason:        reason,
	}
	if status == string(game.StatusRunning) && !f.dropNext {
		p := f.person(f.next)
		f.next++
		resp.NextPerson = &p
	}
	return resp, nil
}

// memberGame is a tiny game every policy run wins: capacity 4, budget
// 10, one constraint of 2 "member" admissions, and every arrival is a
// member.
func memberGame() *fakeAPI {
	return &fakeAPI{
		created: client.NewGameResponse{
			GameID: "7d9f3a2b-1c4e-4b8a-9f0d-2e5a6b7c8d9e",
			Constraints: []game.Constraint{
				{Attribute: "member", MinCount: 2},
			},
			AttributeStatistics: game.AttributeStatistics{
				RelativeFrequencies: map[game.AttributeID]float64{"member": 0.5},
			},
		},
		capacity: 4,
		budget:   10,
		person: func(index int) game.Person {
			return game.Person{
				Index:      index,
				Attributes: map[game.AttributeID]bool{"member": true},
			}
		},
	}
}

// vipGame is unwinnable: the only constraint needs every slot, so the
// policy holds every slot for a carrier, and no carrier ever arrives.
func vipGame() *fakeAPI {
	return &fakeAPI{
		created: client.NewGameResponse{
			GameID: "c2b1a0f9-8e7d-4c6b-a5f4-3d2c1b0a9e8f",
			Constraints: []game.Constraint{
				{Attribute: "vip", MinCount: 5},
			},
			AttributeStatistics: game.AttributeStatistics{
				RelativeFrequencies: map[game.AttributeID]float64{"vip": 0.1},
			},
		},
		capacity: 5,
		budget:   3,
		person: func(index int) game.Person {
			return game.Person{Index: index, Attributes: map[game.AttributeID]bool{}}
		},
	}
}

func newTestDriver(t *testing.T, api *fakeAPI, mutate func(*Config)) *Driver {
	t.Helper()
	cfg := Config{
		API:              api,
		Capacity:         api.capacity,
		Budget:           api.budget,
		ProgressInterval: -1,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	d, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return d
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "nil API",
			cfg:     Config{},
			wantErr: "game API cannot be nil",
		},
		{
			name:    "negative capacity",
			cfg:     Config{API: memberGame(), Capacity: -1},
			wantErr: "capacity must be",
		},
		{
			name:    "negative budget",
			cfg:     Config{API: memberGame(), Budget: -5},
			wantErr: "budget must be",
		},
		{
			name: "valid",
			cfg:  Config{API: memberGame()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.cfg)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d == nil {
				t.Fatal("expected a driver")
			}
		})
	}
}

func TestDriver_Run_Completed(t *testing.T) {
	api := memberGame()
	d := newTestDriver(t, api, nil)

	result, err := d.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Status != game.StatusCompleted {
		t.Errorf("expected status completed, got %q", result.Status)
	}
	if !result.Completed() {
		t.Error("expected Completed() to be true")
	}
	if result.GameID != api.created.GameID {
		t.Errorf("expected game ID %q, got %q", api.created.GameID, result.GameID)
	}
	if result.Scenario != 1 {
		t.Errorf("expected scenario 1, got %d", result.Scenario)
	}
	if result.Admitted != 4 {
		t.Errorf("expected 4 admitted, got %d", result.Admitted)
	}
	if result.Rejected != 0 {
		t.Errorf("expected 0 rejected, got %d", result.Rejected)
	}
	if result.Decisions != 4 {
		t.Errorf("expected 4 decisions, got %d", result.Decisions)
	}
	if result.Forced != 0 {
		t.Errorf("expected 0 forced decisions, got %d", result.Forced)
	}
	if !result.Satisfied["member"] {
		t.Error("expected member constraint satisfied")
	}
	if !result.SatisfiedAll() {
		t.Error("expected SatisfiedAll() to be true")
	}
	if result.Degraded {
		t.Error("expected non-degraded model")
	}
	if result.Duration <= 0 {
		t.Errorf("expected positive duration, got %v", result.Duration)
	}
	if !result.FinishedAt.After(result.StartedAt) {
		t.Error("expected FinishedAt after StartedAt")
	}

	// One opening call without a verdict, then one verdict per person
	// in arrival order.
	if len(api.calls) != 5 {
		t.Fatalf("expected 5 API calls, got %d", len(api.calls))
	}
	if api.calls[0].accept != nil || api.calls[0].personIndex != 0 {
		t.Errorf("expected opening call for person 0 without verdict, got %+v", api.calls[0])
	}
	for i, call := range api.calls[1:] {
		if call.accept == nil {
			t.Fatalf("call %d: expected a verdict", i+1)
		}
		if !*call.accept {
			t.Errorf("call %d: expected accept", i+1)
		}
		if call.personIndex != i {
			t.Errorf("call %d: expected person index %d, got %d", i+1, i, call.personIndex)
		}
	}
}

func TestDriver_Run_FailedAtBudget(t *testing.T) {
	api := vipGame()
	d := newTestDriver(t, api, nil)

	result, err := d.Run(context.Background(), 3)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Status != game.StatusFailed {
		t.Errorf("expected status failed, got %q", result.Status)
	}
	if result.Completed() {
		t.Error("expected Completed() to be false")
	}
	if result.Rejected != 3 {
		t.Errorf("expected 3 rejected, got %d", result.Rejected)
	}
	if result.Admitted != 0 {
		t.Errorf("expected 0 admitted, got %d", result.Admitted)
	}
	if result.Decisions != 3 {
		t.Errorf("expected 3 decisions, got %d", result.Decisions)
	}
	// Every slot is needed for a vip, so every verdict is constraint
	// driven.
	if result.Forced != 3 {
		t.Errorf("expected 3 forced decisions, got %d", result.Forced)
	}
	if result.Satisfied["vip"] {
		t.Error("expected vip constraint unsatisfied")
	}
	if result.SatisfiedAll() {
		t.Error("expected SatisfiedAll() to be false")
	}
	if result.Reason != "rejection budget exhausted" {
		t.Errorf("unexpected failure reason %q", result.Reason)
	}
}

func TestDriver_Run_NewGameError(t *testing.T) {
	api := memberGame()
	api.newGameErr = errors.New("server unavailable")
	d := newTestDriver(t, api, nil)

	_, err := d.Run(context.Background(), 1)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "failed to start game") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDriver_Run_MissingNextPerson(t *testing.T) {
	api := memberGame()
	api.dropNext = true
	d := newTestDriver(t, api, nil)

	_, err := d.Run(context.Background(), 1)
	if err == nil {
		t.Fatal("expected an error")
	}
	var pe *game.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("expected a ProtocolError, got %T: %v", err, err)
	}
	if !strings.Contains(pe.Reason, "without nextPerson") {
		t.Errorf("unexpected reason %q", pe.Reason)
	}
}

func TestDriver_Run_CountMismatch(t *testing.T) {
	api := memberGame()
	api.misreport = true
	d := newTestDriver(t, api, nil)

	_, err := d.Run(context.Background(), 1)
	if err == nil {
		t.Fatal("expected an error")
	}
	var pe *game.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("expected a ProtocolError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "abandoning game after 0 decisions") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDriver_Run_UnknownStatus(t *testing.T) {
	api := memberGame()
	api.statusOverride = "paused"
	d := newTestDriver(t, api, nil)

	_, err := d.Run(context.Background(), 1)
	if err == nil {
		t.Fatal("expected an error")
	}
	var pe *game.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("expected a ProtocolError, got %T: %v", err, err)
	}
	if !strings.Contains(pe.Reason, "unknown status") {
		t.Errorf("unexpected reason %q", pe.Reason)
	}
}

func TestDriver_Run_APIErrorMidGame(t *testing.T) {
	api := memberGame()
	api.decideErrAt = 3
	d := newTestDriver(t, api, nil)

	_, err := d.Run(context.Background(), 1)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "abandoning game after 2 decisions") {
		t.Errorf("unexpected error: %v", err)
	}
}

type recordedDecision struct {
	gameID   string
	scenario int
	person   game.Person
	decision game.Decision
	admitted int
	rejected int
}

type captureRecorder struct {
	mu      sync.Mutex
	failAt  int // fail the Nth record, 1-based
	seen    int
	records []recordedDecision
}

func (r *captureRecorder) RecordDecision(ctx context.Context, gameID string, scenario int, person game.Person, decision game.Decision, admitted, rejected int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen++
	if r.failAt > 0 && r.seen == r.failAt {
		return errors.New("storage write failed")
	}
	r.records = append(r.records, recordedDecision{
		gameID:   gameID,
		scenario: scenario,
		person:   person,
		decision: decision,
		admitted: admitted,
		rejected: rejected,
	})
	return nil
}

func TestDriver_Run_RecordsDecisions(t *testing.T) {
	api := memberGame()
	rec := &captureRecorder{}
	d := newTestDriver(t, api, func(cfg *Config) {
		cfg.Recorder = rec
	})

	result, err := d.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(rec.records) != result.Decisions {
		t.Fatalf("expected %d records, got %d", result.Decisions, len(rec.records))
	}
	for i, r := range rec.records {
		if r.gameID != api.created.GameID {
			t.Errorf("record %d: expected game ID %q, got %q", i, api.created.GameID, r.gameID)
		}
		if r.scenario != 1 {
			t.Errorf("record %d: expected scenario 1, got %d", i, r.scenario)
		}
		if r.person.Index != i {
			t.Errorf("record %d: expected person index %d, got %d", i, i, r.person.Index)
		}
		if r.decision.PersonIndex != i {
			t.Errorf("record %d: decision carries person index %d", i, r.decision.PersonIndex)
		}
		// Counts are the state after the decision was applied.
		if r.admitted != i+1 {
			t.Errorf("record %d: expected %d admitted, got %d", i, i+1, r.admitted)
		}
		if r.rejected != 0 {
			t.Errorf("record %d: expected 0 rejected, got %d", i, r.rejected)
		}
	}
}

func TestDriver_Run_RecorderFailureIsNonFatal(t *testing.T) {
	api := memberGame()
	rec := &captureRecorder{failAt: 1}
	d := newTestDriver(t, api, func(cfg *Config) {
		cfg.Recorder = rec
	})

	result, err := d.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Status != game.StatusCompleted {
		t.Errorf("expected status completed, got %q", result.Status)
	}
	if len(rec.records) != result.Decisions-1 {
		t.Errorf("expected %d records after one failure, got %d", result.Decisions-1, len(rec.records))
	}
}

func TestDriver_Run_ArchivesRun(t *testing.T) {
	store, err := runs.NewStore(t.TempDir() + "/runs.db")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()

	api := memberGame()
	d := newTestDriver(t, api, func(cfg *Config) {
		cfg.Runs = store
	})

	result, err := d.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	archived, err := store.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(archived) != 1 {
		t.Fatalf("expected 1 archived run, got %d", len(archived))
	}
	run := archived[0]
	if run.GameID != result.GameID {
		t.Errorf("expected game ID %q, got %q", result.GameID, run.GameID)
	}
	if run.Scenario != 1 {
		t.Errorf("expected scenario 1, got %d", run.Scenario)
	}
	if run.Status != game.StatusCompleted {
		t.Errorf("expected status completed, got %q", run.Status)
	}
	if run.Admitted != result.Admitted || run.Rejected != result.Rejected {
		t.Errorf("expected counts %d/%d, got %d/%d",
			result.Admitted, result.Rejected, run.Admitted, run.Rejected)
	}
	if !run.Satisfied["member"] {
		t.Error("expected member constraint satisfied in archive")
	}

	best, err := store.Best(context.Background(), 1)
	if err != nil {
		t.Fatalf("Best failed: %v", err)
	}
	if best == nil || best.GameID != result.GameID {
		t.Errorf("expected the archived run as best, got %+v", best)
	}
}

func TestDriver_Run_PublishesMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(&config.MetricsConfig{
		Enabled:   true,
		Namespace: "doorman",
		Subsystem: "game",
	}, registry)

	api := memberGame()
	d := newTestDriver(t, api, func(cfg *Config) {
		cfg.Metrics = collector
	})

	if _, err := d.Run(context.Background(), 1); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	got := make(map[string]bool, len(families))
	for _, mf := range families {
		got[mf.GetName()] = true
	}
	for _, want := range []string{
		"doorman_game_decisions_total",
		"doorman_game_games_total",
		"doorman_game_capacity_remaining",
		"doorman_game_constraint_deficit",
	} {
		if !got[want] {
			t.Errorf("expected metric family %q to be registered", want)
		}
	}
}

func TestDriver_Run_TuningWatcherFailureIsNonFatal(t *testing.T) {
	api := memberGame()
	d := newTestDriver(t, api, func(cfg *Config) {
		cfg.TuningFile = "/nonexistent-dir/tuning.yaml"
		cfg.WatchTuning = true
	})

	result, err := d.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Status != game.StatusCompleted {
		t.Errorf("expected the game to finish without the watcher, got %q", result.Status)
	}
}

func TestTuningSlot(t *testing.T) {
	slot := &tuningSlot{}

	if _, ok := slot.take(); ok {
		t.Error("expected empty slot")
	}

	first := policy.DefaultTuning()
	first.ThresholdMax = 2.5
	slot.set(first)

	second := policy.DefaultTuning()
	second.ThresholdMax = 3.5
	slot.set(second)

	got, ok := slot.take()
	if !ok {
		t.Fatal("expected a pending tuning")
	}
	if got.ThresholdMax != 3.5 {
		t.Errorf("expected the newer reload to win, got ThresholdMax %v", got.ThresholdMax)
	}

	if _, ok := slot.take(); ok {
		t.Error("expected the slot to be drained")
	}
}
