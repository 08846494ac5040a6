package policy

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"nocturne-labs/doorman/pkg/game"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func person(idx int, attrs ...game.AttributeID) game.Person {
	m := make(map[game.AttributeID]bool, len(attrs))
	for _, a := range attrs {
		m[a] = true
	}
	return game.Person{Index: idx, Attributes: m}
}

func newTestPolicy(t *testing.T, capacity, budget int, cs []game.Constraint, freqs map[game.AttributeID]float64) *Policy {
	t.Helper()
	p, err := New(Config{
		GameID:      "test-game",
		Scenario:    1,
		Capacity:    capacity,
		Budget:      budget,
		Constraints: cs,
		Statistics:  game.AttributeStatistics{RelativeFrequencies: freqs},
		Logger:      testLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	return p
}

func TestNewValidation(t *testing.T) {
	valid := game.AttributeStatistics{
		RelativeFrequencies: map[game.AttributeID]float64{"young": 0.5},
	}

	tests := []struct {
		name        string
		capacity    int
		budget      int
		constraints []game.Constraint
		stats       game.AttributeStatistics
		tuning      Tuning
	}{
		{
			name:        "empty statistics",
			capacity:    10,
			budget:      10,
			constraints: []game.Constraint{{Attribute: "young", MinCount: 5}},
			stats:       game.AttributeStatistics{},
		},
		{
			name:        "constrained attribute without frequency",
			capacity:    10,
			budget:      10,
			constraints: []game.Constraint{{Attribute: "techno_lover", MinCount: 5}},
			stats:       valid,
		},
		{
			name:        "non-positive min count",
			capacity:    10,
			budget:      10,
			constraints: []game.Constraint{{Attribute: "young", MinCount: 0}},
			stats:       valid,
		},
		{
			name:        "zero capacity",
			capacity:    0,
			budget:      10,
			constraints: []game.Constraint{{Attribute: "young", MinCount: 5}},
			stats:       valid,
		},
		{
			name:        "invalid tuning",
			capacity:    10,
			budget:      10,
			constraints: []game.Constraint{{Attribute: "young", MinCount: 5}},
			stats:       valid,
			tuning:      Tuning{DecayFactor: 1.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Config{
				GameID:      "test-game",
				Capacity:    tt.capacity,
				Budget:      tt.budget,
				Constraints: tt.constraints,
				Statistics:  tt.stats,
				Tuning:      tt.tuning,
				Logger:      testLogger(),
			})
			if err == nil {
				t.Fatal("New() error = nil, want error")
			}
		})
	}
}

// A balanced stream (attribute frequency matches the constraint's share of
// capacity) never puts the constraint behind pace, so the threshold stays at
// zero and nobody is rejected.
func TestBalancedArrivalsAdmitEveryone(t *testing.T) {
	p := newTestPolicy(t, 10, 10,
		[]game.Constraint{{Attribute: "young", MinCount: 5}},
		map[game.AttributeID]float64{"young": 0.5},
	)

	if got := p.Status(); got != game.StatusInit {
		t.Fatalf("Status() before decisions = %q, want %q", got, game.StatusInit)
	}

	for i := 0; i < 10; i++ {
		var pr game.Person
		if i%2 == 0 {
			pr = person(i, "young")
		} else {
			pr = person(i)
		}

		d, err := p.Decide(pr)
		if err != nil {
			t.Fatalf("Decide(%d) error = %v", i, err)
		}
		if !d.Accepted {
			t.Errorf("Decide(%d).Accepted = false, want true", i)
		}
		if d.Forced {
			t.Errorf("Decide(%d).Forced = true, want false", i)
		}
		if d.Threshold != 0 {
			t.Errorf("Decide(%d).Threshold = %v, want 0", i, d.Threshold)
		}

		st := p.State()
		if st.Admitted+st.Rejected != i+1 {
			t.Errorf("after %d decisions: admitted+rejected = %d, want %d",
				i+1, st.Admitted+st.Rejected, i+1)
		}
	}

	st := p.State()
	if st.Admitted != 10 || st.Rejected != 0 {
		t.Errorf("final counts = %d admitted, %d rejected, want 10, 0", st.Admitted, st.Rejected)
	}
	if st.Status != game.StatusCompleted {
		t.Errorf("final status = %q, want %q", st.Status, game.StatusCompleted)
	}
	if !p.Satisfied() {
		t.Error("Satisfied() = false, want true")
	}
	if d := p.Deficits()["young"]; d != 0 {
		t.Errorf("final deficit = %d, want 0", d)
	}
}

// A scarce constrained attribute (minCount 8 of 10, frequency 0.2) trips the
// pace check on the first decision. The threshold is still zero for person 0,
// then every non-carrier is rejected until the constraint is met, and the
// last slot is filled by whoever shows up.
func TestScarceAttributeRejectsNonCarriers(t *testing.T) {
	p := newTestPolicy(t, 10, 50,
		[]game.Constraint{{Attribute: "vip", MinCount: 8}},
		map[game.AttributeID]float64{"vip": 0.2},
	)

	wantAccept := make([]bool, 20)
	wantAccept[0] = true // threshold has not risen yet
	for i := 11; i <= 19; i++ {
		wantAccept[i] = true
	}

	for i := 0; i < 20; i++ {
		var pr game.Person
		if i >= 11 && i <= 18 {
			pr = person(i, "vip")
		} else {
			pr = person(i)
		}

		d, err := p.Decide(pr)
		if err != nil {
			t.Fatalf("Decide(%d) error = %v", i, err)
		}
		if d.Accepted != wantAccept[i] {
			t.Errorf("Decide(%d).Accepted = %v, want %v", i, d.Accepted, wantAccept[i])
		}
		if d.Forced {
			t.Errorf("Decide(%d).Forced = true, want false", i)
		}
	}

	st := p.State()
	if st.Status != game.StatusCompleted {
		t.Fatalf("final status = %q, want %q", st.Status, game.StatusCompleted)
	}
	if got := st.AdmittedWith["vip"]; got != 8 {
		t.Errorf("admitted vip carriers = %d, want 8", got)
	}
	if st.Admitted != 10 || st.Rejected != 10 {
		t.Errorf("final counts = %d admitted, %d rejected, want 10, 10", st.Admitted, st.Rejected)
	}
}

// Once remaining capacity equals the total remaining deficit, every decision
// is forced: helpers are admitted, everyone else is rejected, regardless of
// threshold or weights.
func TestZeroSlackForcesDecisions(t *testing.T) {
	p := newTestPolicy(t, 4, 10,
		[]game.Constraint{
			{Attribute: "a", MinCount: 2},
			{Attribute: "b", MinCount: 2},
		},
		map[game.AttributeID]float64{"a": 0.5, "b": 0.5},
	)

	steps := []struct {
		attrs      []game.AttributeID
		wantAccept bool
	}{
		{nil, false},                     // capacity 4 = deficit 4, no help
		{[]game.AttributeID{"a"}, true},  // reduces deficit a
		{[]game.AttributeID{"a"}, true},  // a reaches its minimum
		{[]game.AttributeID{"a"}, false}, // a satisfied, does not help b
		{[]game.AttributeID{"b"}, true},
		{[]game.AttributeID{"b"}, true},
	}

	for i, step := range steps {
		d, err := p.Decide(person(i, step.attrs...))
		if err != nil {
			t.Fatalf("Decide(%d) error = %v", i, err)
		}
		if d.Accepted != step.wantAccept {
			t.Errorf("Decide(%d).Accepted = %v, want %v", i, d.Accepted, step.wantAccept)
		}
		if !d.Forced {
			t.Errorf("Decide(%d).Forced = false, want true", i)
		}
	}

	st := p.State()
	if st.Status != game.StatusCompleted {
		t.Fatalf("final status = %q, want %q", st.Status, game.StatusCompleted)
	}
	if st.AdmittedWith["a"] != 2 || st.AdmittedWith["b"] != 2 {
		t.Errorf("admitted carriers = a:%d b:%d, want a:2 b:2",
			st.AdmittedWith["a"], st.AdmittedWith["b"])
	}
}

func TestBudgetExhaustionFailsTheGame(t *testing.T) {
	// minCount equals capacity, so non-carriers are force-rejected from the
	// start; three rejections exhaust the budget.
	p := newTestPolicy(t, 5, 3,
		[]game.Constraint{{Attribute: "scarce", MinCount: 5}},
		map[game.AttributeID]float64{"scarce": 0.5},
	)

	for i := 0; i < 3; i++ {
		d, err := p.Decide(person(i))
		if err != nil {
			t.Fatalf("Decide(%d) error = %v", i, err)
		}
		if d.Accepted {
			t.Errorf("Decide(%d).Accepted = true, want false", i)
		}
		if !d.Forced {
			t.Errorf("Decide(%d).Forced = false, want true", i)
		}
	}

	if got := p.Status(); got != game.StatusFailed {
		t.Fatalf("Status() = %q, want %q", got, game.StatusFailed)
	}

	_, err := p.Decide(person(3))
	if err == nil {
		t.Fatal("Decide() after terminal status error = nil, want error")
	}
	var pe *game.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *game.ProtocolError", err)
	}
	if pe.GameID != "test-game" {
		t.Errorf("ProtocolError.GameID = %q, want %q", pe.GameID, "test-game")
	}
}

func TestOutOfSequenceIndexIsProtocolError(t *testing.T) {
	p := newTestPolicy(t, 100, 100,
		[]game.Constraint{{Attribute: "young", MinCount: 5}},
		map[game.AttributeID]float64{"young": 0.5},
	)

	if _, err := p.Decide(person(3)); err == nil {
		t.Fatal("Decide(3) as first decision error = nil, want error")
	}

	if _, err := p.Decide(person(0)); err != nil {
		t.Fatalf("Decide(0) error = %v", err)
	}

	_, err := p.Decide(person(0))
	if err == nil {
		t.Fatal("repeated Decide(0) error = nil, want error")
	}
	var pe *game.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *game.ProtocolError", err)
	}

	// The failed call must not have consumed the sequence number.
	if _, err := p.Decide(person(1)); err != nil {
		t.Fatalf("Decide(1) error = %v", err)
	}
}

// With a scarce attribute and a tight budget, the threshold first rises under
// constraint pressure, then falls once the realized rejection rate outruns
// what the remaining budget affords.
func TestThresholdDropsWhenRejectionsOutrunBudget(t *testing.T) {
	p := newTestPolicy(t, 10, 10,
		[]game.Constraint{{Attribute: "vip", MinCount: 8}},
		map[game.AttributeID]float64{"vip": 0.2},
	)

	var thresholds []float64
	for i := 0; i < 30; i++ {
		if _, err := p.Decide(person(i)); err != nil {
			t.Fatalf("Decide(%d) error = %v", i, err)
		}
		thresholds = append(thresholds, p.Threshold())
		if p.Status().Terminal() {
			break
		}
	}

	if got := p.Status(); got != game.StatusFailed {
		t.Fatalf("Status() = %q, want %q", got, game.StatusFailed)
	}

	peak, peakIdx := 0.0, -1
	for i, th := range thresholds {
		if th > peak {
			peak, peakIdx = th, i
		}
	}
	if peak <= 0 {
		t.Fatal("threshold never rose above 0")
	}

	dropped := false
	for i := peakIdx; i+1 < len(thresholds); i++ {
		if thresholds[i+1] < thresholds[i] {
			dropped = true
			break
		}
	}
	if !dropped {
		t.Errorf("threshold never dropped while the budget drained: %v", thresholds)
	}
}

func TestDecisionsAreDeterministic(t *testing.T) {
	run := func() []game.Decision {
		p := newTestPolicy(t, 10, 50,
			[]game.Constraint{{Attribute: "vip", MinCount: 8}},
			map[game.AttributeID]float64{"vip": 0.2},
		)
		var out []game.Decision
		for i := 0; i < 20; i++ {
			var pr game.Person
			if i >= 11 && i <= 18 {
				pr = person(i, "vip")
			} else {
				pr = person(i)
			}
			d, err := p.Decide(pr)
			if err != nil {
				t.Fatalf("Decide(%d) error = %v", i, err)
			}
			out = append(out, d)
		}
		return out
	}

	first, second := run(), run()
	for i := range first {
		a, b := first[i], second[i]
		if a.Accepted != b.Accepted || a.Forced != b.Forced ||
			a.Score != b.Score || a.Threshold != b.Threshold {
			t.Errorf("decision %d diverged between runs: %+v vs %+v", i, a, b)
		}
	}
}

func TestReconcile(t *testing.T) {
	p := newTestPolicy(t, 10, 10,
		[]game.Constraint{{Attribute: "young", MinCount: 5}},
		map[game.AttributeID]float64{"young": 0.5},
	)

	for i := 0; i < 3; i++ {
		if _, err := p.Decide(person(i, "young")); err != nil {
			t.Fatalf("Decide(%d) error = %v", i, err)
		}
	}

	st := p.State()
	if err := p.Reconcile(st.Admitted, st.Rejected); err != nil {
		t.Errorf("Reconcile(matching) error = %v, want nil", err)
	}

	err := p.Reconcile(st.Admitted+1, st.Rejected)
	if err == nil {
		t.Fatal("Reconcile(diverged) error = nil, want error")
	}
	var pe *game.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *game.ProtocolError", err)
	}
	if pe.GameID != "test-game" {
		t.Errorf("ProtocolError.GameID = %q, want %q", pe.GameID, "test-game")
	}
}

func TestFinalize(t *testing.T) {
	t.Run("adopts server terminal status", func(t *testing.T) {
		p := newTestPolicy(t, 10, 10,
			[]game.Constraint{{Attribute: "young", MinCount: 5}},
			map[game.AttributeID]float64{"young": 0.5},
		)
		if _, err := p.Decide(person(0, "young")); err != nil {
			t.Fatal(err)
		}

		if err := p.Finalize(game.StatusCompleted); err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}
		if got := p.Status(); got != game.StatusCompleted {
			t.Errorf("Status() = %q, want %q", got, game.StatusCompleted)
		}

		// Idempotent for the same status.
		if err := p.Finalize(game.StatusCompleted); err != nil {
			t.Errorf("repeated Finalize() error = %v, want nil", err)
		}

		// Conflicting second finalization is a protocol error.
		if err := p.Finalize(game.StatusFailed); err == nil {
			t.Error("conflicting Finalize() error = nil, want error")
		}
	})

	t.Run("rejects non-terminal status", func(t *testing.T) {
		p := newTestPolicy(t, 10, 10,
			[]game.Constraint{{Attribute: "young", MinCount: 5}},
			map[game.AttributeID]float64{"young": 0.5},
		)
		if err := p.Finalize(game.StatusRunning); err == nil {
			t.Error("Finalize(running) error = nil, want error")
		}
	})

	t.Run("mismatch with local terminal status", func(t *testing.T) {
		p := newTestPolicy(t, 2, 10,
			[]game.Constraint{{Attribute: "young", MinCount: 1}},
			map[game.AttributeID]float64{"young": 0.5},
		)
		for i := 0; i < 2; i++ {
			if _, err := p.Decide(person(i, "young")); err != nil {
				t.Fatal(err)
			}
		}
		if got := p.Status(); got != game.StatusCompleted {
			t.Fatalf("Status() = %q, want %q", got, game.StatusCompleted)
		}

		err := p.Finalize(game.StatusFailed)
		if err == nil {
			t.Fatal("Finalize(failed) after local completed error = nil, want error")
		}
		var pe *game.ProtocolError
		if !errors.As(err, &pe) {
			t.Fatalf("error = %v, want *game.ProtocolError", err)
		}
	})
}

func TestModelFallbackOnBadStatistics(t *testing.T) {
	// The correlation block references an attribute with no published
	// frequency, so the correlated model cannot be built. The policy falls
	// back to independence instead of refusing to play.
	p, err := New(Config{
		GameID:      "test-game",
		Capacity:    10,
		Budget:      10,
		Constraints: []game.Constraint{{Attribute: "a", MinCount: 5}},
		Statistics: game.AttributeStatistics{
			RelativeFrequencies: map[game.AttributeID]float64{"a": 0.5},
			Correlations: map[game.AttributeID]map[game.AttributeID]float64{
				"a": {"ghost": 0.3},
			},
		},
		Logger: testLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	if !p.ModelDegraded() {
		t.Error("ModelDegraded() = false, want true")
	}
	if _, err := p.Decide(person(0, "a")); err != nil {
		t.Errorf("Decide() on degraded model error = %v", err)
	}
}

func TestInfeasibleCorrelationsDegradeButPlay(t *testing.T) {
	// Pairwise-consistent but jointly impossible correlations force a
	// projection; the policy reports degradation and keeps deciding.
	rho := map[game.AttributeID]map[game.AttributeID]float64{
		"a": {"b": 0.9, "c": 0.9},
		"b": {"c": -0.9},
	}
	p, err := New(Config{
		GameID:      "test-game",
		Capacity:    10,
		Budget:      10,
		Constraints: []game.Constraint{{Attribute: "a", MinCount: 5}},
		Statistics: game.AttributeStatistics{
			RelativeFrequencies: map[game.AttributeID]float64{"a": 0.5, "b": 0.5, "c": 0.5},
			Correlations:        rho,
		},
		Logger: testLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	if !p.ModelDegraded() {
		t.Error("ModelDegraded() = false, want true")
	}
	if _, err := p.Decide(person(0, "a", "b")); err != nil {
		t.Errorf("Decide() error = %v", err)
	}
}

func TestSatisfiedConstraintsAdmitEverything(t *testing.T) {
	p := newTestPolicy(t, 6, 10,
		[]game.Constraint{{Attribute: "a", MinCount: 1}},
		map[game.AttributeID]float64{"a": 0.5},
	)

	if _, err := p.Decide(person(0, "a")); err != nil {
		t.Fatal(err)
	}
	if !p.Satisfied() {
		t.Fatal("Satisfied() = false after meeting the only constraint")
	}

	for i := 1; i < 6; i++ {
		d, err := p.Decide(person(i))
		if err != nil {
			t.Fatalf("Decide(%d) error = %v", i, err)
		}
		if !d.Accepted {
			t.Errorf("Decide(%d).Accepted = false, want true", i)
		}
	}

	st := p.State()
	if st.Status != game.StatusCompleted || st.Rejected != 0 {
		t.Errorf("final state = %q with %d rejections, want %q with 0",
			st.Status, st.Rejected, game.StatusCompleted)
	}
}

func TestSetTuning(t *testing.T) {
	p := newTestPolicy(t, 10, 10,
		[]game.Constraint{{Attribute: "young", MinCount: 5}},
		map[game.AttributeID]float64{"young": 0.5},
	)

	next := DefaultTuning()
	next.ThresholdStep = 0.2
	if err := p.SetTuning(next); err != nil {
		t.Fatalf("SetTuning() error = %v", err)
	}
	if got := p.Tuning().ThresholdStep; got != 0.2 {
		t.Errorf("Tuning().ThresholdStep = %v, want 0.2", got)
	}

	bad := DefaultTuning()
	bad.RateSmoothing = 2
	if err := p.SetTuning(bad); err == nil {
		t.Fatal("SetTuning(invalid) error = nil, want error")
	}
	if got := p.Tuning().ThresholdStep; got != 0.2 {
		t.Errorf("invalid SetTuning changed tuning: ThresholdStep = %v, want 0.2", got)
	}
}

func TestWeightsReturnsACopy(t *testing.T) {
	p := newTestPolicy(t, 10, 10,
		[]game.Constraint{{Attribute: "young", MinCount: 5}},
		map[game.AttributeID]float64{"young": 0.5},
	)

	w := p.Weights()
	w["young"] = 99

	if got := p.Weights()["young"]; got == 99 {
		t.Error("mutating the returned weights map changed policy state")
	}
}
