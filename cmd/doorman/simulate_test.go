package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"nocturne-labs/doorman/pkg/driver"
	"nocturne-labs/doorman/pkg/game"
)

func TestSummarize(t *testing.T) {
	results := []*driver.Result{
		{Scenario: 2, Status: game.StatusCompleted, Rejected: 900, Forced: 4, Duration: 2 * time.Second},
		{Scenario: 2, Status: game.StatusCompleted, Rejected: 700, Forced: 2, Duration: 4 * time.Second},
		{Scenario: 2, Status: game.StatusFailed, Rejected: 20000, Forced: 30, Duration: 6 * time.Second, Reason: "rejection budget exhausted"},
	}

	summary := summarize(results)

	if summary.Scenario != 2 {
		t.Errorf("Scenario = %d, want 2", summary.Scenario)
	}
	if summary.Games != 3 {
		t.Errorf("Games = %d, want 3", summary.Games)
	}
	if summary.Completed != 2 {
		t.Errorf("Completed = %d, want 2", summary.Completed)
	}
	if summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1", summary.Failed)
	}
	if summary.BestRejected != 700 {
		t.Errorf("BestRejected = %d, want 700", summary.BestRejected)
	}
	if summary.WorstRejected != 900 {
		t.Errorf("WorstRejected = %d, want 900", summary.WorstRejected)
	}
	if summary.AvgRejected != 800 {
		t.Errorf("AvgRejected = %v, want 800", summary.AvgRejected)
	}
	if summary.AvgForced != 12 {
		t.Errorf("AvgForced = %v, want 12", summary.AvgForced)
	}
	if summary.AvgDuration != 4*time.Second {
		t.Errorf("AvgDuration = %v, want 4s", summary.AvgDuration)
	}
}

func TestSummarize_Empty(t *testing.T) {
	summary := summarize(nil)

	if summary.Games != 0 {
		t.Errorf("Games = %d, want 0", summary.Games)
	}
	if summary.Completed != 0 || summary.Failed != 0 {
		t.Errorf("empty summary should have zero counts, got %+v", summary)
	}
}

func TestWriteSummaryText(t *testing.T) {
	summary := summarize([]*driver.Result{
		{GameID: "game-1", Scenario: 1, Status: game.StatusCompleted, Rejected: 850, Duration: time.Second},
		{GameID: "game-2", Scenario: 1, Status: game.StatusFailed, Rejected: 3000, Duration: time.Second, Reason: "rejection budget exhausted"},
	})

	buf := &bytes.Buffer{}
	writeSummaryText(buf, summary)
	out := buf.String()

	if !strings.Contains(out, "Simulated 2 game(s) of scenario 1") {
		t.Errorf("output missing header:\n%s", out)
	}
	if !strings.Contains(out, "Completed:  1/2") {
		t.Errorf("output missing completion ratio:\n%s", out)
	}
	if !strings.Contains(out, "best 850") {
		t.Errorf("output missing rejection stats:\n%s", out)
	}
	if !strings.Contains(out, "✗ game-2: rejection budget exhausted") {
		t.Errorf("output missing failure line:\n%s", out)
	}
}

func TestWriteSummaryText_NoCompletedGames(t *testing.T) {
	summary := summarize([]*driver.Result{
		{GameID: "game-1", Scenario: 3, Status: game.StatusFailed, Rejected: 500, Duration: time.Second},
	})

	buf := &bytes.Buffer{}
	writeSummaryText(buf, summary)
	out := buf.String()

	if !strings.Contains(out, "no completed games") {
		t.Errorf("output missing empty-stats line:\n%s", out)
	}
	if strings.Contains(out, "best") {
		t.Errorf("rejection stats should be omitted with no completed games:\n%s", out)
	}
}
