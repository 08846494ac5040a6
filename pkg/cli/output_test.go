package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    OutputFormat
		wantErr bool
	}{
		{name: "text", input: "text", want: FormatText},
		{name: "json", input: "json", want: FormatJSON},
		{name: "csv", input: "csv", want: FormatCSV},
		{name: "empty defaults to text", input: "", want: FormatText},
		{name: "unknown", input: "yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFormat(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTextFormatter(t *testing.T) {
	formatter := &TextFormatter{}
	data := "test message"

	output, err := formatter.Format(data)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	expected := "test message\n"
	if string(output) != expected {
		t.Errorf("Format() = %q, want %q", string(output), expected)
	}

	buf := &bytes.Buffer{}
	if err := formatter.FormatTo(buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if buf.String() != expected {
		t.Errorf("FormatTo() = %q, want %q", buf.String(), expected)
	}
}

func TestJSONFormatter(t *testing.T) {
	tests := []struct {
		name   string
		data   interface{}
		indent bool
	}{
		{
			name:   "simple string",
			data:   "test",
			indent: false,
		},
		{
			name: "map with indent",
			data: map[string]string{
				"key": "value",
			},
			indent: true,
		},
		{
			name: "struct",
			data: struct {
				GameID   string `json:"game_id"`
				Rejected int    `json:"rejected"`
			}{
				GameID:   "abc",
				Rejected: 4217,
			},
			indent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := &JSONFormatter{Indent: tt.indent}
			output, err := formatter.Format(tt.data)
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}

			var decoded interface{}
			if err := json.Unmarshal(output, &decoded); err != nil {
				t.Errorf("Format() produced invalid JSON: %v", err)
			}
		})
	}
}

func TestJSONFormatterWriter(t *testing.T) {
	formatter := &JSONFormatter{Indent: true}
	buf := &bytes.Buffer{}

	data := map[string]int{"admitted": 1000}
	if err := formatter.FormatTo(buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	if !strings.Contains(buf.String(), "\"admitted\": 1000") {
		t.Errorf("FormatTo() = %q, want indented JSON", buf.String())
	}
}

func TestCSVFormatter(t *testing.T) {
	formatter := &CSVFormatter{Headers: []string{"scenario", "rejected"}}
	rows := [][]string{
		{"1", "4217"},
		{"2", "5103"},
	}

	output, err := formatter.Format(rows)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 CSV lines, got %d", len(lines))
	}
	if lines[0] != "scenario,rejected" {
		t.Errorf("header = %q, want %q", lines[0], "scenario,rejected")
	}
	if lines[1] != "1,4217" {
		t.Errorf("row 1 = %q, want %q", lines[1], "1,4217")
	}
}

func TestCSVFormatterWrongType(t *testing.T) {
	formatter := &CSVFormatter{}
	if _, err := formatter.Format("not rows"); err == nil {
		t.Error("expected an error for non-row data")
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name   string
		format OutputFormat
		want   string
	}{
		{name: "text", format: FormatText, want: "*cli.TextFormatter"},
		{name: "json", format: FormatJSON, want: "*cli.JSONFormatter"},
		{name: "csv", format: FormatCSV, want: "*cli.CSVFormatter"},
		{name: "unknown falls back to text", format: OutputFormat("bogus"), want: "*cli.TextFormatter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := NewFormatter(tt.format)
			switch tt.want {
			case "*cli.TextFormatter":
				if _, ok := formatter.(*TextFormatter); !ok {
					t.Errorf("NewFormatter(%q) = %T, want %s", tt.format, formatter, tt.want)
				}
			case "*cli.JSONFormatter":
				if _, ok := formatter.(*JSONFormatter); !ok {
					t.Errorf("NewFormatter(%q) = %T, want %s", tt.format, formatter, tt.want)
				}
			case "*cli.CSVFormatter":
				if _, ok := formatter.(*CSVFormatter); !ok {
					t.Errorf("NewFormatter(%q) = %T, want %s", tt.format, formatter, tt.want)
				}
			}
		})
	}
}
