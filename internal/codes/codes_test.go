package codes

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/riftwatch/riftwatch/internal/protocol"
)

func TestParseValidTable(t *testing.T) {
	data := []byte(`
code_parameters:
  event: 252
handlers:
  - name: player_spotted
    kind: event
    code: 52
  - name: cluster_changed
    kind: response
    code: 2
`)
	table, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	bindings, err := table.Bindings()
	if err != nil {
		t.Fatalf("bindings: %v", err)
	}
	if len(bindings) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(bindings))
	}
	if bindings[0] != (Binding{Name: "player_spotted", Kind: protocol.KindEvent, Code: 52}) {
		t.Fatalf("unexpected first binding %+v", bindings[0])
	}
	if len(table.ParserOptions()) != 1 {
		t.Fatal("expected one parser option from code_parameters")
	}
}

func TestValidateRejectsBadTables(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown kind",
			yaml: "handlers:\n  - {name: a, kind: notify, code: 1}\n",
			want: "unknown envelope kind",
		},
		{
			name: "duplicate code",
			yaml: "handlers:\n  - {name: a, kind: event, code: 1}\n  - {name: b, kind: event, code: 1}\n",
			want: "already bound to a",
		},
		{
			name: "missing name",
			yaml: "handlers:\n  - {kind: event, code: 1}\n",
			want: "missing name",
		},
		{
			name: "bad code parameter",
			yaml: "code_parameters: {event: 300}\nhandlers: []\n",
			want: "is not a byte",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestSameCodeDifferentKindsIsAllowed(t *testing.T) {
	_, err := Parse([]byte("handlers:\n  - {name: a, kind: event, code: 2}\n  - {name: b, kind: response, code: 2}\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", DefaultFile)

	table, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(table.Handlers) != len(Default().Handlers) {
		t.Fatalf("expected default table, got %d handlers", len(table.Handlers))
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default file written: %v", err)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(again.Handlers) != len(table.Handlers) {
		t.Fatal("reloaded table differs from default")
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default table invalid: %v", err)
	}
}
