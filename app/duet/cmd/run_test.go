package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cchalm/duet/internal/ai"
	"github.com/cchalm/duet/internal/relay"
)

func TestExportTranscripts(t *testing.T) {
	dir := t.TempDir()
	personas := relay.Personas("JJ", "CHOW-MEIN")
	outcome := relay.Outcome{
		Lead: relay.State{
			Role:    relay.RoleLead,
			Phase:   relay.PhaseHalted,
			Task:    "write a lexer",
			History: ai.NewHistory(ai.HumanTurn("write a lexer"), ai.AssistantTurn("func lex() {}")),
		},
		Follower: relay.NewState(relay.RoleFollower),
	}

	exportTranscripts(dir, "run-1", personas, outcome, zerolog.Nop())

	md, err := os.ReadFile(filepath.Join(dir, "run-1-lead.md"))
	require.NoError(t, err)
	require.Contains(t, string(md), "JJ")
	require.Contains(t, string(md), "func lex() {}")
	require.FileExists(t, filepath.Join(dir, "run-1-lead.json"))

	// Nothing is written for an identity that never took part
	require.NoFileExists(t, filepath.Join(dir, "run-1-follower.json"))
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "today")
	t.Cleanup(func() { SetVersionInfo("dev", "unknown", "unknown") })

	out := &bytes.Buffer{}
	versionCmd.SetOut(out)
	versionCmd.Run(versionCmd, nil)
	require.Equal(t, "duet 1.2.3 (commit abc123, built today)\n", out.String())
}
