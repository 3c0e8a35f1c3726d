package ai

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"
)

//go:embed transcript_template.tmpl
var transcriptMarkdownTemplate string

// Transcript is a snapshot of one identity's conversation, exported once when a run ends
type Transcript struct {
	RunID      string    `json:"runId"`
	Persona    Persona   `json:"persona"`
	Task       string    `json:"task"`
	Turns      []Turn    `json:"turns"`
	ExportedAt time.Time `json:"exportedAt"`
}

// NewTranscript captures the given history
func NewTranscript(runID string, persona Persona, task string, history History) Transcript {
	return Transcript{
		RunID:      runID,
		Persona:    persona,
		Task:       task,
		Turns:      history.Turns(),
		ExportedAt: time.Now(),
	}
}

type transcriptMarkdownData struct {
	RunID      string
	Persona    Persona
	Task       string
	ExportedAt string
	Messages   []transcriptMessage
}

type transcriptMessage struct {
	Speaker  string
	Segments []string
}

// ToMarkdown renders the transcript as a markdown document
func (tr Transcript) ToMarkdown() (string, error) {
	data := transcriptMarkdownData{
		RunID:      tr.RunID,
		Persona:    tr.Persona,
		Task:       tr.Task,
		ExportedAt: tr.ExportedAt.Format("2006-01-02 15:04:05 MST"),
	}

	for _, turn := range tr.Turns {
		speaker := tr.Persona.Name
		if turn.Role == TurnHuman {
			speaker = "Incoming"
		}
		segments := []string{}
		for _, s := range turn.Segments {
			if strings.TrimSpace(s) != "" {
				segments = append(segments, s)
			}
		}
		data.Messages = append(data.Messages, transcriptMessage{Speaker: speaker, Segments: segments})
	}

	return renderTranscriptMarkdown(data)
}

func renderTranscriptMarkdown(data transcriptMarkdownData) (string, error) {
	funcMap := template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"indent": func(prefix string, text string) string {
			prefixed := strings.Builder{}
			for line := range strings.Lines(text) {
				prefixed.WriteString(prefix)
				prefixed.WriteString(line)
			}
			return prefixed.String()
		},
	}

	tmpl, err := template.New("transcript").Funcs(funcMap).Parse(transcriptMarkdownTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse transcript template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute transcript template: %w", err)
	}

	return buf.String(), nil
}
