package ai

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"
)

//go:embed system_prompt.tmpl
var systemPromptTemplate string

var systemPrompt = template.Must(template.New("system").Option("missingkey=error").Parse(systemPromptTemplate))

const (
	codeTokenBudget  = 200
	replyTokenBudget = 400
)

// Persona is the identity a model is asked to adopt: its own name and the name of the partner it is talking to
type Persona struct {
	Name    string
	Partner string
}

type promptData struct {
	Name             string
	Partner          string
	Task             string
	CodeTokenBudget  int
	ReplyTokenBudget int
}

// BuildSystemPrompt renders the system prompt for the given persona. task is the literal text of the first human
// message of the run
func BuildSystemPrompt(persona Persona, task string) (string, error) {
	if persona.Name == "" || persona.Partner == "" {
		return "", fmt.Errorf("persona requires both a name and a partner, got %+v", persona)
	}

	data := promptData{
		Name:             persona.Name,
		Partner:          persona.Partner,
		Task:             task,
		CodeTokenBudget:  codeTokenBudget,
		ReplyTokenBudget: replyTokenBudget,
	}

	var buf bytes.Buffer
	if err := systemPrompt.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute system prompt template: %w", err)
	}
	return buf.String(), nil
}
