package promptbank

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Prompt is one templated prompt pair for the AI collaborator.
type Prompt struct {
	System       string
	UserTemplate string
}

// Bank holds all prompt templates, loaded once at startup and passed by
// reference to whoever needs them. No lazy module-level state.
type Bank struct {
	GenerateQuestions Prompt
	EvaluateAnswers   Prompt
}

// Load reads the prompt YAML files from dir. Each file carries a
// system_prompt and a user_template key.
func Load(dir string) (*Bank, error) {
	generate, err := loadPrompt(filepath.Join(dir, "generate_recall_questions.yaml"))
	if err != nil {
		return nil, err
	}

	evaluate, err := loadPrompt(filepath.Join(dir, "evaluate_recall.yaml"))
	if err != nil {
		return nil, err
	}

	return &Bank{
		GenerateQuestions: generate,
		EvaluateAnswers:   evaluate,
	}, nil
}

func loadPrompt(path string) (Prompt, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Prompt{}, fmt.Errorf("failed to load prompt file %s: %w", path, err)
	}

	p := Prompt{
		System:       k.String("system_prompt"),
		UserTemplate: k.String("user_template"),
	}
	if p.System == "" || p.UserTemplate == "" {
		return Prompt{}, fmt.Errorf("prompt file %s missing system_prompt or user_template", path)
	}
	return p, nil
}

// Render substitutes {placeholder} style variables in the user template.
func (p Prompt) Render(vars map[string]string) string {
	out := p.UserTemplate
	for key, value := range vars {
		out = strings.ReplaceAll(out, "{"+key+"}", value)
	}
	return out
}
