package ai

import (
	"embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

//go:embed prompts/*.txt
var defaultPrompts embed.FS

// Track initialized prompt directories to avoid duplicate init logs
var (
	initializedDirs   = make(map[string]bool)
	initializedDirsMu sync.Mutex
)

// PromptManager resolves prompt templates. Templates ship embedded in
// the binary; PromptsDir, when set, lets a deployment override any of
// them with a same-named .txt file without a rebuild.
type PromptManager struct {
	PromptsDir string
}

// NewPromptManager creates a prompt manager
func NewPromptManager(promptsDir string) *PromptManager {
	initializedDirsMu.Lock()
	if !initializedDirs[promptsDir] {
		initializedDirs[promptsDir] = true
		if promptsDir == "" {
			log.Printf("[PromptManager] Initialized with embedded templates")
		} else {
			log.Printf("[PromptManager] Initialized with override directory: %s", promptsDir)
		}
	}
	initializedDirsMu.Unlock()

	return &PromptManager{PromptsDir: promptsDir}
}

// LoadPrompt loads a prompt template by name, preferring an override
// file when one exists
func (pm *PromptManager) LoadPrompt(name string) (string, error) {
	if pm.PromptsDir != "" {
		path := filepath.Join(pm.PromptsDir, name+".txt")
		content, err := os.ReadFile(path)
		if err == nil {
			return string(content), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to load prompt %s: %w", name, err)
		}
	}

	content, err := defaultPrompts.ReadFile("prompts/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("prompt template not found: %s", name)
	}
	return string(content), nil
}

// RenderPrompt replaces {PLACEHOLDER} tokens with values
func (pm *PromptManager) RenderPrompt(name string, replacements map[string]string) (string, error) {
	template, err := pm.LoadPrompt(name)
	if err != nil {
		return "", err
	}

	result := template
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, "{"+placeholder+"}", value)
	}

	return result, nil
}
