// Package cli holds the interactive prompts used when flags leave the
// analyst selection or model choice unspecified.
package cli

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"hedgego/internal/agents"
	"hedgego/internal/llm"
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.-]+$`)

// ParseTickers validates and normalizes a comma-separated ticker list.
func ParseTickers(raw string) ([]string, error) {
	var tickers []string
	for _, part := range strings.Split(raw, ",") {
		t := strings.ToUpper(strings.TrimSpace(part))
		if t == "" {
			continue
		}
		if len(t) > 10 || !tickerPattern.MatchString(t) {
			return nil, fmt.Errorf("invalid ticker %q", t)
		}
		tickers = append(tickers, t)
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no tickers given")
	}
	return tickers, nil
}

// PromptForAnalysts asks which analysts to run. Confirming with nothing
// selected is allowed and runs the risk and portfolio managers only.
func PromptForAnalysts() ([]string, error) {
	configs := agents.Registry()
	options := make([]string, len(configs))
	keyByDisplay := make(map[string]string, len(configs))
	for i, c := range configs {
		options[i] = c.DisplayName
		keyByDisplay[c.DisplayName] = c.Key
	}

	var selected []string
	prompt := &survey.MultiSelect{
		Message: "Select your analysts:",
		Options: options,
		Default: options,
		Help:    "Space toggles an analyst, enter confirms.",
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(selected))
	for _, display := range selected {
		keys = append(keys, keyByDisplay[display])
	}
	return keys, nil
}

// PromptForModel asks which model to run the aggregation agents on and
// returns its name and provider.
func PromptForModel() (name, provider string, err error) {
	known := llm.KnownModels()
	options := make([]string, len(known))
	byDisplay := make(map[string]llm.ModelInfo, len(known))
	for i, m := range known {
		options[i] = m.DisplayName
		byDisplay[m.DisplayName] = m
	}

	var choice string
	prompt := &survey.Select{
		Message: "Select your LLM model:",
		Options: options,
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return "", "", err
	}
	m := byDisplay[choice]
	return m.Name, m.Provider, nil
}
