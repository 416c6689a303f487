package ai

import (
	"os"

	"gopkg.in/yaml.v3"

	"tradecouncil/pkg/errors"
)

// ModelHandle identifies the model a task is routed to
type ModelHandle struct {
	Provider        ProviderName `yaml:"provider"`
	Model           string       `yaml:"model"`
	MaxOutputTokens int          `yaml:"max_output_tokens"`
}

// RoutingTable maps tasks to models. Tasks missing from the table use Default.
type RoutingTable struct {
	Default ModelHandle          `yaml:"default"`
	Routes  map[Task]ModelHandle `yaml:"routes"`
}

var defaultRoutingTable = RoutingTable{
	Default: ModelHandle{Provider: ProviderNameOpenAI, Model: ModelGPT4oMini, MaxOutputTokens: 1500},
	Routes: map[Task]ModelHandle{
		TaskMarketAnalysis:    {Provider: ProviderNameOpenAI, Model: ModelGPT4oMini, MaxOutputTokens: 1500},
		TaskSentimentAnalysis: {Provider: ProviderNameOpenAI, Model: ModelGPT4oMini, MaxOutputTokens: 1500},
		TaskTechnicalAnalysis: {Provider: ProviderNameOpenAI, Model: ModelGPT4oMini, MaxOutputTokens: 1500},
		TaskResearch:          {Provider: ProviderNameDeepSeek, Model: ModelDeepSeekChat, MaxOutputTokens: 2000},
		TaskDebateModeration:  {Provider: ProviderNameDeepSeek, Model: ModelDeepSeekChat, MaxOutputTokens: 1500},
		TaskDebateSynthesis:   {Provider: ProviderNameOpenAI, Model: ModelGPT4o, MaxOutputTokens: 1200},
		TaskTradeProposal:     {Provider: ProviderNameOpenAI, Model: ModelGPT4o, MaxOutputTokens: 1500},
		TaskRiskNarrative:     {Provider: ProviderNameOpenAI, Model: ModelGPT4o, MaxOutputTokens: 1500},
	},
}

// DefaultRoutingTable returns a copy of the built-in routes
func DefaultRoutingTable() RoutingTable {
	routes := make(map[Task]ModelHandle, len(defaultRoutingTable.Routes))
	for k, v := range defaultRoutingTable.Routes {
		routes[k] = v
	}
	return RoutingTable{Default: defaultRoutingTable.Default, Routes: routes}
}

// PickModel resolves a task against the built-in routes
func PickModel(task Task) ModelHandle {
	return defaultRoutingTable.Pick(task)
}

// Pick resolves a task to a model. It has no side effects.
func (t RoutingTable) Pick(task Task) ModelHandle {
	if h, ok := t.Routes[task]; ok && h.Model != "" {
		return h
	}
	return t.Default
}

// LoadRoutingTable overlays routes from a YAML file on the built-in table.
// An empty path returns the built-in table.
func LoadRoutingTable(path string) (RoutingTable, error) {
	table := DefaultRoutingTable()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return RoutingTable{}, errors.Wrapf(err, "read routing table %s", path)
	}

	var overlay RoutingTable
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return RoutingTable{}, errors.Wrapf(err, "parse routing table %s", path)
	}

	if overlay.Default.Model != "" {
		if err := overlay.Default.validate(); err != nil {
			return RoutingTable{}, errors.Wrap(err, "default route")
		}
		table.Default = overlay.Default
	}
	for task, h := range overlay.Routes {
		if err := h.validate(); err != nil {
			return RoutingTable{}, errors.Wrapf(err, "route %s", task)
		}
		table.Routes[task] = h
	}

	return table, nil
}

func (h ModelHandle) validate() error {
	if !h.Provider.IsValid() {
		return errors.NewValidationError("provider", "unknown provider", h.Provider)
	}
	if h.Model == "" {
		return errors.NewValidationError("model", "model is required", h.Model)
	}
	return nil
}
