package preset

import (
	"encoding/json"

	"github.com/voxdeck/voxdeck/pkg/realtime"
	"github.com/voxdeck/voxdeck/pkg/toolset"
)

// RealtimeModel returns the model to open a live session with.
func (p *Preset) RealtimeModel() string {
	if p.Model != "" {
		return p.Model
	}
	return realtime.ModelGPT4oRealtimePreview
}

// RealtimeConfig derives the live session configuration from the preset
// and its current tool selection. The preview and the deployed widget
// run the same derivation, so what the operator hears in `chat live` is
// what end users get.
func RealtimeConfig(p *Preset, sel *toolset.Selection) realtime.SessionConfig {
	return realtime.SessionConfig{
		Modalities:   []string{realtime.ModalityText, realtime.ModalityAudio},
		Instructions: p.Instructions,
		Voice:        p.Voice,
		Temperature:  p.Temperature,
		Tools:        RealtimeTools(sel),
	}
}

// RealtimeTools declares the selected tools to the realtime session.
// Dormant selections have no live descriptor and are omitted.
func RealtimeTools(sel *toolset.Selection) []realtime.Tool {
	if sel == nil {
		return nil
	}
	catalog := sel.Catalog()
	var tools []realtime.Tool
	for _, src := range toolset.Sources() {
		for _, name := range sel.SelectedNames(src) {
			tool, ok := catalog.Lookup(src, name)
			if !ok {
				continue
			}
			rt := realtime.Tool{
				Type:        "function",
				Name:        tool.Name,
				Description: tool.Description,
			}
			if src == toolset.SourceWebhook {
				rt.Parameters = schemaMap(toolset.ParamsSchema(sel.Params(tool.IntegrationID)))
			} else {
				// MCP input schemas live on the backend dispatcher;
				// the session declares an open object.
				rt.Parameters = map[string]any{"type": "object"}
			}
			tools = append(tools, rt)
		}
	}
	return tools
}

func schemaMap(schema any) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{"type": "object"}
	}
	return m
}
