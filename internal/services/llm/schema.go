package llm

import (
	"encoding/base64"

	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
)

// jsonSchema renders tool parameters as a JSON schema object
func jsonSchema(schema interfaces.ToolSchema) map[string]any {
	out := map[string]any{
		"type":       "object",
		"properties": schemaProperties(schema),
	}
	if len(schema.Required) > 0 {
		out["required"] = schema.Required
	}
	return out
}

func schemaProperties(schema interfaces.ToolSchema) map[string]any {
	props := make(map[string]any, len(schema.Properties))
	for name, prop := range schema.Properties {
		p := map[string]any{"type": prop.Type}
		if prop.Description != "" {
			p["description"] = prop.Description
		}
		if prop.Type == "array" {
			items := prop.ItemsType
			if items == "" {
				items = "string"
			}
			p["items"] = map[string]any{"type": items}
		}
		props[name] = p
	}
	return props
}

// figureBase64 encodes figure bytes for providers that take inline base64
func figureBase64(figure *models.FigurePayload) string {
	return base64.StdEncoding.EncodeToString(figure.Data)
}

// figureDataURL renders a figure as a data URL
func figureDataURL(figure *models.FigurePayload) string {
	return "data:" + figure.MimeType + ";base64," + figureBase64(figure)
}
