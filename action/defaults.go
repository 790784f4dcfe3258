package action

import "mnemo/core"

// Definition describes an action to register: the validated schema plus the
// webhook it executes against.
type Definition struct {
	ID         string
	Schema     core.ActionSchema
	WebhookURL string
	Tags       []string
	Category   string
}

// Defaults returns the built-in action set used to seed an empty registry.
func Defaults() []Definition {
	return []Definition{
		{
			ID: "default-memorise",
			Schema: core.ActionSchema{
				Name:        "memorise",
				Description: "Store information in long-term memory when the user explicitly asks to remember something.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{
							"type":        "string",
							"description": "Ultra-concise name for the memory, 1-4 words.",
						},
						"type": map[string]any{
							"type":        "string",
							"description": "Always set to 'memory'.",
						},
						"content": map[string]any{
							"type":        "string",
							"description": "Content of the memory rewritten in third person: 'I want this' becomes 'User wants this', and 'you' addressed to the assistant becomes 'I'. Append a YYYY-MM-DD HH:mm date when relevant.",
						},
						"tags": map[string]any{
							"type":        "array",
							"description": "Semantic tags enriching search. Add 'user' when the memory is about the user, 'assistant' when it is about the assistant.",
							"items":       map[string]any{"type": "string"},
						},
						"source": map[string]any{
							"type":        "string",
							"description": "Source of the memory when mentioned (url, book, article, video).",
						},
					},
					"required": []any{"name", "content", "type"},
				},
			},
			WebhookURL: "/api/memorise",
			Tags:       []string{"memorise", "memory", "remember", "skill"},
			Category:   "default",
		},
		{
			ID: "default-inventory-medical",
			Schema: core.ActionSchema{
				Name:        "manage_inventory_medical",
				Description: "Search, retrieve, update and create records for items related to personal health, medical treatment and wellness. Covers prescription and OTC medicines, vitamins and dietary supplements, and medical supplies or devices. The deciding factor versus the shopping action is the item's purpose: treatment, supplementation or health management belongs here regardless of form.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"sessionId": map[string]any{
							"type":        "string",
							"description": "Conversation session id maintaining context across workflow interactions.",
						},
						"chatInput": map[string]any{
							"type":        "string",
							"description": "The user's message about medicine or supply management, inventory updates, or queries about what they have.",
						},
					},
					"required": []any{"sessionId", "chatInput"},
				},
			},
			WebhookURL: "/api/inventory/medical",
			Tags:       []string{"inventory", "medical", "medicine", "supplements", "health"},
			Category:   "default",
		},
		{
			ID: "default-inventory-shopping",
			Schema: core.ActionSchema{
				Name:        "manage_inventory_shopping",
				Description: "Search, retrieve, update and create records for general groceries, household goods and other consumer products. Price comparison queries always belong here. Covers food items, cooking supplies, and household or cleaning products. The deciding factor versus the medical action is the item's purpose: cooking, general nutrition or household use belongs here.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"sessionId": map[string]any{
							"type":        "string",
							"description": "Conversation session id maintaining context across workflow interactions.",
						},
						"chatInput": map[string]any{
							"type":        "string",
							"description": "The user's message about shopping operations: price queries, list management, store comparisons or product updates.",
						},
					},
					"required": []any{"sessionId", "chatInput"},
				},
			},
			WebhookURL: "/api/inventory/shopping",
			Tags:       []string{"inventory", "shopping", "groceries", "household"},
			Category:   "default",
		},
	}
}
