package collaborator

import "benefit-orchestrator/internal/common/validation"

var stageResultSchema = validation.MustCompile(`{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["outcome"],
	"properties": {
		"stage": {
			"type": "string",
			"enum": ["IdentityVerification", "DocumentProcessing", "EligibilityDecision", "QualityReview", "HumanReview", "Execution"]
		},
		"outcome": {
			"type": "string",
			"enum": ["Approved", "Declined", "Pending", "NeedsInfo"]
		},
		"summary": {"type": "string"},
		"payload": {"type": "object"},
		"documentRequest": {
			"type": "object",
			"required": ["documentIds"],
			"properties": {
				"documentIds": {
					"type": "array",
					"minItems": 1,
					"items": {"type": "string", "minLength": 1}
				},
				"reason": {"type": "string"}
			}
		},
		"humanResponse": {
			"type": "object",
			"properties": {
				"kind": {"type": "string", "enum": ["Agree", "Correct", "Clarify"]},
				"candidates": {
					"type": "array",
					"items": {"type": "string", "enum": ["Agree", "Correct", "Clarify"]}
				},
				"text": {"type": "string"},
				"note": {"type": "string"}
			}
		}
	}
}`)

var humanResponseSchema = validation.MustCompile(`{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["kind"],
	"properties": {
		"kind": {"type": "string", "enum": ["Agree", "Correct", "Clarify"]},
		"candidates": {
			"type": "array",
			"items": {"type": "string", "enum": ["Agree", "Correct", "Clarify"]}
		},
		"note": {"type": "string"}
	}
}`)
