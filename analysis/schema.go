package analysis

import "encoding/json"

// explanationSchema is the strict JSON schema the provider must follow.
var explanationSchema = json.RawMessage(`{
  "type": "object",
  "additionalProperties": false,
  "required": ["summary", "walkthrough", "risk_overview", "issues", "suggestions", "annotations"],
  "properties": {
    "summary": {"type": "string"},
    "walkthrough": {"type": "array", "items": {"type": "string"}},
    "risk_overview": {"type": "string"},
    "issues": {
      "type": "object",
      "additionalProperties": false,
      "required": ["performance", "security", "maintainability"],
      "properties": {
        "performance": {"$ref": "#/$defs/issueList"},
        "security": {"$ref": "#/$defs/issueList"},
        "maintainability": {"$ref": "#/$defs/issueList"}
      }
    },
    "suggestions": {"type": "array", "items": {"type": "string"}},
    "annotations": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["start_line", "end_line", "step_index", "note"],
        "properties": {
          "start_line": {"type": "integer"},
          "end_line": {"type": "integer"},
          "step_index": {"type": "integer"},
          "note": {"type": "string"}
        }
      }
    }
  },
  "$defs": {
    "issueList": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["message", "severity", "explanation"],
        "properties": {
          "message": {"type": "string"},
          "severity": {"type": "string", "enum": ["low", "medium", "high", "critical"]},
          "explanation": {"type": "string"}
        }
      }
    }
  }
}`)

// Schema returns a copy of the response schema.
func Schema() json.RawMessage {
	return append(json.RawMessage(nil), explanationSchema...)
}
