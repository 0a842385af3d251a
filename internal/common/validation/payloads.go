package validation

const draftPayloadJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "address", "serviceIds"],
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string"},
    "address": {"type": "string"},
    "latitude": {"type": "number", "minimum": -90, "maximum": 90},
    "longitude": {"type": "number", "minimum": -180, "maximum": 180},
    "categoryId": {"type": "string", "minLength": 1},
    "serviceIds": {
      "type": "array",
      "uniqueItems": true,
      "items": {"type": "string", "minLength": 1}
    },
    "logoUrl": {"type": "string", "minLength": 1},
    "photoUrls": {
      "type": "array",
      "maxItems": 10,
      "items": {"type": "string", "minLength": 1}
    }
  }
}`

const onboardingStatusJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["onboardingCompleted"],
  "properties": {
    "onboardingCompleted": {"type": "boolean"},
    "name": {"type": ["string", "null"]},
    "address": {"type": ["string", "null"]},
    "latitude": {"type": ["number", "null"]},
    "longitude": {"type": ["number", "null"]},
    "categoryId": {"type": ["string", "null"]},
    "serviceIds": {"type": ["array", "null"], "items": {"type": "string"}},
    "logoUrl": {"type": ["string", "null"]},
    "photoUrls": {"type": ["array", "null"], "items": {"type": "string"}},
    "missingSteps": {"type": ["array", "null"], "items": {"type": "string"}}
  }
}`

var (
	DraftPayloadSchema     = MustCompile("draft-payload", draftPayloadJSON)
	OnboardingStatusSchema = MustCompile("onboarding-status", onboardingStatusJSON)
)
