package masking

import "strings"

const maskToken = "****"

// SensitiveKeys are metadata keys that hold patient contact details.
var SensitiveKeys = []string{"patient_contact", "patient_email", "contact", "email"}

// MaskContact redacts a phone number or email, keeping the last 4 characters.
func MaskContact(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// MaskFields returns a copy of input with the string values under keys
// masked. Nested maps are walked.
func MaskFields(input map[string]any, keys ...string) map[string]any {
	if len(input) == 0 {
		return nil
	}

	sensitive := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		sensitive[strings.ToLower(strings.TrimSpace(key))] = struct{}{}
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		_, isSensitive := sensitive[strings.ToLower(trimmedKey)]
		masked[trimmedKey] = maskValue(value, isSensitive, keys)
	}

	if len(masked) == 0 {
		return nil
	}
	return masked
}

func maskValue(value any, sensitive bool, keys []string) any {
	switch cast := value.(type) {
	case string:
		if sensitive {
			return MaskContact(cast)
		}
		return cast
	case map[string]any:
		return MaskFields(cast, keys...)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, maskValue(item, sensitive, keys))
		}
		return out
	default:
		return value
	}
}
