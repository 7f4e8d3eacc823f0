package masking

import "strings"

const maskToken = "****"

// sensitiveKeys are metadata keys whose values never reach the audit trail in clear.
var sensitiveKeys = map[string]struct{}{
	"access_token": {},
	"signature":    {},
	"x_signature":  {},
	"secret":       {},
	"card_number":  {},
	"document":     {},
}

// MaskSecret redacts a secret while keeping a minimal suffix for auditing.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// MaskKeys returns a copy of input with sensitive string values masked,
// walking nested maps and lists.
func MaskKeys(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	out := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		if _, ok := sensitiveKeys[strings.ToLower(trimmedKey)]; ok {
			if str, isStr := value.(string); isStr {
				out[trimmedKey] = MaskSecret(str)
				continue
			}
		}
		out[trimmedKey] = walk(value)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func walk(value any) any {
	switch cast := value.(type) {
	case map[string]any:
		return MaskKeys(cast)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, walk(item))
		}
		return out
	default:
		return value
	}
}
