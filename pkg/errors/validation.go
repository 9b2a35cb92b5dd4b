package errors

import (
	"regexp"
	"strings"
	"unicode"
)

const maxNameLength = 256

// ValidateNodeName validates a node name read from a graph definition.
//
// The rules mirror what dataflow graph formats accept:
//   - No empty names
//   - No control characters or whitespace
//   - No ':' (reserved for "producer:port" input references)
//   - No leading '^' (reserved for control inputs)
//   - Maximum length of 256 characters
func ValidateNodeName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidNode, "node name cannot be empty")
	}

	if len(name) > maxNameLength {
		return New(ErrCodeInvalidNode, "node name too long (max %d characters)", maxNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidNode, "node name %q contains whitespace or control characters", name)
		}
	}

	if strings.Contains(name, ":") {
		return New(ErrCodeInvalidNode, "node name %q cannot contain ':'", name)
	}

	if strings.HasPrefix(name, "^") {
		return New(ErrCodeInvalidNode, "node name %q cannot start with '^'", name)
	}

	return nil
}

// opNameRegex matches operation type names such as "MatMul" or "nn.Conv2D".
var opNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// ValidateOpName validates an operation type name. An empty op is allowed
// and means "unknown"; it never matches an op-based policy.
func ValidateOpName(op string) error {
	if op == "" {
		return nil
	}
	if len(op) > maxNameLength {
		return New(ErrCodeInvalidNode, "op name too long (max %d characters)", maxNameLength)
	}
	if !opNameRegex.MatchString(op) {
		return New(ErrCodeInvalidNode, "invalid op name: %q", op)
	}
	return nil
}

// ValidateDevicePrefix validates the prefix used to build segment device labels.
func ValidateDevicePrefix(prefix string) error {
	if prefix == "" {
		return New(ErrCodeInvalidArgument, "device prefix cannot be empty")
	}
	for _, r := range prefix {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidArgument, "device prefix %q contains whitespace or control characters", prefix)
		}
	}
	return nil
}

// ValidateURL validates a cache backend URL.
// It ensures the URL has a redis scheme.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidConfig, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "redis://") && !strings.HasPrefix(rawURL, "rediss://") {
		return New(ErrCodeInvalidConfig, "URL must use redis or rediss scheme")
	}

	return nil
}
