package inference

import (
	_ "embed"
	"strings"
)

//go:embed prompt.txt
var defaultInstructions string

// DefaultInstructions is the fixed instruction text sent with every image.
func DefaultInstructions() string {
	return strings.TrimSpace(defaultInstructions)
}
