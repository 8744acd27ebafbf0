// Package validation checks rrgen's files against embedded JSON Schemas.
package validation

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

var (
	predictionsSchema = mustCompileSchema("predictions.schema.json")
	reportSchema      = mustCompileSchema("report.schema.json")
	configSchema      = mustCompileSchema("config.schema.json")
)

func mustCompileSchema(name string) *jsonschema.Schema {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("failed to read embedded %s: %v", name, err))
	}
	schemaDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// Kind is the type of file being validated.
type Kind string

const (
	KindPredictions Kind = "predictions"
	KindReport      Kind = "report"
	KindConfig      Kind = "config"
)

// DetectKind guesses the file kind from its name.
func DetectKind(path string) (Kind, error) {
	base := path
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		base = path[i+1:]
	}
	switch {
	case strings.HasSuffix(base, ".yaml") || strings.HasSuffix(base, ".yml"):
		return KindConfig, nil
	case strings.HasPrefix(base, "evaluation_metrics_"):
		return KindReport, nil
	case strings.HasPrefix(base, "predictions_"):
		return KindPredictions, nil
	default:
		return "", fmt.Errorf("cannot tell what kind of file %s is", path)
	}
}

// ValidateFile validates the file at path as kind.
func ValidateFile(path string, kind Kind) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	switch kind {
	case KindPredictions:
		return ValidatePredictionsBytes(data), nil
	case KindReport:
		return ValidateReportBytes(data), nil
	case KindConfig:
		return ValidateConfigBytes(data), nil
	default:
		return nil, fmt.Errorf("unknown file kind %q", kind)
	}
}

// ValidatePredictionsBytes validates a predictions file, including the
// num_samples invariant the schema cannot express.
func ValidatePredictionsBytes(data []byte) []string {
	doc, errs := parseJSON(data)
	if errs != nil {
		return errs
	}
	errs = validateAgainstSchema(predictionsSchema, doc)
	if errs != nil {
		return errs
	}

	root := doc.(map[string]any)
	meta := root["metadata"].(map[string]any)
	preds := root["predictions"].([]any)
	if n, ok := numberValue(meta["num_samples"]); !ok || n != float64(len(preds)) {
		return []string{fmt.Sprintf("/metadata/num_samples: is %v but there are %d predictions", meta["num_samples"], len(preds))}
	}
	return nil
}

// numberValue reads a decoded JSON number. 1 and 1.0 compare equal.
func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// ValidateReportBytes validates a metrics report.
func ValidateReportBytes(data []byte) []string {
	doc, errs := parseJSON(data)
	if errs != nil {
		return errs
	}
	return validateAgainstSchema(reportSchema, doc)
}

// ValidateConfigBytes validates raw .rrgen.yaml bytes.
func ValidateConfigBytes(data []byte) []string {
	var yamlDoc any
	if err := yaml.Unmarshal(data, &yamlDoc); err != nil {
		return []string{fmt.Sprintf("YAML parse error: %v", err)}
	}
	if yamlDoc == nil {
		return nil
	}
	return validateAgainstSchema(configSchema, yamlDoc)
}

func parseJSON(data []byte) (any, []string) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, []string{fmt.Sprintf("JSON parse error: %v", err)}
	}
	return doc, nil
}

func validateAgainstSchema(schema *jsonschema.Schema, instance any) []string {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}
