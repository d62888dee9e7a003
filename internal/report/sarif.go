package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"depwatch/internal/deprecated"
)

// SARIF v2.1.0 schema – see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"

	ruleIDMethod   = "DEPW001"
	ruleIDArgument = "DEPW002"
	ruleIDModule   = "DEPW003"
	ruleIDClass    = "DEPW004"
)

var sarifRuleIDs = map[deprecated.Kind]string{
	deprecated.DeprecatedMethod:   ruleIDMethod,
	deprecated.DeprecatedArgument: ruleIDArgument,
	deprecated.DeprecatedModule:   ruleIDModule,
	deprecated.DeprecatedClass:    ruleIDClass,
}

// sarifReport is the top-level SARIF document.
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
}

// GenerateSARIF builds a SARIF v2.1.0 document from the collected
// diagnostics. File URIs are made relative to projectRoot; absolute
// paths are never included so that reports are safe to share.
func GenerateSARIF(projectRoot, toolVersion string, diagnostics []Diagnostic) ([]byte, error) {
	results := make([]sarifResult, 0, len(diagnostics))
	seenKinds := make(map[deprecated.Kind]bool)

	for _, d := range diagnostics {
		ruleID, ok := sarifRuleIDs[d.Kind]
		if !ok {
			return nil, fmt.Errorf("no SARIF rule for diagnostic kind %q", d.Kind)
		}
		seenKinds[d.Kind] = true

		result := sarifResult{
			RuleID:  ruleID,
			Level:   "warning",
			Message: sarifMessage{Text: d.Message},
		}
		if d.Location.File != "" {
			loc := sarifLocation{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{
						URI:       relativeURI(projectRoot, d.Location.File),
						URIBaseID: "%SRCROOT%",
					},
				},
			}
			if d.Location.Line > 0 {
				loc.PhysicalLocation.Region = &sarifRegion{
					StartLine:   d.Location.Line,
					StartColumn: d.Location.Column,
				}
			}
			result.Locations = []sarifLocation{loc}
		}
		results = append(results, result)
	}

	document := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    "depwatch",
						Version: toolVersion,
						Rules:   buildSARIFRules(seenKinds),
					},
				},
				Results: results,
			},
		},
	}

	return json.MarshalIndent(document, "", "  ")
}

// buildSARIFRules returns only the rules relevant for the given findings.
func buildSARIFRules(seen map[deprecated.Kind]bool) []sarifRule {
	rules := make([]sarifRule, 0, len(seen))
	if seen[deprecated.DeprecatedMethod] {
		rules = append(rules, sarifRule{
			ID:               ruleIDMethod,
			Name:             "DeprecatedMethod",
			ShortDescription: sarifMessage{Text: "The method is marked as deprecated and will be removed in the future."},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "warning"},
		})
	}
	if seen[deprecated.DeprecatedArgument] {
		rules = append(rules, sarifRule{
			ID:               ruleIDArgument,
			Name:             "DeprecatedArgument",
			ShortDescription: sarifMessage{Text: "The argument is marked as deprecated and will be removed in the future."},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "warning"},
		})
	}
	if seen[deprecated.DeprecatedModule] {
		rules = append(rules, sarifRule{
			ID:               ruleIDModule,
			Name:             "DeprecatedModule",
			ShortDescription: sarifMessage{Text: "A module marked as deprecated is imported."},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "warning"},
		})
	}
	if seen[deprecated.DeprecatedClass] {
		rules = append(rules, sarifRule{
			ID:               ruleIDClass,
			Name:             "DeprecatedClass",
			ShortDescription: sarifMessage{Text: "The class is marked as deprecated and will be removed in the future."},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "warning"},
		})
	}
	return rules
}

// relativeURI converts an absolute file path to a forward-slash
// relative URI anchored at projectRoot.
func relativeURI(projectRoot, filePath string) string {
	if projectRoot != "" && filepath.IsAbs(filePath) {
		if rel, err := filepath.Rel(projectRoot, filePath); err == nil {
			filePath = rel
		}
	}
	// SARIF URIs use forward slashes.
	return filepath.ToSlash(filePath)
}
