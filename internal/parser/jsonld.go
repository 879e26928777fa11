package parser

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// jsonldRecipe mirrors the parts of a schema.org Recipe object we consume.
// Fields that sites emit inconsistently (string vs list vs object) are
// decoded as raw JSON and normalized afterwards.
type jsonldRecipe struct {
	Type               json.RawMessage `json:"@type"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	Image              json.RawMessage `json:"image"`
	RecipeIngredient   []string        `json:"recipeIngredient"`
	Ingredients        []string        `json:"ingredients"` // legacy field name
	RecipeInstructions json.RawMessage `json:"recipeInstructions"`
	RecipeYield        json.RawMessage `json:"recipeYield"`
	TotalTime          string          `json:"totalTime"`
	URL                string          `json:"url"`
}

// extractJSONLD scans ld+json script blocks for a schema.org Recipe and
// returns it, or nil when none is present.
func extractJSONLD(doc *goquery.Document) *jsonldRecipe {
	var found *jsonldRecipe
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}
		if r := decodeRecipeNode([]byte(raw)); r != nil {
			found = r
			return false
		}
		return true
	})
	return found
}

// decodeRecipeNode handles the shapes sites embed: a single object, a list of
// objects, or a root object with an @graph list.
func decodeRecipeNode(raw []byte) *jsonldRecipe {
	var node jsonldRecipe
	if err := json.Unmarshal(raw, &node); err == nil && isRecipeType(node.Type) {
		return &node
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			if r := decodeRecipeNode(item); r != nil {
				return r
			}
		}
	}

	var graph struct {
		Graph []json.RawMessage `json:"@graph"`
	}
	if err := json.Unmarshal(raw, &graph); err == nil {
		for _, item := range graph.Graph {
			if r := decodeRecipeNode(item); r != nil {
				return r
			}
		}
	}
	return nil
}

// isRecipeType matches @type values of "Recipe" or lists containing it.
func isRecipeType(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single == "Recipe"
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, t := range list {
			if t == "Recipe" {
				return true
			}
		}
	}
	return false
}

// instructionSteps flattens recipeInstructions, which may be a plain string,
// a list of strings, a list of HowToStep objects, or HowToSections holding
// steps.
func instructionSteps(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return splitInstructionText(single)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var steps []string
	for _, item := range items {
		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			if t := CollapseText(text); t != "" {
				steps = append(steps, t)
			}
			continue
		}
		var step struct {
			Type            string          `json:"@type"`
			Text            string          `json:"text"`
			Name            string          `json:"name"`
			ItemListElement json.RawMessage `json:"itemListElement"`
		}
		if err := json.Unmarshal(item, &step); err != nil {
			continue
		}
		switch {
		case step.Text != "":
			steps = append(steps, CollapseText(step.Text))
		case len(step.ItemListElement) > 0:
			steps = append(steps, instructionSteps(step.ItemListElement)...)
		case step.Name != "":
			steps = append(steps, CollapseText(step.Name))
		}
	}
	return steps
}

// imageURL picks a usable URL from the image field, which may be a string, a
// list, or an ImageObject.
func imageURL(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return imageURL(list[0])
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.URL
	}
	return ""
}

// yieldText normalizes recipeYield (string, number, or list) to a string.
func yieldText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return yieldText(list[0])
	}
	return ""
}

// splitInstructionText breaks a single blob of instruction text into steps on
// newlines or numbered prefixes.
func splitInstructionText(text string) []string {
	var steps []string
	for _, line := range strings.Split(text, "\n") {
		if t := CollapseText(line); t != "" {
			steps = append(steps, t)
		}
	}
	return steps
}
