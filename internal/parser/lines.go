package parser

import (
	"regexp"
	"strings"
)

// IngredientParts is the structured form of one ingredient line.
type IngredientParts struct {
	Quantity string
	Unit     string
	Name     string
}

// quantity: integers, decimals, fractions ("1/2"), mixed numbers ("1 1/2"),
// unicode vulgar fractions, and ranges ("2-3").
var reQuantity = regexp.MustCompile(`^((?:\d+\s+\d+/\d+)|(?:\d+/\d+)|(?:\d+(?:\.\d+)?(?:\s*[-–]\s*\d+(?:\.\d+)?)?)|[¼½¾⅓⅔⅛⅜⅝⅞])\s*`)

var knownUnits = map[string]string{
	"cup": "cup", "cups": "cup",
	"tablespoon": "tbsp", "tablespoons": "tbsp", "tbsp": "tbsp", "tbs": "tbsp",
	"teaspoon": "tsp", "teaspoons": "tsp", "tsp": "tsp",
	"ounce": "oz", "ounces": "oz", "oz": "oz",
	"pound": "lb", "pounds": "lb", "lb": "lb", "lbs": "lb",
	"gram": "g", "grams": "g", "g": "g",
	"kilogram": "kg", "kilograms": "kg", "kg": "kg",
	"milliliter": "ml", "milliliters": "ml", "ml": "ml",
	"liter": "l", "liters": "l", "l": "l",
	"pinch": "pinch", "pinches": "pinch",
	"dash": "dash", "dashes": "dash",
	"clove": "clove", "cloves": "clove",
	"can": "can", "cans": "can",
	"slice": "slice", "slices": "slice",
	"stick": "stick", "sticks": "stick",
}

// ParseIngredientLine splits a raw ingredient line into quantity, unit, and
// name. Lines that do not open with a quantity come back with only Name set,
// which is the correct representation for entries like "salt to taste".
func ParseIngredientLine(line string) IngredientParts {
	line = CollapseText(line)
	if line == "" {
		return IngredientParts{}
	}

	parts := IngredientParts{Name: line}

	m := reQuantity.FindStringSubmatch(line)
	if m == nil {
		return parts
	}
	parts.Quantity = strings.TrimSpace(m[1])
	rest := strings.TrimSpace(line[len(m[0]):])

	if rest == "" {
		parts.Name = ""
		return parts
	}

	word, remainder, _ := strings.Cut(rest, " ")
	normalized := strings.TrimRight(strings.ToLower(word), ".")
	if unit, ok := knownUnits[normalized]; ok {
		parts.Unit = unit
		rest = strings.TrimSpace(remainder)
	}

	// "of" between unit and name ("2 cups of flour") is noise.
	rest = strings.TrimSpace(strings.TrimPrefix(rest, "of "))
	parts.Name = rest
	return parts
}

var reStepPrefix = regexp.MustCompile(`(?i)^(?:step\s*)?\d+[.):]\s*`)

// NormalizeInstructions trims step-number prefixes and drops empties, so
// stored instructions carry only the text; numbering is the seq column's job.
func NormalizeInstructions(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		t := reStepPrefix.ReplaceAllString(CollapseText(line), "")
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
