package llm

import (
	"fmt"
	"strings"
)

// DefaultLabels is the label vocabulary offered to the model when the
// deployment does not configure its own.
var DefaultLabels = []string{
	"breakfast", "lunch", "dinner", "dessert", "snack",
	"appetizer", "side", "drink", "soup", "salad",
	"baking", "vegetarian", "vegan", "gluten-free", "quick",
}

// BuildCategorizePrompt constructs the prompt asking the model to pick
// labels for a recipe from a fixed vocabulary.
func BuildCategorizePrompt(labels []string, title string, ingredients, instructions []string) string {
	if len(labels) == 0 {
		labels = DefaultLabels
	}

	var sb strings.Builder
	sb.WriteString("You are a recipe categorizer. Assign categories to the recipe below.\n\n")
	sb.WriteString("Choose ONLY from this list of allowed categories:\n")
	for _, l := range labels {
		sb.WriteString(fmt.Sprintf("- %s\n", l))
	}
	sb.WriteString("\nReturn ONLY valid JSON matching this exact structure:\n")
	sb.WriteString("{\n  \"categories\": [\"string\"] // 1 to 5 categories from the allowed list\n}\n\n")
	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Use only categories from the allowed list, exactly as written.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	sb.WriteString("Recipe title: ")
	sb.WriteString(title)
	sb.WriteString("\n\nIngredients:\n")
	for _, ing := range ingredients {
		sb.WriteString("- ")
		sb.WriteString(ing)
		sb.WriteString("\n")
	}
	sb.WriteString("\nInstructions:\n")
	for i, step := range instructions {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, step))
	}
	return sb.String()
}
