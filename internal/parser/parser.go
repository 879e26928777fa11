package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/recipe-importer/internal/types"
)

// ErrNoRecipe is returned when a document yields neither structured recipe
// data nor enough heuristic content to build one.
type ErrNoRecipe struct {
	Reason string
}

func (e *ErrNoRecipe) Error() string {
	return fmt.Sprintf("no recipe found in document: %s", e.Reason)
}

// Parser extracts recipes from HTML documents.
type Parser struct{}

// NewParser returns a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseHTML parses a cleaned HTML document into a ParsedRecipe. JSON-LD wins
// when present; otherwise microdata attributes and heuristic selectors are
// tried. A document with no title and no ingredients is rejected.
func (p *Parser) ParseHTML(ctx context.Context, content string) (*types.ParsedRecipe, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &ErrNoRecipe{Reason: "empty document"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	recipe := fromJSONLD(doc)
	if recipe == nil {
		recipe = fromMarkup(doc)
	}

	if recipe.Title == "" && len(recipe.Ingredients) == 0 {
		return nil, &ErrNoRecipe{Reason: "no title or ingredients detected"}
	}
	if recipe.Ingredients == nil {
		recipe.Ingredients = []string{}
	}
	if recipe.Instructions == nil {
		recipe.Instructions = []string{}
	}
	return recipe, nil
}

// fromJSONLD builds a recipe from an embedded schema.org Recipe, or nil.
func fromJSONLD(doc *goquery.Document) *types.ParsedRecipe {
	node := extractJSONLD(doc)
	if node == nil {
		return nil
	}

	ingredients := node.RecipeIngredient
	if len(ingredients) == 0 {
		ingredients = node.Ingredients
	}
	cleanedIngredients := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		if t := CollapseText(ing); t != "" {
			cleanedIngredients = append(cleanedIngredients, t)
		}
	}

	return &types.ParsedRecipe{
		Title:        CollapseText(node.Name),
		Description:  CollapseText(node.Description),
		Ingredients:  cleanedIngredients,
		Instructions: instructionSteps(node.RecipeInstructions),
		ImageURL:     imageURL(node.Image),
		SourceURL:    node.URL,
		Yield:        yieldText(node.RecipeYield),
		TotalTime:    node.TotalTime,
	}
}

// fromMarkup builds a recipe from microdata attributes and common selectors.
func fromMarkup(doc *goquery.Document) *types.ParsedRecipe {
	recipe := &types.ParsedRecipe{}

	recipe.Title = CollapseText(doc.Find(`[itemprop="name"]`).First().Text())
	if recipe.Title == "" {
		if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
			recipe.Title = CollapseText(og)
		}
	}
	if recipe.Title == "" {
		recipe.Title = CollapseText(doc.Find("h1").First().Text())
	}
	if recipe.Title == "" {
		recipe.Title = CollapseText(doc.Find("title").First().Text())
	}

	if desc, ok := doc.Find(`meta[property="og:description"]`).First().Attr("content"); ok {
		recipe.Description = CollapseText(desc)
	}

	doc.Find(`[itemprop="recipeIngredient"], [itemprop="ingredients"]`).Each(func(_ int, s *goquery.Selection) {
		if t := CollapseText(s.Text()); t != "" {
			recipe.Ingredients = append(recipe.Ingredients, t)
		}
	})
	if len(recipe.Ingredients) == 0 {
		doc.Find(`ul.ingredients li, .recipe-ingredients li, .ingredient-list li`).Each(func(_ int, s *goquery.Selection) {
			if t := CollapseText(s.Text()); t != "" {
				recipe.Ingredients = append(recipe.Ingredients, t)
			}
		})
	}

	doc.Find(`[itemprop="recipeInstructions"] li, [itemprop="recipeInstructions"] p`).Each(func(_ int, s *goquery.Selection) {
		if t := CollapseText(s.Text()); t != "" {
			recipe.Instructions = append(recipe.Instructions, t)
		}
	})
	if len(recipe.Instructions) == 0 {
		if sel := doc.Find(`[itemprop="recipeInstructions"]`); sel.Length() > 0 {
			recipe.Instructions = splitInstructionText(sel.First().Text())
		}
	}
	if len(recipe.Instructions) == 0 {
		doc.Find(`ol.instructions li, .recipe-instructions li, .directions li`).Each(func(_ int, s *goquery.Selection) {
			if t := CollapseText(s.Text()); t != "" {
				recipe.Instructions = append(recipe.Instructions, t)
			}
		})
	}

	if img, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
		recipe.ImageURL = img
	} else if img, ok := doc.Find(`[itemprop="image"]`).First().Attr("src"); ok {
		recipe.ImageURL = img
	}

	if url, ok := doc.Find(`meta[property="og:url"]`).First().Attr("content"); ok {
		recipe.SourceURL = url
	}

	recipe.Yield = CollapseText(doc.Find(`[itemprop="recipeYield"]`).First().Text())

	return recipe
}
