// Package main provides the entry point for the recipe importer.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "recipe_importer",
	Short: "Recipe importer API server and workers",
	Long:  "Recipe importer turns recipe web pages into structured notes with ingredients, instructions, images and categories, via a REST API backed by queued import pipelines.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to JSON config file (optional; environment variables override)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
