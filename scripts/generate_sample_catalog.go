package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

type sizeLine struct {
	Size  string `json:"size"`
	Price string `json:"price"`
}

type productLine struct {
	ProductType string     `json:"productType"`
	Title       string     `json:"title"`
	ImageURL    string     `json:"imageUrl"`
	Sizes       []sizeLine `json:"sizes"`
}

// generateSampleCatalog writes a gzipped JSON-lines catalog seed in the
// create-product request shape. Load it with:
//
//	go run ./cmd/migrate -seed data/catalog.jsonl.gz
func main() {
	dataDir := "data"

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	products := []productLine{
		{
			ProductType: "pizza",
			Title:       "Margherita",
			ImageURL:    "https://images.eato.local/products/margherita.png",
			Sizes:       []sizeLine{{"small", "4.50"}, {"medium", "6.75"}, {"large", "9.00"}},
		},
		{
			ProductType: "pizza",
			Title:       "Pepperoni Feast",
			ImageURL:    "https://images.eato.local/products/pepperoni.png",
			Sizes:       []sizeLine{{"medium", "8.25"}, {"large", "11.50"}},
		},
		{
			ProductType: "burger",
			Title:       "Classic Cheeseburger",
			ImageURL:    "https://images.eato.local/products/cheeseburger.png",
			Sizes:       []sizeLine{{"small", "3.99"}, {"medium", "5.49"}, {"large", "6.99"}},
		},
		{
			ProductType: "burger",
			Title:       "Smoky BBQ Burger",
			ImageURL:    "https://images.eato.local/products/bbq-burger.png",
			Sizes:       []sizeLine{{"medium", "6.25"}, {"large", "7.75"}},
		},
		{
			ProductType: "cake",
			Title:       "Chocolate Truffle",
			ImageURL:    "https://images.eato.local/products/truffle.png",
			Sizes:       []sizeLine{{"small", "12.00"}, {"large", "24.00"}},
		},
		{
			ProductType: "cake",
			Title:       "Red Velvet",
			ImageURL:    "https://images.eato.local/products/red-velvet.png",
			Sizes:       []sizeLine{{"small", "11.50"}, {"medium", "17.00"}, {"large", "22.50"}},
		},
	}

	filePath := filepath.Join(dataDir, "catalog.jsonl.gz")
	if err := createCatalogFile(filePath, products); err != nil {
		log.Fatalf("Failed to create %s: %v", filePath, err)
	}

	fmt.Printf("Created %s with %d products\n", filePath, len(products))
}

func createCatalogFile(filePath string, products []productLine) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	enc := json.NewEncoder(gzipWriter)
	for _, p := range products {
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("failed to write product: %w", err)
		}
	}

	return nil
}
