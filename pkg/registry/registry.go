// Package registry holds the loan product table: per-product fields, amount
// bounds, attachment slots and the terms summary shown next to a quote.
package registry

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"cashflow-loans/internal/models"
)

//go:embed products.yaml
var defaultProducts []byte

type ProductRegistry struct {
	Version     string     `yaml:"version" json:"version"`
	LastUpdated string     `yaml:"lastUpdated" json:"lastUpdated"`
	Calculator  Calculator `yaml:"calculator" json:"calculator"`
	Products    []Product  `yaml:"products" json:"products"`
}

// Calculator holds the calculator slider bounds and initial selection.
type Calculator struct {
	MinAmount       float64         `yaml:"minAmount" json:"minAmount"`
	MaxAmount       float64         `yaml:"maxAmount" json:"maxAmount"`
	Step            float64         `yaml:"step" json:"step"`
	DefaultAmount   string          `yaml:"defaultAmount" json:"defaultAmount"`
	DefaultLoanType models.LoanType `yaml:"defaultLoanType" json:"defaultLoanType"`
}

type Product struct {
	Type          models.LoanType  `yaml:"type" json:"type"`
	DisplayName   string           `yaml:"displayName" json:"displayName"`
	Description   string           `yaml:"description" json:"description"`
	DefaultAmount string           `yaml:"defaultAmount" json:"defaultAmount"`
	MinAmount     float64          `yaml:"minAmount" json:"minAmount"`
	MaxAmount     float64          `yaml:"maxAmount" json:"maxAmount"`
	Fields        []string         `yaml:"fields" json:"fields"`
	Attachments   []AttachmentSlot `yaml:"attachments" json:"attachments"`
	TermsSummary  []string         `yaml:"termsSummary" json:"termsSummary"`
}

// AttachmentSlot filters by extension or by content-type prefix.
type AttachmentSlot struct {
	Name              string   `yaml:"name" json:"name"`
	Label             string   `yaml:"label" json:"label"`
	Extensions        []string `yaml:"extensions,omitempty" json:"extensions,omitempty"`
	ContentTypePrefix string   `yaml:"contentTypePrefix,omitempty" json:"contentTypePrefix,omitempty"`
	Multiple          bool     `yaml:"multiple" json:"multiple"`
	Required          bool     `yaml:"required" json:"required"`
}

// Default returns the embedded product table.
func Default() (*ProductRegistry, error) {
	return Parse(defaultProducts)
}

// LoadRegistry reads a product table from path, or the embedded one when path is empty.
func LoadRegistry(path string) (*ProductRegistry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read product registry %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*ProductRegistry, error) {
	var reg ProductRegistry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse product registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate checks the table is usable by the form and the builder.
func (r *ProductRegistry) Validate() error {
	if len(r.Products) == 0 {
		return fmt.Errorf("product registry has no products")
	}
	seen := make(map[models.LoanType]bool, len(r.Products))
	for _, p := range r.Products {
		if _, ok := models.ParseLoanType(string(p.Type)); !ok {
			return fmt.Errorf("product %q: unknown loan type", p.Type)
		}
		if seen[p.Type] {
			return fmt.Errorf("product %q: duplicated", p.Type)
		}
		seen[p.Type] = true

		if p.DisplayName == "" {
			return fmt.Errorf("product %q: displayName is required", p.Type)
		}
		if p.MinAmount <= 0 || p.MaxAmount < p.MinAmount {
			return fmt.Errorf("product %q: invalid amount bounds [%v, %v]", p.Type, p.MinAmount, p.MaxAmount)
		}
		if !p.HasField("amount") {
			return fmt.Errorf("product %q: fields must include amount", p.Type)
		}
		for _, a := range p.Attachments {
			if a.Name == "" {
				return fmt.Errorf("product %q: attachment without name", p.Type)
			}
			if len(a.Extensions) == 0 && a.ContentTypePrefix == "" {
				return fmt.Errorf("product %q: attachment %q accepts nothing", p.Type, a.Name)
			}
		}
	}
	if r.Calculator.MaxAmount < r.Calculator.MinAmount {
		return fmt.Errorf("calculator: invalid amount bounds")
	}
	return nil
}

// Get returns the product for t.
func (r *ProductRegistry) Get(t models.LoanType) (Product, bool) {
	for _, p := range r.Products {
		if p.Type == t {
			return p, true
		}
	}
	return Product{}, false
}

// HasField reports whether name is one of the product's form fields.
func (p Product) HasField(name string) bool {
	for _, f := range p.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// Slot returns the attachment slot called name.
func (p Product) Slot(name string) (AttachmentSlot, bool) {
	for _, a := range p.Attachments {
		if a.Name == name {
			return a, true
		}
	}
	return AttachmentSlot{}, false
}

// Accepts reports whether f passes the slot's extension or content-type filter.
func (a AttachmentSlot) Accepts(f models.FileRef) bool {
	if a.ContentTypePrefix != "" && strings.HasPrefix(strings.ToLower(f.ContentType), a.ContentTypePrefix) {
		return true
	}
	ext := strings.ToLower(filepath.Ext(f.Filename))
	for _, e := range a.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
