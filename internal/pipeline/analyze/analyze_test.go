package analyze

import (
	"errors"
	"strings"
	"testing"

	"catalog-ingest/internal/domain"
)

func TestBuildPromptListsKnownCategories(t *testing.T) {
	prompt := buildPrompt(testCategories())

	if !strings.Contains(prompt, "Pick the most appropriate categoryName from this list: Engine Cooling, Cooling, Fuel System.") {
		t.Errorf("prompt does not offer the known categories:\n%s", prompt)
	}
	if strings.Contains(prompt, "best guess") {
		t.Error("prompt still asks for a free-form category guess")
	}
}

func TestBuildPromptWithoutCategories(t *testing.T) {
	prompt := buildPrompt(nil)

	if !strings.Contains(prompt, "CategoryName is your best guess at a product category.") {
		t.Errorf("prompt misses the fallback category instruction:\n%s", prompt)
	}
	if strings.Contains(prompt, "from this list") {
		t.Error("prompt references a category list that does not exist")
	}
}

func TestParseMetadataPlain(t *testing.T) {
	meta, err := parseMetadata(`{"title":"Impeller Kit","description":"Rubber impeller.","price":42.5,"categoryName":"Cooling"}`)
	if err != nil {
		t.Fatalf("parseMetadata() error = %v", err)
	}
	if meta.Title != "Impeller Kit" || meta.Price != 42.5 || meta.CategoryName != "Cooling" {
		t.Errorf("meta = %+v", meta)
	}
}

func TestParseMetadataStripsFences(t *testing.T) {
	content := "```json\n{\"title\":\"Anode\",\"description\":\"Zinc anode.\",\"price\":0,\"categoryName\":\"Anodes\"}\n```"

	meta, err := parseMetadata(content)
	if err != nil {
		t.Fatalf("parseMetadata() error = %v", err)
	}
	if meta.Title != "Anode" {
		t.Errorf("title = %q, want %q", meta.Title, "Anode")
	}
}

func TestParseMetadataSlicesSurroundingProse(t *testing.T) {
	content := "Here is the catalog entry:\n{\"title\":\"Fuel Filter\",\"description\":\"Inline filter.\",\"price\":15,\"categoryName\":\"Fuel\"}\nHope this helps!"

	meta, err := parseMetadata(content)
	if err != nil {
		t.Fatalf("parseMetadata() error = %v", err)
	}
	if meta.Title != "Fuel Filter" {
		t.Errorf("title = %q, want %q", meta.Title, "Fuel Filter")
	}
}

func TestParseMetadataBadJSON(t *testing.T) {
	_, err := parseMetadata("the image shows a pump")
	if !errors.Is(err, domain.ErrMetadataParse) {
		t.Fatalf("parseMetadata() error = %v, want ErrMetadataParse", err)
	}
}

func TestParseMetadataMissingTitle(t *testing.T) {
	_, err := parseMetadata(`{"description":"something","price":1,"categoryName":"x"}`)
	if !errors.Is(err, domain.ErrMetadataParse) {
		t.Fatalf("parseMetadata() error = %v, want ErrMetadataParse", err)
	}
}

func testCategories() []domain.Category {
	return []domain.Category{
		{ID: "1", Name: "Engine Cooling"},
		{ID: "2", Name: "Cooling"},
		{ID: "3", Name: "Fuel System"},
	}
}

func TestMatchCategoryExactBeatsSubstring(t *testing.T) {
	cat, ok := MatchCategory(testCategories(), "cooling")
	if !ok {
		t.Fatal("MatchCategory() found nothing")
	}
	if cat.ID != "2" {
		t.Errorf("matched %q, want exact match %q", cat.Name, "Cooling")
	}
}

func TestMatchCategorySubstringFirstInListOrder(t *testing.T) {
	cat, ok := MatchCategory(testCategories(), "cool")
	if !ok {
		t.Fatal("MatchCategory() found nothing")
	}
	if cat.ID != "1" {
		t.Errorf("matched %q, want first substring hit %q", cat.Name, "Engine Cooling")
	}
}

func TestMatchCategoryReverseContainment(t *testing.T) {
	cat, ok := MatchCategory(testCategories(), "marine fuel system parts")
	if !ok {
		t.Fatal("MatchCategory() found nothing")
	}
	if cat.ID != "3" {
		t.Errorf("matched %q, want %q", cat.Name, "Fuel System")
	}
}

func TestMatchCategoryNoMatch(t *testing.T) {
	if _, ok := MatchCategory(testCategories(), "propellers"); ok {
		t.Error("MatchCategory() matched an unrelated name")
	}
	if _, ok := MatchCategory(testCategories(), "  "); ok {
		t.Error("MatchCategory() matched blank input")
	}
}
