package cookbook

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"portal_server/core/domain"
	"portal_server/core/port/out"
	"portal_server/pkg/apperr"
)

type memCookbook struct {
	pantry     map[string][]domain.PantryItem
	appliances map[string][]string
	saves      int
}

func newMemCookbook() *memCookbook {
	return &memCookbook{pantry: map[string][]domain.PantryItem{}, appliances: map[string][]string{}}
}

func (m *memCookbook) GetPantry(ctx context.Context, owner string) ([]domain.PantryItem, error) {
	return append([]domain.PantryItem{}, m.pantry[owner]...), nil
}

func (m *memCookbook) SavePantry(ctx context.Context, owner string, items []domain.PantryItem) error {
	m.saves++
	m.pantry[owner] = items
	return nil
}

func (m *memCookbook) GetAppliances(ctx context.Context, owner string) ([]string, error) {
	return append([]string{}, m.appliances[owner]...), nil
}

func (m *memCookbook) SaveAppliances(ctx context.Context, owner string, appliances []string) error {
	m.saves++
	m.appliances[owner] = appliances
	return nil
}

type memRecipes struct {
	items []domain.Recipe
}

func (m *memRecipes) List(ctx context.Context, owner string) ([]domain.Recipe, error) {
	var res []domain.Recipe
	for _, r := range m.items {
		if r.Owner == owner {
			res = append(res, r)
		}
	}
	return res, nil
}

func (m *memRecipes) Save(ctx context.Context, r *domain.Recipe) error {
	m.items = append(m.items, *r)
	return nil
}

func (m *memRecipes) Delete(ctx context.Context, owner, id string) error {
	for i, r := range m.items {
		if r.Owner == owner && r.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return out.ErrNotFound
}

type fakeGenerator struct {
	system, prompt string
	reply          string
	err            error
}

func (f *fakeGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	f.system, f.prompt = system, prompt
	return f.reply, f.err
}

type memCounter struct {
	counts map[string]int64
}

func (m *memCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	if m.counts == nil {
		m.counts = map[string]int64{}
	}
	m.counts[key]++
	return m.counts[key], nil
}

func newTestService(gen out.RecipeGenerator, limit int) (*Service, *memCookbook, *memRecipes) {
	repo, recipes := newMemCookbook(), &memRecipes{}
	s := NewService(repo, recipes, gen, &memCounter{}, limit)
	s.now = func() time.Time { return time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC) }
	return s, repo, recipes
}

func TestSavePantry(t *testing.T) {
	ctx := context.Background()
	s, repo, _ := newTestService(nil, 0)

	got, err := s.SavePantry(ctx, "a@example.com", []domain.PantryItem{{Name: "  eggs ", Qty: " 6 "}})
	if err != nil {
		t.Fatalf("SavePantry() error = %v", err)
	}
	if got[0].Name != "eggs" || got[0].Qty != "6" {
		t.Errorf("SavePantry() = %+v", got)
	}
	if len(repo.pantry["a@example.com"]) != 1 {
		t.Errorf("stored = %+v", repo.pantry)
	}

	tests := []struct {
		name  string
		items []domain.PantryItem
	}{
		{"unnamed", []domain.PantryItem{{Name: "ok"}, {Name: "  "}}},
		{"bad expiry", []domain.PantryItem{{Name: "milk", Exp: "tomorrow"}}},
		{"too long", []domain.PantryItem{{Name: strings.Repeat("x", MaxNameLength+1)}}},
		{"too many", make([]domain.PantryItem, MaxPantryItems+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := repo.saves
			_, err := s.SavePantry(ctx, "a@example.com", tt.items)
			if !apperr.HasCode(err, apperr.CodeInvalidInput) {
				t.Errorf("SavePantry() error = %v, want INVALID_INPUT", err)
			}
			if repo.saves != before {
				t.Error("invalid pantry was stored")
			}
		})
	}
}

func TestNormalizeAppliances(t *testing.T) {
	got, err := NormalizeAppliances([]string{" Oven ", "oven", "", "Blender"})
	if err != nil {
		t.Fatalf("NormalizeAppliances() error = %v", err)
	}
	if strings.Join(got, ",") != "Oven,Blender" {
		t.Errorf("NormalizeAppliances() = %v", got)
	}
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{reply: "# Omlet\n\n- 3 **jajka**"}
	s, repo, _ := newTestService(gen, 0)
	repo.pantry["a@example.com"] = []domain.PantryItem{
		{Name: "jajka", Qty: "6", Unit: "szt"},
		{Name: "mleko", Qty: "1", Unit: "l", Exp: "2026-05-11"},
		{Name: "ryż", Qty: "1", Unit: "kg", Exp: "2027-01-01"},
	}
	repo.appliances["a@example.com"] = []string{"Piekarnik"}

	res, err := s.Generate(ctx, "a@example.com", "śniadanie", 2)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Recipe != gen.reply {
		t.Errorf("Recipe = %q", res.Recipe)
	}
	if !strings.Contains(res.HTML, "<h1>Omlet</h1>") || !strings.Contains(res.HTML, "<strong>jajka</strong>") {
		t.Errorf("HTML = %q", res.HTML)
	}
	for _, want := range []string{"Meal: śniadanie", "People: 2", "jajka: 6 szt", "Piekarnik", "mleko: 1 l (expires 2026-05-11, use first)"} {
		if !strings.Contains(gen.prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, gen.prompt)
		}
	}
	if strings.Contains(gen.prompt, "2027-01-01, use first") {
		t.Error("far expiry flagged as urgent")
	}
}

func TestGenerate_Validation(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(&fakeGenerator{reply: "x"}, 0)

	tests := []struct {
		name     string
		mealType string
		people   int
		code     string
	}{
		{"missing meal", " ", 2, apperr.CodeMissingField},
		{"too many people", "obiad", MaxPeopleCount + 1, apperr.CodeInvalidInput},
		{"negative people", "obiad", -1, apperr.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Generate(ctx, "a@example.com", tt.mealType, tt.people); !apperr.HasCode(err, tt.code) {
				t.Errorf("Generate() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestGenerate_NoGenerator(t *testing.T) {
	s, _, _ := newTestService(nil, 0)
	_, err := s.Generate(context.Background(), "a@example.com", "obiad", 2)
	if !apperr.HasCode(err, apperr.CodeServiceUnavailable) {
		t.Errorf("Generate() error = %v, want SERVICE_UNAVAILABLE", err)
	}
}

func TestGenerate_UpstreamError(t *testing.T) {
	s, _, _ := newTestService(&fakeGenerator{err: errors.New("boom")}, 0)
	_, err := s.Generate(context.Background(), "a@example.com", "obiad", 2)
	if !apperr.HasCode(err, apperr.CodeExternalError) {
		t.Errorf("Generate() error = %v, want EXTERNAL_ERROR", err)
	}
}

func TestGenerate_Quota(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(&fakeGenerator{reply: "# x"}, 2)

	for i := 0; i < 2; i++ {
		if _, err := s.Generate(ctx, "a@example.com", "obiad", 2); err != nil {
			t.Fatalf("Generate() #%d error = %v", i, err)
		}
	}
	if _, err := s.Generate(ctx, "a@example.com", "obiad", 2); !apperr.HasCode(err, apperr.CodeRateLimited) {
		t.Errorf("Generate() over quota error = %v, want RATE_LIMITED", err)
	}
	if _, err := s.Generate(ctx, "b@example.com", "obiad", 2); err != nil {
		t.Errorf("other user's quota affected: %v", err)
	}
}

func TestSaveAndDeleteRecipe(t *testing.T) {
	ctx := context.Background()
	s, _, recipes := newTestService(nil, 0)

	saved, err := s.SaveRecipe(ctx, "a@example.com", domain.Recipe{Content: "# Zupa pomidorowa\n\n- pomidory"})
	if err != nil {
		t.Fatalf("SaveRecipe() error = %v", err)
	}
	if saved.ID == "" || saved.Title != "Zupa pomidorowa" || saved.Owner != "a@example.com" {
		t.Errorf("SaveRecipe() = %+v", saved)
	}
	if len(recipes.items) != 1 {
		t.Fatalf("stored = %d", len(recipes.items))
	}

	if _, err := s.SaveRecipe(ctx, "a@example.com", domain.Recipe{Content: "  "}); !apperr.HasCode(err, apperr.CodeMissingField) {
		t.Errorf("SaveRecipe(empty) error = %v", err)
	}

	if err := s.DeleteRecipe(ctx, "b@example.com", saved.ID); !apperr.HasCode(err, apperr.CodeNotFound) {
		t.Errorf("DeleteRecipe(other owner) error = %v, want NOT_FOUND", err)
	}
	if err := s.DeleteRecipe(ctx, "a@example.com", saved.ID); err != nil {
		t.Errorf("DeleteRecipe() error = %v", err)
	}
}

func TestImport_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	s, repo, recipes := newTestService(nil, 0)
	repo.pantry["a@example.com"] = []domain.PantryItem{{Name: "sól"}}

	bad := &domain.CookbookExport{
		Version:    ExportVersion,
		Pantry:     []domain.PantryItem{{Name: "mąka"}, {Name: ""}},
		Appliances: []string{"Piekarnik"},
		Recipes:    []domain.Recipe{{Content: "# A"}},
	}
	if err := s.Import(ctx, "a@example.com", bad); !apperr.HasCode(err, apperr.CodeInvalidInput) {
		t.Fatalf("Import() error = %v, want INVALID_INPUT", err)
	}
	if repo.saves != 0 || len(recipes.items) != 0 {
		t.Error("failed import changed stored data")
	}
	if repo.pantry["a@example.com"][0].Name != "sól" {
		t.Error("pantry replaced by failed import")
	}

	if err := s.Import(ctx, "a@example.com", &domain.CookbookExport{Version: 99}); !apperr.HasCode(err, apperr.CodeInvalidInput) {
		t.Errorf("Import(version 99) error = %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, srcRepo, _ := newTestService(nil, 0)
	srcRepo.pantry["a@example.com"] = []domain.PantryItem{{Name: "mąka", Qty: "1", Unit: "kg"}}
	srcRepo.appliances["a@example.com"] = []string{"Piekarnik"}
	if _, err := src.SaveRecipe(ctx, "a@example.com", domain.Recipe{Content: "# Chleb"}); err != nil {
		t.Fatal(err)
	}

	doc, err := src.Export(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if doc.Version != ExportVersion || len(doc.Recipes) != 1 {
		t.Fatalf("Export() = %+v", doc)
	}

	dst, dstRepo, dstRecipes := newTestService(nil, 0)
	if err := dst.Import(ctx, "b@example.com", doc); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(dstRepo.pantry["b@example.com"]) != 1 || len(dstRepo.appliances["b@example.com"]) != 1 {
		t.Errorf("imported = %+v / %+v", dstRepo.pantry, dstRepo.appliances)
	}
	if len(dstRecipes.items) != 1 || dstRecipes.items[0].Owner != "b@example.com" || dstRecipes.items[0].ID == doc.Recipes[0].ID {
		t.Errorf("imported recipes = %+v", dstRecipes.items)
	}
}
