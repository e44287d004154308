package storage

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"famspese/internal/core"
)

// CategorySeed describes a category and its subcategories for seeding.
type CategorySeed struct {
	Name          string
	Kind          core.CategoryKind
	Icon          string
	Color         string
	Subcategories []string
}

// DefaultCategories is the taxonomy installed by `famspese-admin seed-categories`
// and by a fresh memory store.
func DefaultCategories() []CategorySeed {
	return []CategorySeed{
		{Name: "Casa", Kind: core.KindNecessary, Icon: "home", Color: "#4f46e5",
			Subcategories: []string{"Affitto/Mutuo", "Bollette", "Manutenzione", "Condominio"}},
		{Name: "Cibo", Kind: core.KindNecessary, Icon: "cart", Color: "#16a34a",
			Subcategories: []string{"Supermercato", "Ristorante", "Bar"}},
		{Name: "Trasporti", Kind: core.KindNecessary, Icon: "car", Color: "#0891b2",
			Subcategories: []string{"Carburante", "Finanziamento Auto", "Assicurazione", "Mezzi pubblici"}},
		{Name: "Figli", Kind: core.KindNecessary, Icon: "child", Color: "#db2777",
			Subcategories: []string{"Retta scolastica", "Abbigliamento", "Attività"}},
		{Name: "Salute", Kind: core.KindNecessary, Icon: "heart", Color: "#dc2626",
			Subcategories: []string{"Farmacia", "Visite"}},
		{Name: "Svago", Kind: core.KindExtra, Icon: "star", Color: "#f59e0b",
			Subcategories: []string{"Viaggi", "Abbonamenti", "Regali"}},
	}
}

// LoadCategorySeed reads a taxonomy from a text file with one
// "Category/Subcategory" (or bare "Category") per line. Blank lines and
// lines starting with # are skipped, repeated lines are merged. An empty
// path or a file without entries yields DefaultCategories.
func LoadCategorySeed(path string) ([]CategorySeed, error) {
	if path == "" {
		return DefaultCategories(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open category seed: %w", err)
	}
	defer f.Close()

	var out []CategorySeed
	index := map[string]int{}
	seen := map[string]bool{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cat, sub, _ := strings.Cut(line, "/")
		cat, sub = strings.TrimSpace(cat), strings.TrimSpace(sub)
		if cat == "" {
			continue
		}
		i, ok := index[cat]
		if !ok {
			i = len(out)
			index[cat] = i
			out = append(out, CategorySeed{Name: cat, Kind: core.KindNecessary})
		}
		if sub != "" && !seen[cat+"/"+sub] {
			seen[cat+"/"+sub] = true
			out[i].Subcategories = append(out[i].Subcategories, sub)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read category seed: %w", err)
	}
	if len(out) == 0 {
		return DefaultCategories(), nil
	}
	return out, nil
}
