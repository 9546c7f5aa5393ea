package services

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// DefaultCities is the built-in city vocabulary.
var DefaultCities = []string{
	"barranquilla", "bogota", "bucaramanga", "cali", "cartagena", "cúcuta",
	"medellín", "sincelejo", "valledupar", "pereira", "manizales", "armenia",
	"pasto", "ibagué", "villavicencio", "yopal", "florencia", "leticia",
	"riohacha", "neiva", "montería", "mocoa", "puerto carreño", "mitú",
	"inírida", "sogamoso", "tunja", "pamplona", "girardot", "popayán",
	"tumaco", "quibdó", "arauca", "buenaventura", "cartago", "chiquinquirá",
	"la dorada", "santander",
}

// DefaultProducts is the built-in product vocabulary.
var DefaultProducts = []string{
	"acelga", "manzana", "pollo", "leche", "papa",
	"arroz", "frijol", "tomate", "cebolla", "naranja",
}

// LoadVocabulary reads one term per line. Blank lines and lines starting
// with "#" are skipped.
func LoadVocabulary(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocabulary: open %s: %w", path, err)
	}
	defer f.Close()

	var terms []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("vocabulary: read %s: %w", path, err)
	}
	return terms, nil
}

// vocabulary is a set of normalized terms.
type vocabulary map[string]struct{}

func newVocabulary(lists ...[]string) vocabulary {
	v := make(vocabulary)
	for _, list := range lists {
		for _, term := range list {
			if k := NormalizeText(term); k != "" {
				v[k] = struct{}{}
			}
		}
	}
	return v
}

func (v vocabulary) contains(normalized string) bool {
	_, ok := v[normalized]
	return ok
}
