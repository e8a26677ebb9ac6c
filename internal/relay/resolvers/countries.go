package resolvers

import (
	"strings"
	"sync"

	"github.com/biter777/countries"
)

// CountryIndex maps English country names to ISO alpha-2 codes and back.
// Name lookups are exact and case-insensitive.
type CountryIndex struct {
	byName map[string]string
	byCode map[string]string
}

var (
	defaultIndex     *CountryIndex
	defaultIndexOnce sync.Once
)

// DefaultCountries returns the shared index built from the ISO 3166 list.
func DefaultCountries() *CountryIndex {
	defaultIndexOnce.Do(func() {
		defaultIndex = NewCountryIndex(countries.All())
	})
	return defaultIndex
}

func NewCountryIndex(codes []countries.CountryCode) *CountryIndex {
	idx := &CountryIndex{
		byName: make(map[string]string, len(codes)),
		byCode: make(map[string]string, len(codes)),
	}
	for _, c := range codes {
		alpha2 := c.Alpha2()
		name := c.String()
		if alpha2 == "" || name == "" {
			continue
		}
		idx.byName[strings.ToLower(name)] = alpha2
		idx.byCode[strings.ToUpper(alpha2)] = name
	}
	return idx
}

func (idx *CountryIndex) Code(name string) (string, bool) {
	code, ok := idx.byName[strings.ToLower(name)]
	return code, ok
}

func (idx *CountryIndex) Name(code string) (string, bool) {
	name, ok := idx.byCode[strings.ToUpper(code)]
	return name, ok
}
