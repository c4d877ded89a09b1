package importer

import (
	"errors"
	"math/rand/v2"
)

var (
	ErrNoCustomers = errors.New("brak klientów do przypisania zamówieniom")
	ErrNoProducts  = errors.New("brak produktów do przypisania zamówieniom")
)

// linker dopina zamówienia do losowych klientów i produktów.
// MockAPI nie modeluje tych relacji - to wypełniacz, nie reguła biznesowa.
type linker struct {
	rng       *rand.Rand
	customers []string
	products  []string
}

func newLinker(rng *rand.Rand, customerIDs, productIDs []string) (*linker, error) {
	if len(customerIDs) == 0 {
		return nil, ErrNoCustomers
	}
	if len(productIDs) == 0 {
		return nil, ErrNoProducts
	}
	return &linker{rng: rng, customers: customerIDs, products: productIDs}, nil
}

// customer - jednostajnie z całej puli
func (l *linker) customer() string {
	return l.customers[l.rng.IntN(len(l.customers))]
}

// products - 1 albo 2 różne produkty (bez powtórzeń); przy jednym produkcie w puli zawsze 1
func (l *linker) productsForOrder() []string {
	n := len(l.products)
	k := 1 + l.rng.IntN(2)
	if k > n {
		k = n
	}

	a := l.rng.IntN(n)
	if k == 1 {
		return []string{l.products[a]}
	}
	b := l.rng.IntN(n - 1)
	if b >= a {
		b++
	}
	return []string{l.products[a], l.products[b]}
}

// newRand - seed 0 oznacza losowy; zwracamy faktyczny, żeby dało się powtórzyć przebieg
func newRand(seed int64) (*rand.Rand, int64) {
	if seed == 0 {
		seed = int64(rand.Uint64() >> 1)
		if seed == 0 {
			seed = 1
		}
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)), seed
}
