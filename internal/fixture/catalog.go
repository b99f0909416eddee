package fixture

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Messages are the UI strings of one language.
type Messages struct {
	Label   string `json:"label"`
	Title   string `json:"title"`
	Heading string `json:"heading"`
	Empty   string `json:"empty"`
	Product string `json:"product"`
}

var catalog = map[string]Messages{
	"ja": {
		Label:   "日本語",
		Title:   "ストア",
		Heading: "商品一覧",
		Empty:   "商品はまだありません。",
		Product: "商品 %d",
	},
	"en": {
		Label:   "English",
		Title:   "Store",
		Heading: "Product List",
		Empty:   "No products yet.",
		Product: "Product %d",
	},
}

// Languages returns the supported language codes, sorted.
func Languages() []string {
	codes := make([]string, 0, len(catalog))
	for code := range catalog {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// MessagesFor returns the strings of lang.
func MessagesFor(lang string) (Messages, bool) {
	m, ok := catalog[lang]
	return m, ok
}

// Product is a catalogue entry rendered in one language.
type Product struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// productNamespace keeps product IDs stable across restarts.
var productNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://i18ncheck.local/products"))

func seedProducts(n int, lang string) []Product {
	m := catalog[lang]
	products := make([]Product, 0, n)
	for i := 1; i <= n; i++ {
		products = append(products, Product{
			ID:   uuid.NewSHA1(productNamespace, []byte(fmt.Sprint(i))).String(),
			Name: fmt.Sprintf(m.Product, i),
		})
	}
	return products
}
