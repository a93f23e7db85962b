package domain

// Category is the volatility class of a market. Closed enumeration.
type Category string

const (
	CategoryWeather   Category = "WEATHER"
	CategoryCrypto    Category = "CRYPTO"
	CategoryEquities  Category = "EQUITIES"
	CategoryEconomics Category = "ECONOMICS"
	CategorySports    Category = "SPORTS"
	CategorySocial    Category = "SOCIAL"
	CategoryPolitics  Category = "POLITICS"
	CategoryOther     Category = "OTHER"
)

// Categories lists every category in classification order.
var Categories = []Category{
	CategorySports,
	CategorySocial,
	CategoryCrypto,
	CategoryEquities,
	CategoryEconomics,
	CategoryWeather,
	CategoryPolitics,
	CategoryOther,
}

// ParseCategory maps a stored string back to a Category. Unknown values become OTHER.
func ParseCategory(s string) Category {
	for _, c := range Categories {
		if string(c) == s {
			return c
		}
	}
	return CategoryOther
}
