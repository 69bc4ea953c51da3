package category

// DefaultMapping returns a fresh copy of the Payper workwear vocabulary.
func DefaultMapping() map[string]string {
	return map[string]string{
		"polo-shirts":        "Polos",
		"t-shirts":           "T-shirts",
		"shirts":             "Chemises",
		"sweatshirts":        "Sweatshirts",
		"pullovers":          "Pullovers",
		"polar-jackets":      "Polaires",
		"4-season":           "4 saisons",
		"work-coats":         "Blouses",
		"vests":              "Gilets",
		"jackets":            "Vestes",
		"soft-shells":        "Softshell",
		"padded-soft-shells": "Softshell matelassé",
		"bermuda-shorts":     "Bermudas",
		"denim":              "Jeans",
		"trousers":           "Pantalons",
		"sweat-trousers":     "Jogging",
		"overall-and-bib":    "Salopettes",
		"thermal-shirts":     "T-shirts thermiques",
		"anti-rain":          "Anti-pluie",
		"thermal-pants":      "Pantalons thermiques",
		"swimwear":           "Maillots",
		"accessories":        "Accessoires",
		"merchandising":      "Merchandising",
		"neckwarmer":         "Tour de cou",
		"high-visibility":    "Haute visibilité",
		"tech-nik":           "Tech-nik",
		"multipro":           "Multipro",
		"industry":           "Industrie",
		"corporate":          "Entreprise",
	}
}
