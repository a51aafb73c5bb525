package service

import "fleet/internal/domain"

// AddOnCatalog resolves add-on ids to their pricing definitions.
type AddOnCatalog map[string]domain.AddOn

// DefaultAddOnCatalog returns the built-in add-on catalog. Kept in
// code until the inventory collaborator owns add-on definitions.
func DefaultAddOnCatalog() AddOnCatalog {
	return AddOnCatalog{
		"child_seat": {ID: "child_seat", Name: "Child seat", BasePrice: 15, ModifierPercent: 100},
		"wifi":       {ID: "wifi", Name: "Onboard WiFi", BasePrice: 10, ModifierPercent: 100},
		"chauffeur":  {ID: "chauffeur", Name: "Chauffeur service", BasePrice: 120, ModifierPercent: 100},
		"insurance":  {ID: "insurance", Name: "Premium insurance", BasePrice: 40, ModifierPercent: 125},
		"luggage":    {ID: "luggage", Name: "Extra luggage rack", BasePrice: 8, ModifierPercent: 100},
	}
}

// Resolve maps an add-on id and quantity to a priced input. The second
// return value reports whether the id exists.
func (c AddOnCatalog) Resolve(id string, quantity int) (AddOnInput, bool) {
	addOn, ok := c[id]
	if !ok {
		return AddOnInput{}, false
	}
	return AddOnInput{AddOn: addOn, Quantity: quantity}, true
}
