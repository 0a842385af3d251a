package models

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

type Service struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CategoryID  string `json:"categoryId"`
	Icon        string `json:"icon,omitempty"`
}

// ServicesInCategory filters the catalog, keeping catalog order.
func ServicesInCategory(services []Service, categoryID string) []Service {
	out := make([]Service, 0)
	if categoryID == "" {
		return out
	}
	for _, s := range services {
		if s.CategoryID == categoryID {
			out = append(out, s)
		}
	}
	return out
}

// ServiceIDSet returns the ids of the services under categoryID.
func ServiceIDSet(services []Service, categoryID string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, s := range ServicesInCategory(services, categoryID) {
		set[s.ID] = struct{}{}
	}
	return set
}

// FindCategory looks up a category by id.
func FindCategory(categories []Category, id string) (Category, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}
