// internal/models/draft.go
package models

import "strings"

// Draft is the in-progress workshop profile collected by the onboarding wizard.
type Draft struct {
	Name       string       `json:"name" yaml:"name"`
	Address    string       `json:"address" yaml:"address"`
	Latitude   *float64     `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude  *float64     `json:"longitude,omitempty" yaml:"longitude,omitempty"`
	CategoryID string       `json:"categoryId,omitempty" yaml:"categoryId,omitempty"`
	ServiceIDs []string     `json:"serviceIds" yaml:"serviceIds"`
	Logo       *Attachment  `json:"logo,omitempty" yaml:"logo,omitempty"`
	Photos     []Attachment `json:"photos,omitempty" yaml:"photos,omitempty"`
}

// DraftPatch carries a partial update. Nil fields are left untouched.
type DraftPatch struct {
	Name       *string
	Address    *string
	Latitude   *float64
	Longitude  *float64
	CategoryID *string
	ServiceIDs *[]string
}

// DraftPayload is the wire shape sent to the draft and complete endpoints.
// Attachments travel as filenames only.
type DraftPayload struct {
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	CategoryID string   `json:"categoryId,omitempty"`
	ServiceIDs []string `json:"serviceIds"`
	LogoURL    string   `json:"logoUrl,omitempty"`
	PhotoURLs  []string `json:"photoUrls,omitempty"`
}

// Clone returns a deep copy.
func (d Draft) Clone() Draft {
	out := d
	out.Latitude = cloneFloat(d.Latitude)
	out.Longitude = cloneFloat(d.Longitude)
	out.ServiceIDs = append([]string{}, d.ServiceIDs...)
	if d.Logo != nil {
		logo := *d.Logo
		out.Logo = &logo
	}
	if d.Photos != nil {
		out.Photos = append([]Attachment{}, d.Photos...)
	}
	return out
}

func (d Draft) HasLocation() bool {
	return d.Latitude != nil && d.Longitude != nil
}

func (d *Draft) SetLocation(lat, lng float64) {
	d.Latitude = &lat
	d.Longitude = &lng
}

// ValidCoordinates reports whether lat and lng are a point on the map.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// SelectCategory sets the category and drops every service id that does not belong to it.
// Selecting the current category again changes nothing.
func (d *Draft) SelectCategory(categoryID string, services []Service) {
	if d.CategoryID == categoryID {
		return
	}
	d.CategoryID = categoryID
	d.PruneServices(services)
}

// PruneServices keeps only the ids of catalog services under the current category.
func (d *Draft) PruneServices(services []Service) {
	valid := ServiceIDSet(services, d.CategoryID)
	kept := make([]string, 0, len(d.ServiceIDs))
	for _, id := range d.ServiceIDs {
		if _, ok := valid[id]; ok {
			kept = append(kept, id)
		}
	}
	d.ServiceIDs = kept
}

// ToggleService adds or removes id. Ids outside the selected category are refused.
func (d *Draft) ToggleService(id string, services []Service) bool {
	for i, existing := range d.ServiceIDs {
		if existing == id {
			d.ServiceIDs = append(append([]string{}, d.ServiceIDs[:i]...), d.ServiceIDs[i+1:]...)
			return true
		}
	}
	if _, ok := ServiceIDSet(services, d.CategoryID)[id]; !ok {
		return false
	}
	d.ServiceIDs = append(d.ServiceIDs, id)
	return true
}

// Apply merges patch into the draft. A category change prunes services; an explicit
// service list is deduplicated and then pruned against the resulting category.
func (d *Draft) Apply(patch DraftPatch, services []Service) {
	if patch.Name != nil {
		d.Name = *patch.Name
	}
	if patch.Address != nil {
		d.Address = *patch.Address
	}
	if patch.Latitude != nil {
		d.Latitude = cloneFloat(patch.Latitude)
	}
	if patch.Longitude != nil {
		d.Longitude = cloneFloat(patch.Longitude)
	}
	if patch.ServiceIDs != nil {
		d.ServiceIDs = dedupe(*patch.ServiceIDs)
	}
	if patch.CategoryID != nil && *patch.CategoryID != d.CategoryID {
		d.SelectCategory(*patch.CategoryID, services)
	} else if patch.ServiceIDs != nil {
		d.PruneServices(services)
	}
}

// HasLocalAttachments reports whether any attachment carries bytes to upload.
func (d Draft) HasLocalAttachments() bool {
	if d.Logo != nil && d.Logo.HasData() {
		return true
	}
	for _, p := range d.Photos {
		if p.HasData() {
			return true
		}
	}
	return false
}

// Payload reduces the draft to its wire form.
func (d Draft) Payload() DraftPayload {
	p := DraftPayload{
		Name:       strings.TrimSpace(d.Name),
		Address:    strings.TrimSpace(d.Address),
		Latitude:   cloneFloat(d.Latitude),
		Longitude:  cloneFloat(d.Longitude),
		CategoryID: d.CategoryID,
		ServiceIDs: append([]string{}, d.ServiceIDs...),
	}
	if d.Logo != nil {
		p.LogoURL = d.Logo.Filename
	}
	for _, photo := range d.Photos {
		p.PhotoURLs = append(p.PhotoURLs, photo.Filename)
	}
	return p
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
