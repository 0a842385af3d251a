package models

import "strings"

// Workshop is the operator's workshop profile. TenantID is assigned by the backend and
// never edited.
type Workshop struct {
	ID          int64  `json:"id" yaml:"id"`
	UserID      int64  `json:"userId" yaml:"userId"`
	TenantID    string `json:"tenantId" yaml:"tenantId"`
	Name        string `json:"name" yaml:"name"`
	Address     string `json:"address" yaml:"address"`
	PhoneNumber string `json:"phoneNumber" yaml:"phoneNumber"`
}

type UpdateWorkshopRequest struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phoneNumber"`
}

// EditRequest starts an update from the current profile so unchanged fields are resent.
func (w Workshop) EditRequest() UpdateWorkshopRequest {
	return UpdateWorkshopRequest{Name: w.Name, Address: w.Address, PhoneNumber: w.PhoneNumber}
}

// Normalize trims every field.
func (r UpdateWorkshopRequest) Normalize() UpdateWorkshopRequest {
	return UpdateWorkshopRequest{
		Name:        strings.TrimSpace(r.Name),
		Address:     strings.TrimSpace(r.Address),
		PhoneNumber: strings.TrimSpace(r.PhoneNumber),
	}
}

// Validate returns one message per missing field. All three are required.
func (r UpdateWorkshopRequest) Validate() map[string]string {
	r = r.Normalize()
	fields := map[string]string{}
	if r.Name == "" {
		fields["name"] = "Workshop name is required"
	}
	if r.Address == "" {
		fields["address"] = "Address is required"
	}
	if r.PhoneNumber == "" {
		fields["phoneNumber"] = "Phone number is required"
	}
	return fields
}
