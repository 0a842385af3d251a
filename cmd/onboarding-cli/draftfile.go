// cmd/onboarding-cli/draftfile.go
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"workshop-onboarding/internal/models"
	stepcontroller "workshop-onboarding/internal/onboarding/step-controller"
)

// draftFile is the operator's answers to the wizard. Empty fields keep what the backend
// already holds. Paths are relative to the file.
type draftFile struct {
	Name       string   `yaml:"name"`
	Address    string   `yaml:"address"`
	Latitude   *float64 `yaml:"latitude"`
	Longitude  *float64 `yaml:"longitude"`
	CategoryID string   `yaml:"categoryId"`
	ServiceIDs []string `yaml:"serviceIds"`
	Logo       string   `yaml:"logo"`
	Photos     []string `yaml:"photos"`

	path string
	dir  string
}

func loadDraftFile(path string) (*draftFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read draft file: %w", err)
	}
	var f draftFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse draft file %s: %w", path, err)
	}
	if (f.Latitude == nil) != (f.Longitude == nil) {
		return nil, fmt.Errorf("draft file %s: latitude and longitude must be given together", path)
	}
	f.path = path
	f.dir = filepath.Dir(path)
	return &f, nil
}

func (f *draftFile) attachment(path string) (models.Attachment, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("read attachment: %w", err)
	}
	return models.NewAttachment(filepath.Base(path), data), nil
}

// apply feeds the file into the wizard through the same operations a UI would call.
func (f *draftFile) apply(c *stepcontroller.Controller) error {
	patch := models.DraftPatch{}
	if f.Name != "" {
		patch.Name = &f.Name
	}
	if f.Address != "" {
		patch.Address = &f.Address
	}
	if err := c.UpdateDraft(patch); err != nil {
		return err
	}

	if f.Latitude != nil {
		if err := c.SetLocation(*f.Latitude, *f.Longitude); err != nil {
			return err
		}
	}

	if f.CategoryID != "" {
		if err := c.SelectCategory(f.CategoryID); err != nil {
			return err
		}
	}
	if f.ServiceIDs != nil {
		ids := append([]string{}, f.ServiceIDs...)
		if err := c.UpdateDraft(models.DraftPatch{ServiceIDs: &ids}); err != nil {
			return err
		}
	}

	if f.Logo != "" {
		logo, err := f.attachment(f.Logo)
		if err != nil {
			return err
		}
		if err := c.SetLogo(logo); err != nil {
			return err
		}
	}
	if len(f.Photos) > 0 {
		photos := make([]models.Attachment, 0, len(f.Photos))
		for _, p := range f.Photos {
			photo, err := f.attachment(p)
			if err != nil {
				return err
			}
			photos = append(photos, photo)
		}
		if err := c.AddPhotos(photos...); err != nil {
			return err
		}
	}
	return nil
}
