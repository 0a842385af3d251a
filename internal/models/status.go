package models

// StepTag names an onboarding requirement tracked by the backend.
type StepTag string

const (
	StepBasicInfo StepTag = "BASIC_INFO"
	StepPhotos    StepTag = "PHOTOS"
	StepLocation  StepTag = "LOCATION"
	StepCategory  StepTag = "CATEGORY"
	StepServices  StepTag = "SERVICES"
)

// RequiredSteps are the server-tracked requirements in resume priority order.
// Photos are optional and never reported as missing.
var RequiredSteps = []StepTag{StepBasicInfo, StepLocation, StepCategory, StepServices}

func (t StepTag) IsRequired() bool {
	for _, r := range RequiredSteps {
		if r == t {
			return true
		}
	}
	return false
}

// OnboardingStatus is the backend's view of the workshop's onboarding.
type OnboardingStatus struct {
	OnboardingCompleted bool      `json:"onboardingCompleted"`
	Name                string    `json:"name,omitempty"`
	Address             string    `json:"address,omitempty"`
	Latitude            *float64  `json:"latitude,omitempty"`
	Longitude           *float64  `json:"longitude,omitempty"`
	CategoryID          string    `json:"categoryId,omitempty"`
	ServiceIDs          []string  `json:"serviceIds,omitempty"`
	LogoURL             string    `json:"logoUrl,omitempty"`
	PhotoURLs           []string  `json:"photoUrls,omitempty"`
	MissingSteps        []StepTag `json:"missingSteps"`
}

// RequiredMissing returns the distinct required tags in MissingSteps, in the order received.
// Unknown tags are ignored.
func (s *OnboardingStatus) RequiredMissing() []StepTag {
	if s == nil {
		return nil
	}
	seen := make(map[StepTag]struct{}, len(s.MissingSteps))
	out := make([]StepTag, 0, len(s.MissingSteps))
	for _, tag := range s.MissingSteps {
		if !tag.IsRequired() {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// ToDraft hydrates a draft from the remote status. Attachments become remote references.
func (s *OnboardingStatus) ToDraft() Draft {
	d := Draft{ServiceIDs: []string{}}
	if s == nil {
		return d
	}
	d.Name = s.Name
	d.Address = s.Address
	d.Latitude = cloneFloat(s.Latitude)
	d.Longitude = cloneFloat(s.Longitude)
	d.CategoryID = s.CategoryID
	d.ServiceIDs = dedupe(s.ServiceIDs)
	if s.LogoURL != "" {
		logo := RemoteAttachment(s.LogoURL)
		d.Logo = &logo
	}
	for _, name := range s.PhotoURLs {
		if name != "" {
			d.Photos = append(d.Photos, RemoteAttachment(name))
		}
	}
	return d
}
