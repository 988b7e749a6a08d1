package setup

import "strings"

// Snapshot is a read-only copy of a vendor's stored profile fragments.
// Fetching it is the caller's job (see LoadSnapshot); Evaluate itself does no I/O.
type Snapshot struct {
	BusinessName        string
	Category            string
	City                string
	State               string
	ServiceAreas        []string
	Services            []ServiceFragment
	HoursCount          int
	GalleryCount        int
	Instagram           string
	Facebook            string
	Website             string
	FAQs                []FAQFragment
	PaymentAccountReady bool
}

type ServiceFragment struct {
	Name       string
	PriceCents int64
	Active     bool
}

type FAQFragment struct {
	Question string
	Answer   string
}

type Step struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Complete bool   `json:"complete"`
}

type Result struct {
	Steps          []Step `json:"steps"`
	CompletedCount int    `json:"completed_count"`
	TotalCount     int    `json:"total_count"`
	IsComplete     bool   `json:"is_complete"`
}

// Evaluate computes the onboarding checklist for a vendor profile snapshot.
// Missing or malformed fragments read as incomplete, never as an error.
// IsComplete is the AND over required steps only; optional steps count
// toward the completion percentage but never block listing.
func Evaluate(s Snapshot) Result {
	steps := []Step{
		{Key: "basics", Label: "Business basics", Required: true, Complete: basicsComplete(s)},
		{Key: "location", Label: "Location", Required: true, Complete: locationComplete(s)},
		{Key: "services", Label: "Services", Required: true, Complete: servicesComplete(s)},
		{Key: "availability", Label: "Availability", Required: true, Complete: s.HoursCount > 0},
		{Key: "gallery", Label: "Gallery", Required: false, Complete: s.GalleryCount > 0},
		{Key: "social", Label: "Social links", Required: false, Complete: socialComplete(s)},
		{Key: "faq", Label: "FAQ", Required: false, Complete: faqComplete(s)},
		{Key: "payment", Label: "Payment setup", Required: true, Complete: s.PaymentAccountReady},
	}

	res := Result{Steps: steps, TotalCount: len(steps), IsComplete: true}
	for _, st := range steps {
		if st.Complete {
			res.CompletedCount++
		}
		if st.Required && !st.Complete {
			res.IsComplete = false
		}
	}
	return res
}

func basicsComplete(s Snapshot) bool {
	return strings.TrimSpace(s.BusinessName) != "" && strings.TrimSpace(s.Category) != ""
}

func locationComplete(s Snapshot) bool {
	if strings.TrimSpace(s.City) == "" || strings.TrimSpace(s.State) == "" {
		return false
	}
	for _, area := range s.ServiceAreas {
		if strings.TrimSpace(area) != "" {
			return true
		}
	}
	return false
}

func servicesComplete(s Snapshot) bool {
	for _, svc := range s.Services {
		if svc.Active && strings.TrimSpace(svc.Name) != "" && svc.PriceCents > 0 {
			return true
		}
	}
	return false
}

func socialComplete(s Snapshot) bool {
	return strings.TrimSpace(s.Instagram) != "" ||
		strings.TrimSpace(s.Facebook) != "" ||
		strings.TrimSpace(s.Website) != ""
}

func faqComplete(s Snapshot) bool {
	for _, f := range s.FAQs {
		if strings.TrimSpace(f.Question) != "" && strings.TrimSpace(f.Answer) != "" {
			return true
		}
	}
	return false
}
