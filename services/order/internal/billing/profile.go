package billing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is the restaurant header printed on invoices.
type Profile struct {
	Name    string `yaml:"name" json:"name"`
	Address string `yaml:"address" json:"address"`
	Phone   string `yaml:"phone" json:"phone"`
}

func DefaultProfile() Profile {
	return Profile{
		Name:    "TableFlow",
		Address: "123 Restaurant Street",
		Phone:   "Tel: (555) 123-4567",
	}
}

// LoadProfile reads a YAML profile. An empty path yields the default
// profile and missing fields keep their defaults.
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("cannot read restaurant profile: %w", err)
	}

	var loaded Profile
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return profile, fmt.Errorf("cannot parse restaurant profile: %w", err)
	}

	if loaded.Name != "" {
		profile.Name = loaded.Name
	}
	if loaded.Address != "" {
		profile.Address = loaded.Address
	}
	if loaded.Phone != "" {
		profile.Phone = loaded.Phone
	}
	return profile, nil
}
