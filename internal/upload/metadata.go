package upload

import "fmt"

// Attribute is one ERC721 metadata trait entry.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Metadata is the ERC721 metadata document pinned for each revealed
// token (spec.md §4.6 step 3).
type Metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	ExternalURL string      `json:"external_url,omitempty"`
	Attributes  []Attribute `json:"attributes"`
}

// BuildMetadata assembles the metadata document for tokenID. twitterHandle
// is added as a trait when present; externalURL is the supplemented
// gallery-page link (SPEC_FULL.md §3.7).
func BuildMetadata(tokenID uint64, imageCID string, twitterHandle *string, galleryBaseURL string) Metadata {
	m := Metadata{
		Name:        fmt.Sprintf("GLISK S0 #%d", tokenID),
		Description: "GLISK Season 0. https://x.com/getglisk",
		Image:       fmt.Sprintf("ipfs://%s", imageCID),
		Attributes:  []Attribute{},
	}
	if galleryBaseURL != "" {
		m.ExternalURL = fmt.Sprintf("%s/token/%d", galleryBaseURL, tokenID)
	}
	if twitterHandle != nil && *twitterHandle != "" {
		m.Attributes = append(m.Attributes, Attribute{TraitType: "Author X Handle", Value: "@" + *twitterHandle})
	}
	return m
}
