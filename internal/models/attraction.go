package models

// Attraction is one AR-enabled site shown to visitors
type Attraction struct {
	ID          string                 `json:"id" yaml:"id"`
	Name        string                 `json:"name" yaml:"name"`
	Type        string                 `json:"type" yaml:"type"`
	Marker      map[string]interface{} `json:"marker" yaml:"marker"`
	ImageNFT    map[string]interface{} `json:"imageNFT" yaml:"imageNFT"`
	Location    map[string]interface{} `json:"location" yaml:"location"`
	VideoURL    string                 `json:"videoUrl,omitempty" yaml:"videoUrl"`
	Thumbnail   string                 `json:"thumbnail,omitempty" yaml:"thumbnail"`
	City        string                 `json:"city,omitempty" yaml:"city"`
	Description string                 `json:"description,omitempty" yaml:"description"`
}

// ToMap returns the JSON-shaped form used inside assistant context payloads
func (a Attraction) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"id":          a.ID,
		"name":        a.Name,
		"type":        a.Type,
		"marker":      a.Marker,
		"imageNFT":    a.ImageNFT,
		"location":    a.Location,
		"videoUrl":    a.VideoURL,
		"thumbnail":   a.Thumbnail,
		"city":        a.City,
		"description": a.Description,
	}
}
