package services

import "aeterna/internal/models"

// ARPreview describes the AR overlay suggested to a persona
type ARPreview struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Media string `json:"media"`
	CTA   string `json:"cta"`
}

func (p ARPreview) toMap() map[string]interface{} {
	return map[string]interface{}{
		"type":  p.Type,
		"title": p.Title,
		"media": p.Media,
		"cta":   p.CTA,
	}
}

var arPreviews = map[string]ARPreview{
	"priya": {Type: "ar-preview", Title: "Uluru Dawn Family Preview", Media: "/assets/videos/TheGeologicOddity_Uluru_Australia.mp4", CTA: "View dawn overlay"},
	"jax":   {Type: "ar-preview", Title: "MCG Ashes Replay", Media: "/assets/videos/Sir-Don-Bradman_100-Century_SCG_15-11-1947.mp4", CTA: "Launch sporting chronicle"},
	"lena":  {Type: "ar-preview", Title: "Anangu Co-designed Overlay", Media: "/assets/images/Uluru_Australia.jpg", CTA: "Review cultural layers"},
	"mike":  {Type: "ar-dashboard", Title: "Uluru Capacity Console", Media: "/assets/images/pattern-Uluru_Australia.png", CTA: "Open ops dashboard"},
	"amara": {Type: "ar-quest", Title: "Desert Stars Quest", Media: "/assets/images/Uluru_Australia.jpg", CTA: "Start scavenger hunt"},
	"kabir": {Type: "ar-companion", Title: "Waru the Gecko Buddy", Media: "/assets/images/pattern-MCG_Australia.png", CTA: "Summon AR buddy"},
}

var fallbackARPreview = ARPreview{
	Type:  "ar-preview",
	Title: "Echoes Time-Weave Preview",
	Media: "/assets/videos/TheSydneyOperaHouse_BBC_Australia.mp4",
	CTA:   "Preview AR overlay",
}

// arPreviewFor returns the persona's AR preview, or the generic one
func arPreviewFor(persona models.PersonaProfile) ARPreview {
	if p, ok := arPreviews[persona.Key]; ok {
		return p
	}
	return fallbackARPreview
}

// previewAttachments builds the attachments sent with every query. The
// preview attachment is always typed "ar-preview" whatever the overlay kind.
func previewAttachments(preview ARPreview) []models.Attachment {
	return []models.Attachment{
		{
			"type":  "ar-preview",
			"title": preview.Title,
			"media": preview.Media,
			"cta":   preview.CTA,
		},
		{
			"type":  "itinerary-graph",
			"title": "Crowd & Weather Fusion",
			"url":   "/dashboard?view=analytics",
		},
	}
}
