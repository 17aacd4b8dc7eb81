package imagedup

import (
	"context"
	"strings"
)

// Room type labels produced by classifiers.
const (
	RoomLivingRoom = "living_room"
	RoomKitchen    = "kitchen"
	RoomBedroom    = "bedroom"
	RoomBathroom   = "bathroom"
	RoomHallway    = "hallway"
	RoomDining     = "dining"
	RoomOffice     = "office"
	RoomOutdoor    = "outdoor"
	RoomOther      = "other"
)

// RoomClassifier assigns a room-type label to an item's descriptive text.
// The engine never instantiates a model itself: callers construct whatever
// implementation they want at startup (the keyword classifier below, or a
// handle onto an external vision model) and pass it in through [Config].
type RoomClassifier interface {
	ClassifyRoom(ctx context.Context, text string) (string, error)
}

// roomKeywords maps each room type to the keywords that indicate it, in
// classification precedence order. Includes Norwegian, Swedish, German, and
// French terms common in the scraped sources.
var roomKeywords = []struct {
	room     string
	keywords []string
}{
	{RoomLivingRoom, []string{
		"living room", "living-room", "lounge", "family room", "sitting room",
		"stue", "vardagsrum", "wohnzimmer", "salon",
	}},
	{RoomKitchen, []string{
		"kitchen", "kitchenette", "cooking", "culinary",
		"kjøkken", "kök", "küche", "cuisine",
	}},
	{RoomBedroom, []string{
		"bedroom", "bed room", "master bedroom", "guest room", "sleeping",
		"soverom", "sovrum", "schlafzimmer", "chambre",
	}},
	{RoomBathroom, []string{
		"bathroom", "bath room", "toilet", "wc", "shower", "ensuite",
		"bad", "badrum", "badezimmer", "salle de bain",
	}},
	{RoomHallway, []string{
		"hallway", "hall", "corridor", "entrance", "entryway", "foyer", "mudroom",
		"gang", "flur", "entrée",
	}},
	{RoomDining, []string{
		"dining room", "dining-room", "dining area", "breakfast nook",
		"spisestue", "matsal", "esszimmer", "salle à manger",
	}},
	{RoomOffice, []string{
		"office", "home office", "study", "workspace", "work from home", "desk",
		"kontor", "hemmakontor", "büro", "bureau",
	}},
	{RoomOutdoor, []string{
		"outdoor", "patio", "terrace", "balcony", "garden", "deck", "veranda",
		"uteplass", "terrasse", "balkong", "hage",
	}},
}

// KeywordClassifier classifies room types by keyword matching over titles,
// descriptions, and prompts. It is cheap, deterministic, and needs no model.
type KeywordClassifier struct{}

// NewKeywordClassifier returns a keyword-based room classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// ClassifyRoom returns the first room type whose keywords appear in text
// (case-insensitive), RoomOther when nothing matches, and "" for empty text.
func (c *KeywordClassifier) ClassifyRoom(_ context.Context, text string) (string, error) {
	if text == "" {
		return "", nil
	}
	lower := strings.ToLower(text)
	for _, entry := range roomKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.room, nil
			}
		}
	}
	return RoomOther, nil
}
