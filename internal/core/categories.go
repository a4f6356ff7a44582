package core

import "sort"

type (
	EventCategory  string
	BudgetCategory string

	// CategoryStyle carries the color tokens a view uses for a category.
	CategoryStyle struct {
		Color    string
		BgColor  string
		DotColor string
	}

	EventCategoryInfo struct {
		Label string
		CategoryStyle
	}

	BudgetCategoryInfo struct {
		Label            string
		IconName         string
		DefaultSortOrder int
		CategoryStyle
	}

	// Option is a value/label pair for selection lists.
	Option[T ~string] struct {
		Value T
		Label string
	}
)

const (
	EventWeddingPrep EventCategory = "wedding-prep"
	EventAppointment EventCategory = "appointment"
	EventCelebration EventCategory = "celebration"
	EventTravel      EventCategory = "travel"
	EventPersonal    EventCategory = "personal"
	EventDeadline    EventCategory = "deadline"
)

const (
	BudgetVenueCatering         BudgetCategory = "venue-catering"
	BudgetPhotographyVideo      BudgetCategory = "photography-video"
	BudgetAttireBeauty          BudgetCategory = "attire-beauty"
	BudgetFlowersDecor          BudgetCategory = "flowers-decor"
	BudgetMusicEntertainment    BudgetCategory = "music-entertainment"
	BudgetStationeryInvitations BudgetCategory = "stationery-invitations"
	BudgetTransportation        BudgetCategory = "transportation"
	BudgetFavorsGifts           BudgetCategory = "favors-gifts"
	BudgetOfficiantCeremony     BudgetCategory = "officiant-ceremony"
	BudgetMiscellaneous         BudgetCategory = "miscellaneous"
)

// eventCategoryOrder is the registry's declaration order.
var eventCategoryOrder = []EventCategory{
	EventWeddingPrep, EventAppointment, EventCelebration, EventTravel, EventPersonal, EventDeadline,
}

var EventCategories = map[EventCategory]EventCategoryInfo{
	EventWeddingPrep: {Label: "Wedding Prep", CategoryStyle: CategoryStyle{"text-primary", "bg-primary/10", "bg-primary"}},
	EventAppointment: {Label: "Appointment", CategoryStyle: CategoryStyle{"text-gold-dark", "bg-gold/10", "bg-gold"}},
	EventCelebration: {Label: "Celebration", CategoryStyle: CategoryStyle{"text-accent-dark", "bg-accent/10", "bg-accent"}},
	EventTravel:      {Label: "Travel", CategoryStyle: CategoryStyle{"text-primary-dark", "bg-primary-dark/10", "bg-primary-dark"}},
	EventPersonal:    {Label: "Personal", CategoryStyle: CategoryStyle{"text-muted", "bg-muted/10", "bg-muted"}},
	EventDeadline:    {Label: "Deadline", CategoryStyle: CategoryStyle{"text-error", "bg-error/10", "bg-error"}},
}

var BudgetCategories = map[BudgetCategory]BudgetCategoryInfo{
	BudgetVenueCatering: {
		Label: "Venue & Catering", IconName: "UtensilsCrossed", DefaultSortOrder: 0,
		CategoryStyle: CategoryStyle{"text-primary", "bg-primary/10", "bg-primary"},
	},
	BudgetPhotographyVideo: {
		Label: "Photography & Video", IconName: "Camera", DefaultSortOrder: 1,
		CategoryStyle: CategoryStyle{"text-accent-dark", "bg-accent/10", "bg-accent"},
	},
	BudgetAttireBeauty: {
		Label: "Attire & Beauty", IconName: "Shirt", DefaultSortOrder: 2,
		CategoryStyle: CategoryStyle{"text-primary-dark", "bg-primary-dark/10", "bg-primary-dark"},
	},
	BudgetFlowersDecor: {
		Label: "Flowers & Decor", IconName: "Flower2", DefaultSortOrder: 3,
		CategoryStyle: CategoryStyle{"text-accent-dark", "bg-accent/10", "bg-accent-dark"},
	},
	BudgetMusicEntertainment: {
		Label: "Music & Entertainment", IconName: "Music", DefaultSortOrder: 4,
		CategoryStyle: CategoryStyle{"text-gold-dark", "bg-gold/10", "bg-gold"},
	},
	BudgetStationeryInvitations: {
		Label: "Stationery & Invitations", IconName: "Mail", DefaultSortOrder: 5,
		CategoryStyle: CategoryStyle{"text-primary", "bg-primary/10", "bg-primary-light"},
	},
	BudgetTransportation: {
		Label: "Transportation", IconName: "Car", DefaultSortOrder: 6,
		CategoryStyle: CategoryStyle{"text-primary-dark", "bg-primary-dark/10", "bg-primary-dark"},
	},
	BudgetFavorsGifts: {
		Label: "Favors & Gifts", IconName: "Gift", DefaultSortOrder: 7,
		CategoryStyle: CategoryStyle{"text-gold-dark", "bg-gold/10", "bg-gold-dark"},
	},
	BudgetOfficiantCeremony: {
		Label: "Officiant & Ceremony", IconName: "Heart", DefaultSortOrder: 8,
		CategoryStyle: CategoryStyle{"text-error", "bg-error/10", "bg-error"},
	},
	BudgetMiscellaneous: {
		Label: "Miscellaneous", IconName: "MoreHorizontal", DefaultSortOrder: 9,
		CategoryStyle: CategoryStyle{"text-muted", "bg-muted/10", "bg-muted"},
	},
}

func (c EventCategory) Label() string {
	if info, ok := EventCategories[c]; ok {
		return info.Label
	}
	return string(c)
}

func (c BudgetCategory) Label() string {
	if info, ok := BudgetCategories[c]; ok {
		return info.Label
	}
	return string(c)
}

// DefaultSortOrder returns the registry position, or -1 for unknown keys.
func (c BudgetCategory) DefaultSortOrder() int {
	if info, ok := BudgetCategories[c]; ok {
		return info.DefaultSortOrder
	}
	return -1
}

func EventCategoryOptions() []Option[EventCategory] {
	out := make([]Option[EventCategory], 0, len(eventCategoryOrder))
	for _, c := range eventCategoryOrder {
		out = append(out, Option[EventCategory]{Value: c, Label: EventCategories[c].Label})
	}
	return out
}

// BudgetCategoryList returns every budget category ordered by DefaultSortOrder.
func BudgetCategoryList() []BudgetCategory {
	out := make([]BudgetCategory, 0, len(BudgetCategories))
	for c := range BudgetCategories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return BudgetCategories[out[i]].DefaultSortOrder < BudgetCategories[out[j]].DefaultSortOrder
	})
	return out
}

func BudgetCategoryOptions() []Option[BudgetCategory] {
	list := BudgetCategoryList()
	out := make([]Option[BudgetCategory], 0, len(list))
	for _, c := range list {
		out = append(out, Option[BudgetCategory]{Value: c, Label: BudgetCategories[c].Label})
	}
	return out
}
