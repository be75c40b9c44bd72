package normalize

// Style is the icon glyph and accent color for a category
type Style struct {
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

var defaultStyle = Style{Icon: "calendar", Color: "#6B7280"}

var categoryStyles = map[string]Style{
	"academic":     {Icon: "book", Color: "#2563EB"},
	"sports":       {Icon: "basketball", Color: "#16A34A"},
	"music":        {Icon: "musical-notes", Color: "#DB2777"},
	"arts":         {Icon: "color-palette", Color: "#9333EA"},
	"tech":         {Icon: "laptop", Color: "#0891B2"},
	"social":       {Icon: "people", Color: "#F59E0B"},
	"career":       {Icon: "briefcase", Color: "#4B5563"},
	"food":         {Icon: "restaurant", Color: "#EA580C"},
	"health":       {Icon: "fitness", Color: "#DC2626"},
	"volunteering": {Icon: "heart", Color: "#E11D48"},
}

// StyleFor looks up a category. Unknown categories get the generic style.
func StyleFor(category string) Style {
	if s, ok := categoryStyles[category]; ok {
		return s
	}
	return defaultStyle
}
