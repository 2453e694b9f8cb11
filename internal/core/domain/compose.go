package domain

// Overlay text is always drawn in this font, size and colour.
const (
	StampFont     = "Helvetica"
	StampFontSize = 12
	StampColor    = "#000000"
)

// PageSize is the size of one document page in points
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TextStamp is one piece of text to draw onto a page. X and Y are measured
// from the bottom-left corner, in the document's native coordinate system.
type TextStamp struct {
	FieldID  string  `json:"field_id"`
	Page     int     `json:"page"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Text     string  `json:"text"`
	Font     string  `json:"font"`
	FontSize int     `json:"font_size"`
	Color    string  `json:"color"`
}
