package models

import "image"

// Roster column headers, in the order the scraper writes them.
const (
	ColumnDate     = "Date"
	ColumnImage    = "image"
	ColumnName     = "Name"
	ColumnAddress  = "Address"
	ColumnRole     = "Roll"
	ColumnPhone    = "Phone"
	ColumnWhatsApp = "WhatsApp"
)

// RosterColumns is the fixed column order of a roster file.
var RosterColumns = []string{
	ColumnDate, ColumnImage, ColumnName, ColumnAddress, ColumnRole, ColumnPhone, ColumnWhatsApp,
}

// RequiredColumns must be present in every roster header.
var RequiredColumns = []string{ColumnDate, ColumnImage, ColumnName, ColumnAddress, ColumnRole}

// RosterRow is one member record from the roster file.
type RosterRow struct {
	Date     string `json:"date"`
	ImageURL string `json:"image"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Role     string `json:"role"`
	Phone    string `json:"phone,omitempty"`
	WhatsApp string `json:"whatsapp,omitempty"`
}

// Values returns the row in RosterColumns order.
func (r RosterRow) Values() []string {
	return []string{r.Date, r.ImageURL, r.Name, r.Address, r.Role, r.Phone, r.WhatsApp}
}

// Composition is a rendered greeting and the file it was saved to.
type Composition struct {
	Image *image.RGBA
	Path  string
}

// PublishRecord describes a single media send through the gateway.
type PublishRecord struct {
	ImageURL  string `json:"url"`
	Caption   string `json:"caption"`
	Recipient string `json:"recipient"`
	Group     bool   `json:"group"`
}

// Occasion is the kind of greeting being sent on a run.
type Occasion struct {
	Name         string
	Roster       string
	Suffix       string
	DMCaption    string
	GroupCaption string
}
