package entities

// Entry is a single key/value row of a store table. Every table in every
// database shares this shape; the value is an opaque JSON document.
type Entry struct {
	ID    string `gorm:"primaryKey;size:512" json:"id"`
	Value string `gorm:"type:text;not null" json:"value"`
}
