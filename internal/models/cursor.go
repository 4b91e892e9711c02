package models

// MentionCursor is the cursor name under which the ingestor stores the id of
// the newest social post it has already seen.
const MentionCursor = "mention_since_id"

// Cursor is a named progress marker shared by all process instances.
type Cursor struct {
	Name  string `gorm:"column:name;primaryKey;size:255"`
	Value string `gorm:"column:value;not null"`
}

// TableName specifies the table name for GORM
func (Cursor) TableName() string {
	return "cursors"
}
