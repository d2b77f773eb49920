// internal/events/library.go
package events

const (
	EventTitleAdded     = "title.added"
	EventTitleUpdated   = "title.updated"
	EventTitleDeleted   = "title.deleted"
	EventProfileTouched = "profile.touched"
)

// TitleAdded is emitted when a title document is created.
type TitleAdded struct {
	BaseEvent
	CatalogID int64  `json:"catalog_id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
}

// TitleUpdated is emitted when fields of a title document change.
// Only the written fields are set.
type TitleUpdated struct {
	BaseEvent
	Title    string  `json:"title,omitempty"`
	Status   *string `json:"status,omitempty"`
	Progress *int    `json:"progress,omitempty"`
}

// TitleDeleted is emitted when a title document is removed.
type TitleDeleted struct {
	BaseEvent
	Title string `json:"title,omitempty"`
}

// ProfileTouched is emitted when the profile's lastModified marker moves.
type ProfileTouched struct {
	BaseEvent
}
