// Package model defines the records persisted on the device.
//
// All records are plain data. The JSON field names are the persisted layout,
// so renaming a tag is a storage format change.
package model

// User is the single local account of this device session.
//
// UserID is assigned once at verification time and never changes afterwards.
// Optional fields use the empty string for "not set" and are omitted from the
// stored blob.
type User struct {
	Phone      string `json:"phone"`
	UserID     string `json:"userId"`
	Username   string `json:"username,omitempty"`
	Avatar     string `json:"avatar,omitempty"`     // image reference, e.g. a data: URL
	CoverImage string `json:"coverImage,omitempty"` // image reference
}

// UserPatch is a partial update of a User. A nil field means "leave as is".
// UserID is deliberately absent: it is immutable once created.
type UserPatch struct {
	Phone      *string `json:"phone,omitempty"`
	Username   *string `json:"username,omitempty"`
	Avatar     *string `json:"avatar,omitempty"`
	CoverImage *string `json:"coverImage,omitempty"`
}

// Apply returns u with every non-nil patch field written over it.
func (p UserPatch) Apply(u User) User {
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.CoverImage != nil {
		u.CoverImage = *p.CoverImage
	}
	return u
}

// IsEmpty reports whether the patch would change nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Phone == nil && p.Username == nil && p.Avatar == nil && p.CoverImage == nil
}
