package helpers

import (
	"errors"
)

const (
	ItemTypeArticle  string = "article"
	ItemTypeCategory string = "category"
	ItemTypeUpload   string = "upload"
	ItemTypeUser     string = "user"
)

// ItemTypes are recorded in the audit log
var ItemTypes = map[string]int64{
	ItemTypeArticle:  1,
	ItemTypeCategory: 2,
	ItemTypeUser:     3,
	ItemTypeUpload:   4,
}

const (
	APITypeArticle  string = "/api/v1/articles"
	APITypeCategory string = "/api/v1/categories"
	APITypeDocs     string = "/api/v1/docs"
	APITypeAuth     string = "/api/v1/auth"
	APITypeUpload   string = "/api/v1/uploads"
)

// Content types shared by articles and categories
const (
	ContentTypeBlog string = "blog"
	ContentTypeDoc  string = "doc"
)

// Article statuses
const (
	StatusDraft     string = "draft"
	StatusPublished string = "published"
	StatusArchived  string = "archived"
)

// User roles
const (
	RoleUser  string = "user"
	RoleAdmin string = "admin"
)

// ContentTypes lists the valid values of a type field
var ContentTypes = map[string]bool{
	ContentTypeBlog: true,
	ContentTypeDoc:  true,
}

// Statuses lists the valid values of an article status
var Statuses = map[string]bool{
	StatusDraft:     true,
	StatusPublished: true,
	StatusArchived:  true,
}

// GetItemTypeFromInt returns the item type name for an audit item type id
func GetItemTypeFromInt(value int64) (string, error) {
	return GetMapStringFromInt(ItemTypes, value)
}

// GetMapStringFromInt is a reverse lookup on a map of ids
func GetMapStringFromInt(theMap map[string]int64, value int64) (string, error) {
	for k, v := range theMap {
		if v == value {
			return k, nil
		}
	}
	return "", errors.New("Item does not exist")
}
